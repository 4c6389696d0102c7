package usecase

import (
	"context"
	"time"

	"roamly/internal/domain/entity"
	"roamly/internal/domain/repository"
	"roamly/internal/infrastructure/ratelimit"
	"roamly/pkg/errors"
	"roamly/pkg/logger"
	"roamly/pkg/utils"
)

// Server-emitted event names. These are the wire contract with the
// mobile client; the realtime layer and the stateless path both publish
// through them.
const (
	EventNewMessage          = "newMessage"
	EventMessageNotification = "messageNotification"
	EventMessagesRead        = "messagesRead"
)

// ConversationTopic names the broadcast group for one conversation. A
// user's per-user group is simply the user id.
func ConversationTopic(conversationID string) string {
	return "conversation:" + conversationID
}

// EventPublisher is the broadcast primitive the messaging core fans out
// through. Best-effort: failures here never roll back a store write.
type EventPublisher interface {
	Publish(topic, event string, payload interface{})
	PublishToUser(userID, event string, payload interface{})
}

// MessagingUseCase is the single domain core behind both the stateless
// handlers and the realtime event handlers.
type MessagingUseCase struct {
	conversationRepo repository.ConversationRepository
	userRepo         repository.UserRepository
	vehicleRepo      repository.VehicleRepository
	publisher        EventPublisher
	rateLimiter      *ratelimit.RateLimiter
}

func NewMessagingUseCase(
	conversationRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
	vehicleRepo repository.VehicleRepository,
	publisher EventPublisher,
	rateLimiter *ratelimit.RateLimiter,
) *MessagingUseCase {
	return &MessagingUseCase{
		conversationRepo: conversationRepo,
		userRepo:         userRepo,
		vehicleRepo:      vehicleRepo,
		publisher:        publisher,
		rateLimiter:      rateLimiter,
	}
}

type SendMessageInput struct {
	ConversationID string
	RecipientID    string
	Content        string
	VehicleID      string
	AttachmentURL  string
}

type CreateConversationInput struct {
	RecipientID    string
	VehicleID      string
	InitialMessage string
}

type ConversationResponse struct {
	*entity.Conversation
	ParticipantProfiles []*entity.UserSummary `json:"participant_profiles,omitempty"`
	Vehicle             *entity.Vehicle       `json:"vehicle,omitempty"`
}

type MessageResponse struct {
	*entity.Message
	Sender *entity.UserSummary `json:"sender,omitempty"`
}

// MessageNotification is the compact per-user fan-out payload for
// participants not subscribed to the conversation topic.
type MessageNotification struct {
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	SenderName     string `json:"sender_name"`
	Preview        string `json:"preview"`
}

type ReadStateChange struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

const notificationPreviewRunes = 120

// ListConversations returns every conversation the user participates
// in, newest activity first, annotated with participant profiles and
// the vehicle under discussion. No side effects.
func (uc *MessagingUseCase) ListConversations(ctx context.Context, userID string, limit, offset int) ([]*ConversationResponse, int64, error) {
	conversations, total, err := uc.conversationRepo.ListByUserID(ctx, userID, limit, offset)
	if err != nil {
		logger.Error("ListConversations: failed to list conversations for user %s: %v", userID, err)
		return nil, 0, err
	}

	responses := make([]*ConversationResponse, 0, len(conversations))
	for _, conversation := range conversations {
		responses = append(responses, uc.annotateConversation(ctx, conversation))
	}

	return responses, total, nil
}

// GetMessages returns the conversation's messages in creation order.
// Side effect: every message not sent by userID is marked read and a
// read-state event goes out to the conversation topic.
func (uc *MessagingUseCase) GetMessages(ctx context.Context, conversationID, userID string, limit, offset int) ([]*MessageResponse, int64, error) {
	conversation, err := uc.authorizeParticipant(ctx, conversationID, userID)
	if err != nil {
		return nil, 0, err
	}

	messages, total, err := uc.conversationRepo.ListMessages(ctx, conversationID, limit, offset)
	if err != nil {
		logger.Error("GetMessages: failed to list messages for conversation %s: %v", conversationID, err)
		return nil, 0, err
	}

	if err := uc.markReadAndBroadcast(ctx, conversation, userID); err != nil {
		// The caller already has the messages; read-state catches up on
		// the next fetch.
		logger.Warn("GetMessages: failed to mark conversation %s read for user %s: %v", conversationID, userID, err)
	}

	summaries := uc.summarizeParticipants(ctx, conversation)
	responses := make([]*MessageResponse, 0, len(messages))
	for _, message := range messages {
		resp := &MessageResponse{Message: message}
		if message.SenderID != userID {
			message.Read = true
		}
		if sender, ok := summaries[message.SenderID]; ok {
			resp.Sender = sender
		}
		responses = append(responses, resp)
	}

	return responses, total, nil
}

// SendMessage appends a message to a conversation, resolving the
// conversation from RecipientID on first contact. Exactly one of
// ConversationID and RecipientID must be set.
func (uc *MessagingUseCase) SendMessage(ctx context.Context, userID string, input SendMessageInput) (*MessageResponse, error) {
	if (input.ConversationID == "") == (input.RecipientID == "") {
		return nil, errors.BadRequest("Exactly one of conversation_id and recipient_id is required", nil)
	}
	if input.Content == "" && input.AttachmentURL == "" {
		return nil, errors.BadRequest("Message content is required", nil)
	}

	if allowed, wait := uc.rateLimiter.Allow(userID, "send_message"); !allowed {
		return nil, errors.TooManyRequests("Sending messages too quickly", wait)
	}

	sender, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.NotFound("Sender", err)
	}

	var conversation *entity.Conversation
	if input.RecipientID != "" {
		conversation, err = uc.resolveDirectConversation(ctx, userID, input.RecipientID, input.VehicleID)
	} else {
		conversation, err = uc.authorizeParticipant(ctx, input.ConversationID, userID)
	}
	if err != nil {
		return nil, err
	}

	message := &entity.Message{
		ConversationID: conversation.ID,
		SenderID:       userID,
		Content:        input.Content,
		AttachmentURL:  input.AttachmentURL,
		Read:           false,
		CreatedAt:      time.Now(),
	}

	if err := uc.conversationRepo.CreateMessage(ctx, message); err != nil {
		logger.Error("SendMessage: failed to persist message in conversation %s: %v", conversation.ID, err)
		return nil, err
	}

	// Persistence succeeded; everything below is best-effort fan-out.
	uc.broadcastMessage(conversation, message, sender)

	return &MessageResponse{Message: message, Sender: sender.Summary()}, nil
}

// CreateConversation finds or creates the direct conversation with the
// recipient, optionally seeding a first message.
func (uc *MessagingUseCase) CreateConversation(ctx context.Context, userID string, input CreateConversationInput) (*ConversationResponse, error) {
	if input.RecipientID == "" {
		return nil, errors.BadRequest("recipient_id is required", nil)
	}

	if allowed, wait := uc.rateLimiter.Allow(userID, "create_conversation"); !allowed {
		return nil, errors.TooManyRequests("Creating conversations too quickly", wait)
	}

	conversation, err := uc.resolveDirectConversation(ctx, userID, input.RecipientID, input.VehicleID)
	if err != nil {
		return nil, err
	}

	if input.InitialMessage != "" {
		messageResp, err := uc.SendMessage(ctx, userID, SendMessageInput{
			ConversationID: conversation.ID,
			Content:        input.InitialMessage,
		})
		if err != nil {
			logger.Error("CreateConversation: failed to send initial message in %s: %v", conversation.ID, err)
			return nil, err
		}
		conversation.LastMessage = messageResp.Message
		conversation.UpdatedAt = messageResp.CreatedAt
	}

	return uc.annotateConversation(ctx, conversation), nil
}

// MarkRead flips the read flag on every message not sent by userID and
// broadcasts the read-state change to the conversation topic.
func (uc *MessagingUseCase) MarkRead(ctx context.Context, conversationID, userID string) error {
	conversation, err := uc.authorizeParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	return uc.markReadAndBroadcast(ctx, conversation, userID)
}

// AuthorizeParticipant exposes the participant check to the realtime
// layer for joinConversation requests.
func (uc *MessagingUseCase) AuthorizeParticipant(ctx context.Context, conversationID, userID string) error {
	_, err := uc.authorizeParticipant(ctx, conversationID, userID)
	return err
}

// AllowTyping rate-limits ephemeral typing events; over-limit events
// are dropped, never errored.
func (uc *MessagingUseCase) AllowTyping(userID string) bool {
	allowed, _ := uc.rateLimiter.Allow(userID, "typing")
	return allowed
}

func (uc *MessagingUseCase) authorizeParticipant(ctx context.Context, conversationID, userID string) (*entity.Conversation, error) {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(userID) {
		logger.Warn("User %s denied access to conversation %s", userID, conversationID)
		return nil, errors.Forbidden("Not a participant in this conversation", nil)
	}
	return conversation, nil
}

func (uc *MessagingUseCase) resolveDirectConversation(ctx context.Context, userID, recipientID, vehicleID string) (*entity.Conversation, error) {
	if userID == recipientID {
		return nil, errors.BadRequest("Cannot start a conversation with yourself", nil)
	}

	if _, err := uc.userRepo.GetByID(ctx, recipientID); err != nil {
		return nil, errors.NotFound("Recipient", err)
	}

	if vehicleID != "" {
		if _, err := uc.vehicleRepo.GetByID(ctx, vehicleID); err != nil {
			return nil, errors.NotFound("Vehicle", err)
		}
	}

	conversation, created, err := uc.conversationRepo.GetOrCreateDirect(ctx, userID, recipientID, vehicleID)
	if err != nil {
		return nil, err
	}
	if created {
		logger.Info("Created direct conversation %s", conversation.ID)
	}
	return conversation, nil
}

func (uc *MessagingUseCase) markReadAndBroadcast(ctx context.Context, conversation *entity.Conversation, userID string) error {
	changed, err := uc.conversationRepo.MarkMessagesRead(ctx, conversation.ID, userID)
	if err != nil {
		return err
	}
	if changed == 0 {
		return nil
	}

	uc.publisher.Publish(ConversationTopic(conversation.ID), EventMessagesRead, &ReadStateChange{
		ConversationID: conversation.ID,
		UserID:         userID,
	})
	return nil
}

// broadcastMessage performs the two fan-out effects of a send: the full
// message to the conversation topic, and a compact notification to each
// other participant's per-user group.
func (uc *MessagingUseCase) broadcastMessage(conversation *entity.Conversation, message *entity.Message, sender *entity.User) {
	uc.publisher.Publish(ConversationTopic(conversation.ID), EventNewMessage, &MessageResponse{
		Message: message,
		Sender:  sender.Summary(),
	})

	notification := &MessageNotification{
		MessageID:      message.ID,
		ConversationID: conversation.ID,
		SenderID:       sender.ID,
		SenderName:     sender.Username,
		Preview:        utils.TruncateRunes(message.Content, notificationPreviewRunes),
	}
	for _, participantID := range conversation.Participants {
		if participantID == sender.ID {
			continue
		}
		uc.publisher.PublishToUser(participantID, EventMessageNotification, notification)
	}
}

func (uc *MessagingUseCase) annotateConversation(ctx context.Context, conversation *entity.Conversation) *ConversationResponse {
	resp := &ConversationResponse{Conversation: conversation}

	summaries := uc.summarizeParticipants(ctx, conversation)
	for _, participantID := range conversation.Participants {
		if summary, ok := summaries[participantID]; ok {
			resp.ParticipantProfiles = append(resp.ParticipantProfiles, summary)
		}
	}

	if conversation.VehicleID != "" {
		vehicle, err := uc.vehicleRepo.GetByID(ctx, conversation.VehicleID)
		if err == nil {
			resp.Vehicle = vehicle
		} else {
			logger.Warn("Vehicle %s not found for conversation %s: %v", conversation.VehicleID, conversation.ID, err)
		}
	}

	return resp
}

func (uc *MessagingUseCase) summarizeParticipants(ctx context.Context, conversation *entity.Conversation) map[string]*entity.UserSummary {
	summaries := make(map[string]*entity.UserSummary, len(conversation.Participants))
	for _, participantID := range conversation.Participants {
		user, err := uc.userRepo.GetByID(ctx, participantID)
		if err != nil {
			logger.Warn("Participant %s not found for conversation %s: %v", participantID, conversation.ID, err)
			continue
		}
		summaries[participantID] = user.Summary()
	}
	return summaries
}
