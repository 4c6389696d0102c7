package realtime

import (
	"context"
	"encoding/json"
	"errors"

	"roamly/internal/usecase"
	apperrors "roamly/pkg/errors"
	"roamly/pkg/logger"
)

// EventHandler routes client-emitted events to the messaging core and
// the group-membership table. A failing handler answers with a
// messageError event; it never closes the connection.
type EventHandler struct {
	manager   *Manager
	messaging *usecase.MessagingUseCase
}

func NewEventHandler(manager *Manager, messaging *usecase.MessagingUseCase) *EventHandler {
	return &EventHandler{
		manager:   manager,
		messaging: messaging,
	}
}

func (h *EventHandler) Handle(conn *Connection, raw []byte) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		h.sendError(conn, "Invalid event format")
		return
	}

	logger.Debug("Event %s from connection %s (user %s)", envelope.Event, conn.ID, conn.UserID)

	switch envelope.Event {
	case EventJoinConversation:
		h.handleJoinConversation(conn, envelope.Data)
	case EventLeaveConversation:
		h.handleLeaveConversation(conn, envelope.Data)
	case EventSendMessage:
		h.handleSendMessage(conn, envelope.Data)
	case EventMarkMessagesRead:
		h.handleMarkRead(conn, envelope.Data)
	case EventTyping:
		h.handleTyping(conn, envelope.Data, true)
	case EventStopTyping:
		h.handleTyping(conn, envelope.Data, false)
	case EventSubscribeLocations:
		h.handleLocationSubscription(conn, envelope.Data, true)
	case EventUnsubscribeLocations:
		h.handleLocationSubscription(conn, envelope.Data, false)
	case EventSubscribeItinerary:
		h.handleItinerarySubscription(conn, envelope.Data)
	case EventSubscribeAlerts:
		h.handleAlertSubscription(conn, envelope.Data)
	default:
		h.sendError(conn, "Unknown event: "+envelope.Event)
	}
}

func (h *EventHandler) handleJoinConversation(conn *Connection, data json.RawMessage) {
	var ref conversationRef
	if err := json.Unmarshal(data, &ref); err != nil || ref.ConversationID == "" {
		h.sendError(conn, "conversation_id is required")
		return
	}

	if err := h.messaging.AuthorizeParticipant(context.Background(), ref.ConversationID, conn.UserID); err != nil {
		h.sendAppError(conn, err)
		return
	}

	h.manager.Join(usecase.ConversationTopic(ref.ConversationID), conn)
}

func (h *EventHandler) handleLeaveConversation(conn *Connection, data json.RawMessage) {
	var ref conversationRef
	if err := json.Unmarshal(data, &ref); err != nil || ref.ConversationID == "" {
		h.sendError(conn, "conversation_id is required")
		return
	}
	h.manager.Leave(usecase.ConversationTopic(ref.ConversationID), conn)
}

func (h *EventHandler) handleSendMessage(conn *Connection, data json.RawMessage) {
	var payload sendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(conn, "Invalid sendMessage payload")
		return
	}

	// Same core operation as POST /v1/messages; the store write and
	// both broadcasts happen inside the messaging core.
	message, err := h.messaging.SendMessage(context.Background(), conn.UserID, usecase.SendMessageInput{
		ConversationID: payload.ConversationID,
		Content:        payload.Content,
		AttachmentURL:  payload.AttachmentURL,
	})
	if err != nil {
		h.sendAppError(conn, err)
		return
	}

	h.manager.SendToConnection(conn, EventMessageSent, &messageSentPayload{
		MessageID:      message.ID,
		ConversationID: message.ConversationID,
	})
}

func (h *EventHandler) handleMarkRead(conn *Connection, data json.RawMessage) {
	var ref conversationRef
	if err := json.Unmarshal(data, &ref); err != nil || ref.ConversationID == "" {
		h.sendError(conn, "conversation_id is required")
		return
	}

	if err := h.messaging.MarkRead(context.Background(), ref.ConversationID, conn.UserID); err != nil {
		h.sendAppError(conn, err)
	}
}

func (h *EventHandler) handleTyping(conn *Connection, data json.RawMessage, typing bool) {
	var ref conversationRef
	if err := json.Unmarshal(data, &ref); err != nil || ref.ConversationID == "" {
		return
	}

	// Over-limit typing events are dropped, not errored.
	if !h.messaging.AllowTyping(conn.UserID) {
		return
	}

	event := EventUserTyping
	if !typing {
		event = EventUserStoppedTyping
	}

	h.manager.PublishExcept(usecase.ConversationTopic(ref.ConversationID), event, &typingPayload{
		ConversationID: ref.ConversationID,
		UserID:         conn.UserID,
	}, conn.ID)
}

func (h *EventHandler) handleLocationSubscription(conn *Connection, data json.RawMessage, subscribe bool) {
	var payload locationSubPayload
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.LocationIDs) == 0 {
		h.sendError(conn, "location_ids is required")
		return
	}

	event := EventLocationSubSuccess
	for _, id := range payload.LocationIDs {
		if subscribe {
			h.manager.Join(LocationTopic(id), conn)
		} else {
			h.manager.Leave(LocationTopic(id), conn)
		}
	}
	if !subscribe {
		event = EventLocationUnsubSuccess
	}

	h.manager.SendToConnection(conn, event, &payload)
}

func (h *EventHandler) handleItinerarySubscription(conn *Connection, data json.RawMessage) {
	var payload itinerarySubPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ItineraryID == "" {
		h.sendError(conn, "itinerary_id is required")
		return
	}

	h.manager.Join(ItineraryTopic(payload.ItineraryID), conn)
	h.manager.SendToConnection(conn, EventItinerarySubSuccess, &payload)
}

func (h *EventHandler) handleAlertSubscription(conn *Connection, data json.RawMessage) {
	var payload alertSubPayload
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.Regions) == 0 {
		h.sendError(conn, "regions is required")
		return
	}

	for _, region := range payload.Regions {
		h.manager.Join(AlertTopic(region), conn)
	}
	h.manager.SendToConnection(conn, EventAlertSubSuccess, &payload)
}

func (h *EventHandler) sendError(conn *Connection, reason string) {
	h.manager.SendToConnection(conn, EventMessageError, &errorPayload{Reason: reason})
}

func (h *EventHandler) sendAppError(conn *Connection, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		h.sendError(conn, appErr.Message)
		return
	}
	h.sendError(conn, "Something went wrong")
}
