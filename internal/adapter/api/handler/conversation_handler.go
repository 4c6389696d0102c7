package handler

import (
	"github.com/labstack/echo/v4"

	"roamly/internal/usecase"
	"roamly/pkg/response"
	"roamly/pkg/utils"
)

type ConversationHandler struct {
	messaging *usecase.MessagingUseCase
}

func NewConversationHandler(messaging *usecase.MessagingUseCase) *ConversationHandler {
	return &ConversationHandler{
		messaging: messaging,
	}
}

type createConversationRequest struct {
	RecipientID    string `json:"recipient_id" validate:"required"`
	VehicleID      string `json:"vehicle_id,omitempty"`
	InitialMessage string `json:"initial_message,omitempty"`
}

type sendMessageRequest struct {
	ConversationID string `json:"conversation_id,omitempty" validate:"required_without=RecipientID,excluded_with=RecipientID"`
	RecipientID    string `json:"recipient_id,omitempty"`
	Content        string `json:"content" validate:"required,max=4000"`
	VehicleID      string `json:"vehicle_id,omitempty"`
	AttachmentURL  string `json:"attachment_url,omitempty" validate:"omitempty,url"`
}

// ListConversations returns the caller's conversations, newest activity
// first.
func (h *ConversationHandler) ListConversations(c echo.Context) error {
	userID := c.Get("uid").(string)
	limit, offset := utils.GetLimitOffset(c, 20, 100)

	conversations, total, err := h.messaging.ListConversations(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, conversations, total, limit, offset)
}

// CreateConversation finds or creates the direct conversation with the
// recipient.
func (h *ConversationHandler) CreateConversation(c echo.Context) error {
	var req createConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	conversation, err := h.messaging.CreateConversation(c.Request().Context(), userID, usecase.CreateConversationInput{
		RecipientID:    req.RecipientID,
		VehicleID:      req.VehicleID,
		InitialMessage: req.InitialMessage,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, conversation)
}

// GetMessages returns a conversation's messages in creation order.
// Side effect: marks everything from other participants as read.
func (h *ConversationHandler) GetMessages(c echo.Context) error {
	conversationID := c.Param("id")
	userID := c.Get("uid").(string)
	limit, offset := utils.GetLimitOffset(c, 50, 200)

	messages, total, err := h.messaging.GetMessages(c.Request().Context(), conversationID, userID, limit, offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, messages, total, limit, offset)
}

// SendMessage appends a message, addressed by conversation_id or, for
// first contact, by recipient_id.
func (h *ConversationHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	message, err := h.messaging.SendMessage(c.Request().Context(), userID, usecase.SendMessageInput{
		ConversationID: req.ConversationID,
		RecipientID:    req.RecipientID,
		Content:        req.Content,
		VehicleID:      req.VehicleID,
		AttachmentURL:  req.AttachmentURL,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// MarkRead marks every message from other participants as read.
func (h *ConversationHandler) MarkRead(c echo.Context) error {
	conversationID := c.Param("id")
	userID := c.Get("uid").(string)

	if err := h.messaging.MarkRead(c.Request().Context(), conversationID, userID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "read"})
}
