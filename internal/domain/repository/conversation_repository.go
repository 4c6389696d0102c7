package repository

import (
	"context"

	"roamly/internal/domain/entity"
)

type ConversationRepository interface {
	// GetOrCreateDirect resolves the unique direct conversation between two
	// users, creating it when absent. The returned bool reports whether a
	// new conversation was created by this call. Concurrent calls for the
	// same pair must converge on one conversation.
	GetOrCreateDirect(ctx context.Context, userID, recipientID, vehicleID string) (*entity.Conversation, bool, error)

	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error)

	// CreateMessage appends a message and updates the owning conversation's
	// embedded last-message copy and updatedAt in one call.
	CreateMessage(ctx context.Context, message *entity.Message) error
	ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, int64, error)

	// MarkMessagesRead flips the read flag on every unread message in the
	// conversation that was not sent by readerID. Returns how many
	// messages changed.
	MarkMessagesRead(ctx context.Context, conversationID, readerID string) (int, error)
}
