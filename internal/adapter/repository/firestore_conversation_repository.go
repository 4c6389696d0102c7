package repository

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"roamly/internal/domain/entity"
	"roamly/internal/domain/repository"
	"roamly/pkg/errors"
	"roamly/pkg/logger"
)

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

// DirectConversationID builds the canonical document id for a direct
// conversation. Sorting the pair makes the id identical no matter which
// side initiates, so Firestore's per-document transaction guarantee is
// what resolves concurrent first contact.
func DirectConversationID(userID, otherID string) string {
	pair := []string{userID, otherID}
	sort.Strings(pair)
	return pair[0] + "_" + pair[1]
}

func (r *firestoreConversationRepository) GetOrCreateDirect(ctx context.Context, userID, recipientID, vehicleID string) (*entity.Conversation, bool, error) {
	docID := DirectConversationID(userID, recipientID)
	docRef := r.client.Collection("conversations").Doc(docID)

	var conversation entity.Conversation
	created := false

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err == nil {
			created = false
			return doc.DataTo(&conversation)
		}
		if status.Code(err) != codes.NotFound {
			return err
		}

		now := time.Now()
		conversation = entity.Conversation{
			ID:           docID,
			Participants: []string{userID, recipientID},
			Type:         "direct",
			VehicleID:    vehicleID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		created = true
		return tx.Create(docRef, &conversation)
	})
	if err != nil {
		return nil, false, errors.Internal("Failed to resolve direct conversation", err)
	}

	return &conversation, created, nil
}

func (r *firestoreConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.client.Collection("conversations").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, errors.Internal("Failed to get conversation", err)
	}

	var conversation entity.Conversation
	if err := doc.DataTo(&conversation); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}

	return &conversation, nil
}

func (r *firestoreConversationRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error) {
	query := r.client.Collection("conversations").
		Where("participants", "array-contains", userID).
		OrderBy("updatedAt", firestore.Desc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while listing conversations for user %s: %v", userID, err)
		return nil, 0, errors.Internal("Failed to list conversations", err)
	}

	total := int64(len(allDocs))

	start := offset
	if start > len(allDocs) {
		start = len(allDocs)
	}
	end := len(allDocs)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	var conversations []*entity.Conversation
	for _, doc := range allDocs[start:end] {
		var conversation entity.Conversation
		if err := doc.DataTo(&conversation); err != nil {
			logger.Warn("Skipping malformed conversation %s: %v", doc.Ref.ID, err)
			continue
		}
		conversations = append(conversations, &conversation)
	}

	return conversations, total, nil
}

func (r *firestoreConversationRepository) CreateMessage(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	convRef := r.client.Collection("conversations").Doc(message.ConversationID)
	msgRef := convRef.Collection("messages").Doc(message.ID)

	// The message write and the conversation's last-message update commit
	// together, so the conversation list never points at a message that
	// does not exist.
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(convRef); err != nil {
			return err
		}
		if err := tx.Create(msgRef, message); err != nil {
			return err
		}
		return tx.Update(convRef, []firestore.Update{
			{Path: "lastMessage", Value: message},
			{Path: "updatedAt", Value: message.CreatedAt},
		})
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Conversation", err)
		}
		return errors.Internal("Failed to create message", err)
	}

	return nil
}

func (r *firestoreConversationRepository) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, int64, error) {
	query := r.client.Collection("conversations").Doc(conversationID).
		Collection("messages").
		OrderBy("createdAt", firestore.Asc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while listing messages for conversation %s: %v", conversationID, err)
		return nil, 0, errors.Internal("Failed to list messages", err)
	}

	total := int64(len(allDocs))

	start := offset
	if start > len(allDocs) {
		start = len(allDocs)
	}
	end := len(allDocs)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	var messages []*entity.Message
	for _, doc := range allDocs[start:end] {
		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			logger.Warn("Skipping malformed message %s in conversation %s: %v", doc.Ref.ID, conversationID, err)
			continue
		}
		messages = append(messages, &message)
	}

	return messages, total, nil
}

func (r *firestoreConversationRepository) MarkMessagesRead(ctx context.Context, conversationID, readerID string) (int, error) {
	convRef := r.client.Collection("conversations").Doc(conversationID)

	iter := convRef.Collection("messages").
		Where("read", "==", false).
		Documents(ctx)

	batch := r.client.Batch()
	changed := 0

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, errors.Internal("Failed to iterate unread messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			logger.Warn("Skipping malformed message %s in conversation %s: %v", doc.Ref.ID, conversationID, err)
			continue
		}
		if message.SenderID == readerID {
			continue
		}

		batch.Update(doc.Ref, []firestore.Update{{Path: "read", Value: true}})
		changed++
	}

	if changed == 0 {
		return 0, nil
	}

	// Keep the embedded last-message copy consistent when it was one of
	// the messages just read.
	if doc, err := convRef.Get(ctx); err == nil {
		var conversation entity.Conversation
		if err := doc.DataTo(&conversation); err == nil &&
			conversation.LastMessage != nil &&
			conversation.LastMessage.SenderID != readerID &&
			!conversation.LastMessage.Read {
			batch.Update(convRef, []firestore.Update{{FieldPath: firestore.FieldPath{"lastMessage", "read"}, Value: true}})
		}
	}

	if _, err := batch.Commit(ctx); err != nil {
		return 0, errors.Internal("Failed to mark messages read", err)
	}

	return changed, nil
}
