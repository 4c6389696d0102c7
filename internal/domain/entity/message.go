package entity

import "time"

type Message struct {
	ID             string `json:"id" firestore:"id"`
	ConversationID string `json:"conversation_id" firestore:"conversationId"`
	SenderID       string `json:"sender_id" firestore:"senderId"`
	Content        string `json:"content" firestore:"content"`
	AttachmentURL  string `json:"attachment_url,omitempty" firestore:"attachmentUrl,omitempty"`

	// Read flips once any participant other than the sender has seen the
	// message. Everything else is immutable after creation.
	Read      bool      `json:"read" firestore:"read"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}
