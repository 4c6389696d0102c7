package entity

import "time"

type Conversation struct {
	ID           string   `json:"id" firestore:"id"`
	Participants []string `json:"participants" firestore:"participants"`
	Type         string   `json:"type" firestore:"type"` // "direct" for now, group-ready
	VehicleID    string   `json:"vehicle_id,omitempty" firestore:"vehicleId,omitempty"`

	// LastMessage is a denormalized copy of the newest message so the
	// conversation list renders without a subcollection read.
	LastMessage *Message `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
