package realtime

import (
	"encoding/json"
	"time"
)

// Client-emitted event names.
const (
	EventJoinConversation     = "joinConversation"
	EventLeaveConversation    = "leaveConversation"
	EventSendMessage          = "sendMessage"
	EventMarkMessagesRead     = "markMessagesRead"
	EventTyping               = "typing"
	EventStopTyping           = "stopTyping"
	EventSubscribeLocations   = "subscribeToLocationUpdates"
	EventUnsubscribeLocations = "unsubscribeFromLocationUpdates"
	EventSubscribeItinerary   = "subscribeToItineraryUpdates"
	EventSubscribeAlerts      = "subscribeToAlerts"
)

// Server-emitted event names not owned by the messaging core.
const (
	EventMessageSent          = "messageSent"
	EventUserTyping           = "userTyping"
	EventUserStoppedTyping    = "userStoppedTyping"
	EventLocationSubSuccess   = "locationSubscriptionSuccess"
	EventLocationUnsubSuccess = "locationUnsubscriptionSuccess"
	EventItinerarySubSuccess  = "itinerarySubscriptionSuccess"
	EventAlertSubSuccess      = "alertSubscriptionSuccess"
	EventMessageError         = "messageError"
)

// Topic group names. The per-user group is the bare user id; the
// conversation topic name lives with the messaging core.
func LocationTopic(id string) string  { return "location:" + id }
func ItineraryTopic(id string) string { return "itinerary:" + id }
func AlertTopic(region string) string { return "alerts:" + region }

// Envelope is the wire frame in both directions.
type Envelope struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

func marshalEvent(event string, payload interface{}) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = raw
	}
	return json.Marshal(&Envelope{
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

type conversationRef struct {
	ConversationID string `json:"conversation_id"`
}

type sendMessagePayload struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
	AttachmentURL  string `json:"attachment_url,omitempty"`
}

type messageSentPayload struct {
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
}

type typingPayload struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

type locationSubPayload struct {
	LocationIDs []string `json:"location_ids"`
}

type itinerarySubPayload struct {
	ItineraryID string `json:"itinerary_id"`
}

type alertSubPayload struct {
	Regions []string `json:"regions"`
}

type errorPayload struct {
	Reason string `json:"reason"`
}
