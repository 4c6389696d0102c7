package entity

import (
	"time"
)

type User struct {
	ID       string `json:"id" firestore:"id"`
	Email    string `json:"email" firestore:"email"`
	Username string `json:"username" firestore:"username"`
	FullName string `json:"full_name,omitempty" firestore:"fullName,omitempty"`
	Bio      string `json:"bio,omitempty" firestore:"bio,omitempty"`

	// HomeBase is the free-text city the traveller calls home.
	HomeBase  string `json:"home_base,omitempty" firestore:"homeBase,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty" firestore:"avatarURL,omitempty"`

	// Presence mirror, written through by the realtime layer so profile
	// reads work without a live connection.
	OnlineStatus string    `json:"online_status" firestore:"onlineStatus"`
	LastSeen     time.Time `json:"last_seen" firestore:"lastSeen"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// UserSummary is the compact shape embedded in conversation and message
// payloads.
type UserSummary struct {
	ID           string `json:"id" firestore:"id"`
	Username     string `json:"username" firestore:"username"`
	AvatarURL    string `json:"avatar_url,omitempty" firestore:"avatarURL,omitempty"`
	OnlineStatus string `json:"online_status,omitempty" firestore:"onlineStatus,omitempty"`
}

func (u *User) Summary() *UserSummary {
	return &UserSummary{
		ID:           u.ID,
		Username:     u.Username,
		AvatarURL:    u.AvatarURL,
		OnlineStatus: u.OnlineStatus,
	}
}
