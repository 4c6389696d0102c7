package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"roamly/internal/infrastructure/realtime"
	"roamly/internal/usecase"
	"roamly/pkg/response"
)

type ProfileHandler struct {
	profiles *usecase.ProfileUseCase
	presence *realtime.PresenceTracker
}

func NewProfileHandler(profiles *usecase.ProfileUseCase, presence *realtime.PresenceTracker) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		presence: presence,
	}
}

type updateProfileRequest struct {
	Username string `json:"username,omitempty" validate:"omitempty,min=3,max=30"`
	FullName string `json:"full_name,omitempty" validate:"omitempty,max=80"`
	Bio      string `json:"bio,omitempty" validate:"omitempty,max=500"`
	HomeBase string `json:"home_base,omitempty" validate:"omitempty,max=80"`
	Avatar   string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

func (h *ProfileHandler) GetMe(c echo.Context) error {
	userID := c.Get("uid").(string)

	user, err := h.profiles.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, user)
}

func (h *ProfileHandler) UpdateMe(c echo.Context) error {
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	user, err := h.profiles.UpdateProfile(c.Request().Context(), userID, usecase.UpdateProfileInput{
		Username: req.Username,
		FullName: req.FullName,
		Bio:      req.Bio,
		HomeBase: req.HomeBase,
		Avatar:   req.Avatar,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, user)
}

type publicProfile struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	HomeBase     string    `json:"home_base,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	OnlineStatus string    `json:"online_status"`
	LastSeen     time.Time `json:"last_seen"`
	MemberSince  time.Time `json:"member_since"`
}

// GetUser is the public profile view. Live presence overrides the
// stored mirror so a freshly connected user shows online immediately.
func (h *ProfileHandler) GetUser(c echo.Context) error {
	user, err := h.profiles.GetProfile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	if online, lastActive := h.presence.Snapshot(user.ID); online {
		user.OnlineStatus = "online"
		user.LastSeen = lastActive
	}

	return response.Success(c, &publicProfile{
		ID:           user.ID,
		Username:     user.Username,
		FullName:     user.FullName,
		Bio:          user.Bio,
		HomeBase:     user.HomeBase,
		AvatarURL:    user.AvatarURL,
		OnlineStatus: user.OnlineStatus,
		LastSeen:     user.LastSeen,
		MemberSince:  user.CreatedAt,
	})
}
