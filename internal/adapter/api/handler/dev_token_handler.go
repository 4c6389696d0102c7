package handler

import (
	"github.com/labstack/echo/v4"

	"roamly/internal/domain/repository"
	"roamly/internal/infrastructure/firebase"
	"roamly/pkg/response"
)

// DevTokenHandler mints ID tokens for development and testing. Its
// routes are only registered outside production.
type DevTokenHandler struct {
	authClient *firebase.AuthClient
	userRepo   repository.UserRepository
}

func NewDevTokenHandler(authClient *firebase.AuthClient, userRepo repository.UserRepository) *DevTokenHandler {
	return &DevTokenHandler{
		authClient: authClient,
		userRepo:   userRepo,
	}
}

func (h *DevTokenHandler) GenerateToken(c echo.Context) error {
	uid := c.Param("uid")

	user, err := h.userRepo.GetByID(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	token, err := h.authClient.GenerateIDToken(c.Request().Context(), user.ID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"token": token,
		"user": map[string]string{
			"id":       user.ID,
			"email":    user.Email,
			"username": user.Username,
		},
	})
}
