package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"roamly/internal/infrastructure/firebase"
	apperrors "roamly/pkg/errors"
	"roamly/pkg/response"
)

type AuthMiddleware struct {
	authClient *firebase.AuthClient
}

func NewAuthMiddleware(authClient *firebase.AuthClient) *AuthMiddleware {
	return &AuthMiddleware{
		authClient: authClient,
	}
}

// Authenticate resolves the caller's identity from a Bearer token and
// stores the uid in the request context.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c)
		if !ok {
			return response.Error(c, apperrors.Unauthorized("Authorization header is required", nil))
		}

		uid, err := m.authClient.VerifyToken(c.Request().Context(), token)
		if err != nil {
			return response.Error(c, apperrors.Unauthorized("Invalid or expired token", err))
		}

		c.Set("uid", uid)
		return next(c)
	}
}

// OptionalAuthenticate sets the uid when a valid token is present but
// lets anonymous requests through, for public profile views.
func (m *AuthMiddleware) OptionalAuthenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if token, ok := bearerToken(c); ok {
			if uid, err := m.authClient.VerifyToken(c.Request().Context(), token); err == nil {
				c.Set("uid", uid)
			}
		}
		return next(c)
	}
}

func bearerToken(c echo.Context) (string, bool) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}
