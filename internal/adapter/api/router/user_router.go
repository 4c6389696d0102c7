package router

import (
	"github.com/labstack/echo/v4"

	"roamly/internal/adapter/api/handler"
	"roamly/internal/adapter/api/middleware"
)

func SetupUserRouter(e *echo.Echo, profileHandler *handler.ProfileHandler, authMiddleware *middleware.AuthMiddleware) {
	users := e.Group("/v1/users")

	users.GET("/me", profileHandler.GetMe, authMiddleware.Authenticate)
	users.PATCH("/me", profileHandler.UpdateMe, authMiddleware.Authenticate)

	// Public profile view; identity is optional and only affects what a
	// future personalization layer could add.
	users.GET("/:id", profileHandler.GetUser, authMiddleware.OptionalAuthenticate)
}
