package router

import (
	"github.com/labstack/echo/v4"

	"roamly/internal/adapter/api/handler"
	"roamly/internal/adapter/api/middleware"
)

// Handlers groups everything the route table needs, so main wires each
// handler explicitly and passes the set in one place.
type Handlers struct {
	Conversation *handler.ConversationHandler
	Profile      *handler.ProfileHandler
	Upload       *handler.UploadHandler
	Realtime     *handler.RealtimeHandler
	DevToken     *handler.DevTokenHandler
	Health       *handler.HealthHandler
}

func Setup(
	e *echo.Echo,
	h Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	environment string,
) {
	SetupConversationRouter(e, h.Conversation, authMiddleware)
	SetupUserRouter(e, h.Profile, authMiddleware)
	SetupUploadRouter(e, h.Upload, authMiddleware, rateLimitMiddleware)
	SetupWebSocketRouter(e, h.Realtime)
	SetupHealthRouter(e, h.Health)
	SetupDevRouter(e, h.DevToken, environment)
}
