package router

import (
	"github.com/labstack/echo/v4"

	"roamly/internal/adapter/api/handler"
)

// SetupWebSocketRouter registers the realtime channel endpoint. No auth
// middleware here: the handshake inside the handler owns credential
// resolution, including the development fallback.
func SetupWebSocketRouter(e *echo.Echo, realtimeHandler *handler.RealtimeHandler) {
	e.GET("/ws", realtimeHandler.HandleConnection)
}
