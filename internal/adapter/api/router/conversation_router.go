package router

import (
	"github.com/labstack/echo/v4"

	"roamly/internal/adapter/api/handler"
	"roamly/internal/adapter/api/middleware"
)

// SetupConversationRouter registers the stateless messaging surface.
// Send rate limits live inside the messaging core so the realtime path
// shares the same budget.
func SetupConversationRouter(e *echo.Echo, conversationHandler *handler.ConversationHandler, authMiddleware *middleware.AuthMiddleware) {
	conversations := e.Group("/v1/conversations")
	conversations.Use(authMiddleware.Authenticate)

	conversations.GET("", conversationHandler.ListConversations)
	conversations.POST("", conversationHandler.CreateConversation)
	conversations.GET("/:id", conversationHandler.GetMessages)
	conversations.PATCH("/:id/read", conversationHandler.MarkRead)

	messages := e.Group("/v1/messages")
	messages.Use(authMiddleware.Authenticate)
	messages.POST("", conversationHandler.SendMessage)
}
