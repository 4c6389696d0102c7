package router

import (
	"github.com/labstack/echo/v4"

	"roamly/internal/adapter/api/handler"
	"roamly/internal/adapter/api/middleware"
)

func SetupUploadRouter(e *echo.Echo, uploadHandler *handler.UploadHandler, authMiddleware *middleware.AuthMiddleware, rateLimitMiddleware *middleware.RateLimitMiddleware) {
	uploads := e.Group("/v1/uploads")
	uploads.Use(authMiddleware.Authenticate)
	uploads.Use(rateLimitMiddleware.Limit("upload"))

	uploads.POST("", uploadHandler.Upload)
}
