package router

import (
	"github.com/labstack/echo/v4"

	"roamly/internal/adapter/api/handler"
)

// SetupDevRouter mounts the token-mint endpoint everywhere except
// production.
func SetupDevRouter(e *echo.Echo, devTokenHandler *handler.DevTokenHandler, environment string) {
	if environment == "production" {
		return
	}

	e.GET("/_dev/token/:uid", devTokenHandler.GenerateToken)
}
