package utils

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// GetLimitOffset extracts limit/offset query parameters, falling back to
// defaultLimit and clamping to maxLimit.
func GetLimitOffset(c echo.Context, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0

	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	if offsetStr := c.QueryParam("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	return limit, offset
}
