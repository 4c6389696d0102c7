package middleware

import (
	"github.com/labstack/echo/v4"

	"roamly/internal/infrastructure/ratelimit"
	apperrors "roamly/pkg/errors"
	"roamly/pkg/response"
)

// RateLimitMiddleware applies the shared token-bucket limiter to the
// stateless surface. Limits key on the authenticated uid so a user's
// budget spans devices; anonymous requests fall back to the client IP.
type RateLimitMiddleware struct {
	limiter *ratelimit.RateLimiter
}

func NewRateLimitMiddleware(limiter *ratelimit.RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
	}
}

func (m *RateLimitMiddleware) Limit(action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, _ := c.Get("uid").(string)
			if key == "" {
				key = c.RealIP()
			}

			if allowed, wait := m.limiter.Allow(key, action); !allowed {
				return response.Error(c, apperrors.TooManyRequests("Rate limit exceeded", wait))
			}

			return next(c)
		}
	}
}
