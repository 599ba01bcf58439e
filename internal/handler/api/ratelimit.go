package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"FinTrend/internal/service/ratelimit"
	xhttp "FinTrend/pkg/http"
)

// RateLimit rejects callers that exceed lim, keyed by client IP and route.
func RateLimit(lim *ratelimit.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !lim.Allow(c.RealIP() + ":" + c.Path()) {
				return xhttp.AppErrorResponse(c,
					xhttp.NewAppError("ERR_RATE_LIMITED", "", "rate limited", http.StatusTooManyRequests))
			}
			return next(c)
		}
	}
}
