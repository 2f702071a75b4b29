package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/pvportal/pvportal/internal/platform/ratelimit"
)

// ClientIDHeader carries the caller-supplied opaque client identifier that is
// folded into the rate-limit fingerprint. It is not verified.
const ClientIDHeader = "X-Client-ID"

// IntakeRateLimitConfig configures the public intake throttle.
type IntakeRateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// IntakeRateLimit gates unauthenticated submissions with a fixed-window
// limiter keyed by sha256(ip|user-agent|client-id).
func IntakeRateLimit(limiter ratelimit.Limiter, cfg IntakeRateLimitConfig, logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			fp := ratelimit.Fingerprint(c.RealIP(), req.UserAgent(), req.Header.Get(ClientIDHeader))

			d := limiter.Allow(req.Context(), fp, cfg.Limit, cfg.Window)

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				h.Set("Retry-After", strconv.Itoa(d.RetryAfter(time.Now())))
				logger.Warn().
					Str("fingerprint", fp[:12]).
					Int("count", d.Count).
					Str("path", req.URL.Path).
					Msg("intake rate limit exceeded")
				return echo.NewHTTPError(http.StatusTooManyRequests, ratelimit.ErrRateLimitExceeded.Error())
			}
			return next(c)
		}
	}
}
