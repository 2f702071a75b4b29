package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// Middleware runs the session gates and attaches the actor to the request
// context.
func (e *Evaluator) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, err := e.Evaluate(c.Request().Context(), bearerToken(c.Request().Header.Get("Authorization")))
			if err != nil {
				httpErr := HTTPError(err)
				if httpErr.Code >= 500 {
					e.logger.Error().Err(err).
						Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
						Msg("session evaluation")
				}
				return httpErr
			}

			c.Set("actor_id", actor.ID)
			ctx := WithActor(c.Request().Context(), actor)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
