package auth

import "github.com/labstack/echo/v4"

var mfaMethods = map[string]bool{
	"otp":   true,
	"email": true,
	"mfa":   true,
}

// SatisfiesMFA reports whether the session was established with a second
// factor: an aal2 assurance level or any multi-factor amr method.
func SatisfiesMFA(aal string, amr []string) bool {
	if aal == "aal2" {
		return true
	}
	for _, m := range amr {
		if mfaMethods[m] {
			return true
		}
	}
	return false
}

// RequireMFA guards MFA-protected operations. It re-reads the policy so a
// twoFA toggle applies to the very next request.
func (e *Evaluator) RequireMFA() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := ActorFromContext(c.Request().Context())
			if actor == nil {
				return HTTPError(ErrMissingToken)
			}
			policy := e.policies.SessionPolicy(c.Request().Context())
			if policy.RequireMFA && !SatisfiesMFA(actor.AAL, actor.AMR) {
				return HTTPError(ErrMFARequired)
			}
			return next(c)
		}
	}
}
