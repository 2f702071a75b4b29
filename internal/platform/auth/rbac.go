package auth

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// Role is an admin account role. Roles are ordered: a higher role can do
// everything a lower one can.
type Role string

const (
	RoleViewer     Role = "viewer"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

var roleRank = map[Role]int{
	RoleViewer:     1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r ranks at or above min. Unknown roles rank below
// everything.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min] && roleRank[r] > 0
}

// RequireRole rejects actors ranked below min. It must run after the session
// gate has placed an actor on the context.
func RequireRole(min Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := ActorFromContext(c.Request().Context())
			if actor == nil {
				return HTTPError(ErrMissingToken)
			}
			if !actor.Role.AtLeast(min) {
				return HTTPError(fmt.Errorf("%w: requires %s", ErrInsufficientRole, min))
			}
			return next(c)
		}
	}
}
