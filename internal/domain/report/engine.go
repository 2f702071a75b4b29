package report

import (
	"time"

	"github.com/pvportal/pvportal/internal/platform/auth"
)

// Authorize applies the role rules for editing a report currently in status
// current. Admins cannot touch closed reports and cannot close one;
// super_admins are unrestricted. Roles below admin never reach this point
// through the HTTP surface but are rejected here as well.
func Authorize(role auth.Role, current Status, u Updates) error {
	switch {
	case role == auth.RoleSuperAdmin:
		return nil
	case role == auth.RoleAdmin:
		if current == StatusClosed {
			return ErrReportClosed
		}
		if u.Status != nil && *u.Status == StatusClosed {
			return ErrCloseRequiresSuperAdmin
		}
		return nil
	default:
		return auth.ErrInsufficientRole
	}
}

// touchTime is the lastUpdatedAt for an update applied at now. It never goes
// backwards and always moves past the prior stamp, even on a skewed clock.
// Stamps are truncated to the store's microsecond precision.
func touchTime(prior, now time.Time) time.Time {
	at := now.UTC().Truncate(time.Microsecond)
	if !at.After(prior) {
		at = prior.Add(time.Microsecond)
	}
	return at
}
