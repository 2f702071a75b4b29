package admin

import (
	"errors"
	"strings"
	"time"

	"github.com/pvportal/pvportal/internal/platform/auth"
)

var (
	ErrAdminNotFound = errors.New("admin not found")
	ErrSelfDemotion  = errors.New("you cannot change your own role")
	ErrInvalidRole   = errors.New("role must be one of super_admin, admin, viewer")
)

// Admin is a staff account that can act on reports.
type Admin struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	FirstName           string     `json:"firstName,omitempty"`
	LastName            string     `json:"lastName,omitempty"`
	Role                auth.Role  `json:"role"`
	PasswordChangedAt   *time.Time `json:"passwordChangedAt,omitempty"`
	LastLoginAt         *time.Time `json:"lastLoginAt,omitempty"`
	FailedLoginAttempts int        `json:"failedLoginAttempts"`
	LockedAt            *time.Time `json:"lockedAt,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// DisplayLabel is the name written to audit entries and notifications:
// "First Last (email)", else the email, else the raw id.
func (a *Admin) DisplayLabel() string {
	name := strings.TrimSpace(strings.TrimSpace(a.FirstName) + " " + strings.TrimSpace(a.LastName))
	switch {
	case name != "" && a.Email != "":
		return name + " (" + a.Email + ")"
	case a.Email != "":
		return a.Email
	default:
		return a.ID
	}
}
