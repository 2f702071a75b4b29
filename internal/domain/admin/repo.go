package admin

import (
	"context"

	"github.com/pvportal/pvportal/internal/platform/auth"
)

// Repository defines the persistence interface for admin accounts.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Admin, error)
	List(ctx context.Context, limit, offset int) ([]*Admin, int, error)
	UpdateRole(ctx context.Context, id string, role auth.Role) error
}
