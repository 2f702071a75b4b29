package notification

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Insert(ctx context.Context, n *Notification) error
	List(ctx context.Context, limit, offset int) ([]*Notification, int, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	// Clear deletes every notification and returns how many were removed.
	Clear(ctx context.Context) (int64, error)
}
