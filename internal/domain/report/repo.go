package report

import (
	"context"
	"time"
)

type Repository interface {
	// ListByOrigin returns every report in one origin table.
	ListByOrigin(ctx context.Context, origin Origin) ([]*Report, error)
	Get(ctx context.Context, origin Origin, id string) (*Report, error)
	// Update applies u, stamps last_updated_at with at and returns the
	// stored row.
	Update(ctx context.Context, origin Origin, id string, u Updates, at time.Time) (*Report, error)
	Create(ctx context.Context, r *Report) error
}
