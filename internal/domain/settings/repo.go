package settings

import "context"

// Repository persists the singleton settings row.
type Repository interface {
	// Get returns ErrSettingsNotFound when the row has never been written.
	Get(ctx context.Context) (*SystemSettings, error)
	Upsert(ctx context.Context, s *SystemSettings) error
}
