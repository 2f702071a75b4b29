package audit

import "context"

// Repository is append-only: entries are never updated or deleted.
type Repository interface {
	Insert(ctx context.Context, e *Entry) error
	// ListByEntity returns every entry for the entity kind, newest first.
	ListByEntity(ctx context.Context, entity string) ([]*Entry, error)
	// ListForEntity returns the entries of one entity, newest first.
	ListForEntity(ctx context.Context, entity, origin, id string) ([]*Entry, error)
}
