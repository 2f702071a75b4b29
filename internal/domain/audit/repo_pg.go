package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pvportal/pvportal/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const entryColumns = `id, entity, entity_origin, entity_id, changed_by, action, old_value, new_value, changed_at`

func (r *repoPG) Insert(ctx context.Context, e *Entry) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO audit_logs (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, $9)`,
		e.ID, e.Entity, e.EntityOrigin, e.EntityID, e.ChangedBy, e.Action,
		string(e.OldValue), string(e.NewValue), e.ChangedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *repoPG) ListByEntity(ctx context.Context, entity string) ([]*Entry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+entryColumns+` FROM audit_logs
		WHERE entity = $1
		ORDER BY changed_at DESC, id`, entity)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return scanEntries(rows)
}

func (r *repoPG) ListForEntity(ctx context.Context, entity, origin, id string) ([]*Entry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+entryColumns+` FROM audit_logs
		WHERE entity = $1 AND entity_origin = $2 AND entity_id = $3
		ORDER BY changed_at DESC, id`, entity, origin, id)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]*Entry, error) {
	defer rows.Close()
	var out []*Entry
	for rows.Next() {
		var (
			e          Entry
			oldV, newV []byte
		)
		if err := rows.Scan(&e.ID, &e.Entity, &e.EntityOrigin, &e.EntityID, &e.ChangedBy,
			&e.Action, &oldV, &newV, &e.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.OldValue, e.NewValue = oldV, newV
		out = append(out, &e)
	}
	return out, rows.Err()
}
