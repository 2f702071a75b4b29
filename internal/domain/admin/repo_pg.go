package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pvportal/pvportal/internal/platform/auth"
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

const adminColumns = `id, email, first_name, last_name, role, password_changed_at,
	last_login_at, failed_login_attempts, locked_at, created_at, updated_at`

func (r *repoPG) scanAdmin(row pgx.Row) (*Admin, error) {
	var (
		a                   Admin
		role                string
		firstName, lastName *string
	)
	err := row.Scan(&a.ID, &a.Email, &firstName, &lastName, &role, &a.PasswordChangedAt,
		&a.LastLoginAt, &a.FailedLoginAttempts, &a.LockedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if firstName != nil {
		a.FirstName = *firstName
	}
	if lastName != nil {
		a.LastName = *lastName
	}
	a.Role = auth.Role(role)
	return &a, nil
}

func (r *repoPG) GetByID(ctx context.Context, id string) (*Admin, error) {
	a, err := r.scanAdmin(r.conn(ctx).QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select admin: %w", err)
	}
	return a, nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Admin, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM admins`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count admins: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+adminColumns+` FROM admins ORDER BY created_at, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var items []*Admin
	for rows.Next() {
		a, err := r.scanAdmin(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *repoPG) UpdateRole(ctx context.Context, id string, role auth.Role) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE admins SET role = $2, updated_at = NOW() WHERE id = $1`, id, string(role))
	if err != nil {
		return fmt.Errorf("update admin role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAdminNotFound
	}
	return nil
}
