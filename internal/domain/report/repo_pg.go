package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

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

const reportColumns = `id, reference_id, status, severity, admin_notes, assignee, details, created_at, last_updated_at`

func scanReport(row pgx.Row, origin Origin) (*Report, error) {
	var (
		rep              Report
		ref              *string
		status, severity string
	)
	err := row.Scan(&rep.ID, &ref, &status, &severity, &rep.AdminNotes, &rep.Assignee,
		&rep.Details, &rep.CreatedAt, &rep.LastUpdatedAt)
	if err != nil {
		return nil, err
	}
	rep.Origin = origin
	rep.Status = Status(status)
	rep.Severity = Severity(severity)
	if ref != nil {
		rep.ReferenceID = *ref
	}
	return &rep, nil
}

func (r *repoPG) ListByOrigin(ctx context.Context, origin Origin) ([]*Report, error) {
	if !origin.Valid() {
		return nil, ErrInvalidOrigin
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+reportColumns+` FROM `+origin.table()+` ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list %s reports: %w", origin, err)
	}
	defer rows.Close()

	var items []*Report
	for rows.Next() {
		rep, err := scanReport(rows, origin)
		if err != nil {
			return nil, fmt.Errorf("scan %s report: %w", origin, err)
		}
		items = append(items, rep)
	}
	return items, rows.Err()
}

func (r *repoPG) Get(ctx context.Context, origin Origin, id string) (*Report, error) {
	if !origin.Valid() {
		return nil, ErrInvalidOrigin
	}
	rep, err := scanReport(r.conn(ctx).QueryRow(ctx,
		`SELECT `+reportColumns+` FROM `+origin.table()+` WHERE id = $1`, id), origin)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s report: %w", origin, err)
	}
	return rep, nil
}

func (r *repoPG) Update(ctx context.Context, origin Origin, id string, u Updates, at time.Time) (*Report, error) {
	if !origin.Valid() {
		return nil, ErrInvalidOrigin
	}
	sets := []string{"last_updated_at = $1"}
	args := []interface{}{at}
	add := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if u.Status != nil {
		add("status", string(*u.Status))
	}
	if u.Severity != nil {
		add("severity", string(*u.Severity))
	}
	if u.AdminNotes != nil {
		add("admin_notes", *u.AdminNotes)
	}
	if u.Assignee != nil {
		add("assignee", *u.Assignee)
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d RETURNING %s`,
		origin.table(), strings.Join(sets, ", "), len(args), reportColumns)
	rep, err := scanReport(r.conn(ctx).QueryRow(ctx, query, args...), origin)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update %s report: %w", origin, err)
	}
	return rep, nil
}

func (r *repoPG) Create(ctx context.Context, rep *Report) error {
	if !rep.Origin.Valid() {
		return ErrInvalidOrigin
	}
	var ref *string
	if rep.ReferenceID != "" {
		ref = &rep.ReferenceID
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO `+rep.Origin.table()+` (`+reportColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rep.ID, ref, string(rep.Status), string(rep.Severity), rep.AdminNotes, rep.Assignee,
		rep.Details, rep.CreatedAt, rep.LastUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create %s report: %w", rep.Origin, err)
	}
	return nil
}
