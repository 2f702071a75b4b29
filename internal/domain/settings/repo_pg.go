package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
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

func (r *repoPG) Get(ctx context.Context) (*SystemSettings, error) {
	var (
		clinical, thresholds []byte
		updatedAt            *time.Time
		updatedBy            *string
	)
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT clinical_config, notification_thresholds, updated_at, updated_by
		FROM system_settings WHERE id = $1`, GlobalID,
	).Scan(&clinical, &thresholds, &updatedAt, &updatedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSettingsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select system settings: %w", err)
	}
	return decodeSettings(clinical, thresholds, updatedAt, updatedBy)
}

// decodeSettings overlays the stored JSON on Defaults so keys missing from
// older rows keep their default values.
func decodeSettings(clinical, thresholds []byte, updatedAt *time.Time, updatedBy *string) (*SystemSettings, error) {
	s := Defaults()
	if len(clinical) > 0 {
		if err := json.Unmarshal(clinical, &s.ClinicalConfig); err != nil {
			return nil, fmt.Errorf("decode clinical_config: %w", err)
		}
	}
	if len(thresholds) > 0 {
		if err := json.Unmarshal(thresholds, &s.NotificationThresholds); err != nil {
			return nil, fmt.Errorf("decode notification_thresholds: %w", err)
		}
	}
	s.UpdatedAt = updatedAt
	if updatedBy != nil {
		s.UpdatedBy = *updatedBy
	}
	return s, nil
}

func (r *repoPG) Upsert(ctx context.Context, s *SystemSettings) error {
	clinical, err := json.Marshal(s.ClinicalConfig)
	if err != nil {
		return fmt.Errorf("encode clinical_config: %w", err)
	}
	thresholds, err := json.Marshal(s.NotificationThresholds)
	if err != nil {
		return fmt.Errorf("encode notification_thresholds: %w", err)
	}

	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO system_settings (id, clinical_config, notification_thresholds, updated_at, updated_by)
		VALUES ($1, $2::jsonb, $3::jsonb, NOW(), $4)
		ON CONFLICT (id) DO UPDATE SET
			clinical_config = EXCLUDED.clinical_config,
			notification_thresholds = EXCLUDED.notification_thresholds,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by`,
		GlobalID, string(clinical), string(thresholds), s.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("upsert system settings: %w", err)
	}
	return nil
}
