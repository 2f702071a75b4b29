package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pvportal/pvportal/internal/platform/auth"
)

// Service is the read path for the policy record. Every call re-reads the
// store; there is no cache, so a settings change applies to the next gate
// that runs.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "settings").Logger()}
}

// Current returns the stored settings. A missing row yields Defaults, and so
// does a read failure: a settings-store outage must not lock every admin out.
func (s *Service) Current(ctx context.Context) *SystemSettings {
	cur, err := s.repo.Get(ctx)
	if errors.Is(err, ErrSettingsNotFound) {
		return Defaults()
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("settings read failed, using defaults")
		return Defaults()
	}
	return cur
}

// Stored returns the persisted settings for a write to merge onto. Only a
// missing row yields Defaults; a read failure is returned so a partial update
// never overwrites the stored policy with defaults.
func (s *Service) Stored(ctx context.Context) (*SystemSettings, error) {
	cur, err := s.repo.Get(ctx)
	if errors.Is(err, ErrSettingsNotFound) {
		return Defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	return cur, nil
}

// SessionPolicy implements auth.PolicySource.
func (s *Service) SessionPolicy(ctx context.Context) auth.SessionPolicy {
	cc := s.Current(ctx).ClinicalConfig
	return auth.SessionPolicy{
		MaintenanceMode: cc.MaintenanceMode,
		SessionTimeout:  ParseMinutes(cc.SessionTimeout),
		PasswordExpiry:  ParseDays(cc.PasswordExpiry),
		RequireMFA:      cc.TwoFA,
	}
}

// Thresholds returns the current notification thresholds.
func (s *Service) Thresholds(ctx context.Context) NotificationThresholds {
	return s.Current(ctx).NotificationThresholds
}

// Update validates and stores a full settings record.
func (s *Service) Update(ctx context.Context, in *SystemSettings, actor string) (*SystemSettings, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in.ID = GlobalID
	in.UpdatedBy = actor
	if err := s.repo.Upsert(ctx, in); err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	s.logger.Info().
		Str("updated_by", actor).
		Bool("maintenance_mode", in.ClinicalConfig.MaintenanceMode).
		Bool("two_fa", in.ClinicalConfig.TwoFA).
		Msg("system settings updated")

	// read back so the caller sees what the gates will see
	cur, err := s.repo.Get(ctx)
	if err != nil {
		return in, nil
	}
	return cur, nil
}
