package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pvportal/pvportal/internal/domain/settings"
)

// ThresholdSource yields the current notification thresholds. It is read on
// every emission.
type ThresholdSource interface {
	Thresholds(ctx context.Context) settings.NotificationThresholds
}

type Service struct {
	repo       Repository
	thresholds ThresholdSource
	publisher  Publisher
	logger     zerolog.Logger
	now        func() time.Time
}

func NewService(repo Repository, thresholds ThresholdSource, logger zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		thresholds: thresholds,
		logger:     logger.With().Str("component", "notification").Logger(),
		now:        time.Now,
	}
}

// SetPublisher attaches an optional fan-out publisher.
func (s *Service) SetPublisher(p Publisher) {
	s.publisher = p
}

// Emit derives a notification for t and persists it when the current
// thresholds allow. It returns nil, nil when nothing is emitted; that is not
// an error.
func (s *Service) Emit(ctx context.Context, t Transition, actorLabel string) (*Notification, error) {
	n := Derive(t)
	if n == nil {
		return nil, nil
	}
	th := s.thresholds.Thresholds(ctx)
	if !ShouldEmit(th, n) {
		s.logger.Debug().
			Str("type", string(n.Type)).
			Str("report_id", t.ReportID).
			Str("alert_threshold", string(th.AlertThreshold)).
			Msg("notification suppressed by thresholds")
		return nil, nil
	}

	Render(n, actorLabel, s.now())
	if err := s.repo.Insert(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Publish forwards n to the configured publisher. Failures are logged and
// never returned to the caller.
func (s *Service) Publish(ctx context.Context, n *Notification) {
	if s.publisher == nil || n == nil {
		return
	}
	if err := s.publisher.Publish(ctx, n); err != nil {
		s.logger.Warn().Err(err).Str("notification_id", n.ID.String()).Msg("notification publish failed")
	}
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Notification, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, id)
}

func (s *Service) Clear(ctx context.Context) (int64, error) {
	n, err := s.repo.Clear(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int64("cleared", n).Msg("notifications cleared")
	return n, nil
}
