package report

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pvportal/pvportal/internal/domain/audit"
	"github.com/pvportal/pvportal/internal/domain/notification"
	"github.com/pvportal/pvportal/internal/platform/auth"
	"github.com/pvportal/pvportal/internal/platform/db"
	"github.com/pvportal/pvportal/internal/platform/telemetry"
)

// AuditRecorder persists the field-level diff of a mutation.
type AuditRecorder interface {
	HistorySource
	Record(ctx context.Context, origin, id, changedBy string, prior, updates map[string]interface{}) ([]*audit.Entry, error)
}

// Notifier derives, stores and fans out transition notifications.
type Notifier interface {
	Emit(ctx context.Context, t notification.Transition, actorLabel string) (*notification.Notification, error)
	Publish(ctx context.Context, n *notification.Notification)
}

type Service struct {
	repo     Repository
	agg      *Aggregator
	audit    AuditRecorder
	notifier Notifier
	tx       db.TxBeginner
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

func NewService(repo Repository, auditor AuditRecorder, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		agg:      NewAggregator(repo, auditor),
		audit:    auditor,
		notifier: notifier,
		logger:   logger.With().Str("component", "report").Logger(),
		tracer:   telemetry.Tracer(),
		now:      time.Now,
	}
}

// UseTransactions runs each update, its audit entries and its notification
// in one transaction. Without it they are sequential independent writes and a
// failure after the report write leaves the report updated.
func (s *Service) UseTransactions(b db.TxBeginner) {
	s.tx = b
}

func (s *Service) ListReports(ctx context.Context) ([]*View, error) {
	ctx, span := s.tracer.Start(ctx, "report.ListReports")
	defer span.End()

	views, err := s.agg.ListReports(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("report.count", len(views)))
	return views, nil
}

func (s *Service) GetReport(ctx context.Context, origin Origin, id string) (*View, error) {
	return s.agg.Get(ctx, origin, id)
}

// UpdateReport loads the report, applies the role rules, writes the update,
// records one audit entry per changed field and emits a notification when the
// transition is notable and the thresholds allow it.
func (s *Service) UpdateReport(ctx context.Context, origin Origin, id string, u Updates, actor *auth.Actor) (*Report, error) {
	ctx, span := s.tracer.Start(ctx, "report.UpdateReport", trace.WithAttributes(
		attribute.String("report.origin", string(origin)),
		attribute.String("report.id", id),
	))
	defer span.End()

	if actor == nil {
		return nil, auth.ErrMissingToken
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}

	var (
		updated *Report
		emitted *notification.Notification
	)
	run := func(ctx context.Context) error {
		prior, err := s.repo.Get(ctx, origin, id)
		if err != nil {
			return err
		}
		if err := Authorize(actor.Role, prior.Status, u); err != nil {
			s.logger.Info().
				Str("actor_id", actor.ID).
				Str("role", string(actor.Role)).
				Str("origin", string(origin)).
				Str("report_id", id).
				Err(err).
				Msg("report update rejected")
			return err
		}

		updated, err = s.repo.Update(ctx, origin, id, u, touchTime(prior.LastUpdatedAt, s.now()))
		if err != nil {
			return err
		}

		label := actor.DisplayLabel()
		if _, err := s.audit.Record(ctx, string(origin), id, label, prior.CoreFields(), u.Fields()); err != nil && s.tx != nil {
			return err
		}

		emitted, err = s.notifier.Emit(ctx, transitionOf(prior, u), label)
		if err != nil {
			s.logger.Error().Err(err).Str("origin", string(origin)).Str("report_id", id).Msg("notification insert failed")
			emitted = nil
			if s.tx != nil {
				return err
			}
		}
		return nil
	}

	var err error
	if s.tx != nil {
		err = db.WithTx(ctx, s.tx, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if emitted != nil {
		span.SetAttributes(attribute.String("notification.type", string(emitted.Type)))
		s.notifier.Publish(ctx, emitted)
	}
	return updated, nil
}

func transitionOf(prior *Report, u Updates) notification.Transition {
	t := notification.Transition{
		ReportID:      prior.ID,
		Origin:        string(prior.Origin),
		ReporterType:  prior.Origin.ReporterType(),
		ReferenceID:   prior.ReferenceID,
		PriorStatus:   string(prior.Status),
		PriorSeverity: string(prior.Severity),
	}
	if u.Status != nil {
		v := string(*u.Status)
		t.Status = &v
	}
	if u.Severity != nil {
		v := string(*u.Severity)
		t.Severity = &v
	}
	return t
}

func (s *Service) Stats(ctx context.Context) (DashboardStats, error) {
	all, err := s.agg.All(ctx)
	if err != nil {
		return DashboardStats{}, err
	}
	return ComputeStats(all), nil
}

// Urgent returns the newest open urgent reports.
func (s *Service) Urgent(ctx context.Context) ([]*View, error) {
	all, err := s.agg.All(ctx)
	if err != nil {
		return nil, err
	}
	urgent := UrgentReports(all, MaxUrgentReports)
	views := make([]*View, 0, len(urgent))
	for _, r := range urgent {
		views = append(views, NewView(r, nil))
	}
	return views, nil
}

func (s *Service) StatusDistribution(ctx context.Context) (map[string]int, error) {
	all, err := s.agg.All(ctx)
	if err != nil {
		return nil, err
	}
	return StatusDistribution(all), nil
}

func (s *Service) MonthlyVolume(ctx context.Context) ([]MonthCount, error) {
	all, err := s.agg.All(ctx)
	if err != nil {
		return nil, err
	}
	return MonthlyVolume(all, s.now()), nil
}
