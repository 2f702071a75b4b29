package report

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/pvportal/pvportal/internal/domain/audit"
	"github.com/pvportal/pvportal/internal/domain/notification"
	"github.com/pvportal/pvportal/internal/domain/settings"
)

type memRepo struct {
	rows    map[Origin][]*Report
	updates int
	failErr error
}

func newMemRepo(reports ...*Report) *memRepo {
	m := &memRepo{rows: map[Origin][]*Report{}}
	for _, r := range reports {
		m.rows[r.Origin] = append(m.rows[r.Origin], r)
	}
	return m
}

func (m *memRepo) ListByOrigin(_ context.Context, origin Origin) ([]*Report, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	out := make([]*Report, 0, len(m.rows[origin]))
	for _, r := range m.rows[origin] {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memRepo) Get(_ context.Context, origin Origin, id string) (*Report, error) {
	for _, r := range m.rows[origin] {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrReportNotFound
}

func (m *memRepo) Update(_ context.Context, origin Origin, id string, u Updates, at time.Time) (*Report, error) {
	for i, r := range m.rows[origin] {
		if r.ID == id {
			m.updates++
			m.rows[origin][i] = u.apply(r, at)
			cp := *m.rows[origin][i]
			return &cp, nil
		}
	}
	return nil, ErrReportNotFound
}

func (m *memRepo) Create(_ context.Context, r *Report) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.rows[r.Origin] = append(m.rows[r.Origin], r)
	return nil
}

type memAudit struct {
	entries []*audit.Entry
}

func (m *memAudit) Insert(_ context.Context, e *audit.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memAudit) ListByEntity(_ context.Context, entity string) ([]*audit.Entry, error) {
	var out []*audit.Entry
	for _, e := range m.entries {
		if e.Entity == entity {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memAudit) ListForEntity(_ context.Context, entity, origin, id string) ([]*audit.Entry, error) {
	var out []*audit.Entry
	for _, e := range m.entries {
		if e.Entity == entity && e.EntityOrigin == origin && e.EntityID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

type memNotifications struct {
	items []*notification.Notification
}

func (m *memNotifications) Insert(_ context.Context, n *notification.Notification) error {
	m.items = append(m.items, n)
	return nil
}

func (m *memNotifications) List(_ context.Context, limit, offset int) ([]*notification.Notification, int, error) {
	return m.items, len(m.items), nil
}

func (m *memNotifications) MarkRead(context.Context, uuid.UUID) error {
	return nil
}

func (m *memNotifications) Clear(context.Context) (int64, error) {
	n := int64(len(m.items))
	m.items = nil
	return n, nil
}

type fixedThresholds struct {
	th settings.NotificationThresholds
}

func (f *fixedThresholds) Thresholds(context.Context) settings.NotificationThresholds {
	return f.th
}

type recordingPublisher struct {
	published []*notification.Notification
}

func (p *recordingPublisher) Publish(_ context.Context, n *notification.Notification) error {
	p.published = append(p.published, n)
	return nil
}

type failingBeginner struct{}

func (failingBeginner) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("pool closed")
}

type fixture struct {
	svc        *Service
	repo       *memRepo
	audit      *memAudit
	notes      *memNotifications
	thresholds *fixedThresholds
	publisher  *recordingPublisher
	clock      *time.Time
}

func newFixture(reports ...*Report) *fixture {
	f := &fixture{
		repo:       newMemRepo(reports...),
		audit:      &memAudit{},
		notes:      &memNotifications{},
		thresholds: &fixedThresholds{th: settings.Defaults().NotificationThresholds},
		publisher:  &recordingPublisher{},
	}
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	f.clock = &now

	notifier := notification.NewService(f.notes, f.thresholds, zerolog.Nop())
	notifier.SetPublisher(f.publisher)
	f.svc = NewService(f.repo, audit.NewLogger(f.audit, zerolog.Nop()), notifier, zerolog.Nop())
	f.svc.now = func() time.Time { return *f.clock }
	return f
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func sampleReport(origin Origin, id string, status Status, severity Severity, created time.Time) *Report {
	return &Report{
		ID:            id,
		Origin:        origin,
		ReferenceID:   "PV-" + origin.tag() + "-" + id,
		Status:        status,
		Severity:      severity,
		Details:       []byte(`{"reporterName":"Jane Roe","products":[{"name":"Ibuprofen","batchNumber":"B-77"}]}`),
		CreatedAt:     created,
		LastUpdatedAt: created,
	}
}

func statusPtr(s Status) *Status       { return &s }
func severityPtr(s Severity) *Severity { return &s }
func strPtr(s string) *string          { return &s }
