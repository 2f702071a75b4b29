package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pvportal/pvportal/internal/domain/notification"
	"github.com/pvportal/pvportal/internal/domain/settings"
	"github.com/pvportal/pvportal/internal/platform/auth"
)

var (
	created  = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	adminAct = &auth.Actor{ID: "a-1", Label: "Ada Lovelace (ada@example.com)", Role: auth.RoleAdmin}
	superAct = &auth.Actor{ID: "s-1", Label: "Grace Hopper (grace@example.com)", Role: auth.RoleSuperAdmin}
)

func TestUpdateReport_AuditEntriesPerChangedField(t *testing.T) {
	tests := []struct {
		name string
		u    Updates
		want int
	}{
		{"three fields", Updates{
			Status:     statusPtr(StatusUnderReview),
			Severity:   severityPtr(SeverityWarning),
			AdminNotes: strPtr("called reporter"),
		}, 3},
		{"status set to current value", Updates{Status: statusPtr(StatusNew)}, 0},
		{"one real change, one no-op", Updates{Status: statusPtr(StatusNew), Severity: severityPtr(SeverityUrgent)}, 1},
		{"nothing requested", Updates{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(sampleReport(OriginPatient, "r-1", StatusNew, SeverityInfo, created))

			if _, err := f.svc.UpdateReport(context.Background(), OriginPatient, "r-1", tt.u, adminAct); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(f.audit.entries) != tt.want {
				t.Errorf("expected %d audit entries, got %d", tt.want, len(f.audit.entries))
			}
			for _, e := range f.audit.entries {
				if e.ChangedBy != adminAct.Label {
					t.Errorf("expected changedBy %q, got %q", adminAct.Label, e.ChangedBy)
				}
				if e.EntityOrigin != "patient" || e.EntityID != "r-1" {
					t.Errorf("unexpected entity %s/%s", e.EntityOrigin, e.EntityID)
				}
			}
		})
	}
}

func TestUpdateReport_AuditValues(t *testing.T) {
	f := newFixture(sampleReport(OriginHCP, "r-2", StatusNew, SeverityInfo, created))

	if _, err := f.svc.UpdateReport(context.Background(), OriginHCP, "r-2", Updates{AdminNotes: strPtr("see attached")}, adminAct); err != nil {
		t.Fatal(err)
	}
	if len(f.audit.entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(f.audit.entries))
	}
	e := f.audit.entries[0]
	if e.Action != "Changed adminNotes" {
		t.Errorf("unexpected action %q", e.Action)
	}
	if string(e.OldValue) != `{"adminNotes":"None"}` || string(e.NewValue) != `{"adminNotes":"see attached"}` {
		t.Errorf("unexpected values %s -> %s", e.OldValue, e.NewValue)
	}
}

func TestUpdateReport_AdminForbidden(t *testing.T) {
	tests := []struct {
		name    string
		current Status
		u       Updates
		want    error
	}{
		{"close from new", StatusNew, Updates{Status: statusPtr(StatusClosed)}, ErrCloseRequiresSuperAdmin},
		{"close from approved", StatusApproved, Updates{Status: statusPtr(StatusClosed)}, ErrCloseRequiresSuperAdmin},
		{"notes on closed", StatusClosed, Updates{AdminNotes: strPtr("late note")}, ErrReportClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(sampleReport(OriginFamily, "r-3", tt.current, SeverityInfo, created))

			_, err := f.svc.UpdateReport(context.Background(), OriginFamily, "r-3", tt.u, adminAct)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if f.repo.updates != 0 || len(f.audit.entries) != 0 || len(f.notes.items) != 0 {
				t.Error("rejected update must not write anything")
			}
		})
	}
}

func TestUpdateReport_SuperAdminCloseAndReopen(t *testing.T) {
	f := newFixture(sampleReport(OriginPatient, "r-4", StatusUnderReview, SeverityInfo, created))
	ctx := context.Background()

	got, err := f.svc.UpdateReport(ctx, OriginPatient, "r-4", Updates{Status: statusPtr(StatusClosed)}, superAct)
	if err != nil || got.Status != StatusClosed {
		t.Fatalf("expected closed, got %+v (%v)", got, err)
	}
	got, err = f.svc.UpdateReport(ctx, OriginPatient, "r-4", Updates{Status: statusPtr(StatusNew)}, superAct)
	if err != nil || got.Status != StatusNew {
		t.Fatalf("expected reopened, got %+v (%v)", got, err)
	}
}

func TestUpdateReport_NotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.UpdateReport(context.Background(), OriginHCP, "missing", Updates{AdminNotes: strPtr("x")}, superAct)
	if !errors.Is(err, ErrReportNotFound) {
		t.Errorf("expected ErrReportNotFound, got %v", err)
	}
}

func TestUpdateReport_ValidationAndActor(t *testing.T) {
	f := newFixture(sampleReport(OriginHCP, "r-5", StatusNew, SeverityInfo, created))

	_, err := f.svc.UpdateReport(context.Background(), OriginHCP, "r-5", Updates{Status: statusPtr("escalated")}, superAct)
	if !errors.Is(err, ErrInvalidUpdate) {
		t.Errorf("expected ErrInvalidUpdate, got %v", err)
	}
	_, err = f.svc.UpdateReport(context.Background(), OriginHCP, "r-5", Updates{}, nil)
	if !errors.Is(err, auth.ErrMissingToken) {
		t.Errorf("expected ErrMissingToken, got %v", err)
	}
}

func TestUpdateReport_RepeatedIdenticalUpdate(t *testing.T) {
	f := newFixture(sampleReport(OriginPatient, "r-6", StatusNew, SeverityInfo, created))
	ctx := context.Background()
	u := Updates{Status: statusPtr(StatusUnderReview), AdminNotes: strPtr("triaged")}

	first, err := f.svc.UpdateReport(ctx, OriginPatient, "r-6", u, adminAct)
	if err != nil {
		t.Fatal(err)
	}
	entries := len(f.audit.entries)

	second, err := f.svc.UpdateReport(ctx, OriginPatient, "r-6", u, adminAct)
	if err != nil {
		t.Fatal(err)
	}
	if !second.LastUpdatedAt.After(first.LastUpdatedAt) {
		t.Errorf("expected a later lastUpdatedAt, got %v then %v", first.LastUpdatedAt, second.LastUpdatedAt)
	}
	if len(f.audit.entries) != entries {
		t.Errorf("second identical update added %d audit entries", len(f.audit.entries)-entries)
	}
}

func TestUpdateReport_LastUpdatedAtSetOnNoOp(t *testing.T) {
	f := newFixture(sampleReport(OriginPatient, "r-7", StatusNew, SeverityInfo, created))
	f.advance(time.Hour)

	got, err := f.svc.UpdateReport(context.Background(), OriginPatient, "r-7", Updates{}, adminAct)
	if err != nil {
		t.Fatal(err)
	}
	if !got.LastUpdatedAt.Equal(f.clock.UTC()) {
		t.Errorf("expected lastUpdatedAt %v, got %v", f.clock, got.LastUpdatedAt)
	}
}

func TestUpdateReport_Notifications(t *testing.T) {
	tests := []struct {
		name       string
		thresholds settings.NotificationThresholds
		u          Updates
		wantType   notification.Type
	}{
		{"urgent with alerts on", settings.Defaults().NotificationThresholds,
			Updates{Severity: severityPtr(SeverityUrgent)}, notification.TypeUrgent},
		{"urgent with alerts off", settings.NotificationThresholds{UrgentAlerts: false, AlertThreshold: settings.AlertInfo, NotifyOnApproval: true},
			Updates{Severity: severityPtr(SeverityUrgent)}, ""},
		{"approval", settings.Defaults().NotificationThresholds,
			Updates{Status: statusPtr(StatusApproved)}, notification.TypeApproval},
		{"status change below threshold", settings.Defaults().NotificationThresholds,
			Updates{Status: statusPtr(StatusUnderReview)}, ""},
		{"notes only", settings.Defaults().NotificationThresholds,
			Updates{AdminNotes: strPtr("n")}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(sampleReport(OriginHCP, "r-8", StatusNew, SeverityInfo, created))
			f.thresholds.th = tt.thresholds

			if _, err := f.svc.UpdateReport(context.Background(), OriginHCP, "r-8", tt.u, adminAct); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantType == "" {
				if len(f.notes.items) != 0 || len(f.publisher.published) != 0 {
					t.Errorf("expected no notification, got %d stored", len(f.notes.items))
				}
				return
			}
			if len(f.notes.items) != 1 {
				t.Fatalf("expected 1 notification, got %d", len(f.notes.items))
			}
			n := f.notes.items[0]
			if n.Type != tt.wantType {
				t.Errorf("expected %s, got %s", tt.wantType, n.Type)
			}
			if n.ReportID != "r-8" || n.ReportOrigin != "hcp" {
				t.Errorf("unexpected report reference %s/%s", n.ReportOrigin, n.ReportID)
			}
			if len(f.publisher.published) != 1 {
				t.Errorf("expected notification published once, got %d", len(f.publisher.published))
			}
		})
	}
}

func TestUpdateReport_TransactionBeginFailure(t *testing.T) {
	f := newFixture(sampleReport(OriginPatient, "r-9", StatusNew, SeverityInfo, created))
	f.svc.UseTransactions(failingBeginner{})

	_, err := f.svc.UpdateReport(context.Background(), OriginPatient, "r-9", Updates{AdminNotes: strPtr("x")}, adminAct)
	if err == nil {
		t.Fatal("expected begin failure to surface")
	}
	if f.repo.updates != 0 {
		t.Error("no write should happen without a transaction")
	}
}

func TestListReports_AttachesHistory(t *testing.T) {
	f := newFixture(
		sampleReport(OriginPatient, "r-1", StatusNew, SeverityInfo, created),
		sampleReport(OriginHCP, "r-1", StatusNew, SeverityInfo, created.Add(time.Hour)),
	)
	ctx := context.Background()
	if _, err := f.svc.UpdateReport(ctx, OriginHCP, "r-1", Updates{Severity: severityPtr(SeverityUrgent)}, adminAct); err != nil {
		t.Fatal(err)
	}

	views, err := f.svc.ListReports(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}
	if views[0].Origin != OriginHCP || len(views[0].History) != 1 {
		t.Errorf("expected hcp report first with one history entry, got %s with %d", views[0].Origin, len(views[0].History))
	}
	if views[0].DisplayStatus != UrgentLabel {
		t.Errorf("expected urgent promotion, got %q", views[0].DisplayStatus)
	}
	if len(views[1].History) != 0 {
		t.Errorf("patient report with the same id must not share history, got %d", len(views[1].History))
	}
	if views[0].History[0].Diff != "severity: info → urgent" {
		t.Errorf("unexpected diff %q", views[0].History[0].Diff)
	}
}

func TestGetReport(t *testing.T) {
	f := newFixture(sampleReport(OriginFamily, "r-1", StatusApproved, SeverityUrgent, created))

	v, err := f.svc.GetReport(context.Background(), OriginFamily, "r-1")
	if err != nil {
		t.Fatal(err)
	}
	if v.DisplayStatus != "Approved" || v.ReporterType != "Family" {
		t.Errorf("unexpected view %+v", v)
	}
	if _, err := f.svc.GetReport(context.Background(), OriginPatient, "r-1"); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("expected ErrReportNotFound, got %v", err)
	}
}

func TestDashboard(t *testing.T) {
	f := newFixture(
		sampleReport(OriginPatient, "p1", StatusNew, SeverityUrgent, created),
		sampleReport(OriginHCP, "h1", StatusClosed, SeverityUrgent, created.Add(time.Hour)),
		sampleReport(OriginFamily, "f1", StatusUnderReview, SeverityInfo, created.Add(2*time.Hour)),
	)
	ctx := context.Background()

	st, err := f.svc.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Total != 3 || st.Urgent != 1 || st.Closed != 1 || st.ByOrigin["HCP"] != 1 {
		t.Errorf("unexpected stats %+v", st)
	}

	urgent, err := f.svc.Urgent(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(urgent) != 1 || urgent[0].ID != "p1" {
		t.Errorf("expected only p1 as open urgent, got %d", len(urgent))
	}

	dist, err := f.svc.StatusDistribution(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if dist["New"] != 1 || dist["Closed"] != 1 || dist["Under Review"] != 1 || dist[UrgentLabel] != 0 {
		t.Errorf("unexpected distribution %v", dist)
	}

	vol, err := f.svc.MonthlyVolume(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(vol) != 12 || vol[11].Month != "2024-06" || vol[10].Count != 3 {
		t.Errorf("unexpected volume %+v", vol)
	}
}

func TestDashboard_StoreFailure(t *testing.T) {
	f := newFixture()
	f.repo.failErr = errors.New("connection refused")

	if _, err := f.svc.Stats(context.Background()); err == nil {
		t.Error("expected error")
	}
	if _, err := f.svc.ListReports(context.Background()); err == nil {
		t.Error("expected error")
	}
}
