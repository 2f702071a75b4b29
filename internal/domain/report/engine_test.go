package report

import (
	"errors"
	"testing"
	"time"

	"github.com/pvportal/pvportal/internal/platform/auth"
)

var allStatuses = []Status{StatusNew, StatusUnderReview, StatusApproved, StatusClosed}

func TestAuthorize_AdminCannotClose(t *testing.T) {
	for _, current := range []Status{StatusNew, StatusUnderReview, StatusApproved} {
		t.Run(string(current), func(t *testing.T) {
			err := Authorize(auth.RoleAdmin, current, Updates{Status: statusPtr(StatusClosed)})
			if !errors.Is(err, ErrCloseRequiresSuperAdmin) {
				t.Errorf("expected ErrCloseRequiresSuperAdmin, got %v", err)
			}
		})
	}
}

func TestAuthorize_AdminCannotEditClosed(t *testing.T) {
	tests := []struct {
		name string
		u    Updates
	}{
		{"notes only", Updates{AdminNotes: strPtr("follow up")}},
		{"severity only", Updates{Severity: severityPtr(SeverityWarning)}},
		{"reopen", Updates{Status: statusPtr(StatusUnderReview)}},
		{"empty update", Updates{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Authorize(auth.RoleAdmin, StatusClosed, tt.u); !errors.Is(err, ErrReportClosed) {
				t.Errorf("expected ErrReportClosed, got %v", err)
			}
		})
	}
}

func TestAuthorize_AdminOpenTransitions(t *testing.T) {
	for _, from := range []Status{StatusNew, StatusUnderReview, StatusApproved} {
		for _, to := range []Status{StatusNew, StatusUnderReview, StatusApproved} {
			if err := Authorize(auth.RoleAdmin, from, Updates{Status: statusPtr(to)}); err != nil {
				t.Errorf("%s -> %s: unexpected error %v", from, to, err)
			}
		}
	}
}

func TestAuthorize_SuperAdminUnrestricted(t *testing.T) {
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			if err := Authorize(auth.RoleSuperAdmin, from, Updates{Status: statusPtr(to)}); err != nil {
				t.Errorf("%s -> %s: unexpected error %v", from, to, err)
			}
		}
	}
}

func TestAuthorize_ViewerRejected(t *testing.T) {
	err := Authorize(auth.RoleViewer, StatusNew, Updates{AdminNotes: strPtr("x")})
	if !errors.Is(err, auth.ErrInsufficientRole) {
		t.Errorf("expected ErrInsufficientRole, got %v", err)
	}
}

func TestTouchTime(t *testing.T) {
	prior := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"clock ahead", prior.Add(time.Minute), prior.Add(time.Minute)},
		{"same instant", prior, prior.Add(time.Microsecond)},
		{"clock behind", prior.Add(-time.Hour), prior.Add(time.Microsecond)},
		{"sub-microsecond truncated", prior.Add(time.Second + 500*time.Nanosecond), prior.Add(time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := touchTime(prior, tt.now); !got.Equal(tt.want) {
				t.Errorf("touchTime = %v, want %v", got, tt.want)
			}
		})
	}
}
