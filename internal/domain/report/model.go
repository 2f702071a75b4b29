package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrReportNotFound          = errors.New("report not found")
	ErrReportClosed            = errors.New("closed reports can only be edited by a super admin")
	ErrCloseRequiresSuperAdmin = errors.New("only a super admin can close a report")
	ErrInvalidUpdate           = errors.New("invalid report update")
	ErrInvalidOrigin           = errors.New("invalid reporter type")
	ErrInvalidSubmission       = errors.New("invalid report submission")
)

// Origin identifies which of the three report tables a row lives in. Report
// ids are unique only within an origin.
type Origin string

const (
	OriginPatient Origin = "patient"
	OriginHCP     Origin = "hcp"
	OriginFamily  Origin = "family"
)

// Origins lists every origin in table read order.
var Origins = []Origin{OriginPatient, OriginHCP, OriginFamily}

// ParseOrigin accepts an origin key or a reporter type label, in any case.
func ParseOrigin(s string) (Origin, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "patient":
		return OriginPatient, nil
	case "hcp":
		return OriginHCP, nil
	case "family":
		return OriginFamily, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOrigin, s)
}

// ReporterType is the display label of the origin.
func (o Origin) ReporterType() string {
	switch o {
	case OriginPatient:
		return "Patient"
	case OriginHCP:
		return "HCP"
	case OriginFamily:
		return "Family"
	}
	return string(o)
}

func (o Origin) tag() string {
	switch o {
	case OriginPatient:
		return "PAT"
	case OriginHCP:
		return "HCP"
	case OriginFamily:
		return "FAM"
	}
	return "GEN"
}

func (o Origin) Valid() bool {
	switch o {
	case OriginPatient, OriginHCP, OriginFamily:
		return true
	}
	return false
}

func (o Origin) table() string {
	return string(o) + "_reports"
}

type Status string

const (
	StatusNew         Status = "new"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusClosed      Status = "closed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusUnderReview, StatusApproved, StatusClosed:
		return true
	}
	return false
}

// Open reports whether the report is still awaiting a decision.
func (s Status) Open() bool {
	return s != StatusClosed && s != StatusApproved
}

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityUrgent  Severity = "urgent"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityUrgent:
		return true
	}
	return false
}

// Report is the shared core of a patient, HCP or family report. Details holds
// the reporter-specific form payload and is never interpreted by the
// transition pipeline.
type Report struct {
	ID            string          `json:"id"`
	Origin        Origin          `json:"origin"`
	ReferenceID   string          `json:"referenceId,omitempty"`
	Status        Status          `json:"status"`
	Severity      Severity        `json:"severity"`
	AdminNotes    *string         `json:"adminNotes,omitempty"`
	Assignee      *string         `json:"assignee,omitempty"`
	Details       json.RawMessage `json:"details,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	LastUpdatedAt time.Time       `json:"lastUpdatedAt"`
}

// CoreFields returns the mutable fields keyed the same way as Updates.Fields.
func (r *Report) CoreFields() map[string]interface{} {
	return map[string]interface{}{
		"status":     string(r.Status),
		"severity":   string(r.Severity),
		"adminNotes": optional(r.AdminNotes),
		"assignee":   optional(r.Assignee),
	}
}

// Updates is a partial update; nil fields are left untouched.
type Updates struct {
	Status     *Status   `json:"status,omitempty"`
	Severity   *Severity `json:"severity,omitempty"`
	AdminNotes *string   `json:"adminNotes,omitempty"`
	Assignee   *string   `json:"assignee,omitempty"`
}

func (u Updates) Validate() error {
	if u.Status != nil && !u.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidUpdate, *u.Status)
	}
	if u.Severity != nil && !u.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidUpdate, *u.Severity)
	}
	return nil
}

// Fields returns only the keys present in u.
func (u Updates) Fields() map[string]interface{} {
	out := make(map[string]interface{}, 4)
	if u.Status != nil {
		out["status"] = string(*u.Status)
	}
	if u.Severity != nil {
		out["severity"] = string(*u.Severity)
	}
	if u.AdminNotes != nil {
		out["adminNotes"] = *u.AdminNotes
	}
	if u.Assignee != nil {
		out["assignee"] = *u.Assignee
	}
	return out
}

// apply returns a copy of r with u applied and LastUpdatedAt set to at.
func (u Updates) apply(r *Report, at time.Time) *Report {
	out := *r
	if u.Status != nil {
		out.Status = *u.Status
	}
	if u.Severity != nil {
		out.Severity = *u.Severity
	}
	if u.AdminNotes != nil {
		v := *u.AdminNotes
		out.AdminNotes = &v
	}
	if u.Assignee != nil {
		v := *u.Assignee
		out.Assignee = &v
	}
	out.LastUpdatedAt = at
	return &out
}

func optional(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
