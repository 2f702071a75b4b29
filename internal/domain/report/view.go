package report

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/pvportal/pvportal/internal/domain/audit"
)

const (
	anonymousReporter  = "Anonymous"
	unknownValue       = "Unknown"
	defaultDescription = "No description provided"
)

// View is the uniform read model of a report from any origin.
type View struct {
	ID            string          `json:"id"`
	Origin        Origin          `json:"origin"`
	ReporterType  string          `json:"reporterType"`
	ReferenceID   string          `json:"referenceId,omitempty"`
	Status        Status          `json:"status"`
	Severity      Severity        `json:"severity"`
	DisplayStatus string          `json:"displayStatus"`
	SeverityLabel string          `json:"severityLabel"`
	ReporterName  string          `json:"reporterName"`
	DrugName      string          `json:"drugName"`
	BatchNumber   string          `json:"batchNumber"`
	Description   string          `json:"description"`
	AdminNotes    *string         `json:"adminNotes,omitempty"`
	Assignee      *string         `json:"assignee,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	LastUpdatedAt time.Time       `json:"lastUpdatedAt"`
	Details       json.RawMessage `json:"details,omitempty"`
	History       []HistoryItem   `json:"history"`
}

type HistoryItem struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	ChangedBy string          `json:"changedBy"`
	ChangedAt time.Time       `json:"changedAt"`
	Diff      string          `json:"diff"`
	OldValue  json.RawMessage `json:"oldValue"`
	NewValue  json.RawMessage `json:"newValue"`
}

// details is the subset of the form payloads the view reads. Every field is
// optional and the payload shapes differ by origin.
type details struct {
	ReporterName      string `json:"reporterName"`
	ReporterFirstName string `json:"reporterFirstName"`
	ReporterLastName  string `json:"reporterLastName"`
	PatientName       string `json:"patientName"`
	PatientInitials   string `json:"patientInitials"`
	AdditionalDetails string `json:"additionalDetails"`
	Products          []struct {
		Name        string `json:"name"`
		BatchNumber string `json:"batchNumber"`
	} `json:"products"`
	Batches  []string `json:"batches"`
	Symptoms []struct {
		Name string `json:"name"`
	} `json:"symptoms"`
}

func parseDetails(raw json.RawMessage) details {
	var d details
	if len(raw) > 0 {
		// Unreadable payloads still render with fallbacks.
		_ = json.Unmarshal(raw, &d)
	}
	return d
}

func (d details) reporterName() string {
	if n := strings.TrimSpace(d.ReporterName); n != "" {
		return n
	}
	if n := strings.TrimSpace(strings.TrimSpace(d.ReporterFirstName) + " " + strings.TrimSpace(d.ReporterLastName)); n != "" {
		return n
	}
	return firstNonEmpty(anonymousReporter, d.PatientName, d.PatientInitials)
}

func (d details) drugName() string {
	if len(d.Products) > 0 {
		return firstNonEmpty(unknownValue, d.Products[0].Name)
	}
	return unknownValue
}

func (d details) batchNumber() string {
	if len(d.Products) > 0 && strings.TrimSpace(d.Products[0].BatchNumber) != "" {
		return strings.TrimSpace(d.Products[0].BatchNumber)
	}
	if len(d.Batches) > 0 {
		return firstNonEmpty(unknownValue, d.Batches[0])
	}
	return unknownValue
}

func (d details) description(adminNotes *string) string {
	var notes, symptom string
	if adminNotes != nil {
		notes = *adminNotes
	}
	if len(d.Symptoms) > 0 {
		symptom = d.Symptoms[0].Name
	}
	return firstNonEmpty(defaultDescription, notes, d.AdditionalDetails, symptom)
}

func firstNonEmpty(fallback string, values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return fallback
}

// NewView projects r with its audit history, newest entry first.
func NewView(r *Report, history []*audit.Entry) *View {
	d := parseDetails(r.Details)
	v := &View{
		ID:            r.ID,
		Origin:        r.Origin,
		ReporterType:  r.Origin.ReporterType(),
		ReferenceID:   r.ReferenceID,
		Status:        r.Status,
		Severity:      r.Severity,
		DisplayStatus: StatusLabel(r.Status, r.Severity, true),
		SeverityLabel: SeverityLabel(r.Severity),
		ReporterName:  d.reporterName(),
		DrugName:      d.drugName(),
		BatchNumber:   d.batchNumber(),
		Description:   d.description(r.AdminNotes),
		AdminNotes:    r.AdminNotes,
		Assignee:      r.Assignee,
		CreatedAt:     r.CreatedAt,
		LastUpdatedAt: r.LastUpdatedAt,
		Details:       r.Details,
		History:       make([]HistoryItem, 0, len(history)),
	}

	sorted := append([]*audit.Entry(nil), history...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ChangedAt.After(sorted[j].ChangedAt)
	})
	for _, e := range sorted {
		v.History = append(v.History, HistoryItem{
			ID:        e.ID.String(),
			Action:    e.Action,
			ChangedBy: e.ChangedBy,
			ChangedAt: e.ChangedAt,
			Diff:      e.Display(),
			OldValue:  e.OldValue,
			NewValue:  e.NewValue,
		})
	}
	return v
}
