package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pvportal/pvportal/internal/domain/settings"
)

// Transition is the input to Derive: the prior core state of a report and
// the status/severity the update requested (nil when not requested).
type Transition struct {
	ReportID      string
	Origin        string
	ReporterType  string
	ReferenceID   string
	PriorStatus   string
	PriorSeverity string
	Status        *string
	Severity      *string
}

// Classification reasons, one per derivation rule.
const (
	ReasonSeverityUrgent  = "severity raised to urgent"
	ReasonStatusApproved  = "status moved to approved"
	ReasonStatusClosed    = "status moved to closed"
	ReasonSeverityWarning = "severity raised to warning"
	ReasonStatusChanged   = "status changed"
)

func movedTo(prior string, next *string, target string) bool {
	return next != nil && *next == target && prior != target
}

// Derive classifies t and returns the notification it should produce, or nil
// when the transition is not notable. Rules are checked in order and the
// first match wins. Derive is pure: Time, Date and the actor in Desc are
// filled in by Render.
func Derive(t Transition) *Notification {
	subject := fmt.Sprintf("%s report %s", t.ReporterType, reference(t))

	var (
		typ         Type
		title, desc string
		reason      string
	)
	switch {
	case movedTo(t.PriorSeverity, t.Severity, "urgent"):
		typ, reason = TypeUrgent, ReasonSeverityUrgent
		title = "Urgent report flagged"
		desc = fmt.Sprintf("%s flagged %s as urgent.", ActorPlaceholder, subject)
	case movedTo(t.PriorStatus, t.Status, "approved"):
		typ, reason = TypeApproval, ReasonStatusApproved
		title = "Report approved"
		desc = fmt.Sprintf("%s approved %s.", ActorPlaceholder, subject)
	case movedTo(t.PriorStatus, t.Status, "closed"):
		typ, reason = TypeClosure, ReasonStatusClosed
		title = "Report closed"
		desc = fmt.Sprintf("%s closed %s.", ActorPlaceholder, subject)
	case movedTo(t.PriorSeverity, t.Severity, "warning"):
		typ, reason = TypeWarning, ReasonSeverityWarning
		title = "Report severity raised"
		desc = fmt.Sprintf("%s raised %s to warning.", ActorPlaceholder, subject)
	case t.Status != nil && *t.Status != t.PriorStatus:
		typ, reason = TypeInfo, ReasonStatusChanged
		title = "Report status updated"
		desc = fmt.Sprintf("%s moved %s from %s to %s.", ActorPlaceholder, subject, humanize(t.PriorStatus), humanize(*t.Status))
	default:
		return nil
	}

	return &Notification{
		Type:                 typ,
		Title:                title,
		Desc:                 desc,
		ReportID:             t.ReportID,
		ReportOrigin:         t.Origin,
		ReferenceID:          t.ReferenceID,
		ClassificationReason: reason,
	}
}

func reference(t Transition) string {
	if t.ReferenceID != "" {
		return t.ReferenceID
	}
	return t.ReportID
}

func humanize(s string) string {
	if s == "" {
		return "none"
	}
	return strings.ReplaceAll(s, "_", " ")
}

// ShouldEmit applies the notification thresholds. Urgent notifications need
// urgentAlerts, approval and closure need notifyOnApproval, and info and
// warning pass when they rank at or above alertThreshold.
func ShouldEmit(th settings.NotificationThresholds, n *Notification) bool {
	if n == nil {
		return false
	}
	switch n.Type {
	case TypeUrgent:
		return th.UrgentAlerts
	case TypeApproval, TypeClosure:
		return th.NotifyOnApproval
	default:
		return settings.AlertLevel(n.Type).Rank() >= th.AlertThreshold.Rank()
	}
}

// Render stamps n for emission: a fresh id, the actor label substituted into
// Desc, and UTC HH:MM / YYYY-MM-DD.
func Render(n *Notification, actorLabel string, at time.Time) {
	at = at.UTC()
	n.ID = uuid.New()
	n.Desc = strings.ReplaceAll(n.Desc, ActorPlaceholder, actorLabel)
	n.Title = strings.ReplaceAll(n.Title, ActorPlaceholder, actorLabel)
	n.Time = at.Format("15:04")
	n.Date = at.Format("2006-01-02")
	n.CreatedAt = at
}
