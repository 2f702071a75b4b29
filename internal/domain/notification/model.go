package notification

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotificationNotFound = errors.New("notification not found")

// Type classifies a notification. info, warning and urgent share the alert
// threshold vocabulary; approval and closure are gated by notifyOnApproval.
type Type string

const (
	TypeInfo     Type = "info"
	TypeWarning  Type = "warning"
	TypeUrgent   Type = "urgent"
	TypeApproval Type = "approval"
	TypeClosure  Type = "closure"
)

// ActorPlaceholder in Desc is replaced with the acting admin's label when the
// notification is emitted.
const ActorPlaceholder = "${adminId}"

// Notification is a user-facing alert derived from a report transition.
type Notification struct {
	ID                   uuid.UUID `json:"id"`
	Type                 Type      `json:"type"`
	Title                string    `json:"title"`
	Desc                 string    `json:"desc"`
	Time                 string    `json:"time"`
	Date                 string    `json:"date"`
	ReportID             string    `json:"reportId"`
	ReportOrigin         string    `json:"reportOrigin"`
	ReferenceID          string    `json:"referenceId,omitempty"`
	ClassificationReason string    `json:"classificationReason"`
	Read                 bool      `json:"read"`
	CreatedAt            time.Time `json:"createdAt"`
}
