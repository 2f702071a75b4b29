package settings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// GlobalID is the id of the singleton settings row.
const GlobalID = "global"

// Never disables a time-based limit.
const Never = "Never"

var (
	ErrSettingsNotFound = errors.New("system settings not found")
	ErrInvalidSettings  = errors.New("invalid system settings")
)

// AlertLevel is the notification threshold vocabulary, ordered
// info < warning < urgent.
type AlertLevel string

const (
	AlertInfo    AlertLevel = "info"
	AlertWarning AlertLevel = "warning"
	AlertUrgent  AlertLevel = "urgent"
)

var alertRank = map[AlertLevel]int{
	AlertInfo:    1,
	AlertWarning: 2,
	AlertUrgent:  3,
}

// Rank returns the ordering position of l, or 0 when l is unknown.
func (l AlertLevel) Rank() int {
	return alertRank[l]
}

func (l AlertLevel) Valid() bool {
	return l.Rank() > 0
}

// ClinicalConfig holds the security policy consumed by the session gates.
// SessionTimeout is in minutes and PasswordExpiry in days, each either a
// positive integer string or "Never".
type ClinicalConfig struct {
	MaintenanceMode  bool   `json:"maintenanceMode"`
	SessionTimeout   string `json:"sessionTimeout"`
	PasswordExpiry   string `json:"passwordExpiry"`
	TwoFA            bool   `json:"twoFA"`
	MaxLoginAttempts string `json:"maxLoginAttempts"`
}

// NotificationThresholds decide which derived notifications are emitted.
type NotificationThresholds struct {
	UrgentAlerts     bool       `json:"urgentAlerts"`
	AlertThreshold   AlertLevel `json:"alertThreshold"`
	NotifyOnApproval bool       `json:"notifyOnApproval"`
}

// SystemSettings is the singleton policy record.
type SystemSettings struct {
	ID                     string                 `json:"id"`
	ClinicalConfig         ClinicalConfig         `json:"clinicalConfig"`
	NotificationThresholds NotificationThresholds `json:"notificationThresholds"`
	UpdatedAt              *time.Time             `json:"updatedAt,omitempty"`
	UpdatedBy              string                 `json:"updatedBy,omitempty"`
}

// Defaults returns the permissive policy used when no record exists or the
// store cannot be read.
func Defaults() *SystemSettings {
	return &SystemSettings{
		ID: GlobalID,
		ClinicalConfig: ClinicalConfig{
			MaintenanceMode:  false,
			SessionTimeout:   Never,
			PasswordExpiry:   Never,
			TwoFA:            false,
			MaxLoginAttempts: "5",
		},
		NotificationThresholds: NotificationThresholds{
			UrgentAlerts:     true,
			AlertThreshold:   AlertWarning,
			NotifyOnApproval: true,
		},
	}
}

// ParseMinutes converts a sessionTimeout value. "Never", empty, non-numeric
// and non-positive values mean no limit and return 0.
func ParseMinutes(v string) time.Duration {
	n := parsePositive(v)
	return time.Duration(n) * time.Minute
}

// ParseDays converts a passwordExpiry value with the same rules as
// ParseMinutes.
func ParseDays(v string) time.Duration {
	n := parsePositive(v)
	return time.Duration(n) * 24 * time.Hour
}

func parsePositive(v string) int {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, Never) {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

func validLimit(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, Never) {
		return true
	}
	n, err := strconv.Atoi(v)
	return err == nil && n > 0
}

// Validate rejects values the gates could not interpret.
func (s *SystemSettings) Validate() error {
	cc := s.ClinicalConfig
	if !validLimit(cc.SessionTimeout) {
		return fmt.Errorf("%w: sessionTimeout must be a positive number of minutes or %q", ErrInvalidSettings, Never)
	}
	if !validLimit(cc.PasswordExpiry) {
		return fmt.Errorf("%w: passwordExpiry must be a positive number of days or %q", ErrInvalidSettings, Never)
	}
	if n, err := strconv.Atoi(strings.TrimSpace(cc.MaxLoginAttempts)); err != nil || n <= 0 {
		return fmt.Errorf("%w: maxLoginAttempts must be a positive number", ErrInvalidSettings)
	}
	if !s.NotificationThresholds.AlertThreshold.Valid() {
		return fmt.Errorf("%w: alertThreshold must be one of info, warning, urgent", ErrInvalidSettings)
	}
	return nil
}
