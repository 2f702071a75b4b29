package report

import "strings"

// UrgentLabel is the display state an open urgent report is promoted to.
const UrgentLabel = "Urgent"

var statusLabels = map[Status]string{
	StatusNew:         "New",
	StatusUnderReview: "Under Review",
	StatusApproved:    "Approved",
	StatusClosed:      "Closed",
}

var severityLabels = map[Severity]string{
	SeverityInfo:    "Info",
	SeverityWarning: "Warning",
	SeverityUrgent:  "Urgent",
}

// StatusLabel is the single mapping from persisted status to display label.
// With promote set, an urgent report that is still open displays as
// UrgentLabel; the stored status is not affected.
func StatusLabel(status Status, severity Severity, promote bool) string {
	if promote && severity == SeverityUrgent && status.Open() {
		return UrgentLabel
	}
	if l, ok := statusLabels[status]; ok {
		return l
	}
	return titleCase(string(status))
}

func SeverityLabel(severity Severity) string {
	if l, ok := severityLabels[severity]; ok {
		return l
	}
	return titleCase(string(severity))
}

func titleCase(s string) string {
	if s == "" {
		return "Unknown"
	}
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
