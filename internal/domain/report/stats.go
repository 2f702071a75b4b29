package report

import "time"

// MaxUrgentReports caps the dashboard urgent list.
const MaxUrgentReports = 10

type DashboardStats struct {
	Total       int            `json:"total"`
	New         int            `json:"new"`
	UnderReview int            `json:"underReview"`
	Approved    int            `json:"approved"`
	Closed      int            `json:"closed"`
	Urgent      int            `json:"urgent"`
	ByOrigin    map[string]int `json:"byOrigin"`
}

type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// ComputeStats counts reports by status and origin. Urgent counts open
// reports with urgent severity.
func ComputeStats(reports []*Report) DashboardStats {
	st := DashboardStats{ByOrigin: make(map[string]int, len(Origins))}
	for _, o := range Origins {
		st.ByOrigin[o.ReporterType()] = 0
	}
	for _, r := range reports {
		st.Total++
		st.ByOrigin[r.Origin.ReporterType()]++
		switch r.Status {
		case StatusNew:
			st.New++
		case StatusUnderReview:
			st.UnderReview++
		case StatusApproved:
			st.Approved++
		case StatusClosed:
			st.Closed++
		}
		if isOpenUrgent(r) {
			st.Urgent++
		}
	}
	return st
}

func isOpenUrgent(r *Report) bool {
	return r.Severity == SeverityUrgent && r.Status.Open()
}

// UrgentReports filters open urgent reports from a newest-first list, keeping
// at most limit.
func UrgentReports(reports []*Report, limit int) []*Report {
	out := make([]*Report, 0, limit)
	for _, r := range reports {
		if len(out) == limit {
			break
		}
		if isOpenUrgent(r) {
			out = append(out, r)
		}
	}
	return out
}

// StatusDistribution counts reports per status label without urgent
// promotion.
func StatusDistribution(reports []*Report) map[string]int {
	out := make(map[string]int)
	for _, r := range reports {
		out[StatusLabel(r.Status, r.Severity, false)]++
	}
	return out
}

// MonthlyVolume counts reports created in each of the twelve calendar months
// ending with the month of now, oldest first. Months are UTC.
func MonthlyVolume(reports []*Report, now time.Time) []MonthCount {
	now = now.UTC()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	out := make([]MonthCount, 12)
	index := make(map[string]int, 12)
	for i := 0; i < 12; i++ {
		m := current.AddDate(0, i-11, 0).Format("2006-01")
		out[i] = MonthCount{Month: m}
		index[m] = i
	}
	for _, r := range reports {
		if i, ok := index[r.CreatedAt.UTC().Format("2006-01")]; ok {
			out[i].Count++
		}
	}
	return out
}
