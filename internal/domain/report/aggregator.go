package report

import (
	"context"
	"sort"

	"github.com/pvportal/pvportal/internal/domain/audit"
)

// HistorySource reads the report audit trail.
type HistorySource interface {
	History(ctx context.Context) ([]*audit.Entry, error)
	HistoryFor(ctx context.Context, origin, id string) ([]*audit.Entry, error)
}

// Aggregator merges the three origin tables into one read model.
type Aggregator struct {
	repo    Repository
	history HistorySource
}

func NewAggregator(repo Repository, history HistorySource) *Aggregator {
	return &Aggregator{repo: repo, history: history}
}

// All returns every report, newest first. Reports created at the same
// instant keep origin read order.
func (a *Aggregator) All(ctx context.Context) ([]*Report, error) {
	var all []*Report
	for _, origin := range Origins {
		items, err := a.repo.ListByOrigin(ctx, origin)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all, nil
}

// ListReports returns the view of every report with its audit history.
func (a *Aggregator) ListReports(ctx context.Context) ([]*View, error) {
	reports, err := a.All(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := a.history.History(ctx)
	if err != nil {
		return nil, err
	}

	byReport := make(map[string][]*audit.Entry)
	for _, e := range entries {
		k := historyKey(e.EntityOrigin, e.EntityID)
		byReport[k] = append(byReport[k], e)
	}

	views := make([]*View, 0, len(reports))
	for _, r := range reports {
		views = append(views, NewView(r, byReport[historyKey(string(r.Origin), r.ID)]))
	}
	return views, nil
}

// Get returns the view of one report.
func (a *Aggregator) Get(ctx context.Context, origin Origin, id string) (*View, error) {
	r, err := a.repo.Get(ctx, origin, id)
	if err != nil {
		return nil, err
	}
	entries, err := a.history.HistoryFor(ctx, string(origin), id)
	if err != nil {
		return nil, err
	}
	return NewView(r, entries), nil
}

func historyKey(origin, id string) string {
	return origin + "/" + id
}
