package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Logger derives and persists field-level entries for report mutations.
type Logger struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewLogger(repo Repository, logger zerolog.Logger) *Logger {
	return &Logger{
		repo:   repo,
		logger: logger.With().Str("component", "audit").Logger(),
		now:    time.Now,
	}
}

// Record writes one entry per field in updates that differs from prior and
// returns the entries written. On an insert failure it returns the entries
// already persisted together with the error.
func (l *Logger) Record(ctx context.Context, origin, id, changedBy string, prior, updates map[string]interface{}) ([]*Entry, error) {
	entries := NewEntries(origin, id, changedBy, Diff(prior, updates), l.now())
	for i, e := range entries {
		if err := l.repo.Insert(ctx, e); err != nil {
			l.logger.Error().Err(err).
				Str("origin", origin).
				Str("report_id", id).
				Str("action", e.Action).
				Msg("audit insert failed")
			return entries[:i], err
		}
	}
	return entries, nil
}

// History returns all report entries, newest first.
func (l *Logger) History(ctx context.Context) ([]*Entry, error) {
	return l.repo.ListByEntity(ctx, EntityReport)
}

// HistoryFor returns one report's entries, newest first.
func (l *Logger) HistoryFor(ctx context.Context, origin, id string) ([]*Entry, error) {
	return l.repo.ListForEntity(ctx, EntityReport, origin, id)
}
