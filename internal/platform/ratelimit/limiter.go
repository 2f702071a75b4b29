// Package ratelimit throttles public intake submissions with a fixed-window
// counter keyed by client fingerprint.
//
// Bursts straddling a window boundary may reach twice the nominal limit; the
// fixed window is kept anyway because the counter is a single INCR in Redis.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrRateLimitExceeded is returned by callers when Allow denies a request.
// Limiters themselves never fail.
var ErrRateLimitExceeded = errors.New("too many submissions, please try again later")

// Decision describes the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Count     int
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns the whole seconds until the window resets, at least 1.
func (d Decision) RetryAfter(now time.Time) int {
	secs := int(d.ResetAt.Sub(now).Seconds() + 0.999)
	if secs < 1 {
		return 1
	}
	return secs
}

// Limiter is the injectable store behind the intake throttle.
type Limiter interface {
	Allow(ctx context.Context, fingerprint string, limit int, window time.Duration) Decision
}

// Fingerprint combines caller IP, user agent and the client-supplied id into
// a stable key. The client id is not authenticated.
func Fingerprint(ip, userAgent, clientID string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{ip, userAgent, clientID}, "|")))
	return hex.EncodeToString(sum[:])
}

type window struct {
	start time.Time
	count int
}

// InMemoryLimiter keeps windows in a mutex-guarded map. State is process-local
// and lost on restart.
type InMemoryLimiter struct {
	mu        sync.Mutex
	windows   map[string]window
	now       func() time.Time
	lastSweep time.Time
}

const sweepInterval = time.Minute

func NewInMemory() *InMemoryLimiter {
	return &InMemoryLimiter{
		windows: make(map[string]window),
		now:     time.Now,
	}
}

// Allow starts a new window with count 1 when none exists or the current one
// has elapsed; otherwise it increments and allows while count <= limit. The
// read-modify-write happens under one lock so concurrent callers cannot
// under-count.
func (l *InMemoryLimiter) Allow(_ context.Context, fingerprint string, limit int, win time.Duration) Decision {
	if limit <= 0 {
		limit = 1
	}
	if win <= 0 {
		win = time.Minute
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now, win)

	w, ok := l.windows[fingerprint]
	if !ok || now.Sub(w.start) >= win {
		w = window{start: now, count: 1}
	} else {
		w.count++
	}
	l.windows[fingerprint] = w

	return decide(w.count, limit, w.start.Add(win))
}

// sweep drops windows older than win at most once per sweepInterval. Windows
// with a longer duration than win are recreated on their next call, which
// only matters when one limiter serves several window sizes.
func (l *InMemoryLimiter) sweep(now time.Time, win time.Duration) {
	if now.Sub(l.lastSweep) < sweepInterval {
		return
	}
	l.lastSweep = now
	for k, w := range l.windows {
		if now.Sub(w.start) >= win {
			delete(l.windows, k)
		}
	}
}

// Len reports the number of tracked fingerprints.
func (l *InMemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

func decide(count, limit int, resetAt time.Time) Decision {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= limit,
		Count:     count,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}
