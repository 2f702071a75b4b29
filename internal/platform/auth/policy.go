package auth

import (
	"context"
	"time"
)

// SessionPolicy is the slice of system settings the session gates enforce.
// A zero duration means no limit.
type SessionPolicy struct {
	MaintenanceMode bool
	SessionTimeout  time.Duration
	PasswordExpiry  time.Duration
	RequireMFA      bool
}

// PolicySource yields the current session policy. Implementations re-read
// the settings store on every call and fall back to permissive defaults when
// the store is unavailable, so SessionPolicy has no error return.
type PolicySource interface {
	SessionPolicy(ctx context.Context) SessionPolicy
}

// ActorRecord is the stored view of an admin account the gates need.
type ActorRecord struct {
	ID                string
	Label             string
	Role              Role
	PasswordChangedAt *time.Time
}

// ActorStore resolves a token subject to its admin account. Implementations
// return an error wrapping ErrUnknownActor when no account exists.
type ActorStore interface {
	LookupActor(ctx context.Context, id string) (*ActorRecord, error)
}

// Actor is the authenticated caller attached to the request context.
type Actor struct {
	ID    string
	Label string
	Role  Role
	AAL   string
	AMR   []string
}

// DisplayLabel returns the human-readable label used in audit trails.
func (a *Actor) DisplayLabel() string {
	if a.Label != "" {
		return a.Label
	}
	return a.ID
}

type contextKey string

const actorKey contextKey = "pv_actor"

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the authenticated actor, or nil.
func ActorFromContext(ctx context.Context) *Actor {
	a, _ := ctx.Value(actorKey).(*Actor)
	return a
}
