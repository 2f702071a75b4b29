package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// minTokenLength rejects placeholder values before any verification work.
const minTokenLength = 10

// Verifier validates a raw bearer token and returns its claims.
type Verifier interface {
	Verify(raw string) (*Claims, error)
}

// Evaluator runs the session gates for admin requests. Each gate is a hard
// stop and the first failure wins.
type Evaluator struct {
	verifier Verifier
	policies PolicySource
	actors   ActorStore
	logger   zerolog.Logger
	now      func() time.Time
}

func NewEvaluator(verifier Verifier, policies PolicySource, actors ActorStore) *Evaluator {
	return &Evaluator{
		verifier: verifier,
		policies: policies,
		actors:   actors,
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
}

// SetLogger sets where store failures during evaluation are logged.
func (e *Evaluator) SetLogger(logger zerolog.Logger) {
	e.logger = logger.With().Str("component", "auth").Logger()
}

// Evaluate checks token against the live session policy and returns the
// authenticated actor. Gate order: token length, maintenance mode, signature
// and claims, session timeout, password expiry, account lookup.
func (e *Evaluator) Evaluate(ctx context.Context, token string) (*Actor, error) {
	if len(token) <= minTokenLength {
		return nil, ErrMissingToken
	}

	policy := e.policies.SessionPolicy(ctx)
	if policy.MaintenanceMode {
		return nil, ErrMaintenanceMode
	}

	claims, err := e.verifier.Verify(token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	now := e.now()
	if policy.SessionTimeout > 0 && now.Sub(claims.IssuedAt.Time) > policy.SessionTimeout {
		return nil, ErrSessionExpired
	}

	record, err := e.actors.LookupActor(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUnknownActor) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve actor: %w", err)
	}

	if policy.PasswordExpiry > 0 && record.PasswordChangedAt != nil &&
		now.Sub(*record.PasswordChangedAt) > policy.PasswordExpiry {
		return nil, ErrPasswordExpired
	}

	return &Actor{
		ID:    claims.Subject,
		Label: record.Label,
		Role:  record.Role,
		AAL:   claims.AAL,
		AMR:   claims.Methods(),
	}, nil
}
