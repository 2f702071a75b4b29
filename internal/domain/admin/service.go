package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pvportal/pvportal/internal/platform/auth"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "admin").Logger()}
}

func (s *Service) Get(ctx context.Context, id string) (*Admin, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Admin, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// LookupActor implements auth.ActorStore.
func (s *Service) LookupActor(ctx context.Context, id string) (*auth.ActorRecord, error) {
	a, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrAdminNotFound) {
		return nil, fmt.Errorf("%w: %s", auth.ErrUnknownActor, id)
	}
	if err != nil {
		return nil, err
	}
	return &auth.ActorRecord{
		ID:                a.ID,
		Label:             a.DisplayLabel(),
		Role:              a.Role,
		PasswordChangedAt: a.PasswordChangedAt,
	}, nil
}

// UpdateRole changes targetID's role. Actors cannot change their own role,
// which also keeps the last super_admin from locking themselves out.
func (s *Service) UpdateRole(ctx context.Context, actorID, targetID string, role auth.Role) (*Admin, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if actorID == targetID {
		return nil, ErrSelfDemotion
	}
	if err := s.repo.UpdateRole(ctx, targetID, role); err != nil {
		return nil, err
	}
	s.logger.Info().Str("actor_id", actorID).Str("admin_id", targetID).Str("role", string(role)).Msg("admin role changed")
	return s.repo.GetByID(ctx, targetID)
}
