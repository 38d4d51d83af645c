package service

import (
	"context"
	"errors"

	"meeting-tracker/internal/model"
	"meeting-tracker/internal/policy"
)

func (s *Service) ListUsers(ctx context.Context, actor *policy.Actor) ([]model.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := policy.Authorize(actor, policy.ManageUsers, nil); err != nil {
		return nil, err
	}
	return s.store.ListUsers(ctx)
}

// UpdateUser sets another user's role and monthly target.
func (s *Service) UpdateUser(ctx context.Context, actor *policy.Actor, id string, uu model.UserUpdate) (*model.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if actor == nil {
		return nil, model.ErrUnauthenticated
	}
	target := policy.Existing(id)
	if _, err := s.store.UserByID(ctx, id); errors.Is(err, model.ErrNotFound) {
		target = policy.Missing
	} else if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.ManageUsers, target); err != nil {
		return nil, err
	}
	if err := uu.Validate(); err != nil {
		return nil, err
	}

	u, err := s.store.UpdateUserAccess(ctx, id, uu.Role, uu.Target)
	if err != nil {
		return nil, err
	}
	s.log.Infow("user access updated", "user_id", id, "role", uu.Role, "target", uu.Target, "by", actor.ID)
	return u, nil
}
