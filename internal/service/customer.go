package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"meeting-tracker/internal/model"
	"meeting-tracker/internal/policy"
)

const (
	searchLimit    = 20
	minSearchQuery = 1
)

// SearchCustomers matches customer names case-insensitively. An empty query
// returns an empty result rather than every customer.
func (s *Service) SearchCustomers(ctx context.Context, actor *policy.Actor, query string) ([]model.CustomerRef, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := policy.Authorize(actor, policy.SearchCustomers, nil); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if len(query) < minSearchQuery {
		return []model.CustomerRef{}, nil
	}
	return s.store.SearchCustomers(ctx, query, searchLimit)
}

func (s *Service) ListCustomers(ctx context.Context, actor *policy.Actor) ([]model.Customer, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := policy.Authorize(actor, policy.ManageCustomers, nil); err != nil {
		return nil, err
	}
	return s.store.ListCustomers(ctx)
}

func (s *Service) CreateCustomer(ctx context.Context, actor *policy.Actor, in model.CustomerInput) (*model.Customer, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := policy.Authorize(actor, policy.ManageCustomers, nil); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c := &model.Customer{ID: uuid.New().String(), Name: in.Name}
	if err := s.store.CreateCustomer(ctx, c); err != nil {
		return nil, err
	}
	s.log.Infow("customer created", "customer_id", c.ID, "by", actor.ID)
	return c, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, actor *policy.Actor, id string, in model.CustomerInput) (*model.Customer, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if actor == nil {
		return nil, model.ErrUnauthenticated
	}
	c, target, err := s.customerTarget(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.ManageCustomers, target); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c.Name = in.Name
	if err := s.store.UpdateCustomer(ctx, c); err != nil {
		return nil, err
	}
	return s.store.CustomerByID(ctx, id)
}

// DeleteCustomer removes the customer and, through the cascade, its meeting
// associations. The meetings themselves remain.
func (s *Service) DeleteCustomer(ctx context.Context, actor *policy.Actor, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if actor == nil {
		return model.ErrUnauthenticated
	}
	_, target, err := s.customerTarget(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.Authorize(actor, policy.ManageCustomers, target); err != nil {
		return err
	}
	if err := s.store.DeleteCustomer(ctx, id); err != nil {
		return err
	}
	s.log.Infow("customer deleted", "customer_id", id, "by", actor.ID)
	return nil
}

func (s *Service) customerTarget(ctx context.Context, id string) (*model.Customer, *policy.Target, error) {
	c, err := s.store.CustomerByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, policy.Missing, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return c, policy.Existing(""), nil
}
