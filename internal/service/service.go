// Package service orchestrates each operation: it resolves the target
// entity, asks the policy, then reads or writes storage and aggregates.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"meeting-tracker/internal/auth"
	"meeting-tracker/internal/revocation"
)

// Options carries the tunables of the service layer.
type Options struct {
	RefreshTTL          time.Duration
	AllowedEmailDomains []string
	Location            *time.Location
	Timeout             time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Service implements every operation of the API.
type Service struct {
	log      *zap.SugaredLogger
	store    Store
	tokens   *auth.Tokens
	denylist revocation.Denylist

	refreshTTL time.Duration
	domains    []string
	loc        *time.Location
	timeout    time.Duration
	now        func() time.Time
}

// New constructs the service layer with its dependencies.
func New(
	log *zap.SugaredLogger,
	store Store,
	tokens *auth.Tokens,
	denylist revocation.Denylist,
	opts Options,
) *Service {
	if denylist == nil {
		denylist = revocation.Nop{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	return &Service{
		log:        log.Named("service"),
		store:      store,
		tokens:     tokens,
		denylist:   denylist,
		refreshTTL: opts.RefreshTTL,
		domains:    opts.AllowedEmailDomains,
		loc:        opts.Location,
		timeout:    opts.Timeout,
		now:        opts.Now,
	}
}

// clock returns the current time in the configured zone.
func (s *Service) clock() time.Time {
	return s.now().In(s.loc)
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
