package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"meeting-tracker/internal/auth"
	"meeting-tracker/internal/model"
	"meeting-tracker/internal/policy"
	"meeting-tracker/internal/report"
)

// Session is the result of a successful login or refresh.
type Session struct {
	AccessToken      string     `json:"accessToken"`
	ExpiresAt        time.Time  `json:"expiresAt"`
	RefreshToken     string     `json:"-"`
	RefreshExpiresAt time.Time  `json:"-"`
	User             model.User `json:"user"`
}

// Dashboard is the actor's own activity summary.
type Dashboard struct {
	WeekCount  int             `json:"weekCount"`
	MonthCount int             `json:"monthCount"`
	Target     int             `json:"target"`
	Progress   float64         `json:"progress"`
	Recent     []model.Meeting `json:"recentMeetings"`
}

const recentMeetings = 5

// Authenticate resolves a raw access token into an actor. The returned
// claims carry the token id needed for logout.
func (s *Service) Authenticate(ctx context.Context, raw string) (*policy.Actor, *auth.Claims, error) {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", model.ErrUnauthenticated, err)
	}
	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, nil, fmt.Errorf("%w: token revoked", model.ErrUnauthenticated)
	}
	return &policy.Actor{ID: claims.UserID, Role: model.Role(claims.Role)}, claims, nil
}

// Register creates an EMPLOYEE account for an address in an allowed domain.
func (s *Service) Register(ctx context.Context, nu model.NewUser) (*Session, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := nu.Validate(); err != nil {
		return nil, err
	}
	if !auth.EmailAllowed(nu.Email, s.domains) {
		return nil, model.Invalidf("email domain is not allowed")
	}

	hash, err := auth.HashPassword(nu.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{
		ID:           uuid.New().String(),
		Email:        nu.Email,
		PasswordHash: hash,
		Role:         model.RoleEmployee,
		Target:       model.DefaultTarget,
	}
	if nu.Name != "" {
		name := nu.Name
		u.Name = &name
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.log.Infow("user registered", "user_id", u.ID)
	return s.issueSession(ctx, u)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if email == "" || password == "" {
		return nil, model.Invalidf("email and password required")
	}
	u, err := s.store.UserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, model.ErrBadCredentials
	}
	return s.issueSession(ctx, u)
}

// Refresh exchanges a refresh token for a new session, rotating the token.
// Presenting an already revoked token revokes every token of its user.
func (s *Service) Refresh(ctx context.Context, raw string) (*Session, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if raw == "" {
		return nil, model.ErrUnauthenticated
	}
	rt, err := s.store.GetRefreshTokenByHash(ctx, auth.HashRefreshToken(raw))
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if rt.Revoked {
		s.log.Warnw("revoked refresh token reused", "user_id", rt.UserID, "token_id", rt.ID)
		if err := s.store.RevokeAllRefreshTokens(ctx, rt.UserID); err != nil {
			return nil, err
		}
		return nil, model.ErrUnauthenticated
	}
	if !rt.Usable(s.now()) {
		return nil, model.ErrUnauthenticated
	}

	u, err := s.store.UserByID(ctx, rt.UserID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}

	access, claims, err := s.tokens.Make(u.ID, u.Role)
	if err != nil {
		return nil, fmt.Errorf("make token: %w", err)
	}
	newRaw, newHash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	expiry := s.now().Add(s.refreshTTL)
	if err := s.store.RotateRefreshToken(ctx, rt.ID, uuid.New().String(), u.ID, newHash, expiry); err != nil {
		return nil, err
	}
	return &Session{
		AccessToken:      access,
		ExpiresAt:        claims.ExpiresAt.Time,
		RefreshToken:     newRaw,
		RefreshExpiresAt: expiry,
		User:             *u,
	}, nil
}

// Logout revokes every refresh token of the actor and blocks the presented
// access token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, actor *policy.Actor, tokenID string, expiresAt time.Time) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := policy.Authorize(actor, policy.ManageOwnAccount, nil); err != nil {
		return err
	}
	if err := s.store.RevokeAllRefreshTokens(ctx, actor.ID); err != nil {
		return err
	}
	if err := s.denylist.Revoke(ctx, tokenID, time.Until(expiresAt)); err != nil {
		return err
	}
	s.log.Infow("user logged out", "user_id", actor.ID)
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, actor *policy.Actor, cp model.ChangePassword) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := policy.Authorize(actor, policy.ManageOwnAccount, nil); err != nil {
		return err
	}
	if err := cp.Validate(); err != nil {
		return err
	}
	u, err := s.store.UserByID(ctx, actor.ID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.PasswordHash, cp.CurrentPassword) {
		return fmt.Errorf("%w: current password is incorrect", model.ErrUnauthenticated)
	}
	hash, err := auth.HashPassword(cp.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}
	s.log.Infow("password changed", "user_id", u.ID)
	return nil
}

// Dashboard summarises the actor's own week and month.
func (s *Service) Dashboard(ctx context.Context, actor *policy.Actor) (*Dashboard, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := policy.Authorize(actor, policy.ManageOwnAccount, nil); err != nil {
		return nil, err
	}
	u, err := s.store.UserByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	week, err := s.store.CountMeetingsSince(ctx, u.ID, report.WeekStart(now))
	if err != nil {
		return nil, err
	}
	month, err := s.store.CountMeetingsSince(ctx, u.ID, report.MonthStart(now))
	if err != nil {
		return nil, err
	}
	recent, err := s.store.ListMeetings(ctx, u.ID, recentMeetings)
	if err != nil {
		return nil, err
	}

	target := u.Target
	if target <= 0 {
		target = report.DefaultTarget
	}
	return &Dashboard{
		WeekCount:  week,
		MonthCount: month,
		Target:     target,
		Progress:   report.Progress(month, target),
		Recent:     recent,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) issueSession(ctx context.Context, u *model.User) (*Session, error) {
	access, claims, err := s.tokens.Make(u.ID, u.Role)
	if err != nil {
		return nil, fmt.Errorf("make token: %w", err)
	}
	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	expiry := s.now().Add(s.refreshTTL)
	if _, err := s.store.CreateRefreshToken(ctx, u.ID, hash, expiry); err != nil {
		return nil, err
	}
	return &Session{
		AccessToken:      access,
		ExpiresAt:        claims.ExpiresAt.Time,
		RefreshToken:     raw,
		RefreshExpiresAt: expiry,
		User:             *u,
	}, nil
}
