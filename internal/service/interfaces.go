package service

import (
	"context"
	"time"

	"meeting-tracker/internal/model"
	"meeting-tracker/internal/report"
)

// LifecycleInterface describes storage startup/shutdown hooks.
type LifecycleInterface interface {
	OnStart(ctx context.Context) error
	OnStop(ctx context.Context) error
	Ping(ctx context.Context) error
}

type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	// UpsertUser inserts or updates by e-mail and reports whether it inserted.
	UpsertUser(ctx context.Context, u *model.User) (bool, error)
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByID(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUserAccess(ctx context.Context, id string, role model.Role, target int) (*model.User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
}

type CustomerStore interface {
	SearchCustomers(ctx context.Context, query string, limit int) ([]model.CustomerRef, error)
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	CustomerByID(ctx context.Context, id string) (*model.Customer, error)
	CreateCustomer(ctx context.Context, c *model.Customer) error
	UpdateCustomer(ctx context.Context, c *model.Customer) error
	DeleteCustomer(ctx context.Context, id string) error
}

type MeetingStore interface {
	// CreateMeeting inserts the meeting and its customer associations atomically.
	CreateMeeting(ctx context.Context, m *model.Meeting, customerIDs []string) error
	GetMeeting(ctx context.Context, id string) (*model.Meeting, error)
	// ListMeetings returns a user's meetings newest first; limit <= 0 means all.
	ListMeetings(ctx context.Context, userID string, limit int) ([]model.Meeting, error)
	// UpdateMeeting writes the editable fields; a non-nil customerIDs replaces
	// every association in the same transaction.
	UpdateMeeting(ctx context.Context, m *model.Meeting, customerIDs []string) error
	DeleteMeeting(ctx context.Context, id string) error
	CountMeetingsSince(ctx context.Context, userID string, since time.Time) (int, error)

	MeetingOwners(ctx context.Context, f model.MeetingFilter) ([]report.MeetingOwner, error)
	MeetingCustomers(ctx context.Context, f model.MeetingFilter) ([]report.MeetingCustomer, error)
	MeetingDates(ctx context.Context, f model.MeetingFilter) ([]time.Time, error)
}

type TokenStore interface {
	CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (string, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID, newID, userID, newHash string, newExpiry time.Time) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}

// Store aggregates all persistence interfaces.
type Store interface {
	LifecycleInterface
	UserStore
	CustomerStore
	MeetingStore
	TokenStore
}
