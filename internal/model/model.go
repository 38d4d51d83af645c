package model

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleManager  Role = "MANAGER"
	RoleAdmin    Role = "ADMIN"
)

// Roles lists every valid role, lowest privilege first.
var Roles = []Role{RoleEmployee, RoleManager, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalid, s)
	}
	return r, nil
}

const (
	DefaultTarget = 8
	MinTarget     = 1
	MaxTarget     = 100
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         *string   `json:"name"`
	Image        *string   `json:"image"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Target       int       `json:"target"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// DisplayName falls back to the e-mail when the user has no name.
func (u User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Email
}

type UserSummary struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
}

type Customer struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MeetingCount int       `json:"meetingCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type CustomerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Meeting struct {
	ID                   string        `json:"id"`
	Date                 time.Time     `json:"date"`
	Description          string        `json:"description"`
	ExternalParticipants string        `json:"externalParticipants"`
	UserID               string        `json:"userId"`
	User                 *UserSummary  `json:"user,omitempty"`
	Customers            []CustomerRef `json:"customers"`
	CreatedAt            time.Time     `json:"createdAt"`
	UpdatedAt            time.Time     `json:"updatedAt"`
}

// CustomerIDs returns the ids of the meeting's associated customers.
func (m Meeting) CustomerIDs() []string {
	ids := make([]string, len(m.Customers))
	for i, c := range m.Customers {
		ids[i] = c.ID
	}
	return ids
}

type MeetingFilter struct {
	From       *time.Time
	To         *time.Time
	UserID     string
	CustomerID string
}

type RefreshToken struct {
	ID         string
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	Revoked    bool
	ReplacedBy *string
	CreatedAt  time.Time
}

// Usable reports whether the token can still be exchanged at now.
func (rt RefreshToken) Usable(now time.Time) bool {
	return !rt.Revoked && now.Before(rt.ExpiresAt)
}
