package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check runs struct validation and folds failures into a single ErrInvalid.
func check(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "uuid":
		return fe.Field() + " must be a valid id"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}

func clean(s string) string { return strings.TrimSpace(s) }

type NewUser struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name"`
	Password string `json:"password" validate:"required,min=8"`
}

func (nu *NewUser) Validate() error {
	nu.Email = strings.ToLower(clean(nu.Email))
	nu.Name = clean(nu.Name)
	return check(nu)
}

type ChangePassword struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

func (cp ChangePassword) Validate() error { return check(cp) }

type UserUpdate struct {
	Role   Role `json:"role" validate:"required,oneof=EMPLOYEE MANAGER ADMIN"`
	Target int  `json:"target" validate:"min=1,max=100"`
}

func (uu UserUpdate) Validate() error { return check(uu) }

type CustomerInput struct {
	Name string `json:"name" validate:"required"`
}

func (ci *CustomerInput) Validate() error {
	ci.Name = clean(ci.Name)
	if ci.Name == "" {
		return Invalidf("customer name is required")
	}
	return check(ci)
}

type NewMeeting struct {
	Date                 time.Time `json:"date" validate:"required"`
	CustomerIDs          []string  `json:"customerIds" validate:"required,min=1,dive,uuid"`
	ExternalParticipants string    `json:"externalParticipants" validate:"required"`
	Description          string    `json:"description"`
}

func (nm *NewMeeting) Validate() error {
	nm.ExternalParticipants = clean(nm.ExternalParticipants)
	nm.Description = clean(nm.Description)
	nm.CustomerIDs = dedupe(nm.CustomerIDs)
	return check(nm)
}

// MeetingUpdate carries optional changes. A nil CustomerIDs leaves the
// associations untouched; a non-nil one replaces them and must not be empty.
type MeetingUpdate struct {
	Date                 *time.Time `json:"date"`
	CustomerIDs          []string   `json:"customerIds" validate:"omitnil,min=1,dive,uuid"`
	ExternalParticipants *string    `json:"externalParticipants"`
	Description          *string    `json:"description"`
}

func (mu *MeetingUpdate) Validate() error {
	if mu.CustomerIDs != nil {
		mu.CustomerIDs = dedupe(mu.CustomerIDs)
		if len(mu.CustomerIDs) == 0 {
			return Invalidf("customerIds must contain at least one customer")
		}
	}
	if mu.ExternalParticipants != nil {
		p := clean(*mu.ExternalParticipants)
		if p == "" {
			return Invalidf("externalParticipants must not be empty")
		}
		mu.ExternalParticipants = &p
	}
	if mu.Description != nil {
		d := clean(*mu.Description)
		mu.Description = &d
	}
	if mu.Date != nil && mu.Date.IsZero() {
		return Invalidf("date is invalid")
	}
	return check(mu)
}

// Apply merges the update into m. Ownership and id are never touched.
func (mu MeetingUpdate) Apply(m *Meeting) {
	if mu.Date != nil {
		m.Date = *mu.Date
	}
	if mu.ExternalParticipants != nil {
		m.ExternalParticipants = *mu.ExternalParticipants
	}
	if mu.Description != nil {
		m.Description = *mu.Description
	}
}

func dedupe(ids []string) []string {
	if ids == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = clean(id)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
