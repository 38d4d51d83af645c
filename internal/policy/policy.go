// Package policy decides whether an actor may perform an action.
//
// Decisions are pure: the caller supplies the actor and, for actions on an
// existing entity, the entity's existence and owner. The policy never reads
// session state or storage itself.
package policy

import (
	"fmt"

	"meeting-tracker/internal/model"
)

// Actor is the authenticated identity performing a request.
type Actor struct {
	ID   string
	Role model.Role
}

type Action int

const (
	ViewMeetings Action = iota + 1
	CreateMeeting
	EditMeeting
	DeleteMeeting
	ManageCustomers
	ManageUsers
	ViewReports
	SearchCustomers
	ManageOwnAccount
)

var actionNames = map[Action]string{
	ViewMeetings:     "view_meetings",
	CreateMeeting:    "create_meeting",
	EditMeeting:      "edit_meeting",
	DeleteMeeting:    "delete_meeting",
	ManageCustomers:  "manage_customers",
	ManageUsers:      "manage_users",
	ViewReports:      "view_reports",
	SearchCustomers:  "search_customers",
	ManageOwnAccount: "manage_own_account",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return fmt.Sprintf("action(%d)", int(a))
}

type Decision int

const (
	Allowed Decision = iota
	Forbidden
	Unauthenticated
	NotFound
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Forbidden:
		return "forbidden"
	case Unauthenticated:
		return "unauthenticated"
	case NotFound:
		return "not_found"
	}
	return fmt.Sprintf("decision(%d)", int(d))
}

// Err converts a decision into the matching sentinel error, nil for Allowed.
func (d Decision) Err() error {
	switch d {
	case Allowed:
		return nil
	case Forbidden:
		return model.ErrForbidden
	case Unauthenticated:
		return model.ErrUnauthenticated
	case NotFound:
		return model.ErrNotFound
	}
	return fmt.Errorf("%w: %s", model.ErrInvalid, d)
}

// Target describes the entity an action is aimed at. OwnerID is the owning
// user for meetings, or the user whose meetings are listed for ViewMeetings;
// it is ignored for entities without an owner.
type Target struct {
	Exists  bool
	OwnerID string
}

// Existing is a convenience for a target known to exist.
func Existing(ownerID string) *Target {
	return &Target{Exists: true, OwnerID: ownerID}
}

// Missing is a target that could not be found.
var Missing = &Target{}

// Decide evaluates action for actor against an optional target.
//
// Order: no actor → Unauthenticated; unknown role → ErrInvalid; target
// supplied but absent → NotFound; then the role and ownership rules.
func Decide(actor *Actor, action Action, target *Target) (Decision, error) {
	if actor == nil || actor.ID == "" {
		return Unauthenticated, nil
	}
	if !actor.Role.Valid() {
		return Forbidden, fmt.Errorf("%w: unknown role %q", model.ErrInvalid, actor.Role)
	}
	if target != nil && !target.Exists {
		return NotFound, nil
	}

	switch action {
	case ViewMeetings:
		if target == nil || target.OwnerID == actor.ID {
			return Allowed, nil
		}
		return allowIf(isManagerOrAdmin(actor.Role)), nil
	case CreateMeeting, SearchCustomers, ManageOwnAccount:
		return Allowed, nil
	case EditMeeting, DeleteMeeting:
		// ownership only; no role overrides it
		if target == nil {
			return Forbidden, fmt.Errorf("%w: %s requires a target", model.ErrInvalid, action)
		}
		return allowIf(target.OwnerID == actor.ID), nil
	case ManageCustomers, ManageUsers:
		return allowIf(actor.Role == model.RoleAdmin), nil
	case ViewReports:
		return allowIf(isManagerOrAdmin(actor.Role)), nil
	}
	return Forbidden, fmt.Errorf("%w: unknown action %s", model.ErrInvalid, action)
}

// Authorize is Decide folded into a single error.
func Authorize(actor *Actor, action Action, target *Target) error {
	d, err := Decide(actor, action, target)
	if err != nil {
		return err
	}
	return d.Err()
}

func isManagerOrAdmin(r model.Role) bool {
	switch r {
	case model.RoleManager, model.RoleAdmin:
		return true
	case model.RoleEmployee:
		return false
	}
	return false
}

func allowIf(ok bool) Decision {
	if ok {
		return Allowed
	}
	return Forbidden
}
