package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"meeting-tracker/internal/model"
	"meeting-tracker/internal/policy"
)

// meetingTarget resolves a meeting into a policy target. A missing meeting
// yields policy.Missing with a nil error.
func (s *Service) meetingTarget(ctx context.Context, id string) (*model.Meeting, *policy.Target, error) {
	m, err := s.store.GetMeeting(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, policy.Missing, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return m, policy.Existing(m.UserID), nil
}

// ListMeetings returns the meetings of userID, or of the actor when userID
// is empty, newest first.
func (s *Service) ListMeetings(ctx context.Context, actor *policy.Actor, userID string) ([]model.Meeting, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if actor == nil {
		return nil, model.ErrUnauthenticated
	}
	var target *policy.Target
	if userID != "" && userID != actor.ID {
		_, err := s.store.UserByID(ctx, userID)
		switch {
		case errors.Is(err, model.ErrNotFound):
			target = policy.Missing
		case err != nil:
			return nil, err
		default:
			target = policy.Existing(userID)
		}
	}
	if err := policy.Authorize(actor, policy.ViewMeetings, target); err != nil {
		return nil, err
	}
	if userID == "" {
		userID = actor.ID
	}
	return s.store.ListMeetings(ctx, userID, 0)
}

// GetMeeting returns one meeting; reading another user's meeting follows the
// same rule as listing their meetings.
func (s *Service) GetMeeting(ctx context.Context, actor *policy.Actor, id string) (*model.Meeting, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if actor == nil {
		return nil, model.ErrUnauthenticated
	}
	m, target, err := s.meetingTarget(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.ViewMeetings, target); err != nil {
		return nil, err
	}
	return m, nil
}

// CreateMeeting records a meeting owned by the actor. Any owner supplied by
// the client is ignored.
func (s *Service) CreateMeeting(ctx context.Context, actor *policy.Actor, nm model.NewMeeting) (*model.Meeting, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := policy.Authorize(actor, policy.CreateMeeting, nil); err != nil {
		return nil, err
	}
	if err := nm.Validate(); err != nil {
		return nil, err
	}

	m := &model.Meeting{
		ID:                   uuid.New().String(),
		Date:                 nm.Date,
		Description:          nm.Description,
		ExternalParticipants: nm.ExternalParticipants,
		UserID:               actor.ID,
	}
	if err := s.store.CreateMeeting(ctx, m, nm.CustomerIDs); err != nil {
		return nil, err
	}
	s.log.Infow("meeting created", "meeting_id", m.ID, "user_id", actor.ID, "customers", len(nm.CustomerIDs))
	return s.store.GetMeeting(ctx, m.ID)
}

func (s *Service) UpdateMeeting(ctx context.Context, actor *policy.Actor, id string, mu model.MeetingUpdate) (*model.Meeting, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if actor == nil {
		return nil, model.ErrUnauthenticated
	}
	m, target, err := s.meetingTarget(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.EditMeeting, target); err != nil {
		return nil, err
	}
	if err := mu.Validate(); err != nil {
		return nil, err
	}

	mu.Apply(m)
	if err := s.store.UpdateMeeting(ctx, m, mu.CustomerIDs); err != nil {
		return nil, err
	}
	s.log.Infow("meeting updated", "meeting_id", m.ID, "user_id", actor.ID)
	return s.store.GetMeeting(ctx, m.ID)
}

func (s *Service) DeleteMeeting(ctx context.Context, actor *policy.Actor, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if actor == nil {
		return model.ErrUnauthenticated
	}
	_, target, err := s.meetingTarget(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.Authorize(actor, policy.DeleteMeeting, target); err != nil {
		return err
	}
	if err := s.store.DeleteMeeting(ctx, id); err != nil {
		return err
	}
	s.log.Infow("meeting deleted", "meeting_id", id, "user_id", actor.ID)
	return nil
}
