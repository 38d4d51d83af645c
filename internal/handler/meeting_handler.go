package handler

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"meeting-tracker/internal/middleware"
	"meeting-tracker/internal/model"
)

type meetingRequest struct {
	Date                 string   `json:"date"`
	CustomerIDs          []string `json:"customerIds"`
	ExternalParticipants string   `json:"externalParticipants"`
	Description          string   `json:"description"`
}

// meetingPatch distinguishes absent fields (nil) from supplied ones.
type meetingPatch struct {
	Date                 *string  `json:"date"`
	CustomerIDs          []string `json:"customerIds"`
	ExternalParticipants *string  `json:"externalParticipants"`
	Description          *string  `json:"description"`
}

func (h *Handler) ListMeetings(c *fiber.Ctx) error {
	out, err := h.svc.ListMeetings(c.UserContext(), middleware.ActorFrom(c), c.Query("userId"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) GetMeeting(c *fiber.Ctx) error {
	m, err := h.svc.GetMeeting(c.UserContext(), middleware.ActorFrom(c), c.Params("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(m)
}

func (h *Handler) CreateMeeting(c *fiber.Ctx) error {
	if middleware.ActorFrom(c) == nil {
		return h.writeError(c, model.ErrUnauthenticated)
	}
	var body meetingRequest
	if err := c.BodyParser(&body); err != nil {
		return badBody(c)
	}
	date, err := h.svc.ParseDate("date", body.Date)
	if err != nil {
		return h.writeError(c, err)
	}
	if date == nil {
		return h.writeError(c, model.Invalidf("date is required"))
	}

	m, err := h.svc.CreateMeeting(c.UserContext(), middleware.ActorFrom(c), model.NewMeeting{
		Date:                 *date,
		CustomerIDs:          body.CustomerIDs,
		ExternalParticipants: body.ExternalParticipants,
		Description:          body.Description,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(m)
}

func (h *Handler) UpdateMeeting(c *fiber.Ctx) error {
	if middleware.ActorFrom(c) == nil {
		return h.writeError(c, model.ErrUnauthenticated)
	}
	var body meetingPatch
	if err := c.BodyParser(&body); err != nil {
		return badBody(c)
	}
	mu := model.MeetingUpdate{
		CustomerIDs:          body.CustomerIDs,
		ExternalParticipants: body.ExternalParticipants,
		Description:          body.Description,
	}
	if body.Date != nil {
		date, err := h.svc.ParseDate("date", *body.Date)
		if err != nil {
			return h.writeError(c, err)
		}
		if date == nil {
			return h.writeError(c, model.Invalidf("date must not be empty"))
		}
		mu.Date = date
	}

	m, err := h.svc.UpdateMeeting(c.UserContext(), middleware.ActorFrom(c), c.Params("id"), mu)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(m)
}

func (h *Handler) DeleteMeeting(c *fiber.Ctx) error {
	if err := h.svc.DeleteMeeting(c.UserContext(), middleware.ActorFrom(c), c.Params("id")); err != nil {
		return h.writeError(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}
