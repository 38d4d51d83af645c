package handler

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"meeting-tracker/internal/model"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		h.log.Errorw("request failed", "error", err, "method", c.Method(), "path", c.Path())
		msg = "internal error"
	case http.StatusUnauthorized:
		msg = "unauthenticated"
		if errors.Is(err, model.ErrBadCredentials) {
			msg = "invalid credentials"
		}
	case http.StatusForbidden:
		msg = "forbidden"
	}
	return c.Status(status).JSON(errorResponse{Error: msg})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(http.StatusBadRequest).JSON(errorResponse{Error: "invalid body"})
}
