package handler

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"meeting-tracker/internal/middleware"
	"meeting-tracker/internal/model"
	"meeting-tracker/internal/policy"
)

func (h *Handler) SearchCustomers(c *fiber.Ctx) error {
	out, err := h.svc.SearchCustomers(c.UserContext(), middleware.ActorFrom(c), c.Query("q"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) ListCustomers(c *fiber.Ctx) error {
	out, err := h.svc.ListCustomers(c.UserContext(), middleware.ActorFrom(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) CreateCustomer(c *fiber.Ctx) error {
	if err := policy.Authorize(middleware.ActorFrom(c), policy.ManageCustomers, nil); err != nil {
		return h.writeError(c, err)
	}
	var body model.CustomerInput
	if err := c.BodyParser(&body); err != nil {
		return badBody(c)
	}
	out, err := h.svc.CreateCustomer(c.UserContext(), middleware.ActorFrom(c), body)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(out)
}

func (h *Handler) UpdateCustomer(c *fiber.Ctx) error {
	if err := policy.Authorize(middleware.ActorFrom(c), policy.ManageCustomers, nil); err != nil {
		return h.writeError(c, err)
	}
	var body model.CustomerInput
	if err := c.BodyParser(&body); err != nil {
		return badBody(c)
	}
	out, err := h.svc.UpdateCustomer(c.UserContext(), middleware.ActorFrom(c), c.Params("id"), body)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) DeleteCustomer(c *fiber.Ctx) error {
	if err := h.svc.DeleteCustomer(c.UserContext(), middleware.ActorFrom(c), c.Params("id")); err != nil {
		return h.writeError(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *Handler) ListUsers(c *fiber.Ctx) error {
	out, err := h.svc.ListUsers(c.UserContext(), middleware.ActorFrom(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(out)
}

func (h *Handler) UpdateUser(c *fiber.Ctx) error {
	if err := policy.Authorize(middleware.ActorFrom(c), policy.ManageUsers, nil); err != nil {
		return h.writeError(c, err)
	}
	var body model.UserUpdate
	if err := c.BodyParser(&body); err != nil {
		return badBody(c)
	}
	out, err := h.svc.UpdateUser(c.UserContext(), middleware.ActorFrom(c), c.Params("id"), body)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(out)
}
