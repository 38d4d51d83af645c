package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"meeting-tracker/internal/export"
	"meeting-tracker/internal/middleware"
	"meeting-tracker/internal/service"
)

func reportRequest(c *fiber.Ctx) service.ReportRequest {
	return service.ReportRequest{
		Type:       c.Query("type"),
		StartDate:  c.Query("startDate"),
		EndDate:    c.Query("endDate"),
		UserID:     c.Query("userId"),
		CustomerID: c.Query("customerId"),
	}
}

func (h *Handler) Report(c *fiber.Ctx) error {
	r, err := h.svc.Report(c.UserContext(), middleware.ActorFrom(c), reportRequest(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(r)
}

func (h *Handler) ExportReport(c *fiber.Ctx) error {
	r, err := h.svc.Report(c.UserContext(), middleware.ActorFrom(c), reportRequest(c))
	if err != nil {
		return h.writeError(c, err)
	}
	data, err := export.Report(r)
	if err != nil {
		return h.writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, export.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="meetings-by-%s.xlsx"`, r.Kind))
	return c.Send(data)
}

func (h *Handler) Leaderboard(c *fiber.Ctx) error {
	lb, err := h.svc.Leaderboard(c.UserContext(), middleware.ActorFrom(c), c.Query("period"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(lb)
}
