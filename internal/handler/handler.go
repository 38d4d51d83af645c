// Package handler exposes the service over HTTP with fiber.
package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"meeting-tracker/internal/middleware"
	"meeting-tracker/internal/service"
)

// Options tunes cookie behaviour.
type Options struct {
	CookieSecure bool
	// RefreshPath scopes the refresh cookie; defaults to /api/auth.
	RefreshPath string
}

type Handler struct {
	log  *zap.SugaredLogger
	svc  *service.Service
	opts Options
}

func New(log *zap.SugaredLogger, svc *service.Service, opts Options) *Handler {
	if opts.RefreshPath == "" {
		opts.RefreshPath = "/api/auth"
	}
	return &Handler{log: log.Named("http"), svc: svc, opts: opts}
}

// Register mounts every route on r. Credential endpoints go through limiter.
func (h *Handler) Register(r fiber.Router, limiter *middleware.RateLimiter) {
	r.Get("/healthz", h.Healthz)

	a := r.Group("/auth")
	a.Post("/register", middleware.Limit(limiter), h.RegisterUser)
	a.Post("/login", middleware.Limit(limiter), h.Login)
	a.Post("/refresh", middleware.Limit(limiter), h.Refresh)
	a.Post("/logout", h.Logout)
	a.Post("/change-password", h.ChangePassword)

	r.Get("/dashboard", h.Dashboard)

	m := r.Group("/meetings")
	m.Get("/", h.ListMeetings)
	m.Post("/", h.CreateMeeting)
	m.Get("/:id", h.GetMeeting)
	m.Patch("/:id", h.UpdateMeeting)
	m.Delete("/:id", h.DeleteMeeting)

	r.Get("/customers/search", h.SearchCustomers)

	ad := r.Group("/admin")
	ad.Get("/customers", h.ListCustomers)
	ad.Post("/customers", h.CreateCustomer)
	ad.Patch("/customers/:id", h.UpdateCustomer)
	ad.Delete("/customers/:id", h.DeleteCustomer)
	ad.Get("/users", h.ListUsers)
	ad.Patch("/users/:id", h.UpdateUser)

	r.Get("/reports", h.Report)
	r.Get("/reports/export", h.ExportReport)
	r.Get("/leaderboard", h.Leaderboard)
}

func (h *Handler) Healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "time": time.Now().UTC()})
}
