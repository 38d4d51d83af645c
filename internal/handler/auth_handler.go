package handler

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"meeting-tracker/internal/middleware"
	"meeting-tracker/internal/model"
	"meeting-tracker/internal/service"
)

// RefreshCookie carries the refresh token for browser clients.
const RefreshCookie = "refresh_token"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sessionResponse struct {
	AccessToken  string     `json:"accessToken"`
	ExpiresAt    time.Time  `json:"expiresAt"`
	RefreshToken string     `json:"refreshToken"`
	User         model.User `json:"user"`
}

func (h *Handler) setSession(c *fiber.Ctx, s *service.Session, status int) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AccessCookie,
		Value:    s.AccessToken,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Cookie(&fiber.Cookie{
		Name:     RefreshCookie,
		Value:    s.RefreshToken,
		Path:     h.opts.RefreshPath,
		Expires:  s.RefreshExpiresAt,
		HTTPOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	return c.Status(status).JSON(sessionResponse{
		AccessToken:  s.AccessToken,
		ExpiresAt:    s.ExpiresAt,
		RefreshToken: s.RefreshToken,
		User:         s.User,
	})
}

func (h *Handler) clearSession(c *fiber.Ctx) {
	expired := time.Unix(0, 0)
	c.Cookie(&fiber.Cookie{Name: middleware.AccessCookie, Path: "/", Expires: expired, HTTPOnly: true, Secure: h.opts.CookieSecure})
	c.Cookie(&fiber.Cookie{Name: RefreshCookie, Path: h.opts.RefreshPath, Expires: expired, HTTPOnly: true, Secure: h.opts.CookieSecure})
}

func (h *Handler) RegisterUser(c *fiber.Ctx) error {
	var body model.NewUser
	if err := c.BodyParser(&body); err != nil {
		return badBody(c)
	}
	s, err := h.svc.Register(c.UserContext(), body)
	if err != nil {
		return h.writeError(c, err)
	}
	return h.setSession(c, s, http.StatusCreated)
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var body loginRequest
	if err := c.BodyParser(&body); err != nil {
		return badBody(c)
	}
	s, err := h.svc.Login(c.UserContext(), body.Email, body.Password)
	if err != nil {
		return h.writeError(c, err)
	}
	return h.setSession(c, s, http.StatusOK)
}

// Refresh accepts the refresh token from its cookie or, for API clients,
// from the JSON body.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	raw := c.Cookies(RefreshCookie)
	if raw == "" && len(c.Body()) > 0 {
		var body refreshRequest
		if err := c.BodyParser(&body); err != nil {
			return badBody(c)
		}
		raw = body.RefreshToken
	}
	s, err := h.svc.Refresh(c.UserContext(), raw)
	if err != nil {
		h.clearSession(c)
		return h.writeError(c, err)
	}
	return h.setSession(c, s, http.StatusOK)
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	actor := middleware.ActorFrom(c)
	var (
		tokenID string
		expires time.Time
	)
	if cl := middleware.ClaimsFrom(c); cl != nil {
		tokenID = cl.ID
		if cl.ExpiresAt != nil {
			expires = cl.ExpiresAt.Time
		}
	}
	if err := h.svc.Logout(c.UserContext(), actor, tokenID, expires); err != nil {
		return h.writeError(c, err)
	}
	h.clearSession(c)
	return c.SendStatus(http.StatusNoContent)
}

func (h *Handler) ChangePassword(c *fiber.Ctx) error {
	if middleware.ActorFrom(c) == nil {
		return h.writeError(c, model.ErrUnauthenticated)
	}
	var body model.ChangePassword
	if err := c.BodyParser(&body); err != nil {
		return badBody(c)
	}
	if err := h.svc.ChangePassword(c.UserContext(), middleware.ActorFrom(c), body); err != nil {
		return h.writeError(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *Handler) Dashboard(c *fiber.Ctx) error {
	d, err := h.svc.Dashboard(c.UserContext(), middleware.ActorFrom(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(d)
}
