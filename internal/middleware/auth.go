package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"meeting-tracker/internal/auth"
	"meeting-tracker/internal/model"
	"meeting-tracker/internal/policy"
)

// AccessCookie is the cookie carrying the access token for browser clients.
const AccessCookie = "access_token"

const (
	actorKey  = "actor"
	claimsKey = "claims"
)

// Authenticator resolves a raw access token.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*policy.Actor, *auth.Claims, error)
}

// Auth attaches the actor behind the request's access token, read from the
// Authorization header or the access cookie. Requests without a usable
// token continue anonymously; the policy decides what they may do.
func Auth(a Authenticator, log *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearer(c.Get(fiber.HeaderAuthorization))
		if raw == "" {
			raw = c.Cookies(AccessCookie)
		}
		if raw == "" {
			return c.Next()
		}

		actor, claims, err := a.Authenticate(c.UserContext(), raw)
		if err != nil {
			if !errors.Is(err, model.ErrUnauthenticated) {
				log.Warnw("authenticate request", "error", err, "path", c.Path())
			}
			return c.Next()
		}
		c.Locals(actorKey, actor)
		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

func bearer(h string) string {
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

// ActorFrom returns the request's actor, nil when anonymous.
func ActorFrom(c *fiber.Ctx) *policy.Actor {
	a, _ := c.Locals(actorKey).(*policy.Actor)
	return a
}

// ClaimsFrom returns the verified token claims, nil when anonymous.
func ClaimsFrom(c *fiber.Ctx) *auth.Claims {
	cl, _ := c.Locals(claimsKey).(*auth.Claims)
	return cl
}
