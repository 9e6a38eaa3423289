package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"marketplacetg/internal/domain"
	applog "marketplacetg/internal/log"
	"marketplacetg/internal/services"
)

const (
	sidCookie   = "sid"
	sidLocal    = "sid"
	rememberFor = 30 * 24 * time.Hour
)

// Sessions issues the sid cookie and restores the signed-in user from it.
type Sessions struct {
	Auth   *services.AuthService
	Secure bool
}

func (s *Sessions) cookie(c *fiber.Ctx, sid string, maxAge time.Duration) {
	ck := &fiber.Cookie{
		Name:     sidCookie,
		Value:    sid,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   s.Secure,
	}
	switch {
	case maxAge > 0:
		ck.MaxAge = int(maxAge.Seconds())
	case maxAge < 0:
		ck.Expires = time.Now().Add(-time.Hour)
	}
	c.Cookie(ck)
}

// Middleware makes sure every visitor has a session id, which keys the
// anonymous cart, and puts the signed-in user in Locals.
func (s *Sessions) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(applog.StartedKey, time.Now())
		sid := c.Cookies(sidCookie)
		if _, err := uuid.Parse(sid); err != nil {
			sid = uuid.NewString()
			s.cookie(c, sid, 0)
		} else if u, err := s.Auth.CurrentUser(c.UserContext(), sid); err == nil {
			c.Locals(applog.UserKey, u)
		}
		c.Locals(sidLocal, sid)
		return c.Next()
	}
}

func sessionID(c *fiber.Ctx) string {
	sid, _ := c.Locals(sidLocal).(string)
	return sid
}

func currentUser(c *fiber.Ctx) (domain.User, bool) {
	u, ok := c.Locals(applog.UserKey).(domain.User)
	return u, ok
}

func owner(c *fiber.Ctx) services.Owner {
	o := services.Owner{SessionID: sessionID(c)}
	if u, ok := currentUser(c); ok {
		o.UserID = u.ID
	}
	return o
}

// RequireUser rejects requests without a signed-in user.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := currentUser(c); !ok {
			applog.Security(c, "access.denied.anonymous", nil)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": genericMessages[fiber.StatusUnauthorized], "code": "unauthorized"})
		}
		return c.Next()
	}
}

// RequireRole rejects requests from users without role.
func RequireRole(role domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, ok := currentUser(c)
		if !ok {
			applog.Security(c, "access.denied.anonymous", nil)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": genericMessages[fiber.StatusUnauthorized], "code": "unauthorized"})
		}
		if u.Role != role {
			applog.Security(c, "access.denied."+string(role), nil)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": genericMessages[fiber.StatusForbidden], "code": "forbidden"})
		}
		return c.Next()
	}
}
