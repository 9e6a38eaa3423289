package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// render adds the signed-in user and the CSRF token to data before
// executing tmpl.
func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if u, ok := currentUser(c); ok {
		data["User"] = u
	}
	if tok, _ := c.Locals("csrf").(string); tok != "" {
		data["CSRFToken"] = tok
	} else if tok := c.Cookies("csrf_"); tok != "" {
		data["CSRFToken"] = tok
	}
	return c.Render(tmpl, data)
}

// notFoundPage renders the friendly error page with status.
func notFoundPage(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).Render("notfound", fiber.Map{"Message": msg})
}
