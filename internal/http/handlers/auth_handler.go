package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/juju/errors"

	"marketplacetg/internal/log"
	"marketplacetg/internal/services"
	"marketplacetg/internal/validate"
)

type AuthHandler struct {
	Auth     *services.AuthService
	Sessions *Sessions
}

type registerRequest struct {
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	FirstName       string `json:"firstName" form:"firstName"`
	LastName        string `json:"lastName" form:"lastName"`
	Phone           string `json:"phone" form:"phone"`
	UserType        string `json:"userType" form:"userType"`
	ShopName        string `json:"shopName" form:"shopName"`
	ShopDescription string `json:"shopDescription" form:"shopDescription"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Remember bool   `json:"remember" form:"remember"`
}

// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "registration")
	}
	u, err := h.Auth.Register(c.UserContext(), services.Registration{
		Email:           req.Email,
		Password:        req.Password,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Phone:           req.Phone,
		Role:            req.UserType,
		ShopName:        req.ShopName,
		ShopDescription: req.ShopDescription,
	})
	if err != nil {
		return fail(c, "auth.register", err)
	}
	log.Audit(c, "auth.register", map[string]any{"user_id": u.ID, "role": u.Role})
	return c.Status(fiber.StatusCreated).JSON(u)
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "credentials")
	}
	email, ok := validate.Email(req.Email)
	if !ok {
		log.Security(c, "auth.login.fail", map[string]any{"email": req.Email, "reason": "bad_format"})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": services.ErrBadCreds.Error(), "code": "unauthorized"})
	}

	sid := sessionID(c)
	u, err := h.Auth.Login(c.UserContext(), sid, email, req.Password, req.Remember)
	switch {
	case errors.Is(err, services.ErrBadCreds):
		log.Security(c, "auth.login.fail", map[string]any{"email": email})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": services.ErrBadCreds.Error(), "code": "unauthorized"})
	case errors.Is(err, errors.Forbidden):
		log.Security(c, "auth.login.fail", map[string]any{"email": email, "reason": "inactive"})
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "This account has been disabled.", "code": "forbidden"})
	case err != nil:
		return fail(c, "auth.login", err)
	}
	if req.Remember {
		h.Sessions.cookie(c, sid, rememberFor)
	}
	c.Locals(log.UserKey, u)
	log.Audit(c, "auth.login.success", map[string]any{"email": email, "remember": req.Remember})
	return c.JSON(u)
}

// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := sessionID(c)
	if err := h.Auth.Logout(c.UserContext(), sid); err != nil {
		log.Error(c, "auth.logout.fail", err, nil)
	}
	h.Sessions.cookie(c, "", -1)
	log.Audit(c, "auth.logout", nil)
	return c.SendStatus(fiber.StatusNoContent)
}

// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	u, ok := currentUser(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": genericMessages[fiber.StatusUnauthorized], "code": "unauthorized"})
	}
	return c.JSON(u)
}
