package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"marketplacetg/internal/domain"
	applog "marketplacetg/internal/log"
	"marketplacetg/internal/repos"
	"marketplacetg/internal/services"
	"marketplacetg/internal/validate"
)

type AdminHandler struct {
	Admin *services.AdminService
}

// query reads the optional text search parameter.
func query(c *fiber.Ctx) (string, bool) {
	raw := c.Query("q")
	if strings.TrimSpace(raw) == "" {
		return "", true
	}
	return validate.Q(raw)
}

// GET /api/v1/admin/dashboard
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	u, _ := currentUser(c)
	d, err := h.Admin.Dashboard(c.UserContext(), u)
	if err != nil {
		return fail(c, "admin.dashboard", err)
	}
	return c.JSON(d)
}

// GET /api/v1/admin/users?role=&q=
func (h *AdminHandler) Users(c *fiber.Ctx) error {
	f := repos.UserFilter{}
	if raw := c.Query("role"); raw != "" && raw != "all" {
		role, ok := validate.Role(raw)
		if !ok {
			return badRequest(c, "role")
		}
		f.Role = role
	}
	q, ok := query(c)
	if !ok {
		return badRequest(c, "q")
	}
	f.Query = q
	u, _ := currentUser(c)
	users, err := h.Admin.ListUsers(c.UserContext(), u, f)
	if err != nil {
		return fail(c, "admin.users.list", err)
	}
	return c.JSON(fiber.Map{"users": users})
}

// GET /api/v1/admin/products?status=active|inactive&q=
func (h *AdminHandler) Products(c *fiber.Ctx) error {
	f := repos.ProductFilter{}
	switch c.Query("status") {
	case "", "all":
	case "active":
		t := true
		f.Active = &t
	case "inactive":
		b := false
		f.Active = &b
	default:
		return badRequest(c, "status")
	}
	q, ok := query(c)
	if !ok {
		return badRequest(c, "q")
	}
	f.Query = q
	u, _ := currentUser(c)
	products, err := h.Admin.ListProducts(c.UserContext(), u, f)
	if err != nil {
		return fail(c, "admin.products.list", err)
	}
	return c.JSON(fiber.Map{"products": products})
}

// GET /api/v1/admin/orders?status=
func (h *AdminHandler) Orders(c *fiber.Ctx) error {
	var status domain.OrderStatus
	if raw := c.Query("status"); raw != "" && raw != "all" {
		st, ok := validate.OrderStatus(raw)
		if !ok {
			return badRequest(c, "status")
		}
		status = st
	}
	u, _ := currentUser(c)
	orders, err := h.Admin.ListOrders(c.UserContext(), u, status)
	if err != nil {
		return fail(c, "admin.orders.list", err)
	}
	return c.JSON(fiber.Map{"orders": orders})
}

// GET /api/v1/admin/commissions?status=
func (h *AdminHandler) Commissions(c *fiber.Ctx) error {
	var status domain.CommissionStatus
	if raw := c.Query("status"); raw != "" && raw != "all" {
		st, ok := validate.CommissionStatus(raw)
		if !ok {
			return badRequest(c, "status")
		}
		status = st
	}
	u, _ := currentUser(c)
	commissions, err := h.Admin.ListCommissions(c.UserContext(), u, status)
	if err != nil {
		return fail(c, "admin.commissions.list", err)
	}
	return c.JSON(fiber.Map{"commissions": commissions})
}

// POST /api/v1/admin/users/:id/toggle
func (h *AdminHandler) ToggleUser(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "user")
	}
	u, _ := currentUser(c)
	active, err := h.Admin.ToggleUser(c.UserContext(), u, id)
	if err != nil {
		return fail(c, "admin.users.toggle", err)
	}
	applog.Audit(c, "admin.users.toggle", map[string]any{"user_id": id, "active": active})
	return c.JSON(fiber.Map{"id": id, "isActive": active})
}

// DELETE /api/v1/admin/users/:id
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "user")
	}
	u, _ := currentUser(c)
	if err := h.Admin.DeleteUser(c.UserContext(), u, id); err != nil {
		return fail(c, "admin.users.delete", err)
	}
	applog.Audit(c, "admin.users.delete", map[string]any{"user_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

// POST /api/v1/admin/products/:id/toggle
func (h *AdminHandler) ToggleProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "product")
	}
	u, _ := currentUser(c)
	active, err := h.Admin.ToggleProduct(c.UserContext(), u, id)
	if err != nil {
		return fail(c, "admin.products.toggle", err)
	}
	applog.Audit(c, "admin.products.toggle", map[string]any{"product_id": id, "active": active})
	return c.JSON(fiber.Map{"id": id, "isActive": active})
}

// DELETE /api/v1/admin/products/:id
func (h *AdminHandler) DeleteProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "product")
	}
	u, _ := currentUser(c)
	if err := h.Admin.DeleteProduct(c.UserContext(), u, id); err != nil {
		return fail(c, "admin.products.delete", err)
	}
	applog.Audit(c, "admin.products.delete", map[string]any{"product_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

type statusRequest struct {
	Status string `json:"status" form:"status"`
}

// POST /api/v1/admin/orders/:id/status
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "order")
	}
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "status")
	}
	next, ok := validate.OrderStatus(req.Status)
	if !ok {
		return badRequest(c, "status")
	}
	u, _ := currentUser(c)
	o, err := h.Admin.SetOrderStatus(c.UserContext(), u, id, next)
	if err != nil {
		return fail(c, "admin.orders.update", err)
	}
	applog.Audit(c, "admin.orders.update", map[string]any{"order_id": id, "status": next})
	return c.JSON(o)
}

// DELETE /api/v1/admin/orders/:id
func (h *AdminHandler) DeleteOrder(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "order")
	}
	u, _ := currentUser(c)
	if err := h.Admin.DeleteOrder(c.UserContext(), u, id); err != nil {
		return fail(c, "admin.orders.delete", err)
	}
	applog.Audit(c, "admin.orders.delete", map[string]any{"order_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}
