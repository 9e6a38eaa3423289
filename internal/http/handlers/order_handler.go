package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/juju/errors"

	applog "marketplacetg/internal/log"
	"marketplacetg/internal/services"
	"marketplacetg/internal/validate"
)

type OrderHandler struct {
	Orders *services.OrderService
}

// POST /api/v1/checkout
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	o, err := h.Orders.Checkout(c.UserContext(), owner(c))
	if err != nil {
		return fail(c, "order.place", err)
	}
	applog.Audit(c, "order.place", map[string]any{
		"order_id": o.ID,
		"total":    o.TotalAmount.String(),
		"platform": o.Platform.String(),
		"seller":   o.Seller.String(),
		"lines":    len(o.Items),
	})
	return c.Status(fiber.StatusCreated).JSON(o)
}

// GET /api/v1/orders
func (h *OrderHandler) History(c *fiber.Ctx) error {
	u, _ := currentUser(c)
	orders, err := h.Orders.History(c.UserContext(), u.ID)
	if err != nil {
		return fail(c, "orders.history", err)
	}
	return c.JSON(fiber.Map{"orders": orders})
}

// GET /api/v1/orders/:id
func (h *OrderHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "order")
	}
	u, _ := currentUser(c)
	o, err := h.Orders.Get(c.UserContext(), u, id)
	if err != nil {
		if errors.Is(err, errors.Forbidden) {
			applog.Security(c, "access.denied.order", map[string]any{"order_id": id})
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found", "code": "not_found"})
		}
		return fail(c, "orders.view", err)
	}
	return c.JSON(o)
}

// GET /orders/:id/receipt renders the printable receipt of a paid order.
func (h *OrderHandler) Receipt(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFoundPage(c, fiber.StatusNotFound, "Order not found")
	}
	u, ok := currentUser(c)
	if !ok {
		return c.Redirect("/")
	}
	o, err := h.Orders.Get(c.UserContext(), u, id)
	switch {
	case errors.Is(err, errors.Forbidden), errors.Is(err, errors.NotFound):
		applog.Security(c, "access.denied.order", map[string]any{"order_id": id})
		return notFoundPage(c, fiber.StatusNotFound, "Order not found")
	case err != nil:
		applog.Error(c, "orders.receipt.fail", err, map[string]any{"order_id": id})
		return notFoundPage(c, fiber.StatusInternalServerError, "Could not load your receipt")
	}
	return render(c, "receipt", fiber.Map{"Order": o})
}
