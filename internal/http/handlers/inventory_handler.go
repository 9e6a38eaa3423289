package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "marketplacetg/internal/log"
	"marketplacetg/internal/services"
	"marketplacetg/internal/validate"
)

type InventoryHandler struct {
	Inv *services.InventoryService
}

// GET /api/v1/products/:id/availability
func (h *InventoryHandler) Check(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "productId")
	}
	avail, err := h.Inv.CheckAvailability(c.UserContext(), id)
	if err != nil {
		return fail(c, "inventory.check", err)
	}
	return c.JSON(avail)
}

type restockRequest struct {
	Stock int `json:"stock" form:"stock"`
}

// POST /api/v1/seller/products/:id/stock
func (h *InventoryHandler) Restock(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "productId")
	}
	var req restockRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "stock")
	}
	u, _ := currentUser(c)
	avail, err := h.Inv.Restock(c.UserContext(), u, id, req.Stock)
	if err != nil {
		return fail(c, "inventory.restock", err)
	}
	applog.Audit(c, "inventory.restock", map[string]any{"product_id": id, "qty": req.Stock})
	return c.JSON(avail)
}
