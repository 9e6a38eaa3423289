package handlers

import (
	"github.com/gofiber/fiber/v2"

	"marketplacetg/internal/domain"
	applog "marketplacetg/internal/log"
	"marketplacetg/internal/services"
	"marketplacetg/internal/validate"
)

type CartHandler struct {
	Cart *services.CartService
}

type cartLineRequest struct {
	ProductID string         `json:"productId" form:"productId"`
	Quantity  int            `json:"quantity" form:"quantity"`
	Delta     int            `json:"delta" form:"delta"`
	Options   domain.Options `json:"options" form:"-"`
}

func parseLine(c *fiber.Ctx) (cartLineRequest, bool) {
	var req cartLineRequest
	if err := c.BodyParser(&req); err != nil {
		return req, false
	}
	id, ok := validate.ID(req.ProductID)
	req.ProductID = id
	return req, ok
}

// GET /api/v1/cart
func (h *CartHandler) View(c *fiber.Ctx) error {
	cv, err := h.Cart.View(c.UserContext(), owner(c))
	if err != nil {
		return fail(c, "cart.view", err)
	}
	return c.JSON(cv)
}

// POST /api/v1/cart/items
func (h *CartHandler) Add(c *fiber.Ctx) error {
	req, ok := parseLine(c)
	if !ok {
		return badRequest(c, "productId")
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	qty, ok := validate.Qty(req.Quantity)
	if !ok {
		return badRequest(c, "quantity")
	}
	cv, err := h.Cart.Add(c.UserContext(), owner(c), req.ProductID, qty, req.Options)
	if err != nil {
		return fail(c, "cart.add", err)
	}
	applog.Info(c, "cart.add", map[string]any{"product_id": req.ProductID, "qty": qty})
	return c.Status(fiber.StatusCreated).JSON(cv)
}

// PATCH /api/v1/cart/items
func (h *CartHandler) Update(c *fiber.Ctx) error {
	req, ok := parseLine(c)
	if !ok {
		return badRequest(c, "productId")
	}
	delta, ok := validate.Delta(req.Delta)
	if !ok {
		return badRequest(c, "delta")
	}
	cv, err := h.Cart.UpdateQuantity(c.UserContext(), owner(c), req.ProductID, delta, req.Options)
	if err != nil {
		return fail(c, "cart.update", err)
	}
	return c.JSON(cv)
}

// DELETE /api/v1/cart/items
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	req, ok := parseLine(c)
	if !ok {
		return badRequest(c, "productId")
	}
	cv, err := h.Cart.Remove(c.UserContext(), owner(c), req.ProductID, req.Options)
	if err != nil {
		return fail(c, "cart.remove", err)
	}
	return c.JSON(cv)
}

// DELETE /api/v1/cart
func (h *CartHandler) Clear(c *fiber.Ctx) error {
	if err := h.Cart.Clear(c.UserContext(), owner(c)); err != nil {
		return fail(c, "cart.clear", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
