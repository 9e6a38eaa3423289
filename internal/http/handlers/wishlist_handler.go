package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "marketplacetg/internal/log"
	"marketplacetg/internal/services"
	"marketplacetg/internal/validate"
)

type WishlistHandler struct {
	Wish *services.WishlistService
}

type wishlistRequest struct {
	ProductID string `json:"productId" form:"productId"`
}

// GET /api/v1/wishlist
func (h *WishlistHandler) List(c *fiber.Ctx) error {
	u, _ := currentUser(c)
	items, err := h.Wish.List(c.UserContext(), u.ID)
	if err != nil {
		return fail(c, "wishlist.list", err)
	}
	return c.JSON(fiber.Map{"items": items})
}

// POST /api/v1/wishlist
func (h *WishlistHandler) Save(c *fiber.Ctx) error {
	var req wishlistRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "productId")
	}
	pid, ok := validate.ID(req.ProductID)
	if !ok {
		return badRequest(c, "productId")
	}
	u, _ := currentUser(c)
	if err := h.Wish.Save(c.UserContext(), u.ID, pid); err != nil {
		return fail(c, "wishlist.save", err)
	}
	applog.Audit(c, "wishlist.save", map[string]any{"product": pid})
	return c.SendStatus(fiber.StatusNoContent)
}

// DELETE /api/v1/wishlist/:productId
func (h *WishlistHandler) Unsave(c *fiber.Ctx) error {
	pid, ok := validate.ID(c.Params("productId"))
	if !ok {
		return badRequest(c, "productId")
	}
	u, _ := currentUser(c)
	if err := h.Wish.Unsave(c.UserContext(), u.ID, pid); err != nil {
		return fail(c, "wishlist.unsave", err)
	}
	applog.Audit(c, "wishlist.unsave", map[string]any{"product": pid})
	return c.SendStatus(fiber.StatusNoContent)
}
