package handlers

import (
	"encoding/base64"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"marketplacetg/internal/domain"
	"marketplacetg/internal/log"
	"marketplacetg/internal/services"
	"marketplacetg/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

type pageResponse struct {
	Products   []domain.Product `json:"products"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

// EncodeCursor turns a page cursor into an opaque query value.
func EncodeCursor(cur *domain.Cursor) string {
	if cur == nil {
		return ""
	}
	b, _ := json.Marshal(cur)
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeCursor(s string) (domain.Cursor, bool) {
	var cur domain.Cursor
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || json.Unmarshal(b, &cur) != nil {
		return domain.Cursor{}, false
	}
	return cur, cur.CreatedAt != "" && cur.ID != ""
}

func respondPage(c *fiber.Ctx, p services.Page) error {
	if p.Products == nil {
		p.Products = []domain.Product{}
	}
	return c.JSON(pageResponse{Products: p.Products, NextCursor: EncodeCursor(p.Next)})
}

// GET /api/v1/products?limit=
func (h *ProductHandler) List(c *fiber.Ctx) error {
	p, err := h.Catalog.Get(c.UserContext(), c.QueryInt("limit", services.DefaultPageSize))
	if err != nil {
		return fail(c, "catalog.load", err)
	}
	return respondPage(c, p)
}

// GET /api/v1/products/more?cursor=&limit=
func (h *ProductHandler) More(c *fiber.Ctx) error {
	cur, ok := decodeCursor(c.Query("cursor"))
	if !ok {
		return badRequest(c, "cursor")
	}
	p, err := h.Catalog.GetMore(c.UserContext(), cur, c.QueryInt("limit", services.DefaultPageSize))
	if err != nil {
		return fail(c, "catalog.load", err)
	}
	return respondPage(c, p)
}

// GET /api/v1/products/:id
func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "This item is no longer available", "code": "not_found"})
	}
	p, err := h.Catalog.Product(c.UserContext(), id)
	if err != nil {
		return fail(c, "catalog.product", err)
	}
	return c.JSON(p)
}
