package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"marketplacetg/internal/domain"
	"marketplacetg/internal/log"
	"marketplacetg/internal/services"
	"marketplacetg/internal/validate"
)

type SearchHandler struct {
	Catalog *services.CatalogService
}

// GET /api/v1/search?q=&category=
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	rawQ := c.Query("q")
	if strings.TrimSpace(rawQ) == "" {
		return c.JSON(fiber.Map{"q": "", "products": []domain.Product{}, "count": 0})
	}
	q, ok := validate.Q(rawQ)
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "q"})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Enter a valid keyword (letters/numbers only)", "code": "validation"})
	}
	var cat domain.Category
	if raw := strings.TrimSpace(c.Query("category")); raw != "" {
		if cat, ok = validate.Category(raw); !ok {
			return badRequest(c, "category")
		}
	}
	products, err := h.Catalog.Search(c.UserContext(), q, cat, c.QueryInt("limit", services.MaxPageSize))
	if err != nil {
		return fail(c, "search", err)
	}
	return c.JSON(fiber.Map{"q": q, "category": cat, "products": products, "count": len(products)})
}
