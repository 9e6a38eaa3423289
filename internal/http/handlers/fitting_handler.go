package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"marketplacetg/internal/fitting"
	"marketplacetg/internal/services"
	"marketplacetg/internal/validate"
)

type FittingHandler struct {
	Fitting *services.FittingService
}

// POST /api/v1/fitting/:productId (multipart: photo, size, offset)
func (h *FittingHandler) TryOn(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("productId"))
	if !ok {
		return badRequest(c, "product")
	}
	photo, err := readImage(c, "photo")
	if err != nil {
		return fail(c, "fitting.tryon", err)
	}
	adj := fitting.Adjust{}
	if v := c.FormValue("size"); v != "" {
		if adj.SizePercent, err = strconv.Atoi(v); err != nil {
			return badRequest(c, "size")
		}
	}
	if v := c.FormValue("offset"); v != "" {
		if adj.Offset, err = strconv.Atoi(v); err != nil {
			return badRequest(c, "offset")
		}
	}
	png, err := h.Fitting.TryOn(c.UserContext(), id, photo, adj)
	if err != nil {
		return fail(c, "fitting.tryon", err)
	}
	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(png)
}

// POST /api/v1/fitting/analyze (multipart: photo, style, occasion, bodyType)
func (h *FittingHandler) Analyze(c *fiber.Ctx) error {
	photo, err := readImage(c, "photo")
	if err != nil {
		return fail(c, "fitting.analyze", err)
	}
	prefs := map[string]string{}
	for _, k := range []string{"style", "occasion", "bodyType"} {
		if v, ok := validate.Optional(c.FormValue(k), 50); ok && v != "" {
			prefs[k] = v
		}
	}
	a, err := h.Fitting.Analyze(c.UserContext(), photo, prefs)
	if err != nil {
		return fail(c, "fitting.analyze", err)
	}
	return c.JSON(a)
}
