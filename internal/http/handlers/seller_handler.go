package handlers

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/errors"

	applog "marketplacetg/internal/log"
	"marketplacetg/internal/services"
	"marketplacetg/internal/validate"
)

type SellerHandler struct {
	Seller *services.SellerService
}

// readImage reads an optional image upload. A missing file yields nil.
func readImage(c *fiber.Ctx, field string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil
	}
	if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
		return nil, errors.NotValidf("%s must be an image", field)
	}
	if fh.Size > validate.MaxImageBytes {
		return nil, errors.NotValidf("image larger than 5MB")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, validate.MaxImageBytes+1))
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(data) > validate.MaxImageBytes {
		return nil, errors.NotValidf("image larger than 5MB")
	}
	return data, nil
}

// GET /api/v1/seller/dashboard
func (h *SellerHandler) Dashboard(c *fiber.Ctx) error {
	u, _ := currentUser(c)
	d, err := h.Seller.Dashboard(c.UserContext(), u)
	if err != nil {
		return fail(c, "seller.dashboard", err)
	}
	return c.JSON(d)
}

// POST /api/v1/seller/products (multipart)
func (h *SellerHandler) CreateProduct(c *fiber.Ctx) error {
	u, _ := currentUser(c)
	img, err := readImage(c, "image")
	if err != nil {
		return fail(c, "seller.product.create", err)
	}
	p, err := h.Seller.CreateProduct(c.UserContext(), u, services.NewProduct{
		Name:        c.FormValue("name"),
		Category:    c.FormValue("category"),
		Price:       c.FormValue("price"),
		Stock:       c.FormValue("stock"),
		Description: c.FormValue("description"),
		Image:       img,
	})
	if err != nil {
		return fail(c, "seller.product.create", err)
	}
	applog.Audit(c, "seller.product.create", map[string]any{"product_id": p.ID, "price": p.Price.String(), "stock": p.Stock})
	return c.Status(fiber.StatusCreated).JSON(p)
}

// POST /api/v1/seller/products/:id/toggle
func (h *SellerHandler) ToggleProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "product")
	}
	u, _ := currentUser(c)
	active, err := h.Seller.ToggleProduct(c.UserContext(), u, id)
	if err != nil {
		return fail(c, "seller.product.toggle", err)
	}
	applog.Audit(c, "seller.product.toggle", map[string]any{"product_id": id, "active": active})
	return c.JSON(fiber.Map{"id": id, "isActive": active})
}

// DELETE /api/v1/seller/products/:id
func (h *SellerHandler) DeleteProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "product")
	}
	u, _ := currentUser(c)
	if err := h.Seller.DeleteProduct(c.UserContext(), u, id); err != nil {
		return fail(c, "seller.product.delete", err)
	}
	applog.Audit(c, "seller.product.delete", map[string]any{"product_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

type profileRequest struct {
	FirstName       string `json:"firstName" form:"firstName"`
	LastName        string `json:"lastName" form:"lastName"`
	Phone           string `json:"phone" form:"phone"`
	ShopName        string `json:"shopName" form:"shopName"`
	ShopDescription string `json:"shopDescription" form:"shopDescription"`
}

// PUT /api/v1/seller/profile
func (h *SellerHandler) UpdateProfile(c *fiber.Ctx) error {
	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "profile")
	}
	u, _ := currentUser(c)
	updated, err := h.Seller.UpdateProfile(c.UserContext(), u, services.ProfileUpdate(req))
	if err != nil {
		return fail(c, "seller.profile", err)
	}
	applog.Audit(c, "seller.profile.update", nil)
	return c.JSON(updated)
}
