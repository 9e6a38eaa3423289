package handlers

import (
	"github.com/gofiber/fiber/v2"

	"marketplacetg/internal/domain"
	applog "marketplacetg/internal/log"
	"marketplacetg/internal/services"
	"marketplacetg/internal/validate"
)

type PaymentHandler struct {
	Payments *services.PaymentService
}

type methodRequest struct {
	Method string `json:"method" form:"method"`
}

type otpRequest struct {
	Phone        string `json:"phone" form:"phone"`
	ConfirmPhone string `json:"confirmPhone" form:"confirmPhone"`
}

type confirmRequest struct {
	OTP      string                 `json:"otp" form:"otp"`
	Shipping domain.ShippingAddress `json:"shipping" form:"-"`
}

// orderParam returns the buyer and the order id of a payment route.
func orderParam(c *fiber.Ctx) (string, string, bool) {
	u, _ := currentUser(c)
	id, ok := validate.ID(c.Params("orderId"))
	return u.ID, id, ok
}

// GET /api/v1/payments/:orderId/quote?city=
func (h *PaymentHandler) Quote(c *fiber.Ctx) error {
	buyer, id, ok := orderParam(c)
	if !ok {
		return badRequest(c, "order")
	}
	city, _ := validate.Optional(c.Query("city"), 50)
	q, err := h.Payments.Quote(c.UserContext(), buyer, id, city)
	if err != nil {
		return fail(c, "payment.quote", err)
	}
	return c.JSON(q)
}

// GET /api/v1/payments/:orderId
func (h *PaymentHandler) Status(c *fiber.Ctx) error {
	buyer, id, ok := orderParam(c)
	if !ok {
		return badRequest(c, "order")
	}
	st, err := h.Payments.Status(c.UserContext(), buyer, id)
	if err != nil {
		return fail(c, "payment.status", err)
	}
	return c.JSON(st)
}

// POST /api/v1/payments/:orderId/method
func (h *PaymentHandler) SelectMethod(c *fiber.Ctx) error {
	buyer, id, ok := orderParam(c)
	if !ok {
		return badRequest(c, "order")
	}
	var req methodRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "method")
	}
	m, ok := validate.PaymentMethod(req.Method)
	if !ok {
		return badRequest(c, "method")
	}
	st, err := h.Payments.SelectMethod(c.UserContext(), buyer, id, m)
	if err != nil {
		return fail(c, "payment.method", err)
	}
	return c.JSON(st)
}

// POST /api/v1/payments/:orderId/otp
func (h *PaymentHandler) RequestOTP(c *fiber.Ctx) error {
	buyer, id, ok := orderParam(c)
	if !ok {
		return badRequest(c, "order")
	}
	var req otpRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "phone")
	}
	st, err := h.Payments.RequestOTP(c.UserContext(), buyer, id, req.Phone, req.ConfirmPhone)
	if err != nil {
		return fail(c, "payment.otp", err)
	}
	return c.JSON(st)
}

// POST /api/v1/payments/:orderId/confirm
func (h *PaymentHandler) Confirm(c *fiber.Ctx) error {
	buyer, id, ok := orderParam(c)
	if !ok {
		return badRequest(c, "order")
	}
	var req confirmRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "payment")
	}
	rec, err := h.Payments.Confirm(c.UserContext(), buyer, id, req.OTP, req.Shipping)
	if err != nil {
		return fail(c, "payment.confirm", err)
	}
	applog.Audit(c, "payment.confirm", map[string]any{
		"order_id":       rec.OrderID,
		"transaction_id": rec.TransactionID,
		"method":         rec.Method,
		"amount":         rec.Amount.String(),
	})
	return c.JSON(rec)
}

// POST /api/v1/payments/:orderId/cancel
func (h *PaymentHandler) Cancel(c *fiber.Ctx) error {
	buyer, id, ok := orderParam(c)
	if !ok {
		return badRequest(c, "order")
	}
	if err := h.Payments.Cancel(c.UserContext(), buyer, id); err != nil {
		return fail(c, "payment.cancel", err)
	}
	applog.Audit(c, "payment.cancel", map[string]any{"order_id": id})
	return c.SendStatus(fiber.StatusNoContent)
}
