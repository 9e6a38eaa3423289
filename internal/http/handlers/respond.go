package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/juju/errors"

	"marketplacetg/internal/log"
	"marketplacetg/internal/services"
)

type errorKind struct {
	kind   error
	status int
	code   string
	// show is false when the message could reveal internals or the
	// existence of something the caller may not see.
	show bool
}

var errorKinds = []errorKind{
	{errors.NotValid, fiber.StatusBadRequest, "validation", true},
	{services.ErrCartEmpty, fiber.StatusBadRequest, "cart_empty", true},
	{services.ErrBadCreds, fiber.StatusUnauthorized, "unauthorized", true},
	{errors.Unauthorized, fiber.StatusUnauthorized, "unauthorized", false},
	{errors.Forbidden, fiber.StatusForbidden, "forbidden", false},
	{errors.NotFound, fiber.StatusNotFound, "not_found", true},
	{errors.AlreadyExists, fiber.StatusConflict, "conflict", true},
	{services.ErrOutOfStock, fiber.StatusConflict, "out_of_stock", true},
	{services.ErrInvalidTransition, fiber.StatusConflict, "invalid_transition", true},
	{services.ErrInvalidOTP, fiber.StatusUnprocessableEntity, "payment_failed", true},
	{services.ErrCatalogUnavailable, fiber.StatusServiceUnavailable, "unavailable", false},
}

var genericMessages = map[int]string{
	fiber.StatusUnauthorized:        "Please sign in to continue.",
	fiber.StatusForbidden:           "Access denied.",
	fiber.StatusServiceUnavailable:  "Could not load products. Please retry.",
	fiber.StatusInternalServerError: "Something went wrong. Please try again.",
}

// Classify maps an error to its HTTP status, a stable code and the message
// that may be shown to the caller.
func Classify(err error) (status int, code, msg string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.kind) {
			if k.show {
				return k.status, k.code, err.Error()
			}
			return k.status, k.code, genericMessages[k.status]
		}
	}
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		return fe.Code, "http", fe.Message
	}
	return fiber.StatusInternalServerError, "internal", genericMessages[fiber.StatusInternalServerError]
}

// fail logs err under action and writes the JSON error body.
func fail(c *fiber.Ctx, action string, err error) error {
	status, code, msg := Classify(err)
	c.Status(status)
	switch {
	case status >= fiber.StatusInternalServerError:
		log.Error(c, action+".fail", err, nil)
	case status == fiber.StatusUnauthorized || status == fiber.StatusForbidden:
		log.Security(c, action+".denied", map[string]any{"code": code})
	default:
		log.Security(c, action+".reject", map[string]any{"code": code, "reason": msg})
	}
	return c.JSON(fiber.Map{"error": msg, "code": code})
}

// badRequest rejects a body or parameter that could not be read.
func badRequest(c *fiber.Ctx, field string) error {
	log.Security(c, "validation.fail", map[string]any{"field": field})
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid " + field, "code": "validation"})
}
