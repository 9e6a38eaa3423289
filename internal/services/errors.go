package services

import "github.com/juju/errors"

const (
	// ErrOutOfStock means live stock cannot cover a requested quantity.
	ErrOutOfStock = errors.ConstError("out of stock")
	// ErrCartEmpty is returned by checkout for a cart with no lines.
	ErrCartEmpty = errors.ConstError("cart is empty")
	// ErrInvalidOTP is a rejected one-time code; the payment can be retried.
	ErrInvalidOTP = errors.ConstError("invalid one-time code")
	// ErrInvalidTransition is an order or payment step not allowed from the
	// current state.
	ErrInvalidTransition = errors.ConstError("invalid status transition")
)
