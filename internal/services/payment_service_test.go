package services_test

import (
	"context"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplacetg/internal/domain"
	"marketplacetg/internal/services"
)

var lomeAddress = domain.ShippingAddress{FullName: "Kossi Mensah", Address: "12 rue des Cocotiers", City: "Lomé"}

func TestPayment_WrongCodeThenRetry(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	order := e.placeOrder(t, "u-kossi", map[string]int{"pagne-001": 2, "sac-003": 1})

	q, err := e.Pay.Quote(ctx, "u-kossi", order.ID, "Lomé")
	require.NoError(t, err)
	assertAmount(t, "29000", q.Subtotal)
	assertAmount(t, "500", q.Shipping)
	assertAmount(t, "29500", q.Total)

	st, err := e.Pay.SelectMethod(ctx, "u-kossi", order.ID, domain.PaymentFlooz)
	require.NoError(t, err)
	assert.Equal(t, services.PayMethodSelection, st.State)

	st, err = e.Pay.RequestOTP(ctx, "u-kossi", order.ID, "+228 90 00 00 01", "+22890000001")
	require.NoError(t, err)
	assert.Equal(t, services.PayOTPRequested, st.State)

	_, err = e.Pay.Confirm(ctx, "u-kossi", order.ID, "000000", lomeAddress)
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrInvalidOTP), "got %v", err)

	st, err = e.Pay.Status(ctx, "u-kossi", order.ID)
	require.NoError(t, err)
	assert.Equal(t, services.PayFailed, st.State)
	assert.Equal(t, 1, st.Attempts)
	assert.NotEmpty(t, st.LastError)

	stored, err := e.Orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, stored.Status)
	comms, err := e.Checkout.CommissionRecords(ctx, order.ID)
	require.NoError(t, err)
	for _, c := range comms {
		assert.Equal(t, domain.CommissionPending, c.Status)
	}

	rec, err := e.Pay.Confirm(ctx, "u-kossi", order.ID, testOTP, lomeAddress)
	require.NoError(t, err)
	assert.Regexp(t, `^TXN\d+$`, rec.TransactionID)
	assert.Equal(t, domain.PaymentFlooz, rec.Method)
	assertAmount(t, "29500", rec.Amount)

	stored, err = e.Orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderConfirmed, stored.Status)
	assert.Equal(t, "paid", stored.PaymentStatus)
	assertAmount(t, "29000", stored.TotalAmount, "shipping stays out of the order total")
	require.NotNil(t, stored.PaidAmount)
	assertAmount(t, "29500", *stored.PaidAmount)
	require.NotNil(t, stored.Shipping)
	assert.Equal(t, "Lomé", stored.Shipping.City)

	comms, err = e.Checkout.CommissionRecords(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, comms, 2)
	for _, c := range comms {
		assert.Equal(t, domain.CommissionPaid, c.Status)
		assert.NotEmpty(t, c.PaidAt)
	}

	st, err = e.Pay.Status(ctx, "u-kossi", order.ID)
	require.NoError(t, err)
	assert.Equal(t, services.PayPaid, st.State)

	_, err = e.Pay.Confirm(ctx, "u-kossi", order.ID, testOTP, lomeAddress)
	assert.True(t, errors.Is(err, services.ErrInvalidTransition), "a paid order cannot be paid twice, got %v", err)
}

func TestPayment_StepsMustBeInOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	order := e.placeOrder(t, "u-kossi", map[string]int{"sac-003": 1})

	_, err := e.Pay.RequestOTP(ctx, "u-kossi", order.ID, "+22890000001", "+22890000001")
	assert.True(t, errors.Is(err, services.ErrInvalidTransition), "no method yet, got %v", err)

	_, err = e.Pay.SelectMethod(ctx, "u-kossi", order.ID, domain.PaymentTMoney)
	require.NoError(t, err)

	_, err = e.Pay.Confirm(ctx, "u-kossi", order.ID, testOTP, lomeAddress)
	assert.True(t, errors.Is(err, services.ErrInvalidTransition), "no code requested yet, got %v", err)
}

func TestPayment_InputValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	order := e.placeOrder(t, "u-kossi", map[string]int{"sac-003": 1})

	_, err := e.Pay.SelectMethod(ctx, "u-kossi", order.ID, "paypal")
	assert.True(t, errors.Is(err, errors.NotValid), "got %v", err)

	_, err = e.Pay.SelectMethod(ctx, "u-kossi", order.ID, domain.PaymentOrangeMoney)
	require.NoError(t, err)

	for _, tc := range []struct{ phone, confirm string }{
		{"", ""},
		{"90000001", "90000001"},
		{"+22890000001", "+22890000002"},
	} {
		_, err = e.Pay.RequestOTP(ctx, "u-kossi", order.ID, tc.phone, tc.confirm)
		assert.True(t, errors.Is(err, errors.NotValid), "%q/%q: got %v", tc.phone, tc.confirm, err)
	}

	_, err = e.Pay.RequestOTP(ctx, "u-kossi", order.ID, "+22890000001", "+22890000001")
	require.NoError(t, err)

	_, err = e.Pay.Confirm(ctx, "u-kossi", order.ID, "12", lomeAddress)
	assert.True(t, errors.Is(err, errors.NotValid), "got %v", err)

	_, err = e.Pay.Confirm(ctx, "u-kossi", order.ID, testOTP, domain.ShippingAddress{FullName: "K", City: "Lomé"})
	assert.True(t, errors.Is(err, errors.NotValid), "missing address, got %v", err)
}

func TestPayment_OtherBuyersOrderIsForbidden(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	order := e.placeOrder(t, "u-kossi", map[string]int{"sac-003": 1})

	_, err := e.Pay.Quote(ctx, "u-afi", order.ID, "Kara")
	assert.True(t, errors.Is(err, errors.Forbidden), "got %v", err)
	_, err = e.Pay.SelectMethod(ctx, "u-afi", order.ID, domain.PaymentFlooz)
	assert.True(t, errors.Is(err, errors.Forbidden), "got %v", err)
	_, err = e.Pay.Status(ctx, "u-afi", order.ID)
	assert.True(t, errors.Is(err, errors.Forbidden), "got %v", err)
}

func TestPayment_CancelReleasesStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	order := e.placeOrder(t, "u-kossi", map[string]int{"tel-004": 3})
	require.Zero(t, e.stock(t, "tel-004"))

	_, err := e.Pay.SelectMethod(ctx, "u-kossi", order.ID, domain.PaymentFlooz)
	require.NoError(t, err)
	require.NoError(t, e.Pay.Cancel(ctx, "u-kossi", order.ID))

	stored, err := e.Orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, stored.Status)
	assert.Equal(t, 3, e.stock(t, "tel-004"))

	_, err = e.Cart.Add(ctx, buyer("u-afi"), "tel-004", 1, nil)
	assert.NoError(t, err, "another buyer can take the released units")

	st, err := e.Pay.Status(ctx, "u-kossi", order.ID)
	require.NoError(t, err)
	assert.Equal(t, services.PayMethodSelection, st.State)
	assert.Empty(t, st.Method)

	err = e.Pay.Cancel(ctx, "u-kossi", order.ID)
	assert.True(t, errors.Is(err, services.ErrInvalidTransition), "got %v", err)
	assert.Equal(t, 3, e.stock(t, "tel-004"), "stock is returned once")
}

func TestPayment_CancelOtherBuyersOrderIsForbidden(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	order := e.placeOrder(t, "u-kossi", map[string]int{"sac-003": 1})

	err := e.Pay.Cancel(ctx, "u-afi", order.ID)
	assert.True(t, errors.Is(err, errors.Forbidden), "got %v", err)
	assert.Equal(t, 14, e.stock(t, "sac-003"))
}

func TestPayment_CancelledOrderCannotBePaid(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	order := e.placeOrder(t, "u-kossi", map[string]int{"sac-003": 1})

	_, err := e.Checkout.SetStatus(ctx, order.ID, domain.OrderCancelled)
	require.NoError(t, err)

	_, err = e.Pay.SelectMethod(ctx, "u-kossi", order.ID, domain.PaymentFlooz)
	assert.True(t, errors.Is(err, services.ErrInvalidTransition), "got %v", err)
}
