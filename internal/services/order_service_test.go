package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplacetg/internal/domain"
	"marketplacetg/internal/services"
)

func countRows(t *testing.T, e *env, table string) int {
	t.Helper()
	var n int
	require.NoError(t, e.DB.Get(&n, `SELECT COUNT(*) FROM `+table))
	return n
}

func TestCheckout_EmptyCart(t *testing.T) {
	e := newEnv(t)

	_, err := e.Checkout.Checkout(context.Background(), buyer("u-kossi"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrCartEmpty))
	assert.Equal(t, "cart is empty", err.Error())
	assert.Zero(t, countRows(t, e, "orders"))
}

func TestCheckout_RequiresSignIn(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.Cart.Add(ctx, anonymous("guest"), "sac-003", 1, nil)
	require.NoError(t, err)
	_, err = e.Checkout.Checkout(ctx, anonymous("guest"))
	assert.True(t, errors.Is(err, errors.Unauthorized), "got %v", err)
}

func TestCheckout_WritesOrderAndCommissionsAtomically(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	o := buyer("u-kossi")

	_, err := e.Cart.Add(ctx, o, "pagne-001", 2, domain.Options{"size": "M"})
	require.NoError(t, err)
	_, err = e.Cart.Add(ctx, o, "tel-004", 1, nil)
	require.NoError(t, err)

	order, err := e.Checkout.Checkout(ctx, o)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, order.Status)
	assertAmount(t, "89000", order.TotalAmount)
	assertAmount(t, "8900", order.Platform)
	assertAmount(t, "80100", order.Seller)

	stored, err := e.Orders.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, "pagne-001", stored.Items[0].ProductID)
	assert.Equal(t, domain.Options{"size": "M"}, stored.Items[0].Options)
	assertAmount(t, "2400", stored.Items[0].Platform)

	comms, err := e.Checkout.CommissionRecords(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, comms, 2)
	for _, c := range comms {
		assert.Equal(t, domain.CommissionPending, c.Status)
		assert.True(t, c.PlatformAmount.Add(c.SellerAmount).Equal(c.TotalAmount))
	}

	assert.Equal(t, 8, e.stock(t, "pagne-001"))
	assert.Equal(t, 2, e.stock(t, "tel-004"))

	cv, err := e.Cart.View(ctx, o)
	require.NoError(t, err)
	assert.Empty(t, cv.Items, "cart is cleared after checkout")
}

func TestCheckout_StockShortfallNamesProductAndWritesNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	o := buyer("u-kossi")

	_, err := e.Cart.Add(ctx, o, "sac-003", 1, nil)
	require.NoError(t, err)
	_, err = e.Cart.Add(ctx, o, "robe-002", 3, nil)
	require.NoError(t, err)

	// Another buyer takes most of the robes first.
	e.placeOrder(t, "u-afi", map[string]int{"robe-002": 2})

	_, err = e.Checkout.Checkout(ctx, o)
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrOutOfStock), "got %v", err)
	assert.Contains(t, err.Error(), "Robe kente")

	assert.Equal(t, 1, countRows(t, e, "orders"))
	assert.Equal(t, 15, e.stock(t, "sac-003"))

	cv, err := e.Cart.View(ctx, o)
	require.NoError(t, err)
	assert.Len(t, cv.Items, 2, "a failed checkout keeps the cart")
}

func TestCheckout_DeactivatedProductIsOutOfStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	o := buyer("u-kossi")

	_, err := e.Cart.Add(ctx, o, "sac-003", 1, nil)
	require.NoError(t, err)
	_, err = e.Prods.ToggleActive(ctx, "sac-003")
	require.NoError(t, err)

	_, err = e.Checkout.Checkout(ctx, o)
	assert.True(t, errors.Is(err, services.ErrOutOfStock), "got %v", err)
}

func TestOrderGet_Visibility(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	order := e.placeOrder(t, "u-kossi", map[string]int{"pagne-001": 1, "tel-004": 1})

	got, err := e.Checkout.Get(ctx, e.user(t, "u-kossi"), order.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)

	got, err = e.Checkout.Get(ctx, e.user(t, "u-admin"), order.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)

	got, err = e.Checkout.Get(ctx, e.user(t, "u-yao"), order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1, "sellers only see their own lines")
	assert.Equal(t, "tel-004", got.Items[0].ProductID)

	_, err = e.Checkout.Get(ctx, e.user(t, "u-afi"), order.ID)
	assert.True(t, errors.Is(err, errors.Forbidden), "got %v", err)

	_, err = e.Checkout.Get(ctx, e.user(t, "u-kossi"), "missing")
	assert.True(t, errors.Is(err, errors.NotFound), "got %v", err)
}

func TestOrderHistory_OnlyOwnOrders(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.placeOrder(t, "u-kossi", map[string]int{"sac-003": 1})
	e.placeOrder(t, "u-kossi", map[string]int{"sac-003": 2})
	e.placeOrder(t, "u-afi", map[string]int{"sac-003": 1})

	hist, err := e.Checkout.History(ctx, "u-kossi")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	for _, o := range hist {
		assert.Equal(t, "u-kossi", o.BuyerID)
		assert.NotEmpty(t, o.Items)
	}
}

func TestSetStatus_TransitionsAndCancelRestoresStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	order := e.placeOrder(t, "u-kossi", map[string]int{"robe-002": 3})
	require.Equal(t, 1, e.stock(t, "robe-002"))

	_, err := e.Checkout.SetStatus(ctx, order.ID, domain.OrderDelivered)
	assert.True(t, errors.Is(err, services.ErrInvalidTransition), "got %v", err)

	_, err = e.Checkout.SetStatus(ctx, order.ID, "lost")
	assert.True(t, errors.Is(err, errors.NotValid), "got %v", err)

	got, err := e.Checkout.SetStatus(ctx, order.ID, domain.OrderCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, got.Status)
	assert.Equal(t, 4, e.stock(t, "robe-002"))

	_, err = e.Checkout.SetStatus(ctx, order.ID, domain.OrderConfirmed)
	assert.True(t, errors.Is(err, services.ErrInvalidTransition), "cancelled is terminal, got %v", err)
}

func TestSetStatus_OnlyPaymentConfirms(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	order := e.placeOrder(t, "u-kossi", map[string]int{"sac-003": 1})

	_, err := e.Checkout.SetStatus(ctx, order.ID, domain.OrderConfirmed)
	assert.True(t, errors.Is(err, services.ErrInvalidTransition), "got %v", err)
	stored, err := e.Orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPending, stored.Status)
}

func TestSetStatus_FulfilmentPath(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	order := e.placeOrder(t, "u-kossi", map[string]int{"sac-003": 1})
	e.payOrder(t, "u-kossi", order.ID)

	for _, next := range []domain.OrderStatus{domain.OrderProcessing, domain.OrderShipped, domain.OrderDelivered} {
		got, err := e.Checkout.SetStatus(ctx, order.ID, next)
		require.NoError(t, err, "to %s", next)
		assert.Equal(t, next, got.Status)
		if next == domain.OrderProcessing {
			assert.Empty(t, got.TrackingNumber)
		} else {
			assert.Regexp(t, `^TG[0-9A-F]{12}$`, got.TrackingNumber)
		}
	}
	assert.Equal(t, 14, e.stock(t, "sac-003"))
}

func TestCheckout_ConcurrentBuyersRaceForLastUnits(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owners := []services.Owner{buyer("u-kossi"), buyer("u-afi")}
	for _, o := range owners {
		_, err := e.Cart.Add(ctx, o, "robe-002", 4, nil)
		require.NoError(t, err)
	}

	start := make(chan struct{})
	errs := make([]error, len(owners))
	var wg sync.WaitGroup
	for i, o := range owners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = e.Checkout.Checkout(ctx, o)
		}()
	}
	close(start)
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.True(t, errors.Is(err, services.ErrOutOfStock), "got %v", err)
	}
	assert.Equal(t, 1, won)
	assert.Zero(t, e.stock(t, "robe-002"))
	assert.Equal(t, 1, countRows(t, e, "orders"))
	assert.Equal(t, 1, countRows(t, e, "commissions"))
}

func TestDeleteOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	order := e.placeOrder(t, "u-kossi", map[string]int{"sac-003": 1, "robe-002": 4})
	require.Zero(t, e.stock(t, "robe-002"))

	require.NoError(t, e.Checkout.Delete(ctx, order.ID))
	assert.Zero(t, countRows(t, e, "orders"))
	assert.Zero(t, countRows(t, e, "commissions"))
	assert.Zero(t, countRows(t, e, "order_items"))
	assert.Equal(t, 4, e.stock(t, "robe-002"), "held units go back on delete")
	assert.Equal(t, 15, e.stock(t, "sac-003"))

	err := e.Checkout.Delete(ctx, order.ID)
	assert.True(t, errors.Is(err, errors.NotFound), "got %v", err)
}

func TestDeleteOrder_StockReturnedOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	cancelled := e.placeOrder(t, "u-kossi", map[string]int{"robe-002": 2})
	_, err := e.Checkout.SetStatus(ctx, cancelled.ID, domain.OrderCancelled)
	require.NoError(t, err)
	require.Equal(t, 4, e.stock(t, "robe-002"))
	require.NoError(t, e.Checkout.Delete(ctx, cancelled.ID))
	assert.Equal(t, 4, e.stock(t, "robe-002"), "a cancelled order already gave its units back")

	shipped := e.placeOrder(t, "u-kossi", map[string]int{"robe-002": 1})
	e.payOrder(t, "u-kossi", shipped.ID)
	_, err = e.Checkout.SetStatus(ctx, shipped.ID, domain.OrderShipped)
	require.NoError(t, err)
	require.NoError(t, e.Checkout.Delete(ctx, shipped.ID))
	assert.Equal(t, 3, e.stock(t, "robe-002"), "shipped units have left the shop")
}
