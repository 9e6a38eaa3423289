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

func TestCart_AddMergesSameProductAndOptions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	o := buyer("u-kossi")
	red := domain.Options{"size": "M", "color": "red"}

	_, err := e.Cart.Add(ctx, o, "pagne-001", 1, red)
	require.NoError(t, err)
	cv, err := e.Cart.Add(ctx, o, "pagne-001", 2, domain.Options{"color": "red", "size": "M"})
	require.NoError(t, err)
	require.Len(t, cv.Items, 1)
	assert.Equal(t, 3, cv.Items[0].Quantity)

	cv, err = e.Cart.Add(ctx, o, "pagne-001", 1, domain.Options{"size": "L", "color": "red"})
	require.NoError(t, err)
	assert.Len(t, cv.Items, 2, "different options make a new line")
	assert.Equal(t, 4, cv.Count)
	assertAmount(t, "48000", cv.Total)
}

func TestCart_AddBeyondStockLeavesCartUnchanged(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	o := buyer("u-kossi")

	_, err := e.Cart.Add(ctx, o, "robe-002", 3, nil)
	require.NoError(t, err)

	_, err = e.Cart.Add(ctx, o, "robe-002", 2, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrOutOfStock), "got %v", err)
	assert.Contains(t, err.Error(), "Robe kente")

	cv, err := e.Cart.View(ctx, o)
	require.NoError(t, err)
	require.Len(t, cv.Items, 1)
	assert.Equal(t, 3, cv.Items[0].Quantity)
}

func TestCart_AddRejectsSoldOutInactiveAndUnknown(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	o := buyer("u-kossi")

	_, err := e.Cart.Add(ctx, o, "lampe-005", 1, nil)
	assert.True(t, errors.Is(err, services.ErrOutOfStock), "got %v", err)

	_, err = e.Cart.Add(ctx, o, "nope-999", 1, nil)
	assert.True(t, errors.Is(err, errors.NotFound), "got %v", err)

	_, err = e.Prods.ToggleActive(ctx, "sac-003")
	require.NoError(t, err)
	_, err = e.Cart.Add(ctx, o, "sac-003", 1, nil)
	assert.True(t, errors.Is(err, errors.NotFound), "got %v", err)

	_, err = e.Cart.Add(ctx, o, "pagne-001", 0, nil)
	assert.True(t, errors.Is(err, errors.NotValid), "got %v", err)
}

func TestCart_UpdateQuantity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	o := buyer("u-afi")

	_, err := e.Cart.Add(ctx, o, "tel-004", 2, nil)
	require.NoError(t, err)

	_, err = e.Cart.UpdateQuantity(ctx, o, "tel-004", 2, nil)
	assert.True(t, errors.Is(err, services.ErrOutOfStock), "got %v", err)

	cv, err := e.Cart.UpdateQuantity(ctx, o, "tel-004", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, cv.Items[0].Quantity)

	cv, err = e.Cart.UpdateQuantity(ctx, o, "tel-004", -3, nil)
	require.NoError(t, err)
	assert.Empty(t, cv.Items, "a line reaching zero is removed")

	_, err = e.Cart.UpdateQuantity(ctx, o, "tel-004", 1, nil)
	assert.True(t, errors.Is(err, errors.NotFound), "got %v", err)
}

func TestCart_PriceIsSnapshotAtAdd(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	o := buyer("u-kossi")

	_, err := e.Cart.Add(ctx, o, "sac-003", 1, nil)
	require.NoError(t, err)
	_, err = e.DB.Exec(`UPDATE products SET price = '9000' WHERE id = 'sac-003'`)
	require.NoError(t, err)

	cv, err := e.Cart.Add(ctx, o, "sac-003", 1, nil)
	require.NoError(t, err)
	assertAmount(t, "5000", cv.Items[0].Price)
	assertAmount(t, "10000", cv.Total)
}

func TestCart_RemoveAndClear(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	o := buyer("u-kossi")

	_, err := e.Cart.Add(ctx, o, "sac-003", 1, nil)
	require.NoError(t, err)
	_, err = e.Cart.Add(ctx, o, "pagne-001", 1, nil)
	require.NoError(t, err)

	cv, err := e.Cart.Remove(ctx, o, "sac-003", nil)
	require.NoError(t, err)
	require.Len(t, cv.Items, 1)
	assert.Equal(t, "pagne-001", cv.Items[0].ProductID)

	_, err = e.Cart.Remove(ctx, o, "sac-003", nil)
	require.NoError(t, err, "removing a missing line is a no-op")

	require.NoError(t, e.Cart.Clear(ctx, o))
	cv, err = e.Cart.View(ctx, o)
	require.NoError(t, err)
	assert.Empty(t, cv.Items)
	assert.Equal(t, 0, cv.Count)
}

func TestCart_SignedInCartIsPersisted(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.Cart.Add(ctx, buyer("u-kossi"), "pagne-001", 2, nil)
	require.NoError(t, err)

	// A fresh service over the same database sees the saved cart.
	other := services.NewCartService(e.Cart.Carts, e.Prods)
	cv, err := other.View(ctx, services.Owner{SessionID: "another-device", UserID: "u-kossi"})
	require.NoError(t, err)
	require.Len(t, cv.Items, 1)
	assert.Equal(t, 2, cv.Items[0].Quantity)
}

func TestCart_AnonymousCartStaysInMemoryAndMergesOnLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	anon := anonymous("sess-guest")

	_, err := e.Cart.Add(ctx, anon, "pagne-001", 2, nil)
	require.NoError(t, err)
	_, err = e.Cart.Add(ctx, anon, "robe-002", 3, nil)
	require.NoError(t, err)

	var rows int
	require.NoError(t, e.DB.Get(&rows, `SELECT COUNT(*) FROM local_state`))
	assert.Zero(t, rows, "anonymous carts are not written")

	// The account already holds two robes; the merged 5 are capped at stock.
	_, err = e.Cart.Add(ctx, buyer("u-afi"), "robe-002", 2, nil)
	require.NoError(t, err)

	require.NoError(t, e.Cart.MergeOnLogin(ctx, "sess-guest", "u-afi"))

	cv, err := e.Cart.View(ctx, buyer("u-afi"))
	require.NoError(t, err)
	require.Len(t, cv.Items, 2)
	byID := map[string]int{}
	for _, l := range cv.Items {
		byID[l.ProductID] = l.Quantity
	}
	assert.Equal(t, 4, byID["robe-002"])
	assert.Equal(t, 2, byID["pagne-001"])

	cv, err = e.Cart.View(ctx, anon)
	require.NoError(t, err)
	assert.Empty(t, cv.Items, "the session cart is consumed by the merge")
}
