package services_test

import (
	"context"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAvailability(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	cases := map[string]struct {
		status string
		qty    int
	}{
		"pagne-001": {"IN_STOCK", 10},
		"tel-004":   {"LOW_STOCK", 3},
		"lampe-005": {"OUT_OF_STOCK", 0},
	}
	for id, want := range cases {
		a, err := e.Inventory.CheckAvailability(ctx, id)
		require.NoError(t, err, id)
		assert.Equal(t, want.status, a.Status, id)
		assert.Equal(t, want.qty, a.Qty, id)
	}

	_, err := e.Inventory.CheckAvailability(ctx, "nope")
	assert.True(t, errors.Is(err, errors.NotFound), "got %v", err)
}

func TestCheckAvailability_FollowsCheckout(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.placeOrder(t, "u-kossi", map[string]int{"pagne-001": 6})

	a, err := e.Inventory.CheckAvailability(ctx, "pagne-001")
	require.NoError(t, err)
	assert.Equal(t, "LOW_STOCK", a.Status)
	assert.Equal(t, 4, a.Qty)
}

func TestRestock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	yao := e.user(t, "u-yao")

	a, err := e.Inventory.Restock(ctx, yao, "lampe-005", 12)
	require.NoError(t, err)
	assert.Equal(t, "IN_STOCK", a.Status)
	assert.Equal(t, 12, e.stock(t, "lampe-005"))

	_, err = e.Inventory.Restock(ctx, yao, "pagne-001", 3)
	assert.True(t, errors.Is(err, errors.Forbidden), "not yours, got %v", err)

	_, err = e.Inventory.Restock(ctx, yao, "lampe-005", -1)
	assert.True(t, errors.Is(err, errors.NotValid), "got %v", err)
	_, err = e.Inventory.Restock(ctx, yao, "lampe-005", 1001)
	assert.True(t, errors.Is(err, errors.NotValid), "got %v", err)

	_, err = e.Inventory.Restock(ctx, e.user(t, "u-kossi"), "lampe-005", 3)
	assert.True(t, errors.Is(err, errors.Forbidden), "buyers cannot restock, got %v", err)
}
