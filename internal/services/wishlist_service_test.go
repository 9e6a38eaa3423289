package services_test

import (
	"context"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWishlist_SaveListUnsave(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.Wishlist.Save(ctx, "u-kossi", "robe-002"))
	require.NoError(t, e.Wishlist.Save(ctx, "u-kossi", "tel-004"))
	require.NoError(t, e.Wishlist.Save(ctx, "u-kossi", "robe-002"), "saving twice is a no-op")

	got, err := e.Wishlist.List(ctx, "u-kossi")
	require.NoError(t, err)
	assert.Equal(t, []string{"tel-004", "robe-002"}, ids(got), "most recently saved first")

	other, err := e.Wishlist.List(ctx, "u-afi")
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, e.Wishlist.Unsave(ctx, "u-kossi", "tel-004"))
	got, err = e.Wishlist.List(ctx, "u-kossi")
	require.NoError(t, err)
	assert.Equal(t, []string{"robe-002"}, ids(got))
}

func TestWishlist_RejectsHiddenProducts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	err := e.Wishlist.Save(ctx, "u-kossi", "nope")
	assert.True(t, errors.Is(err, errors.NotFound), "got %v", err)

	_, err = e.Prods.ToggleActive(ctx, "sac-003")
	require.NoError(t, err)
	err = e.Wishlist.Save(ctx, "u-kossi", "sac-003")
	assert.True(t, errors.Is(err, errors.NotFound), "got %v", err)
}

func TestWishlist_DeletedProductsDropOut(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.Wishlist.Save(ctx, "u-kossi", "lampe-005"))
	require.NoError(t, e.Seller.DeleteProduct(ctx, e.user(t, "u-yao"), "lampe-005"))

	got, err := e.Wishlist.List(ctx, "u-kossi")
	require.NoError(t, err)
	assert.Empty(t, got)
}
