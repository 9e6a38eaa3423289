package services_test

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplacetg/internal/fitting"
)

func TestTryOn_RendersCanvasPNG(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// Give the seeded product a real photo so the overlay path runs.
	url, err := e.Blobs.Put(ctx, "products/pagne-001.jpg", "image/png", pngBytes(t, 60, 80))
	require.NoError(t, err)
	e.DB.MustExec(`UPDATE products SET image_url = ? WHERE id = 'pagne-001'`, url)

	out, err := e.Fitting.TryOn(ctx, "pagne-001", pngBytes(t, 300, 600), fitting.Adjust{SizePercent: 120, Offset: 20})
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, fitting.DefaultWidth, fitting.DefaultHeight), img.Bounds())
}

func TestTryOn_MissingGarmentPhotoStillRenders(t *testing.T) {
	e := newEnv(t)
	out, err := e.Fitting.TryOn(context.Background(), "robe-002", pngBytes(t, 50, 50), fitting.Adjust{})
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(out))
	assert.NoError(t, err)
}

func TestTryOn_Rejects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.Fitting.TryOn(ctx, "pagne-001", nil, fitting.Adjust{})
	assert.True(t, errors.Is(err, errors.NotValid), "got %v", err)

	_, err = e.Fitting.TryOn(ctx, "pagne-001", []byte("not an image"), fitting.Adjust{})
	assert.True(t, errors.Is(err, errors.NotValid), "got %v", err)

	_, err = e.Fitting.TryOn(ctx, "pagne-001", make([]byte, 5<<20+1), fitting.Adjust{})
	assert.True(t, errors.Is(err, errors.NotValid), "got %v", err)

	_, err = e.Prods.ToggleActive(ctx, "sac-003")
	require.NoError(t, err)
	_, err = e.Fitting.TryOn(ctx, "sac-003", pngBytes(t, 10, 10), fitting.Adjust{})
	assert.True(t, errors.Is(err, errors.NotFound), "got %v", err)
}

func TestAnalyze_WithoutAssistantIsEmpty(t *testing.T) {
	e := newEnv(t)
	a, err := e.Fitting.Analyze(context.Background(), pngBytes(t, 20, 20), map[string]string{"style": "casual"})
	require.NoError(t, err)
	assert.Empty(t, a.Colors.Dominant)
	assert.Empty(t, a.Style.Recommendations)
}
