package storage

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/juju/errors"
	"github.com/nfnt/resize"
)

const (
	// MaxImageWidth is the width uploaded product photos are scaled down to.
	MaxImageWidth = 800

	// MaxImagePixels bounds what a decoded upload may allocate.
	MaxImagePixels = 25_000_000
)

// DecodeImage decodes a JPEG, PNG or GIF upload. The header is checked
// first so oversized dimensions are refused before any pixel is read.
func DecodeImage(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewNotValid(err, "image")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return nil, errors.NotValidf("image of %dx%d pixels", cfg.Width, cfg.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewNotValid(err, "image")
	}
	return img, nil
}

// PrepareProductImage decodes an upload, scales it down to MaxImageWidth
// when wider and re-encodes it as JPEG.
func PrepareProductImage(data []byte) ([]byte, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	if img.Bounds().Dx() > MaxImageWidth {
		img = resize.Resize(MaxImageWidth, 0, img, resize.Lanczos3)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, errors.Annotate(err, "encode jpeg")
	}
	return buf.Bytes(), nil
}
