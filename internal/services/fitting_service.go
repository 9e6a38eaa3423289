package services

import (
	"context"
	"image"

	"github.com/juju/errors"

	"marketplacetg/internal/fitting"
	"marketplacetg/internal/log"
	"marketplacetg/internal/repos"
	"marketplacetg/internal/storage"
	"marketplacetg/internal/validate"
)

type FittingService struct {
	Prods *repos.ProductRepo
	Blobs storage.Store
	Room  *fitting.Room
}

// Analysis is the assistant's advice on a photo.
type Analysis struct {
	Colors fitting.ColorAnalysis `json:"colors"`
	Style  fitting.StyleAdvice   `json:"style"`
}

func decodePhoto(photo []byte) (image.Image, error) {
	if len(photo) == 0 {
		return nil, errors.NotValidf("empty photo")
	}
	if len(photo) > validate.MaxImageBytes {
		return nil, errors.NotValidf("photo larger than 5MB")
	}
	return storage.DecodeImage(photo)
}

// garment loads the product photo. Products without a stored photo, or
// whose photo cannot be read, are tried on without an overlay.
func (s *FittingService) garment(ctx context.Context, productID, imageURL string) image.Image {
	key, ok := s.Blobs.KeyFor(imageURL)
	if !ok {
		return nil
	}
	data, err := s.Blobs.Get(ctx, key)
	if err != nil {
		log.Error(nil, "fitting.garment.load", err, map[string]any{"product_id": productID})
		return nil
	}
	img, err := storage.DecodeImage(data)
	if err != nil {
		log.Error(nil, "fitting.garment.decode", err, map[string]any{"product_id": productID})
		return nil
	}
	return img
}

// TryOn renders the buyer's photo wearing the product and returns a PNG.
func (s *FittingService) TryOn(ctx context.Context, productID string, photo []byte, adj fitting.Adjust) ([]byte, error) {
	p, err := s.Prods.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, errors.NotFoundf("product %q", productID)
	}
	img, err := decodePhoto(photo)
	if err != nil {
		return nil, err
	}
	out, err := s.Room.Compose(ctx, img, s.garment(ctx, p.ID, p.ImageURL), adj)
	if err != nil {
		return nil, err
	}
	return fitting.EncodePNG(out)
}

func (s *FittingService) Analyze(ctx context.Context, photo []byte, prefs map[string]string) (Analysis, error) {
	img, err := decodePhoto(photo)
	if err != nil {
		return Analysis{}, err
	}
	colors, style, err := s.Room.Analyze(ctx, img, prefs)
	if err != nil {
		return Analysis{}, err
	}
	return Analysis{Colors: colors, Style: style}, nil
}
