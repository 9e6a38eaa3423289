package fitting

import (
	"context"
	"image"
)

// Body is what a body detector found on a photo.
type Body struct {
	Points []image.Point    `json:"points"`
	Box    *image.Rectangle `json:"box,omitempty"`
}

// Fit is the outcome of applying a garment to a photo. A nil Image means
// the assistant produced nothing usable.
type Fit struct {
	Image      image.Image
	Confidence float64
}

type ColorAnalysis struct {
	Dominant        []string `json:"dominantColors"`
	SkinTone        string   `json:"skinTone,omitempty"`
	Recommendations []string `json:"recommendations"`
}

type StyleAdvice struct {
	Recommendations []string `json:"recommendations"`
	Confidence      float64  `json:"confidence"`
}

// Assistant is the boundary to an external vision service. The room works
// with every method returning empty results.
type Assistant interface {
	DetectBody(ctx context.Context, photo image.Image) (Body, error)
	ResizeClothes(ctx context.Context, garment image.Image, body Body) (image.Image, error)
	ApplyFit(ctx context.Context, garment, photo image.Image, body Body) (Fit, error)
	AnalyzeColors(ctx context.Context, photo image.Image) (ColorAnalysis, error)
	StyleRecommendations(ctx context.Context, prefs map[string]string, bodyType string) (StyleAdvice, error)
}

// NoAssistant is the default Assistant: it detects nothing and leaves the
// garment untouched.
type NoAssistant struct{}

func (NoAssistant) DetectBody(context.Context, image.Image) (Body, error) {
	return Body{Points: []image.Point{}}, nil
}

func (NoAssistant) ResizeClothes(_ context.Context, garment image.Image, _ Body) (image.Image, error) {
	return garment, nil
}

func (NoAssistant) ApplyFit(context.Context, image.Image, image.Image, Body) (Fit, error) {
	return Fit{}, nil
}

func (NoAssistant) AnalyzeColors(context.Context, image.Image) (ColorAnalysis, error) {
	return ColorAnalysis{Dominant: []string{}, Recommendations: []string{}}, nil
}

func (NoAssistant) StyleRecommendations(context.Context, map[string]string, string) (StyleAdvice, error) {
	return StyleAdvice{Recommendations: []string{}}, nil
}
