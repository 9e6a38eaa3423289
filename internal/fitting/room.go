// Package fitting renders the virtual fitting-room preview: the buyer's
// photo with a product image laid over the upper body.
package fitting

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/juju/errors"
	"github.com/nfnt/resize"
)

const (
	DefaultWidth  = 400
	DefaultHeight = 500

	garmentWidth  = 150
	garmentHeight = 200
	garmentTop    = 100
	garmentAlpha  = 0.8

	MinSizePercent = 50
	MaxSizePercent = 150
	MaxOffset      = 100
)

var (
	background = color.RGBA{R: 0xf3, G: 0xf4, B: 0xf6, A: 0xff}
	guideColor = color.RGBA{R: 0x16, G: 0xa3, B: 0x4a, A: 0xff}
)

// Adjust is the buyer's manual placement of the garment.
type Adjust struct {
	SizePercent int // 100 is the natural garment size
	Offset      int // horizontal shift in pixels, positive is right
}

func (a Adjust) normalized() Adjust {
	if a.SizePercent == 0 {
		a.SizePercent = 100
	}
	a.SizePercent = min(max(a.SizePercent, MinSizePercent), MaxSizePercent)
	a.Offset = min(max(a.Offset, -MaxOffset), MaxOffset)
	return a
}

type Room struct {
	Width, Height int
	Assistant     Assistant
}

func NewRoom(a Assistant) *Room {
	if a == nil {
		a = NoAssistant{}
	}
	return &Room{Width: DefaultWidth, Height: DefaultHeight, Assistant: a}
}

// Compose draws photo centered on the canvas and, when garment is not nil,
// overlays it. An assistant fit with positive confidence replaces the
// manual overlay.
func (r *Room) Compose(ctx context.Context, photo, garment image.Image, adj Adjust) (*image.RGBA, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: background}, image.Point{}, draw.Src)
	if photo == nil {
		return canvas, nil
	}
	drawCentered(canvas, photo)
	if garment == nil {
		return canvas, nil
	}

	body, err := r.Assistant.DetectBody(ctx, photo)
	if err != nil {
		return nil, errors.Annotate(err, "detect body")
	}
	fit, err := r.Assistant.ApplyFit(ctx, garment, photo, body)
	if err != nil {
		return nil, errors.Annotate(err, "apply fit")
	}
	if fit.Image != nil && fit.Confidence > 0 {
		drawCentered(canvas, fit.Image)
		return canvas, nil
	}
	garment, err = r.Assistant.ResizeClothes(ctx, garment, body)
	if err != nil {
		return nil, errors.Annotate(err, "resize clothes")
	}

	adj = adj.normalized()
	w := garmentWidth * adj.SizePercent / 100
	h := garmentHeight * adj.SizePercent / 100
	x := (r.Width-w)/2 + adj.Offset
	rect := image.Rect(x, garmentTop, x+w, garmentTop+h)

	scaled := resize.Resize(uint(w), uint(h), garment, resize.Lanczos3)
	mask := image.NewUniform(color.Alpha{A: uint8(garmentAlpha * 255)})
	draw.DrawMask(canvas, rect, scaled, scaled.Bounds().Min, mask, image.Point{}, draw.Over)
	drawGuides(canvas, rect)
	return canvas, nil
}

// Analyze runs the assistant's colour analysis and style advice on photo.
func (r *Room) Analyze(ctx context.Context, photo image.Image, prefs map[string]string) (ColorAnalysis, StyleAdvice, error) {
	colors, err := r.Assistant.AnalyzeColors(ctx, photo)
	if err != nil {
		return ColorAnalysis{}, StyleAdvice{}, errors.Annotate(err, "analyze colors")
	}
	body, err := r.Assistant.DetectBody(ctx, photo)
	if err != nil {
		return ColorAnalysis{}, StyleAdvice{}, errors.Annotate(err, "detect body")
	}
	bodyType := ""
	if body.Box != nil {
		bodyType = "detected"
	}
	advice, err := r.Assistant.StyleRecommendations(ctx, prefs, bodyType)
	if err != nil {
		return ColorAnalysis{}, StyleAdvice{}, errors.Annotate(err, "style recommendations")
	}
	return colors, advice, nil
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Trace(err)
	}
	return buf.Bytes(), nil
}

// drawCentered scales img to fit the canvas, keeping its aspect ratio.
func drawCentered(dst *image.RGBA, img image.Image) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return
	}
	cw, ch := dst.Bounds().Dx(), dst.Bounds().Dy()
	scale := min(float64(cw)/float64(b.Dx()), float64(ch)/float64(b.Dy()))
	w := max(int(float64(b.Dx())*scale), 1)
	h := max(int(float64(b.Dy())*scale), 1)
	scaled := resize.Resize(uint(w), uint(h), img, resize.Lanczos3)
	x := (cw - w) / 2
	y := (ch - h) / 2
	draw.Draw(dst, image.Rect(x, y, x+w, y+h), scaled, scaled.Bounds().Min, draw.Over)
}

// drawGuides strokes a dashed border and center cross, 2px wide with
// 5px dashes.
func drawGuides(dst *image.RGBA, r image.Rectangle) {
	cx := r.Min.X + r.Dx()/2
	cy := r.Min.Y + r.Dy()/2
	hline(dst, r.Min.X, r.Max.X, r.Min.Y)
	hline(dst, r.Min.X, r.Max.X, r.Max.Y-2)
	hline(dst, r.Min.X, r.Max.X, cy)
	vline(dst, r.Min.Y, r.Max.Y, r.Min.X)
	vline(dst, r.Min.Y, r.Max.Y, r.Max.X-2)
	vline(dst, r.Min.Y, r.Max.Y, cx)
}

func dashOn(i int) bool { return (i/5)%2 == 0 }

func hline(dst *image.RGBA, x0, x1, y int) {
	for x := x0; x < x1; x++ {
		if dashOn(x - x0) {
			for t := 0; t < 2; t++ {
				dst.Set(x, y+t, guideColor)
			}
		}
	}
}

func vline(dst *image.RGBA, y0, y1, x int) {
	for y := y0; y < y1; y++ {
		if dashOn(y - y0) {
			for t := 0; t < 2; t++ {
				dst.Set(x+t, y, guideColor)
			}
		}
	}
}
