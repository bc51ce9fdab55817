package main

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/muesli/smartcrop"
)

// smartcropResizer implements the smartcrop.Resizer interface on top of
// the imaging library.
type smartcropResizer struct{}

func (smartcropResizer) Resize(img image.Image, width, height uint) image.Image {
	return imaging.Resize(img, int(width), int(height), imaging.Lanczos)
}

// SuggestCrop finds a content-aware crop of the image with the given
// aspect ratio (0 keeps the image's own ratio) and returns it in source
// pixels. The target passed to the analyzer is the largest rectangle with
// that ratio fitting inside the image.
func SuggestCrop(img image.Image, ratio float64) (Rect, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return Rect{}, fmt.Errorf("cannot suggest a crop for an empty image")
	}
	if ratio <= 0 {
		ratio = float64(b.Dx()) / float64(b.Dy())
	}

	w := float64(b.Dx())
	h := w / ratio
	if h > float64(b.Dy()) {
		h = float64(b.Dy())
		w = h * ratio
	}

	analyzer := smartcrop.NewAnalyzer(smartcropResizer{})
	crop, err := analyzer.FindBestCrop(img, int(math.Round(w)), int(math.Round(h)))
	if err != nil {
		return Rect{}, fmt.Errorf("finding best crop: %w", err)
	}

	return Rect{
		X:      float64(crop.Min.X),
		Y:      float64(crop.Min.Y),
		Width:  float64(crop.Dx()),
		Height: float64(crop.Dy()),
	}, nil
}
