package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MinCropSize is the smallest width or height a crop rectangle may have,
// in source-image pixels.
const MinCropSize = 16

// Dimensions is a width/height pair in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect is a crop rectangle in source-image pixel space. Coordinates stay
// sub-pixel while a drag is in progress and are rounded when committed.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"w"`
	Height float64 `json:"h"`
}

func (r Rect) String() string {
	return fmt.Sprintf("rect(x=%.2f,y=%.2f,w=%.2f,h=%.2f)", r.X, r.Y, r.Width, r.Height)
}

// Round returns the rectangle with every field rounded to the nearest integer.
func (r Rect) Round() Rect {
	return Rect{
		X:      math.Round(r.X),
		Y:      math.Round(r.Y),
		Width:  math.Round(r.Width),
		Height: math.Round(r.Height),
	}
}

// ComputeOutputDimensions maps source dimensions to output dimensions under
// optional maximum-width/height constraints. A constraint ≤ 0 means
// unconstrained. Aspect ratio is preserved and the result never exceeds the
// source size: requesting a maximum larger than the source returns the
// source unchanged rather than an upscaled image.
func ComputeOutputDimensions(srcWidth, srcHeight, maxWidth, maxHeight int) Dimensions {
	// Zero-area output would break every consumer downstream, so degenerate
	// sources collapse to a 1x1 floor.
	if srcWidth <= 0 || srcHeight <= 0 {
		return Dimensions{Width: 1, Height: 1}
	}

	var scale float64
	switch {
	case maxWidth <= 0 && maxHeight <= 0:
		return Dimensions{Width: srcWidth, Height: srcHeight}
	case maxHeight <= 0:
		scale = float64(maxWidth) / float64(srcWidth)
	case maxWidth <= 0:
		scale = float64(maxHeight) / float64(srcHeight)
	default:
		scale = math.Min(float64(maxWidth)/float64(srcWidth), float64(maxHeight)/float64(srcHeight))
	}
	if scale > 1 {
		scale = 1
	}

	return Dimensions{
		Width:  roundDimension(float64(srcWidth) * scale),
		Height: roundDimension(float64(srcHeight) * scale),
	}
}

// roundDimension rounds each axis independently; a result of 0 is clamped
// to 1. The one-pixel aspect drift this can introduce is accepted.
func roundDimension(v float64) int {
	n := int(math.Round(v))
	if n < 1 {
		n = 1
	}
	return n
}

// RatioOption is a named aspect ratio. A Value of 0 means free-form.
type RatioOption struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// AspectRatios is the fixed catalog offered by the UI, in display order.
var AspectRatios = []RatioOption{
	{Label: "Free", Value: 0},
	{Label: "1:1", Value: 1},
	{Label: "4:3", Value: 4.0 / 3.0},
	{Label: "3:2", Value: 3.0 / 2.0},
	{Label: "16:9", Value: 16.0 / 9.0},
	{Label: "9:16", Value: 9.0 / 16.0},
	{Label: "3:4", Value: 3.0 / 4.0},
	{Label: "2:3", Value: 2.0 / 3.0},
}

// ratioEpsilon tolerates the float drift between a catalog value and a
// ratio reconstructed from division or serialized state.
const ratioEpsilon = 0.001

// RatioLabel finds the catalog label for a numeric ratio. Ratios are
// division results, so the match is epsilon-tolerant rather than exact.
func RatioLabel(value float64) (string, bool) {
	for _, opt := range AspectRatios {
		if opt.Value == 0 {
			if value == 0 {
				return opt.Label, true
			}
			continue
		}
		if math.Abs(opt.Value-value) < ratioEpsilon {
			return opt.Label, true
		}
	}
	return "", false
}

// ParseRatio parses a "W:H" string such as "16:9" into a ratio value.
// An empty string or "free" yields 0.
func ParseRatio(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "free") {
		return 0, nil
	}
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid aspect ratio %q, expected W:H", s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, fmt.Errorf("invalid aspect ratio %q: %w", s, err)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, fmt.Errorf("invalid aspect ratio %q: %w", s, err)
	}
	if w <= 0 || h <= 0 {
		return 0, fmt.Errorf("invalid aspect ratio %q: terms must be positive", s)
	}
	return float64(w) / float64(h), nil
}

// InitialCropOptions selects how the starting crop rectangle is seeded.
// A fixed size wins over an aspect ratio; with neither the crop is a free
// 80% box.
type InitialCropOptions struct {
	FixedWidth  int     `json:"fixed_width,omitempty"`
	FixedHeight int     `json:"fixed_height,omitempty"`
	Ratio       float64 `json:"ratio,omitempty"`
}

// InitialCrop computes the centered starting crop rectangle for an image.
func InitialCrop(imageWidth, imageHeight int, opts InitialCropOptions) Rect {
	var w, h float64
	switch {
	case opts.FixedWidth > 0 && opts.FixedHeight > 0:
		// A fixed request larger than the image is limited to the image.
		w = float64(min(opts.FixedWidth, imageWidth))
		h = float64(min(opts.FixedHeight, imageHeight))
	case opts.Ratio > 0:
		// Largest rectangle with the requested ratio inside an 80% box.
		// Width-limited first; if the derived height overflows the box,
		// switch to height-limited.
		w = 0.8 * float64(imageWidth)
		h = w / opts.Ratio
		if h > 0.8*float64(imageHeight) {
			h = 0.8 * float64(imageHeight)
			w = h * opts.Ratio
		}
	default:
		w = 0.8 * float64(imageWidth)
		h = 0.8 * float64(imageHeight)
	}

	w = math.Round(w)
	h = math.Round(h)
	return Rect{
		X:      math.Round((float64(imageWidth) - w) / 2),
		Y:      math.Round((float64(imageHeight) - h) / 2),
		Width:  w,
		Height: h,
	}
}
