package main

import (
	"fmt"
	"math"
)

// DragMode identifies which part of the crop rectangle a pointer drag
// grabbed: the body, or one of the four corner handles.
type DragMode string

const (
	DragMove      DragMode = "move"
	DragNorthWest DragMode = "nw"
	DragNorthEast DragMode = "ne"
	DragSouthWest DragMode = "sw"
	DragSouthEast DragMode = "se"
)

// ParseDragMode validates a mode string coming from the UI.
func ParseDragMode(s string) (DragMode, error) {
	switch m := DragMode(s); m {
	case DragMove, DragNorthWest, DragNorthEast, DragSouthWest, DragSouthEast:
		return m, nil
	}
	return "", fmt.Errorf("unknown drag mode %q", s)
}

// DisplayScale converts between on-screen pixels and source-image pixels:
// the image is fit into the container and never shown above 1:1.
func DisplayScale(containerWidth, containerHeight int, image Dimensions) float64 {
	if image.Width <= 0 || image.Height <= 0 {
		return 1
	}
	scale := math.Min(
		float64(containerWidth)/float64(image.Width),
		float64(containerHeight)/float64(image.Height),
	)
	if scale > 1 || scale <= 0 {
		return 1
	}
	return scale
}

// ResizeCrop recomputes crop geometry from the drag-start snapshot and the
// cumulative pointer delta (already converted to image pixels). It never
// reads the previous frame's output, so per-frame rounding cannot
// accumulate across a drag.
//
// ratio > 0 locks the aspect ratio; bounds are the source image dimensions.
// Constraints resolve in a fixed order: raw geometry, minimum size, then
// each image edge in sequence. The order is load-bearing near tiny images
// and must not be reordered.
func ResizeCrop(snapshot Rect, dx, dy float64, mode DragMode, ratio float64, bounds Dimensions) Rect {
	if mode == DragMove {
		return moveCrop(snapshot, dx, dy, bounds)
	}

	movesLeft := mode == DragNorthWest || mode == DragSouthWest
	movesTop := mode == DragNorthWest || mode == DragNorthEast

	x, y := snapshot.X, snapshot.Y
	var w, h float64

	if ratio > 0 {
		// One degree of freedom: collapse the two pointer deltas into a
		// single diagonal delta (their average, signed toward growth for
		// this corner), then derive the other axis from the ratio.
		var d float64
		switch mode {
		case DragNorthWest:
			d = -(dx + dy) / 2
		case DragNorthEast:
			d = (dx - dy) / 2
		case DragSouthWest:
			d = (dy - dx) / 2
		case DragSouthEast:
			d = (dx + dy) / 2
		}
		w = snapshot.Width + d
		h = w / ratio
		// Keep the opposite corner anchored.
		if movesLeft {
			x = snapshot.X + snapshot.Width - w
		}
		if movesTop {
			y = snapshot.Y + snapshot.Height - h
		}
	} else {
		// Free form: each corner moves only its two adjacent edges.
		switch mode {
		case DragNorthWest:
			x = snapshot.X + dx
			y = snapshot.Y + dy
			w = snapshot.Width - dx
			h = snapshot.Height - dy
		case DragNorthEast:
			y = snapshot.Y + dy
			w = snapshot.Width + dx
			h = snapshot.Height - dy
		case DragSouthWest:
			x = snapshot.X + dx
			w = snapshot.Width - dx
			h = snapshot.Height + dy
		case DragSouthEast:
			w = snapshot.Width + dx
			h = snapshot.Height + dy
		}
	}

	// Minimum size. Pinning an axis repositions the moved edge so the
	// anchored corner stays put; under a ratio lock the other axis is
	// re-derived and re-anchored the same way.
	if w < MinCropSize {
		if movesLeft {
			x = snapshot.X + snapshot.Width - MinCropSize
		}
		w = MinCropSize
		if ratio > 0 {
			h = w / ratio
			if movesTop {
				y = snapshot.Y + snapshot.Height - h
			}
		}
	}
	if h < MinCropSize {
		if movesTop {
			y = snapshot.Y + snapshot.Height - MinCropSize
		}
		h = MinCropSize
		if ratio > 0 {
			w = h * ratio
			if movesLeft {
				x = snapshot.X + snapshot.Width - w
			}
		}
	}

	// Image-boundary containment, one edge at a time. Overflow on the
	// left/top is absorbed into the size; on the right/bottom the size is
	// trimmed. Each fix can feed the next on pathologically small images.
	imgW, imgH := float64(bounds.Width), float64(bounds.Height)
	if x < 0 {
		w += x
		x = 0
		if ratio > 0 {
			h = w / ratio
		}
	}
	if y < 0 {
		h += y
		y = 0
		if ratio > 0 {
			w = h * ratio
		}
	}
	if x+w > imgW {
		w = imgW - x
		if ratio > 0 {
			h = w / ratio
		}
	}
	if y+h > imgH {
		h = imgH - y
		if ratio > 0 {
			w = h * ratio
		}
	}

	out := Rect{X: x, Y: y, Width: w, Height: h}.Round()
	if out.Width < MinCropSize {
		out.Width = MinCropSize
	}
	if out.Height < MinCropSize {
		out.Height = MinCropSize
	}
	return out
}

// moveCrop translates the rectangle without changing its size, clamping
// each axis to the image bounds independently.
func moveCrop(snapshot Rect, dx, dy float64, bounds Dimensions) Rect {
	return Rect{
		X:      clamp(snapshot.X+dx, 0, float64(bounds.Width)-snapshot.Width),
		Y:      clamp(snapshot.Y+dy, 0, float64(bounds.Height)-snapshot.Height),
		Width:  snapshot.Width,
		Height: snapshot.Height,
	}
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
