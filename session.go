package main

import "math"

// CropSessionConfig seeds a new editing session. OnConfirm and OnCancel
// mirror the host callbacks: exactly one of them fires, once, when the
// session ends.
type CropSessionConfig struct {
	Ratio       float64
	FixedWidth  int
	FixedHeight int
	OnConfirm   func(Rect)
	OnCancel    func()
}

// CropSession owns the one rectangle being edited. It is single-writer by
// construction: a drag must end before another can begin, matching the
// exclusivity pointer capture gives the host.
type CropSession struct {
	image  Dimensions
	scale  float64
	ratio  float64
	rect   Rect
	drag   *dragState
	config CropSessionConfig
}

// dragState is the frozen drag-start snapshot. Every pointer move
// recomputes from it, never from the previous frame's output.
type dragState struct {
	mode           DragMode
	startX, startY float64
	snapshot       Rect
}

// NewCropSession starts a session over an image, seeding the rectangle
// with the initial placement rules.
func NewCropSession(image Dimensions, config CropSessionConfig) *CropSession {
	return &CropSession{
		image:  image,
		scale:  1,
		ratio:  config.Ratio,
		config: config,
		rect: InitialCrop(image.Width, image.Height, InitialCropOptions{
			FixedWidth:  config.FixedWidth,
			FixedHeight: config.FixedHeight,
			Ratio:       config.Ratio,
		}),
	}
}

// SetViewport records the on-screen size of the image container so pointer
// deltas can be converted into image pixels.
func (s *CropSession) SetViewport(containerWidth, containerHeight int) {
	s.scale = DisplayScale(containerWidth, containerHeight, s.image)
}

// Rect returns the rectangle as currently edited.
func (s *CropSession) Rect() Rect { return s.rect }

// Ratio returns the active aspect-ratio lock, 0 for free form.
func (s *CropSession) Ratio() float64 { return s.ratio }

// Dragging reports whether a drag is in progress.
func (s *CropSession) Dragging() bool { return s.drag != nil }

// Begin starts a drag at the given screen coordinates. A second
// pointer-down while a drag is active is ignored.
func (s *CropSession) Begin(mode DragMode, screenX, screenY float64) {
	if s.drag != nil {
		return
	}
	s.drag = &dragState{
		mode:     mode,
		startX:   screenX,
		startY:   screenY,
		snapshot: s.rect,
	}
}

// Move recomputes the rectangle for the current pointer position. A move
// with no active drag is a no-op.
func (s *CropSession) Move(screenX, screenY float64) {
	if s.drag == nil {
		return
	}
	dx := (screenX - s.drag.startX) / s.scale
	dy := (screenY - s.drag.startY) / s.scale
	s.rect = ResizeCrop(s.drag.snapshot, dx, dy, s.drag.mode, s.ratio, s.image)
}

// End finishes the active drag, keeping the rectangle where it is.
func (s *CropSession) End() {
	s.drag = nil
}

// SelectRatio switches the aspect-ratio lock and reseeds the rectangle
// with a fresh initial placement. The ratio is immutable while a drag is
// in progress, so a mid-drag selection is ignored.
func (s *CropSession) SelectRatio(ratio float64) {
	if s.drag != nil {
		return
	}
	s.ratio = ratio
	s.rect = InitialCrop(s.image.Width, s.image.Height, InitialCropOptions{Ratio: ratio})
}

// Confirm commits the rectangle: ends any drag, rounds to integers,
// re-clamps into the image, and fires OnConfirm.
func (s *CropSession) Confirm() Rect {
	s.End()
	r := s.rect.Round()

	// Rounding can push an edge a pixel past the image; pull it back in.
	imgW, imgH := float64(s.image.Width), float64(s.image.Height)
	r.Width = math.Min(r.Width, imgW)
	r.Height = math.Min(r.Height, imgH)
	r.X = clamp(r.X, 0, imgW-r.Width)
	r.Y = clamp(r.Y, 0, imgH-r.Height)

	s.rect = r
	if fn := s.config.OnConfirm; fn != nil {
		fn(r)
	}
	return r
}

// Cancel discards the session without emitting a rectangle.
func (s *CropSession) Cancel() {
	s.End()
	if fn := s.config.OnCancel; fn != nil {
		fn()
	}
}
