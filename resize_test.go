package main

import "testing"

func TestResizeCrop_Move(t *testing.T) {
	bounds := Dimensions{Width: 1000, Height: 1000}
	tests := []struct {
		name     string
		snapshot Rect
		dx, dy   float64
		want     Rect
	}{
		{
			name:     "within bounds",
			snapshot: Rect{X: 100, Y: 100, Width: 200, Height: 200},
			dx:       50, dy: 30,
			want: Rect{X: 150, Y: 130, Width: 200, Height: 200},
		},
		{
			name:     "clamped at origin",
			snapshot: Rect{X: 0, Y: 0, Width: 200, Height: 200},
			dx:       -50, dy: -50,
			want: Rect{X: 0, Y: 0, Width: 200, Height: 200},
		},
		{
			name:     "clamped at far edge",
			snapshot: Rect{X: 700, Y: 700, Width: 200, Height: 200},
			dx:       200, dy: 200,
			want: Rect{X: 800, Y: 800, Width: 200, Height: 200},
		},
		{
			name:     "fractional position preserved",
			snapshot: Rect{X: 100, Y: 100, Width: 200, Height: 200},
			dx:       10.5, dy: 0,
			want: Rect{X: 110.5, Y: 100, Width: 200, Height: 200},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ResizeCrop(tc.snapshot, tc.dx, tc.dy, DragMove, 0, bounds)
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestResizeCrop_FreeForm(t *testing.T) {
	bounds := Dimensions{Width: 1000, Height: 1000}
	tests := []struct {
		name     string
		snapshot Rect
		dx, dy   float64
		mode     DragMode
		want     Rect
	}{
		{
			name:     "se grows",
			snapshot: Rect{X: 100, Y: 100, Width: 200, Height: 200},
			dx:       50, dy: 20, mode: DragSouthEast,
			want: Rect{X: 100, Y: 100, Width: 250, Height: 220},
		},
		{
			name:     "nw shrinks from top left",
			snapshot: Rect{X: 100, Y: 100, Width: 200, Height: 200},
			dx:       30, dy: 40, mode: DragNorthWest,
			want: Rect{X: 130, Y: 140, Width: 170, Height: 160},
		},
		{
			name:     "ne moves top and right edges",
			snapshot: Rect{X: 100, Y: 100, Width: 200, Height: 200},
			dx:       50, dy: -30, mode: DragNorthEast,
			want: Rect{X: 100, Y: 70, Width: 250, Height: 230},
		},
		{
			name:     "sw moves left and bottom edges",
			snapshot: Rect{X: 100, Y: 100, Width: 200, Height: 200},
			dx:       -20, dy: 30, mode: DragSouthWest,
			want: Rect{X: 80, Y: 100, Width: 220, Height: 230},
		},
		{
			name:     "result is rounded",
			snapshot: Rect{X: 100, Y: 100, Width: 200, Height: 200},
			dx:       10.4, dy: 0.6, mode: DragSouthEast,
			want: Rect{X: 100, Y: 100, Width: 210, Height: 201},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ResizeCrop(tc.snapshot, tc.dx, tc.dy, tc.mode, 0, bounds)
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestResizeCrop_MinimumSize(t *testing.T) {
	bounds := Dimensions{Width: 1000, Height: 1000}

	// Collapsing the width from the right pins it at the minimum without
	// moving the rectangle.
	got := ResizeCrop(Rect{X: 100, Y: 100, Width: 200, Height: 200}, -195, 0, DragSouthEast, 0, bounds)
	want := Rect{X: 100, Y: 100, Width: 16, Height: 200}
	if got != want {
		t.Fatalf("se: expected %v, got %v", want, got)
	}

	// Collapsing from the left repositions x so the right edge stays put.
	got = ResizeCrop(Rect{X: 100, Y: 100, Width: 200, Height: 200}, 195, 0, DragNorthWest, 0, bounds)
	want = Rect{X: 284, Y: 100, Width: 16, Height: 200}
	if got != want {
		t.Fatalf("nw: expected %v, got %v", want, got)
	}

	// Under a ratio lock both axes floor together.
	got = ResizeCrop(Rect{X: 100, Y: 100, Width: 100, Height: 100}, -200, 0, DragSouthEast, 1, bounds)
	want = Rect{X: 100, Y: 100, Width: 16, Height: 16}
	if got != want {
		t.Fatalf("ratio: expected %v, got %v", want, got)
	}
}

func TestResizeCrop_AspectLocked(t *testing.T) {
	bounds := Dimensions{Width: 1000, Height: 1000}

	// The two pointer deltas collapse into one diagonal delta; the height
	// follows the width through the ratio.
	got := ResizeCrop(Rect{X: 100, Y: 100, Width: 200, Height: 100}, 100, 0, DragSouthEast, 2, bounds)
	want := Rect{X: 100, Y: 100, Width: 250, Height: 125}
	if got != want {
		t.Fatalf("se: expected %v, got %v", want, got)
	}

	// Growing from the nw corner keeps the opposite corner anchored.
	got = ResizeCrop(Rect{X: 200, Y: 200, Width: 100, Height: 100}, -40, -20, DragNorthWest, 1, bounds)
	want = Rect{X: 170, Y: 170, Width: 130, Height: 130}
	if got != want {
		t.Fatalf("nw: expected %v, got %v", want, got)
	}
	if got.X+got.Width != 300 || got.Y+got.Height != 300 {
		t.Fatalf("nw: opposite corner moved: %v", got)
	}
}

func TestResizeCrop_Boundaries(t *testing.T) {
	bounds := Dimensions{Width: 400, Height: 400}

	// Right edge trims the width.
	got := ResizeCrop(Rect{X: 100, Y: 100, Width: 200, Height: 200}, 200, 0, DragSouthEast, 0, bounds)
	want := Rect{X: 100, Y: 100, Width: 300, Height: 200}
	if got != want {
		t.Fatalf("right: expected %v, got %v", want, got)
	}

	// Left overflow is absorbed into the width.
	got = ResizeCrop(Rect{X: 50, Y: 50, Width: 100, Height: 100}, -80, 0, DragNorthWest, 0, bounds)
	want = Rect{X: 0, Y: 50, Width: 150, Height: 100}
	if got != want {
		t.Fatalf("left: expected %v, got %v", want, got)
	}

	// A ratio-locked rect clamped at one edge re-derives the other axis.
	got = ResizeCrop(Rect{X: 100, Y: 100, Width: 200, Height: 200}, 300, 300, DragSouthEast, 1, bounds)
	want = Rect{X: 100, Y: 100, Width: 300, Height: 300}
	if got != want {
		t.Fatalf("ratio right: expected %v, got %v", want, got)
	}

	// Edge clamps resolve in sequence: the bottom clamp here shrinks the
	// height and the ratio pulls the width down with it.
	got = ResizeCrop(Rect{X: 50, Y: 50, Width: 100, Height: 100}, 500, 0, DragSouthEast, 1, Dimensions{Width: 400, Height: 300})
	want = Rect{X: 50, Y: 50, Width: 250, Height: 250}
	if got != want {
		t.Fatalf("sequential: expected %v, got %v", want, got)
	}
}

func TestDisplayScale(t *testing.T) {
	if s := DisplayScale(500, 500, Dimensions{Width: 1000, Height: 1000}); s != 0.5 {
		t.Fatalf("expected 0.5, got %v", s)
	}
	// Never above 1:1 even in a larger container.
	if s := DisplayScale(2000, 2000, Dimensions{Width: 1000, Height: 1000}); s != 1 {
		t.Fatalf("expected 1, got %v", s)
	}
	// The tighter axis wins.
	if s := DisplayScale(500, 250, Dimensions{Width: 1000, Height: 1000}); s != 0.25 {
		t.Fatalf("expected 0.25, got %v", s)
	}
	if s := DisplayScale(500, 500, Dimensions{}); s != 1 {
		t.Fatalf("degenerate image: expected 1, got %v", s)
	}
}

func TestParseDragMode(t *testing.T) {
	for _, s := range []string{"move", "nw", "ne", "sw", "se"} {
		mode, err := ParseDragMode(s)
		if err != nil || string(mode) != s {
			t.Errorf("ParseDragMode(%q): got %q err=%v", s, mode, err)
		}
	}
	if _, err := ParseDragMode("north"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
