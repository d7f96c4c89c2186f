package faces

import (
	"math"
	"testing"
)

func TestIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b PixelBox
		want float64
	}{
		{
			name: "identical boxes",
			a:    PixelBox{X: 10, Y: 10, Width: 100, Height: 100},
			b:    PixelBox{X: 10, Y: 10, Width: 100, Height: 100},
			want: 1.0,
		},
		{
			name: "disjoint boxes",
			a:    PixelBox{X: 0, Y: 0, Width: 50, Height: 50},
			b:    PixelBox{X: 100, Y: 100, Width: 50, Height: 50},
			want: 0.0,
		},
		{
			name: "touching edges",
			a:    PixelBox{X: 0, Y: 0, Width: 50, Height: 50},
			b:    PixelBox{X: 50, Y: 0, Width: 50, Height: 50},
			want: 0.0,
		},
		{
			name: "half horizontal overlap",
			a:    PixelBox{X: 0, Y: 0, Width: 100, Height: 100},
			b:    PixelBox{X: 50, Y: 0, Width: 100, Height: 100},
			want: 50.0 * 100 / (100.0*100*2 - 50*100), // 1/3
		},
		{
			name: "contained box",
			a:    PixelBox{X: 0, Y: 0, Width: 100, Height: 100},
			b:    PixelBox{X: 25, Y: 25, Width: 50, Height: 50},
			want: 2500.0 / 10000.0,
		},
		{
			name: "zero size box",
			a:    PixelBox{X: 10, Y: 10, Width: 0, Height: 0},
			b:    PixelBox{X: 0, Y: 0, Width: 100, Height: 100},
			want: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IoU(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("IoU() = %v, want %v", got, tt.want)
			}
			// IoU must be symmetric
			if rev := IoU(tt.b, tt.a); math.Abs(rev-got) > 1e-9 {
				t.Errorf("IoU not symmetric: %v vs %v", got, rev)
			}
		})
	}
}

func TestSuppressOverlapping(t *testing.T) {
	t.Run("larger box survives", func(t *testing.T) {
		large := PixelBox{X: 0, Y: 0, Width: 100, Height: 100}
		small := PixelBox{X: 10, Y: 10, Width: 80, Height: 80} // IoU 0.64 with large

		// Input order must not matter: the small near-duplicate goes either way.
		for _, boxes := range [][]PixelBox{{small, large}, {large, small}} {
			kept := SuppressOverlapping(boxes, 0.3)
			if len(kept) != 1 {
				t.Fatalf("expected 1 box kept, got %d", len(kept))
			}
			if kept[0] != large {
				t.Errorf("expected the larger box to survive, got %+v", kept[0])
			}
		}
	})

	t.Run("disjoint boxes all kept", func(t *testing.T) {
		boxes := []PixelBox{
			{X: 0, Y: 0, Width: 50, Height: 50},
			{X: 100, Y: 0, Width: 50, Height: 50},
			{X: 0, Y: 100, Width: 50, Height: 50},
		}
		kept := SuppressOverlapping(boxes, 0.3)
		if len(kept) != 3 {
			t.Errorf("expected 3 boxes kept, got %d", len(kept))
		}
	})

	t.Run("overlap at threshold is kept", func(t *testing.T) {
		// IoU of exactly the threshold must not suppress; only strictly
		// greater overlap does.
		a := PixelBox{X: 0, Y: 0, Width: 100, Height: 100}
		b := PixelBox{X: 50, Y: 0, Width: 100, Height: 100} // IoU 1/3
		kept := SuppressOverlapping([]PixelBox{a, b}, 1.0/3.0)
		if len(kept) != 2 {
			t.Errorf("expected 2 boxes kept at exact threshold, got %d", len(kept))
		}
	})

	t.Run("empty input", func(t *testing.T) {
		kept := SuppressOverlapping(nil, 0.3)
		if len(kept) != 0 {
			t.Errorf("expected no boxes, got %d", len(kept))
		}
	})

	t.Run("input slice not mutated", func(t *testing.T) {
		boxes := []PixelBox{
			{X: 0, Y: 0, Width: 10, Height: 10},
			{X: 0, Y: 0, Width: 100, Height: 100},
		}
		first := boxes[0]
		SuppressOverlapping(boxes, 0.3)
		if boxes[0] != first {
			t.Error("input slice was reordered")
		}
	})
}

func TestNormalize(t *testing.T) {
	t.Run("basic conversion", func(t *testing.T) {
		b := PixelBox{X: 100, Y: 200, Width: 300, Height: 400}
		nb := b.Normalize(1000, 800)
		if nb.X != 0.1 || nb.Y != 0.25 || nb.Width != 0.3 || nb.Height != 0.5 {
			t.Errorf("unexpected normalized box %+v", nb)
		}
	})

	t.Run("clamped to page", func(t *testing.T) {
		b := PixelBox{X: 900, Y: -50, Width: 300, Height: 400}
		nb := b.Normalize(1000, 800)
		if nb.X < 0 || nb.Y < 0 || nb.X+nb.Width > 1 || nb.Y+nb.Height > 1 {
			t.Errorf("normalized box %+v exceeds [0,1]", nb)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		b := PixelBox{X: 120, Y: 80, Width: 240, Height: 240}
		back := Denormalize(b.Normalize(1200, 800), 1200, 800)
		if math.Abs(back.X-b.X) > 1e-9 || math.Abs(back.Width-b.Width) > 1e-9 {
			t.Errorf("round trip changed box: %+v -> %+v", b, back)
		}
	})
}
