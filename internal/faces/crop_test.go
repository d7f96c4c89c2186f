package faces

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func testParams() ThumbnailParams {
	return ThumbnailParams{
		PaddingRatio: 0.20,
		MinFraction:  0.10,
		Size:         256,
	}
}

func TestThumbnailRegion(t *testing.T) {
	const w, h = 1024, 768

	t.Run("centered box gets padded square", func(t *testing.T) {
		box := PixelBox{X: 400, Y: 300, Width: 200, Height: 150}
		r := ThumbnailRegion(box, w, h, testParams())

		if r.Dx() != r.Dy() {
			t.Errorf("region %v is not square", r)
		}
		// Widest padded dimension: 200 * 1.4 = 280.
		if r.Dx() != 280 {
			t.Errorf("expected side 280, got %d", r.Dx())
		}
		// The original box must be fully inside the region.
		inner := image.Rect(400, 300, 600, 450)
		if !inner.In(r) {
			t.Errorf("face box %v not covered by region %v", inner, r)
		}
	})

	t.Run("tiny box enlarged to minimum", func(t *testing.T) {
		box := PixelBox{X: 500, Y: 400, Width: 20, Height: 20}
		r := ThumbnailRegion(box, w, h, testParams())
		// 10% of page width.
		if r.Dx() < 102 {
			t.Errorf("expected side >= 102, got %d", r.Dx())
		}
	})

	t.Run("corner box shifted inside bounds", func(t *testing.T) {
		box := PixelBox{X: 0, Y: 0, Width: 100, Height: 100}
		r := ThumbnailRegion(box, w, h, testParams())
		bounds := image.Rect(0, 0, w, h)
		if !r.In(bounds) {
			t.Errorf("region %v leaves image bounds %v", r, bounds)
		}
		if r.Dx() != r.Dy() {
			t.Errorf("clamped region %v lost squareness", r)
		}
		// Shifting must not shrink the face coverage.
		inner := image.Rect(0, 0, 100, 100)
		if !inner.In(r) {
			t.Errorf("face box %v not covered by shifted region %v", inner, r)
		}
	})

	t.Run("oversized box capped to page", func(t *testing.T) {
		box := PixelBox{X: 0, Y: 0, Width: 2000, Height: 2000}
		r := ThumbnailRegion(box, w, h, testParams())
		if r.Dx() > h || r.Dy() > h {
			t.Errorf("region %v larger than the page allows", r)
		}
		if !r.In(image.Rect(0, 0, w, h)) {
			t.Errorf("region %v leaves image bounds", r)
		}
	})

	t.Run("degenerate image", func(t *testing.T) {
		r := ThumbnailRegion(PixelBox{X: 1, Y: 1, Width: 5, Height: 5}, 0, 0, testParams())
		if !r.Empty() {
			t.Errorf("expected empty region for zero-size image, got %v", r)
		}
	})
}

func encodeTestPage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test page: %v", err)
	}
	return buf.Bytes()
}

func TestRenderThumbnail(t *testing.T) {
	page := encodeTestPage(t, 400, 300)

	t.Run("produces square jpeg", func(t *testing.T) {
		data, err := RenderThumbnail(page, image.Rect(50, 50, 150, 150), 64)
		if err != nil {
			t.Fatalf("RenderThumbnail() error: %v", err)
		}
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("output is not a valid jpeg: %v", err)
		}
		if cfg.Width != 64 || cfg.Height != 64 {
			t.Errorf("expected 64x64 thumbnail, got %dx%d", cfg.Width, cfg.Height)
		}
	})

	t.Run("region outside image", func(t *testing.T) {
		if _, err := RenderThumbnail(page, image.Rect(500, 500, 600, 600), 64); err == nil {
			t.Error("expected error for out-of-bounds region")
		}
	})

	t.Run("invalid image data", func(t *testing.T) {
		if _, err := RenderThumbnail([]byte("not an image"), image.Rect(0, 0, 10, 10), 64); err == nil {
			t.Error("expected error for undecodable data")
		}
	})
}
