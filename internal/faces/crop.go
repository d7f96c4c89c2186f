package faces

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// ThumbnailParams controls the face-crop geometry.
type ThumbnailParams struct {
	PaddingRatio float64 // expansion of the detected box, proportional to its size
	MinFraction  float64 // minimum crop side as a fraction of page width
	Size         int     // output square side in pixels
}

// ThumbnailRegion computes the square pixel region to crop for a face box:
// expand the box by the padding ratio, enlarge to the minimum square when the
// expanded region is too small, and clamp the result to the image bounds.
// Pure geometry, no I/O.
func ThumbnailRegion(box PixelBox, imgWidth, imgHeight int, params ThumbnailParams) image.Rectangle {
	if imgWidth <= 0 || imgHeight <= 0 {
		return image.Rectangle{}
	}

	paddedW := box.Width * (1 + 2*params.PaddingRatio)
	paddedH := box.Height * (1 + 2*params.PaddingRatio)

	side := max(paddedW, paddedH)
	if minSide := params.MinFraction * float64(imgWidth); side < minSide {
		side = minSide
	}
	// A square larger than the page cannot be satisfied; use the largest
	// square that fits.
	if maxSide := float64(min(imgWidth, imgHeight)); side > maxSide {
		side = maxSide
	}

	centerX := box.X + box.Width/2
	centerY := box.Y + box.Height/2

	x0 := centerX - side/2
	y0 := centerY - side/2

	// Shift the square inside the image instead of shrinking it, so the
	// face stays fully covered.
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x0+side > float64(imgWidth) {
		x0 = float64(imgWidth) - side
	}
	if y0+side > float64(imgHeight) {
		y0 = float64(imgHeight) - side
	}

	return image.Rect(int(x0), int(y0), int(x0+side), int(y0+side))
}

// RenderThumbnail crops the region from the encoded page image and resizes
// it to a size x size square JPEG.
func RenderThumbnail(pageData []byte, region image.Rectangle, size int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(pageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode page image: %w", err)
	}

	region = region.Intersect(img.Bounds())
	if region.Empty() {
		return nil, fmt.Errorf("crop region %v is outside image bounds %v", region, img.Bounds())
	}

	out := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(out, out.Bounds(), img, region, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
