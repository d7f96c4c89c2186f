package faces

import (
	"sort"

	"github.com/chrofis/magicalstory/internal/story"
)

// PixelBox is a bounding box in page pixel coordinates.
type PixelBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns the box area in square pixels.
func (b PixelBox) Area() float64 {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// IoU calculates Intersection over Union between two boxes in the same
// coordinate system.
func IoU(a, b PixelBox) float64 {
	x1 := max(a.X, b.X)
	y1 := max(a.Y, b.Y)
	x2 := min(a.X+a.Width, b.X+b.Width)
	y2 := min(a.Y+a.Height, b.Y+b.Height)

	if x2 <= x1 || y2 <= y1 {
		return 0 // No intersection
	}

	intersection := (x2 - x1) * (y2 - y1)
	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// SuppressOverlapping deduplicates detection candidates via non-maximum
// suppression: candidates are visited largest-first and a candidate is
// dropped when its IoU with any already-kept (larger) box exceeds the
// threshold.
func SuppressOverlapping(boxes []PixelBox, iouThreshold float64) []PixelBox {
	ordered := make([]PixelBox, len(boxes))
	copy(ordered, boxes)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Area() > ordered[j].Area()
	})

	kept := make([]PixelBox, 0, len(ordered))
	for _, candidate := range ordered {
		overlaps := false
		for _, k := range kept {
			if IoU(candidate, k) > iouThreshold {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, candidate)
		}
	}
	return kept
}

// Normalize converts a pixel box to relative [0,1] coordinates, clamped to
// the page bounds.
func (b PixelBox) Normalize(pageWidth, pageHeight int) story.NormalizedBox {
	if pageWidth <= 0 || pageHeight <= 0 {
		return story.NormalizedBox{}
	}
	nb := story.NormalizedBox{
		X:      b.X / float64(pageWidth),
		Y:      b.Y / float64(pageHeight),
		Width:  b.Width / float64(pageWidth),
		Height: b.Height / float64(pageHeight),
	}
	nb.X = clamp01(nb.X)
	nb.Y = clamp01(nb.Y)
	nb.Width = clamp01(nb.Width)
	nb.Height = clamp01(nb.Height)
	if nb.X+nb.Width > 1 {
		nb.Width = 1 - nb.X
	}
	if nb.Y+nb.Height > 1 {
		nb.Height = 1 - nb.Y
	}
	return nb
}

// Denormalize converts a relative box back to pixel coordinates.
func Denormalize(nb story.NormalizedBox, pageWidth, pageHeight int) PixelBox {
	return PixelBox{
		X:      nb.X * float64(pageWidth),
		Y:      nb.Y * float64(pageHeight),
		Width:  nb.Width * float64(pageWidth),
		Height: nb.Height * float64(pageHeight),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
