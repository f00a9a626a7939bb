package geometry

import (
	"fmt"
	"image"
)

// Rect is a crop region in source pixel coordinates
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Dimensions returns the size of the region
func (r Rect) Dimensions() Dimensions {
	return Dimensions{Width: r.Width, Height: r.Height}
}

// Image converts the region to an image.Rectangle anchored at the origin
// of the source image.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Within reports whether the region lies inside an image of size cur.
func (r Rect) Within(cur Dimensions) bool {
	return r.X >= 0 && r.Y >= 0 &&
		r.Width >= 0 && r.Height >= 0 &&
		r.X+r.Width <= cur.Width && r.Y+r.Height <= cur.Height
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// PlanCrop returns an in-bounds crop of width x height at (x, y).
//
// The size is clamped to cur first, then the offset is shifted back so the
// region does not overflow, then negative offsets are clamped to zero. Out of
// range input never fails; it just yields the nearest valid region.
func PlanCrop(cur Dimensions, width, height, x, y int) Rect {
	width = clamp(width, 0, cur.Width)
	height = clamp(height, 0, cur.Height)

	if x+width > cur.Width {
		x = cur.Width - width
	}
	if y+height > cur.Height {
		y = cur.Height - height
	}
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}

	return Rect{X: x, Y: y, Width: width, Height: height}
}

// PlanCenterCrop returns a width x height crop centered on the image.
// A height of zero or less produces a square crop.
func PlanCenterCrop(cur Dimensions, width, height int) Rect {
	if height <= 0 {
		height = width
	}

	cropWidth := clamp(width, 0, cur.Width)
	cropHeight := clamp(height, 0, cur.Height)
	x := (cur.Width - cropWidth) / 2
	y := (cur.Height - cropHeight) / 2

	return PlanCrop(cur, width, height, x, y)
}

// PlanAdaptiveCrop returns the box-sized crop that trims the overflow left
// by a StrictFit resize. The overflow is taken from the center of whichever
// axis exceeds the box, width first.
func PlanAdaptiveCrop(cur Dimensions, boxWidth, boxHeight int) Rect {
	x, y := 0, 0
	if cur.Width > boxWidth {
		x = (cur.Width - boxWidth) / 2
	} else if cur.Height > boxHeight {
		y = (cur.Height - boxHeight) / 2
	}
	return PlanCrop(cur, boxWidth, boxHeight, x, y)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
