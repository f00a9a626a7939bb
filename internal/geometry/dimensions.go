package geometry

import "fmt"

// Dimensions holds an image width and height in pixels
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both axes are positive. A loaded image always has
// valid dimensions.
func (d Dimensions) Valid() bool {
	return d.Width > 0 && d.Height > 0
}

// String returns the dimensions as "WxH"
func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Kind selects how a Spec is turned into target dimensions.
type Kind int

const (
	// KindMaxBox fits the image inside MaxWidth x MaxHeight.
	KindMaxBox Kind = iota
	// KindPercent scales the image uniformly by Percent.
	KindPercent
	// KindStrictFit covers MaxWidth x MaxHeight, overflowing one axis.
	KindStrictFit
)

// String returns the lower-case name used in logs and query parameters
func (k Kind) String() string {
	switch k {
	case KindMaxBox:
		return "fit"
	case KindPercent:
		return "percent"
	case KindStrictFit:
		return "fill"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Spec is a resize request. Only the fields relevant to Kind are read.
type Spec struct {
	Kind      Kind
	MaxWidth  int
	MaxHeight int
	Percent   int
}

// MaxBox returns a Spec that fits the image inside the given box.
func MaxBox(maxWidth, maxHeight int) Spec {
	return Spec{Kind: KindMaxBox, MaxWidth: maxWidth, MaxHeight: maxHeight}
}

// ByPercent returns a Spec that scales the image by percent.
func ByPercent(percent int) Spec {
	return Spec{Kind: KindPercent, Percent: percent}
}

// StrictFitBox returns a Spec that covers the given box.
func StrictFitBox(maxWidth, maxHeight int) Spec {
	return Spec{Kind: KindStrictFit, MaxWidth: maxWidth, MaxHeight: maxHeight}
}

// Compute dispatches a Spec to the matching calculator.
func Compute(cur Dimensions, spec Spec) Dimensions {
	switch spec.Kind {
	case KindPercent:
		return Percent(cur, spec.Percent)
	case KindStrictFit:
		return StrictFit(cur, spec.MaxWidth, spec.MaxHeight)
	default:
		return Fit(cur, spec.MaxWidth, spec.MaxHeight)
	}
}

// Fit scales cur proportionally so that it fits inside maxWidth x maxHeight.
//
// A zero bound leaves that axis unconstrained. The width-constrained result
// is tried first; when its height overflows maxHeight the height-constrained
// result is used instead, so the aspect ratio is always kept. Results are
// rounded up. With both bounds zero, cur is returned unchanged.
func Fit(cur Dimensions, maxWidth, maxHeight int) Dimensions {
	if !cur.Valid() {
		return cur
	}

	switch {
	case maxWidth > 0:
		d := scaleToWidth(cur, maxWidth)
		if maxHeight > 0 && d.Height > maxHeight {
			d = scaleToHeight(cur, maxHeight)
		}
		return d
	case maxHeight > 0:
		return scaleToHeight(cur, maxHeight)
	}

	return cur
}

// StrictFit scales cur proportionally so that it covers maxWidth x
// maxHeight entirely. One axis matches its bound and the other overflows;
// the overflow is cropped afterwards with PlanAdaptiveCrop.
//
// When maxWidth == maxHeight the box is treated as landscape.
func StrictFit(cur Dimensions, maxWidth, maxHeight int) Dimensions {
	if !cur.Valid() || maxWidth <= 0 || maxHeight <= 0 {
		return cur
	}

	var d Dimensions
	if maxWidth >= maxHeight {
		if cur.Width > cur.Height {
			d = scaleToHeight(cur, maxHeight)
			if d.Width < maxWidth {
				d = scaleToWidth(cur, maxWidth)
			}
		} else {
			d = scaleToWidth(cur, maxWidth)
			if d.Height < maxHeight {
				d = scaleToHeight(cur, maxHeight)
			}
		}
		return d
	}

	if cur.Width >= cur.Height {
		d = scaleToWidth(cur, maxWidth)
		if d.Height < maxHeight {
			d = scaleToHeight(cur, maxHeight)
		}
	} else {
		d = scaleToHeight(cur, maxHeight)
		if d.Width < maxWidth {
			d = scaleToWidth(cur, maxWidth)
		}
	}
	return d
}

// Percent scales both axes by percent/100, rounding up. A percent of zero or
// less is a no-op.
func Percent(cur Dimensions, percent int) Dimensions {
	if !cur.Valid() || percent <= 0 {
		return cur
	}
	return Dimensions{
		Width:  atLeastOne(mulDivCeil(cur.Width, percent, 100)),
		Height: atLeastOne(mulDivCeil(cur.Height, percent, 100)),
	}
}

// ClampToCurrent lowers maxWidth and maxHeight to the current dimensions.
// The facade applies it when upscaling is disabled.
func ClampToCurrent(cur Dimensions, maxWidth, maxHeight int) (int, int) {
	if maxWidth > cur.Width {
		maxWidth = cur.Width
	}
	if maxHeight > cur.Height {
		maxHeight = cur.Height
	}
	return maxWidth, maxHeight
}

func scaleToWidth(cur Dimensions, width int) Dimensions {
	return Dimensions{
		Width:  width,
		Height: atLeastOne(mulDivCeil(cur.Height, width, cur.Width)),
	}
}

func scaleToHeight(cur Dimensions, height int) Dimensions {
	return Dimensions{
		Width:  atLeastOne(mulDivCeil(cur.Width, height, cur.Height)),
		Height: height,
	}
}

// mulDivCeil returns ceil(a*b/c) for non-negative a, b and positive c.
func mulDivCeil(a, b, c int) int {
	p := int64(a) * int64(b)
	return int((p + int64(c) - 1) / int64(c))
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
