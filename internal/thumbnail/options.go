package thumbnail

import (
	"fmt"
	"image/color"

	"thumbnailer/internal/backend"
)

// RGB is an opaque mask color.
type RGB struct {
	R, G, B uint8
}

// NRGBA returns the color with full alpha.
func (c RGB) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// String returns the color as a #rrggbb hex string.
func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Options configures a Thumbnail. It is validated once when the session is
// created and never changes afterwards.
type Options struct {
	// ResizeUp allows resize operations to grow the image.
	ResizeUp bool
	// JPEGQuality is the encoder quality for lossy formats, 0-100.
	JPEGQuality int

	// PreserveAlpha keeps the alpha channel of PNG images. When false they
	// are flattened onto AlphaMaskColor.
	PreserveAlpha  bool
	AlphaMaskColor RGB

	// PreserveTransparency keeps GIF transparency, keyed to
	// TransparencyMaskColor.
	PreserveTransparency  bool
	TransparencyMaskColor RGB

	// CorrectPermissions makes an unwritable output directory world-writable
	// before giving up on Save.
	CorrectPermissions bool

	// Engines lists image engines in priority order. Empty means
	// backend.DefaultPriority.
	Engines []string
}

// DefaultOptions returns the default session options.
func DefaultOptions() Options {
	return Options{
		ResizeUp:              false,
		JPEGQuality:           100,
		PreserveAlpha:         true,
		AlphaMaskColor:        RGB{R: 255, G: 255, B: 255},
		PreserveTransparency:  true,
		TransparencyMaskColor: RGB{},
		CorrectPermissions:    false,
	}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.JPEGQuality < 0 || o.JPEGQuality > 100 {
		return fmt.Errorf("%w: jpeg quality %d is outside 0-100", ErrInvalidArgument, o.JPEGQuality)
	}
	return nil
}

// canvas converts the alpha and transparency options for the engine.
func (o Options) canvas() backend.CanvasOptions {
	return backend.CanvasOptions{
		PreserveAlpha:         o.PreserveAlpha,
		AlphaMaskColor:        o.AlphaMaskColor.NRGBA(),
		PreserveTransparency:  o.PreserveTransparency,
		TransparencyMaskColor: o.TransparencyMaskColor.NRGBA(),
	}
}

// quality returns the encoder quality. Encoders treat 0 as "unset", so it
// is raised to 1.
func (o Options) quality() int {
	return max(o.JPEGQuality, 1)
}
