package backend

import (
	"errors"
	"image/color"
	"io"
	"math"

	"thumbnailer/internal/geometry"
)

var (
	// ErrNoEngine is returned by Select when no candidate engine is usable.
	ErrNoEngine = errors.New("no image engine available")
	// ErrUnavailable is returned by Available when an engine cannot run in
	// this process.
	ErrUnavailable = errors.New("image engine unavailable")
	// ErrUnsupported is returned for operations an engine does not provide.
	ErrUnsupported = errors.New("operation not supported by image engine")
	// ErrUnsupportedFormat is returned for formats an engine cannot read or write.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// Backend is an image engine. Implementations must be safe to share across
// goroutines; the Handles they return are not.
type Backend interface {
	// Name returns the engine name used in configuration and metrics.
	Name() string
	// Available probes whether the engine can run in this process.
	Available() error
	// SupportedFormats returns the formats the engine can read and write.
	SupportedFormats() FormatSet
	// Open decodes the image file at path.
	Open(path string, canvas CanvasOptions) (Handle, error)
	// Read decodes an in-memory image.
	Read(data []byte, canvas CanvasOptions) (Handle, error)
}

// Handle is a decoded image owned by exactly one session.
//
// Every transforming method returns a new Handle and leaves the receiver
// unchanged. Callers Close the old handle once they have committed the new
// one, and Close the last handle when they are done.
type Handle interface {
	Format() Format
	Size() geometry.Dimensions
	Resize(width, height int) (Handle, error)
	Crop(r geometry.Rect) (Handle, error)
	// Rotate turns the image clockwise by degrees. Angles that are not a
	// multiple of 90 grow the canvas to fit the rotated image.
	Rotate(degrees float64) (Handle, error)
	// Flip mirrors the image vertically.
	Flip() (Handle, error)
	// Flop mirrors the image horizontally.
	Flop() (Handle, error)
	// Encode writes the image in format. quality applies to lossy formats.
	Encode(w io.Writer, format Format, quality int) error
	Close() error
}

// CanvasOptions controls how a new working canvas is prepared before pixels
// are copied onto it.
type CanvasOptions struct {
	// PreserveAlpha keeps the alpha channel of PNG images. When false, PNG
	// images are flattened onto AlphaMaskColor.
	PreserveAlpha  bool
	AlphaMaskColor color.NRGBA
	// PreserveTransparency keys GIF transparency to TransparencyMaskColor.
	PreserveTransparency  bool
	TransparencyMaskColor color.NRGBA
}

// DefaultCanvasOptions returns the canvas settings used when none are given.
func DefaultCanvasOptions() CanvasOptions {
	return CanvasOptions{
		PreserveAlpha:         true,
		AlphaMaskColor:        color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		PreserveTransparency:  true,
		TransparencyMaskColor: color.NRGBA{A: 255},
	}
}

// keepsAlpha reports whether a canvas for format f must stay transparent.
func (c CanvasOptions) keepsAlpha(f Format) bool {
	return f == FormatPNG && c.PreserveAlpha
}

// transparencyKey returns the palette key for format f, if any.
func (c CanvasOptions) transparencyKey(f Format) (color.NRGBA, bool) {
	if f == FormatGIF && c.PreserveTransparency {
		return c.TransparencyMaskColor, true
	}
	return color.NRGBA{}, false
}

// background returns the color a fresh canvas is filled with for format f.
// Transparent fills keep the mask RGB with zero alpha.
func (c CanvasOptions) background(f Format) color.NRGBA {
	if c.keepsAlpha(f) {
		bg := c.AlphaMaskColor
		bg.A = 0
		return bg
	}
	if key, ok := c.transparencyKey(f); ok {
		key.A = 0
		return key
	}
	bg := c.AlphaMaskColor
	bg.A = 255
	return bg
}

// normalizeDegrees maps degrees into [0, 360).
func normalizeDegrees(degrees float64) float64 {
	d := math.Mod(degrees, 360)
	if d < 0 {
		d += 360
	}
	return d
}
