package media

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"thumbnailer/internal/backend"
	"thumbnailer/internal/geometry"
)

var (
	// ErrNotFound is returned when the source image does not exist.
	ErrNotFound = errors.New("source not found")
	// ErrInvalidPath is returned for paths outside the media directory or
	// paths naming a directory.
	ErrInvalidPath = errors.New("invalid path")
	// ErrInvalidRequest is returned for malformed thumbnail parameters.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnsupported is returned when the engine cannot read the source.
	ErrUnsupported = errors.New("unsupported image")
)

// Mode selects how a thumbnail is sized.
type Mode string

const (
	// ModeFit scales proportionally into a width x height box.
	ModeFit Mode = "fit"
	// ModeFill scales and center-crops to exactly width x height.
	ModeFill Mode = "fill"
	// ModePercent scales both sides by a percentage.
	ModePercent Mode = "percent"
	// ModeCrop cuts a width x height region at x,y.
	ModeCrop Mode = "crop"
	// ModeCenter cuts a width x height region from the center.
	ModeCenter Mode = "center"
)

// ParseMode parses a mode name. The empty string is ModeFit.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeFit, nil
	case ModeFit, ModeFill, ModePercent, ModeCrop, ModeCenter:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, s)
}

// Request describes one thumbnail.
type Request struct {
	// Path is relative to the media directory, slash separated.
	Path    string
	Mode    Mode
	Width   int
	Height  int
	Percent int
	X       int
	Y       int
	// Rotate is in degrees, positive is clockwise.
	Rotate float64
	Flip   bool
	Flop   bool
	// Format is the output format. FormatUnknown uses the configured
	// default, then the source format.
	Format backend.Format
}

// normalize fills defaults and rejects parameters no mode can honor.
func (r *Request) normalize(defaultSize, maxSize int) error {
	if r.Mode == "" {
		r.Mode = ModeFit
	}
	if r.Width < 0 || r.Height < 0 || r.X < 0 || r.Y < 0 {
		return fmt.Errorf("%w: negative dimension or offset", ErrInvalidRequest)
	}
	if r.Width > maxSize || r.Height > maxSize {
		return fmt.Errorf("%w: dimensions above %d", ErrInvalidRequest, maxSize)
	}
	if r.Rotate <= -360 || r.Rotate >= 360 {
		return fmt.Errorf("%w: rotation %g out of range", ErrInvalidRequest, r.Rotate)
	}

	switch r.Mode {
	case ModeFit:
		if r.Width == 0 && r.Height == 0 {
			r.Width, r.Height = defaultSize, defaultSize
		}
	case ModeFill:
		switch {
		case r.Width == 0 && r.Height == 0:
			r.Width, r.Height = defaultSize, defaultSize
		case r.Width == 0:
			r.Width = r.Height
		case r.Height == 0:
			r.Height = r.Width
		}
	case ModePercent:
		if r.Percent <= 0 {
			return fmt.Errorf("%w: percent must be positive", ErrInvalidRequest)
		}
		// Even a 1px source would exceed maxSize.
		if r.Percent > 100*maxSize {
			return fmt.Errorf("%w: percent %d above %d", ErrInvalidRequest, r.Percent, 100*maxSize)
		}
	case ModeCrop:
		if r.Width == 0 || r.Height == 0 {
			return fmt.Errorf("%w: crop needs width and height", ErrInvalidRequest)
		}
	case ModeCenter:
		if r.Width == 0 {
			r.Width = defaultSize
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, r.Mode)
	}
	return nil
}

// resizeSpec maps the scaling modes onto a geometry.Spec. Crop modes
// report false.
func (r Request) resizeSpec() (geometry.Spec, bool) {
	switch r.Mode {
	case ModeFit:
		return geometry.MaxBox(r.Width, r.Height), true
	case ModeFill:
		return geometry.StrictFitBox(r.Width, r.Height), true
	case ModePercent:
		return geometry.ByPercent(r.Percent), true
	}
	return geometry.Spec{}, false
}

// params renders every parameter that affects the output pixels.
func (r Request) params(format backend.Format) string {
	return fmt.Sprintf("%s|%dx%d|%d|%d,%d|%g|%t|%t|%s",
		r.Mode, r.Width, r.Height, r.Percent, r.X, r.Y, r.Rotate, r.Flip, r.Flop, format)
}

// Result is a generated or cached thumbnail.
type Result struct {
	Data   []byte
	Format backend.Format
	Cached bool
	// SourceModTime is the modification time of the source image.
	SourceModTime time.Time
}

// ImageInfo describes a source image.
type ImageInfo struct {
	Path       string              `json:"path"`
	Format     backend.Format      `json:"format"`
	Dimensions geometry.Dimensions `json:"dimensions"`
	Size       int64               `json:"size"`
	ModTime    time.Time           `json:"modTime"`
	Engine     string              `json:"engine"`
}
