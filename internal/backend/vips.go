//go:build cgo

package backend

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"thumbnailer/internal/geometry"
	"thumbnailer/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
	vipsInitErr     error
)

// InitVips starts libvips once per process. Later calls return the result
// of the first one.
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return vipsInitErr
	}
	vipsInitialized = true

	// Configure vips logging before Startup so LOG_LEVEL is respected
	vips.LoggingSettings(vipsLogHandler(logging.GetLevel()))

	vipsInitErr = startVips()
	if vipsInitErr != nil {
		logging.Warn("libvips unavailable: %v", vipsInitErr)
		return vipsInitErr
	}

	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

func startVips() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: libvips startup panicked: %v", ErrUnavailable, r)
		}
	}()

	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,                // One image at a time to control memory
		MaxCacheMem:      50 * 1024 * 1024, // 50MB cache
		MaxCacheSize:     100,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})
	return nil
}

// vipsLogHandler maps the application log level onto libvips log output.
func vipsLogHandler(level logging.LogLevel) (func(string, vips.LogLevel, string), vips.LogLevel) {
	switch level {
	case logging.LevelDebug:
		return func(domain string, l vips.LogLevel, msg string) {
			switch l {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			default:
				logging.Debug("[%s] %s", domain, msg)
			}
		}, vips.LogLevelInfo
	case logging.LevelWarn:
		return func(domain string, l vips.LogLevel, msg string) {
			if l >= vips.LogLevelError {
				logging.Error("[%s] %s", domain, msg)
			}
		}, vips.LogLevelError
	case logging.LevelError:
		return func(domain string, l vips.LogLevel, msg string) {
			if l >= vips.LogLevelCritical {
				logging.Error("[%s] %s", domain, msg)
			}
		}, vips.LogLevelCritical
	default:
		return func(domain string, l vips.LogLevel, msg string) {
			switch l {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			}
		}, vips.LogLevelWarning
	}
}

// ShutdownVips releases libvips. It is a no-op when InitVips never succeeded.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsAvailable {
		vips.Shutdown()
		logging.Info("libvips shutdown complete")
	}
	vipsInitialized = false
	vipsAvailable = false
	vipsInitErr = nil
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

var vipsTypes = map[Format]vips.ImageType{
	FormatJPEG: vips.ImageTypeJPEG,
	FormatPNG:  vips.ImageTypePNG,
	FormatGIF:  vips.ImageTypeGIF,
	FormatBMP:  vips.ImageTypeBMP,
	FormatTIFF: vips.ImageTypeTIFF,
	FormatWebP: vips.ImageTypeWEBP,
	FormatHEIF: vips.ImageTypeHEIF,
	FormatAVIF: vips.ImageTypeAVIF,
	FormatSVG:  vips.ImageTypeSVG,
	FormatPDF:  vips.ImageTypePDF,
	FormatJXL:  vips.ImageTypeJXL,
}

// vipsWritable lists the formats with an exporter below.
var vipsWritable = map[Format]bool{
	FormatJPEG: true,
	FormatPNG:  true,
	FormatGIF:  true,
	FormatTIFF: true,
	FormatWebP: true,
	FormatHEIF: true,
	FormatAVIF: true,
}

func formatFromVips(t vips.ImageType) Format {
	for f, vt := range vipsTypes {
		if vt == t {
			return f
		}
	}
	return FormatUnknown
}

type vipsBackend struct{}

// NewVips returns the libvips engine. It is available once InitVips succeeds.
func NewVips() Backend {
	return vipsBackend{}
}

func (vipsBackend) Name() string { return EngineVips }

func (vipsBackend) Available() error {
	if err := InitVips(); err != nil {
		return err
	}
	if !IsVipsAvailable() {
		return ErrUnavailable
	}
	return nil
}

func (vipsBackend) SupportedFormats() FormatSet {
	set := make(FormatSet)
	if !IsVipsAvailable() {
		return set
	}
	for f, t := range vipsTypes {
		if !vips.IsTypeSupported(t) {
			continue
		}
		access := Read
		if vipsWritable[f] {
			access |= Write
		}
		set[f] = access
	}
	return set
}

func (b vipsBackend) Open(path string, canvas CanvasOptions) (Handle, error) {
	if err := b.Available(); err != nil {
		return nil, err
	}

	ref, err := vips.LoadImageFromFile(path, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("vips failed to load image: %w", err)
	}
	return newVipsHandle(ref, canvas)
}

func (b vipsBackend) Read(data []byte, canvas CanvasOptions) (Handle, error) {
	if err := b.Available(); err != nil {
		return nil, err
	}

	ref, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return nil, fmt.Errorf("vips failed to load image: %w", err)
	}
	return newVipsHandle(ref, canvas)
}

func newVipsHandle(ref *vips.ImageRef, canvas CanvasOptions) (*vipsHandle, error) {
	h := &vipsHandle{ref: ref, format: formatFromVips(ref.Format()), canvas: canvas}

	bg := canvas.background(h.format)
	if bg.A != 0 && ref.HasAlpha() {
		if err := ref.Flatten(&vips.Color{R: bg.R, G: bg.G, B: bg.B}); err != nil {
			ref.Close()
			return nil, fmt.Errorf("vips flatten failed: %w", err)
		}
	}
	return h, nil
}

// vipsHandle wraps an ImageRef. Transforms run on a copy so the receiver
// stays valid when libvips reports an error.
type vipsHandle struct {
	ref    *vips.ImageRef
	format Format
	canvas CanvasOptions
}

func (h *vipsHandle) Format() Format { return h.format }

func (h *vipsHandle) Size() geometry.Dimensions {
	return geometry.Dimensions{Width: h.ref.Width(), Height: h.ref.Height()}
}

func (h *vipsHandle) apply(op string, fn func(*vips.ImageRef) error) (Handle, error) {
	ref, err := h.ref.Copy()
	if err != nil {
		return nil, fmt.Errorf("vips copy failed: %w", err)
	}
	if err := fn(ref); err != nil {
		ref.Close()
		return nil, fmt.Errorf("vips %s failed: %w", op, err)
	}
	return &vipsHandle{ref: ref, format: h.format, canvas: h.canvas}, nil
}

func (h *vipsHandle) Resize(width, height int) (Handle, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("vips resize to %dx%d: invalid size", width, height)
	}

	hs := float64(width) / float64(h.ref.Width())
	vs := float64(height) / float64(h.ref.Height())
	return h.apply("resize", func(ref *vips.ImageRef) error {
		return ref.ResizeWithVScale(hs, vs, vips.KernelLanczos3)
	})
}

func (h *vipsHandle) Crop(r geometry.Rect) (Handle, error) {
	if r.Width <= 0 || r.Height <= 0 || !r.Within(h.Size()) {
		return nil, fmt.Errorf("vips crop %s: region outside %s image", r, h.Size())
	}
	return h.apply("crop", func(ref *vips.ImageRef) error {
		return ref.ExtractArea(r.X, r.Y, r.Width, r.Height)
	})
}

// Rotate uses the lossless rot operation for right angles and similarity
// for the rest. Both turn clockwise.
func (h *vipsHandle) Rotate(degrees float64) (Handle, error) {
	var angle vips.Angle
	switch normalizeDegrees(degrees) {
	case 0:
		angle = vips.Angle0
	case 90:
		angle = vips.Angle90
	case 180:
		angle = vips.Angle180
	case 270:
		angle = vips.Angle270
	default:
		bg := h.canvas.background(h.format)
		return h.apply("rotate", func(ref *vips.ImageRef) error {
			return ref.Similarity(1, normalizeDegrees(degrees),
				&vips.ColorRGBA{R: bg.R, G: bg.G, B: bg.B, A: bg.A}, 0, 0, 0, 0)
		})
	}
	return h.apply("rotate", func(ref *vips.ImageRef) error {
		return ref.Rotate(angle)
	})
}

func (h *vipsHandle) Flip() (Handle, error) {
	return h.apply("flip", func(ref *vips.ImageRef) error {
		return ref.Flip(vips.DirectionVertical)
	})
}

func (h *vipsHandle) Flop() (Handle, error) {
	return h.apply("flop", func(ref *vips.ImageRef) error {
		return ref.Flip(vips.DirectionHorizontal)
	})
}

func (h *vipsHandle) Encode(w io.Writer, format Format, quality int) error {
	var (
		buf []byte
		err error
	)

	switch format {
	case FormatJPEG:
		buf, _, err = h.ref.ExportJpeg(&vips.JpegExportParams{Quality: quality, OptimizeCoding: true})
	case FormatPNG:
		buf, _, err = h.ref.ExportPng(vips.NewPngExportParams())
	case FormatGIF:
		buf, _, err = h.ref.ExportGIF(vips.NewGifExportParams())
	case FormatTIFF:
		buf, _, err = h.ref.ExportTiff(vips.NewTiffExportParams())
	case FormatWebP:
		params := vips.NewWebpExportParams()
		params.Quality = quality
		buf, _, err = h.ref.ExportWebp(params)
	case FormatHEIF:
		params := vips.NewHeifExportParams()
		params.Quality = quality
		buf, _, err = h.ref.ExportHeif(params)
	case FormatAVIF:
		params := vips.NewAvifExportParams()
		params.Quality = quality
		buf, _, err = h.ref.ExportAvif(params)
	default:
		return fmt.Errorf("%w: vips engine cannot write %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return fmt.Errorf("vips export failed: %w", err)
	}

	_, err = io.Copy(w, bytes.NewReader(buf))
	return err
}

func (h *vipsHandle) Close() error {
	if h.ref != nil {
		h.ref.Close()
		h.ref = nil
	}
	return nil
}
