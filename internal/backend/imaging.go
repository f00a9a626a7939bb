package backend

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"

	"thumbnailer/internal/geometry"

	"github.com/disintegration/imaging"
)

var imagingFormats = FormatSet{
	FormatJPEG: Read | Write,
	FormatPNG:  Read | Write,
	FormatGIF:  Read | Write,
	FormatBMP:  Read | Write,
	FormatTIFF: Read | Write,
	FormatWebP: Read,
}

type imagingBackend struct{}

// NewImaging returns the engine backed by github.com/disintegration/imaging.
func NewImaging() Backend {
	return imagingBackend{}
}

func (imagingBackend) Name() string { return EngineImaging }

func (imagingBackend) Available() error { return nil }

func (imagingBackend) SupportedFormats() FormatSet {
	out := make(FormatSet, len(imagingFormats))
	for f, a := range imagingFormats {
		out[f] = a
	}
	return out
}

func (b imagingBackend) Open(path string, canvas CanvasOptions) (Handle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return b.Read(data, canvas)
}

func (imagingBackend) Read(data []byte, canvas CanvasOptions) (Handle, error) {
	format := Detect(data)
	if !imagingFormats.CanRead(format) {
		return nil, fmt.Errorf("%w: imaging engine cannot read %q", ErrUnsupportedFormat, format)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("imaging decode failed: %w", err)
	}

	h := &imagingHandle{format: format, canvas: canvas}
	h.img = h.flatten(imaging.Clone(img))
	return h, nil
}

type imagingHandle struct {
	img    *image.NRGBA
	format Format
	canvas CanvasOptions
}

// flatten composites img onto the mask color unless the format keeps its
// alpha channel.
func (h *imagingHandle) flatten(img *image.NRGBA) *image.NRGBA {
	bg := h.canvas.background(h.format)
	if bg.A == 0 {
		return img
	}
	b := img.Bounds()
	return imaging.Overlay(imaging.New(b.Dx(), b.Dy(), bg), img, image.Point{}, 1.0)
}

func (h *imagingHandle) derive(img *image.NRGBA) *imagingHandle {
	return &imagingHandle{img: img, format: h.format, canvas: h.canvas}
}

func (h *imagingHandle) Format() Format { return h.format }

func (h *imagingHandle) Size() geometry.Dimensions {
	b := h.img.Bounds()
	return geometry.Dimensions{Width: b.Dx(), Height: b.Dy()}
}

func (h *imagingHandle) Resize(width, height int) (Handle, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("imaging resize to %dx%d: invalid size", width, height)
	}
	return h.derive(imaging.Resize(h.img, width, height, imaging.Lanczos)), nil
}

func (h *imagingHandle) Crop(r geometry.Rect) (Handle, error) {
	if r.Width <= 0 || r.Height <= 0 || !r.Within(h.Size()) {
		return nil, fmt.Errorf("imaging crop %s: region outside %s image", r, h.Size())
	}
	return h.derive(imaging.Crop(h.img, r.Image())), nil
}

// Rotate turns clockwise. imaging rotates counter-clockwise, so the angle
// is negated.
func (h *imagingHandle) Rotate(degrees float64) (Handle, error) {
	switch normalizeDegrees(degrees) {
	case 0:
		return h.derive(imaging.Clone(h.img)), nil
	case 90:
		return h.derive(imaging.Rotate270(h.img)), nil
	case 180:
		return h.derive(imaging.Rotate180(h.img)), nil
	case 270:
		return h.derive(imaging.Rotate90(h.img)), nil
	}
	bg := h.canvas.background(h.format)
	return h.derive(imaging.Rotate(h.img, -degrees, bg)), nil
}

func (h *imagingHandle) Flip() (Handle, error) {
	return h.derive(imaging.FlipV(h.img)), nil
}

func (h *imagingHandle) Flop() (Handle, error) {
	return h.derive(imaging.FlipH(h.img)), nil
}

func (h *imagingHandle) Encode(w io.Writer, format Format, quality int) error {
	var f imaging.Format
	switch format {
	case FormatJPEG:
		f = imaging.JPEG
	case FormatPNG:
		f = imaging.PNG
	case FormatGIF:
		if key, ok := h.canvas.transparencyKey(h.format); ok {
			return encodeKeyedGIF(w, h.img, key)
		}
		f = imaging.GIF
	case FormatBMP:
		f = imaging.BMP
	case FormatTIFF:
		f = imaging.TIFF
	default:
		return fmt.Errorf("%w: imaging engine cannot write %s", ErrUnsupportedFormat, format)
	}
	return imaging.Encode(w, h.img, f, imaging.JPEGQuality(quality))
}

func (h *imagingHandle) Close() error {
	h.img = nil
	return nil
}
