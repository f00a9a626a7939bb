package backend

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"thumbnailer/internal/geometry"

	"github.com/anthonynsimon/bild/transform"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/tiff"
)

// rasterFormats are the formats the standard and x/image codecs handle.
// x/image/webp only decodes.
var rasterFormats = FormatSet{
	FormatJPEG: Read | Write,
	FormatPNG:  Read | Write,
	FormatGIF:  Read | Write,
	FormatBMP:  Read | Write,
	FormatTIFF: Read | Write,
	FormatWebP: Read,
}

type rasterBackend struct{}

// NewRaster returns the basic resample-copy engine.
func NewRaster() Backend {
	return rasterBackend{}
}

func (rasterBackend) Name() string { return EngineRaster }

func (rasterBackend) Available() error { return nil }

func (rasterBackend) SupportedFormats() FormatSet {
	out := make(FormatSet, len(rasterFormats))
	for f, a := range rasterFormats {
		out[f] = a
	}
	return out
}

func (b rasterBackend) Open(path string, canvas CanvasOptions) (Handle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return b.Read(data, canvas)
}

func (rasterBackend) Read(data []byte, canvas CanvasOptions) (Handle, error) {
	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("raster decode failed: %w", err)
	}

	format, err := ParseFormat(name)
	if err != nil {
		return nil, err
	}

	h := &rasterHandle{format: format, canvas: canvas}
	if img.Bounds().Min != (image.Point{}) {
		// Rotation matrices assume a zero origin.
		dst, op := h.newCanvas(img.Bounds().Dx(), img.Bounds().Dy())
		draw.Copy(dst, image.Point{}, img, img.Bounds(), op, nil)
		img = dst
	}
	h.img = img
	return h, nil
}

// rasterHandle holds a decoded image. Every transform allocates a fresh
// canvas and resamples or copies the source into it.
type rasterHandle struct {
	img    image.Image
	format Format
	canvas CanvasOptions
}

func (h *rasterHandle) Format() Format { return h.format }

func (h *rasterHandle) Size() geometry.Dimensions {
	b := h.img.Bounds()
	return geometry.Dimensions{Width: b.Dx(), Height: b.Dy()}
}

// newCanvas allocates a working canvas and applies the alpha or
// transparency fill before anything is copied onto it. The returned op is
// Src when the canvas must keep source transparency and Over when the
// source is flattened onto the mask color.
func (h *rasterHandle) newCanvas(width, height int) (*image.NRGBA, draw.Op) {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	bg := h.canvas.background(h.format)
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	if bg.A == 0 {
		return dst, draw.Src
	}
	return dst, draw.Over
}

func (h *rasterHandle) derive(img image.Image) *rasterHandle {
	return &rasterHandle{img: img, format: h.format, canvas: h.canvas}
}

func (h *rasterHandle) Resize(width, height int) (Handle, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster resize to %dx%d: invalid size", width, height)
	}

	dst, op := h.newCanvas(width, height)
	draw.CatmullRom.Scale(dst, dst.Bounds(), h.img, h.img.Bounds(), op, nil)
	return h.derive(dst), nil
}

func (h *rasterHandle) Crop(r geometry.Rect) (Handle, error) {
	if r.Width <= 0 || r.Height <= 0 || !r.Within(h.Size()) {
		return nil, fmt.Errorf("raster crop %s: region outside %s image", r, h.Size())
	}

	dst, op := h.newCanvas(r.Width, r.Height)
	draw.Copy(dst, image.Point{}, h.img, r.Image(), op, nil)
	return h.derive(dst), nil
}

// Rotate is the engine's dedicated rotation call. Right angles are exact
// pixel remaps; any other angle is resampled by bild onto a larger canvas.
func (h *rasterHandle) Rotate(degrees float64) (Handle, error) {
	size := h.Size()
	w, ht := float64(size.Width), float64(size.Height)

	var s2d f64.Aff3
	var out geometry.Dimensions

	switch normalizeDegrees(degrees) {
	case 0:
		dst, op := h.newCanvas(size.Width, size.Height)
		draw.Copy(dst, image.Point{}, h.img, h.img.Bounds(), op, nil)
		return h.derive(dst), nil
	case 90:
		s2d = f64.Aff3{0, -1, ht, 1, 0, 0}
		out = geometry.Dimensions{Width: size.Height, Height: size.Width}
	case 180:
		s2d = f64.Aff3{-1, 0, w, 0, -1, ht}
		out = size
	case 270:
		s2d = f64.Aff3{0, 1, 0, -1, 0, w}
		out = geometry.Dimensions{Width: size.Height, Height: size.Width}
	default:
		rotated := transform.Rotate(h.img, normalizeDegrees(degrees), &transform.RotationOptions{ResizeBounds: true})
		b := rotated.Bounds()
		dst, op := h.newCanvas(b.Dx(), b.Dy())
		draw.Copy(dst, image.Point{}, rotated, b, op, nil)
		return h.derive(dst), nil
	}

	dst, op := h.newCanvas(out.Width, out.Height)
	draw.NearestNeighbor.Transform(dst, s2d, h.img, h.img.Bounds(), op, nil)
	return h.derive(dst), nil
}

func (h *rasterHandle) Flip() (Handle, error) {
	return nil, fmt.Errorf("%w: raster engine cannot flip", ErrUnsupported)
}

func (h *rasterHandle) Flop() (Handle, error) {
	return nil, fmt.Errorf("%w: raster engine cannot flop", ErrUnsupported)
}

func (h *rasterHandle) Encode(w io.Writer, format Format, quality int) error {
	switch format {
	case FormatJPEG:
		return jpeg.Encode(w, h.img, &jpeg.Options{Quality: quality})
	case FormatPNG:
		return png.Encode(w, h.img)
	case FormatGIF:
		return h.encodeGIF(w)
	case FormatBMP:
		return bmp.Encode(w, h.img)
	case FormatTIFF:
		return tiff.Encode(w, h.img, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("%w: raster engine cannot write %s", ErrUnsupportedFormat, format)
}

func (h *rasterHandle) encodeGIF(w io.Writer) error {
	if key, ok := h.canvas.transparencyKey(h.format); ok {
		return encodeKeyedGIF(w, h.img, key)
	}
	return gif.Encode(w, h.img, &gif.Options{NumColors: 256})
}

// encodeKeyedGIF quantizes img onto a palette whose first entry is the
// transparency key.
func encodeKeyedGIF(w io.Writer, img image.Image, key color.NRGBA) error {
	key.A = 0
	pal := make(color.Palette, 0, len(palette.WebSafe)+1)
	pal = append(pal, key)
	pal = append(pal, palette.WebSafe...)

	dst := image.NewPaletted(img.Bounds(), pal)
	draw.FloydSteinberg.Draw(dst, dst.Bounds(), img, img.Bounds().Min)
	return gif.Encode(w, dst, nil)
}

func (h *rasterHandle) Close() error {
	h.img = nil
	return nil
}
