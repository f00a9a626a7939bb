package backend

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"thumbnailer/internal/geometry"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

var (
	red  = color.NRGBA{R: 255, A: 255}
	blue = color.NRGBA{B: 255, A: 255}
)

// testImage returns a blue image with a single red pixel at the origin so
// orientation changes can be observed.
func testImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, blue)
		}
	}
	img.SetNRGBA(0, 0, red)
	return img
}

func encodeTestImage(t *testing.T, img image.Image, format Format) []byte {
	t.Helper()

	var buf bytes.Buffer
	var err error
	switch format {
	case FormatJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case FormatPNG:
		err = png.Encode(&buf, img)
	case FormatGIF:
		err = gif.Encode(&buf, img, nil)
	case FormatBMP:
		err = bmp.Encode(&buf, img)
	case FormatTIFF:
		err = tiff.Encode(&buf, img, nil)
	default:
		t.Fatalf("Unsupported test image format: %s", format)
	}
	if err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// pureGoEngines are the engines that need no native library.
func pureGoEngines() []Backend {
	return []Backend{NewRaster(), NewImaging()}
}

// pixelAt returns the NRGBA color of a handle's pixel for either pure-Go engine.
func pixelAt(t *testing.T, h Handle, x, y int) color.NRGBA {
	t.Helper()

	var img image.Image
	switch v := h.(type) {
	case *rasterHandle:
		img = v.img
	case *imagingHandle:
		img = v.img
	default:
		t.Fatalf("pixelAt: unexpected handle %T", h)
	}
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

func isRed(c color.NRGBA) bool {
	return c.R > 200 && c.G < 60 && c.B < 60
}

func TestEngineReadAndSize(t *testing.T) {
	data := encodeTestImage(t, testImage(40, 20), FormatPNG)

	for _, b := range pureGoEngines() {
		t.Run(b.Name(), func(t *testing.T) {
			h, err := b.Read(data, DefaultCanvasOptions())
			if err != nil {
				t.Fatalf("Read() error: %v", err)
			}
			defer h.Close()

			if h.Format() != FormatPNG {
				t.Errorf("Format() = %q, want png", h.Format())
			}
			if got := h.Size(); got != (geometry.Dimensions{Width: 40, Height: 20}) {
				t.Errorf("Size() = %v, want 40x20", got)
			}
		})
	}
}

func TestEngineOpen(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "source.jpg")
	if err := os.WriteFile(path, encodeTestImage(t, testImage(30, 10), FormatJPEG), 0o644); err != nil {
		t.Fatalf("Failed to write test image: %v", err)
	}

	for _, b := range pureGoEngines() {
		t.Run(b.Name(), func(t *testing.T) {
			h, err := b.Open(path, DefaultCanvasOptions())
			if err != nil {
				t.Fatalf("Open() error: %v", err)
			}
			defer h.Close()

			if h.Format() != FormatJPEG {
				t.Errorf("Format() = %q, want jpeg", h.Format())
			}

			if _, err := b.Open(filepath.Join(tmpDir, "missing.jpg"), DefaultCanvasOptions()); err == nil {
				t.Error("Open() on missing file should fail")
			}
		})
	}
}

func TestEngineReadRejectsGarbage(t *testing.T) {
	for _, b := range pureGoEngines() {
		t.Run(b.Name(), func(t *testing.T) {
			if _, err := b.Read([]byte("definitely not an image"), DefaultCanvasOptions()); err == nil {
				t.Error("Read() of garbage should fail")
			}
		})
	}
}

func TestEngineTransforms(t *testing.T) {
	data := encodeTestImage(t, testImage(40, 20), FormatPNG)

	tests := []struct {
		name     string
		apply    func(Handle) (Handle, error)
		expected geometry.Dimensions
		redAt    image.Point
	}{
		{
			name:     "Resize",
			apply:    func(h Handle) (Handle, error) { return h.Resize(10, 5) },
			expected: geometry.Dimensions{Width: 10, Height: 5},
			redAt:    image.Pt(-1, -1),
		},
		{
			name:     "Crop keeps origin pixel",
			apply:    func(h Handle) (Handle, error) { return h.Crop(geometry.Rect{X: 0, Y: 0, Width: 15, Height: 10}) },
			expected: geometry.Dimensions{Width: 15, Height: 10},
			redAt:    image.Pt(0, 0),
		},
		{
			name:     "Rotate clockwise 90",
			apply:    func(h Handle) (Handle, error) { return h.Rotate(90) },
			expected: geometry.Dimensions{Width: 20, Height: 40},
			redAt:    image.Pt(19, 0),
		},
		{
			name:     "Rotate 180",
			apply:    func(h Handle) (Handle, error) { return h.Rotate(180) },
			expected: geometry.Dimensions{Width: 40, Height: 20},
			redAt:    image.Pt(39, 19),
		},
		{
			name:     "Rotate counter-clockwise 90",
			apply:    func(h Handle) (Handle, error) { return h.Rotate(-90) },
			expected: geometry.Dimensions{Width: 20, Height: 40},
			redAt:    image.Pt(0, 39),
		},
		{
			name:     "Rotate full turn",
			apply:    func(h Handle) (Handle, error) { return h.Rotate(360) },
			expected: geometry.Dimensions{Width: 40, Height: 20},
			redAt:    image.Pt(0, 0),
		},
	}

	for _, b := range pureGoEngines() {
		for _, tt := range tests {
			t.Run(b.Name()+"/"+tt.name, func(t *testing.T) {
				h, err := b.Read(data, DefaultCanvasOptions())
				if err != nil {
					t.Fatalf("Read() error: %v", err)
				}
				defer h.Close()

				out, err := tt.apply(h)
				if err != nil {
					t.Fatalf("transform error: %v", err)
				}
				defer out.Close()

				if got := out.Size(); got != tt.expected {
					t.Errorf("Size() = %v, want %v", got, tt.expected)
				}
				if got := h.Size(); got != (geometry.Dimensions{Width: 40, Height: 20}) {
					t.Errorf("receiver changed to %v", got)
				}
				if tt.redAt.X >= 0 {
					if c := pixelAt(t, out, tt.redAt.X, tt.redAt.Y); !isRed(c) {
						t.Errorf("pixel at %v = %v, want red", tt.redAt, c)
					}
				}
			})
		}
	}
}

func TestEngineArbitraryRotationGrowsCanvas(t *testing.T) {
	data := encodeTestImage(t, testImage(40, 20), FormatPNG)

	for _, b := range pureGoEngines() {
		t.Run(b.Name(), func(t *testing.T) {
			h, err := b.Read(data, DefaultCanvasOptions())
			if err != nil {
				t.Fatalf("Read() error: %v", err)
			}
			defer h.Close()

			out, err := h.Rotate(45)
			if err != nil {
				t.Fatalf("Rotate(45) error: %v", err)
			}
			defer out.Close()

			got := out.Size()
			if got.Width <= 40 || got.Height <= 20 {
				t.Errorf("Rotate(45) size = %v, want larger than 40x20", got)
			}
		})
	}
}

func TestEngineRejectsInvalidGeometry(t *testing.T) {
	data := encodeTestImage(t, testImage(40, 20), FormatPNG)

	for _, b := range pureGoEngines() {
		t.Run(b.Name(), func(t *testing.T) {
			h, err := b.Read(data, DefaultCanvasOptions())
			if err != nil {
				t.Fatalf("Read() error: %v", err)
			}
			defer h.Close()

			if _, err := h.Resize(0, 10); err == nil {
				t.Error("Resize(0, 10) should fail")
			}
			if _, err := h.Crop(geometry.Rect{X: 30, Y: 0, Width: 20, Height: 10}); err == nil {
				t.Error("Crop outside the image should fail")
			}
		})
	}
}

func TestRasterHasNoFlipOrFlop(t *testing.T) {
	h, err := NewRaster().Read(encodeTestImage(t, testImage(4, 4), FormatPNG), DefaultCanvasOptions())
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	defer h.Close()

	if _, err := h.Flip(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Flip() error = %v, want ErrUnsupported", err)
	}
	if _, err := h.Flop(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Flop() error = %v, want ErrUnsupported", err)
	}
}

func TestImagingFlipAndFlop(t *testing.T) {
	h, err := NewImaging().Read(encodeTestImage(t, testImage(40, 20), FormatPNG), DefaultCanvasOptions())
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	defer h.Close()

	flipped, err := h.Flip()
	if err != nil {
		t.Fatalf("Flip() error: %v", err)
	}
	if c := pixelAt(t, flipped, 0, 19); !isRed(c) {
		t.Errorf("Flip() moved origin pixel elsewhere, (0,19) = %v", c)
	}

	flopped, err := h.Flop()
	if err != nil {
		t.Fatalf("Flop() error: %v", err)
	}
	if c := pixelAt(t, flopped, 39, 0); !isRed(c) {
		t.Errorf("Flop() moved origin pixel elsewhere, (39,0) = %v", c)
	}
}

func TestEngineEncode(t *testing.T) {
	data := encodeTestImage(t, testImage(40, 20), FormatPNG)

	for _, b := range pureGoEngines() {
		for _, format := range b.SupportedFormats().Names(Write) {
			t.Run(b.Name()+"/"+format, func(t *testing.T) {
				h, err := b.Read(data, DefaultCanvasOptions())
				if err != nil {
					t.Fatalf("Read() error: %v", err)
				}
				defer h.Close()

				var buf bytes.Buffer
				if err := h.Encode(&buf, Format(format), 80); err != nil {
					t.Fatalf("Encode(%s) error: %v", format, err)
				}

				if got := Detect(buf.Bytes()); got != Format(format) {
					t.Errorf("encoded data detected as %q, want %q", got, format)
				}

				cfg, _, err := image.DecodeConfig(bytes.NewReader(buf.Bytes()))
				if err != nil {
					t.Fatalf("DecodeConfig() error: %v", err)
				}
				if cfg.Width != 40 || cfg.Height != 20 {
					t.Errorf("encoded size = %dx%d, want 40x20", cfg.Width, cfg.Height)
				}
			})
		}
	}
}

func TestEngineEncodeUnsupportedFormat(t *testing.T) {
	data := encodeTestImage(t, testImage(4, 4), FormatPNG)

	for _, b := range pureGoEngines() {
		t.Run(b.Name(), func(t *testing.T) {
			h, err := b.Read(data, DefaultCanvasOptions())
			if err != nil {
				t.Fatalf("Read() error: %v", err)
			}
			defer h.Close()

			var buf bytes.Buffer
			if err := h.Encode(&buf, FormatWebP, 80); !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("Encode(webp) error = %v, want ErrUnsupportedFormat", err)
			}
		})
	}
}

func TestCanvasBackground(t *testing.T) {
	opts := CanvasOptions{
		PreserveAlpha:         true,
		AlphaMaskColor:        color.NRGBA{R: 10, G: 20, B: 30, A: 255},
		PreserveTransparency:  true,
		TransparencyMaskColor: color.NRGBA{R: 1, G: 2, B: 3, A: 255},
	}

	tests := []struct {
		name     string
		opts     func(CanvasOptions) CanvasOptions
		format   Format
		expected color.NRGBA
	}{
		{"PNG keeps alpha", nil, FormatPNG, color.NRGBA{R: 10, G: 20, B: 30}},
		{"PNG flattened", func(o CanvasOptions) CanvasOptions { o.PreserveAlpha = false; return o }, FormatPNG, color.NRGBA{R: 10, G: 20, B: 30, A: 255}},
		{"GIF keyed", nil, FormatGIF, color.NRGBA{R: 1, G: 2, B: 3}},
		{"GIF flattened", func(o CanvasOptions) CanvasOptions { o.PreserveTransparency = false; return o }, FormatGIF, color.NRGBA{R: 10, G: 20, B: 30, A: 255}},
		{"JPEG opaque", nil, FormatJPEG, color.NRGBA{R: 10, G: 20, B: 30, A: 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := opts
			if tt.opts != nil {
				o = tt.opts(o)
			}
			if got := o.background(tt.format); got != tt.expected {
				t.Errorf("background(%s) = %v, want %v", tt.format, got, tt.expected)
			}
		})
	}
}

func TestCanvasAlphaPolicy(t *testing.T) {
	transparent := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	data := encodeTestImage(t, transparent, FormatPNG)

	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}

	tests := []struct {
		name          string
		preserveAlpha bool
		expected      color.NRGBA
	}{
		{"Preserved", true, color.NRGBA{}},
		{"Flattened onto mask", false, white},
	}

	for _, b := range pureGoEngines() {
		for _, tt := range tests {
			t.Run(b.Name()+"/"+tt.name, func(t *testing.T) {
				canvas := DefaultCanvasOptions()
				canvas.PreserveAlpha = tt.preserveAlpha

				h, err := b.Read(data, canvas)
				if err != nil {
					t.Fatalf("Read() error: %v", err)
				}
				defer h.Close()

				out, err := h.Crop(geometry.Rect{Width: 4, Height: 4})
				if err != nil {
					t.Fatalf("Crop() error: %v", err)
				}

				got := pixelAt(t, out, 1, 1)
				if got.A != tt.expected.A {
					t.Errorf("alpha = %d, want %d", got.A, tt.expected.A)
				}
				if tt.expected.A == 255 && got != tt.expected {
					t.Errorf("pixel = %v, want %v", got, tt.expected)
				}
			})
		}
	}
}

func TestGIFTransparencyKey(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	src.SetNRGBA(0, 0, red)

	canvas := DefaultCanvasOptions()
	h, err := NewRaster().Read(encodeTestImage(t, src, FormatPNG), canvas)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	defer h.Close()

	// Force the handle to behave as a GIF source.
	rh := h.(*rasterHandle)
	rh.format = FormatGIF

	var buf bytes.Buffer
	if err := h.Encode(&buf, FormatGIF, 0); err != nil {
		t.Fatalf("Encode(gif) error: %v", err)
	}

	img, err := gif.Decode(&buf)
	if err != nil {
		t.Fatalf("gif.Decode() error: %v", err)
	}
	p, ok := img.(*image.Paletted)
	if !ok {
		t.Fatalf("decoded %T, want *image.Paletted", img)
	}
	if _, _, _, a := p.Palette[0].RGBA(); a != 0 {
		t.Errorf("palette[0] alpha = %d, want transparent key", a)
	}
	if p.ColorIndexAt(1, 1) != 0 {
		t.Errorf("transparent pixel index = %d, want 0", p.ColorIndexAt(1, 1))
	}
}
