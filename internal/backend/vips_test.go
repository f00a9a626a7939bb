package backend

import (
	"bytes"
	"testing"

	"thumbnailer/internal/geometry"
)

// NOTE: govips cannot restart libvips after Shutdown, so nothing here
// calls ShutdownVips.

func TestIsVipsAvailable(t *testing.T) {
	t.Logf("libvips available: %v", IsVipsAvailable())
}

func TestInitVipsIdempotency(t *testing.T) {
	first := InitVips()
	second := InitVips()

	if (first == nil) != (second == nil) {
		t.Errorf("InitVips() results differ: %v then %v", first, second)
	}
	if first == nil && !IsVipsAvailable() {
		t.Error("After successful InitVips, IsVipsAvailable should return true")
	}
	if first != nil && IsVipsAvailable() {
		t.Error("IsVipsAvailable should be false when InitVips failed")
	}
}

func TestVipsEngineIfAvailable(t *testing.T) {
	b := NewVips()
	if err := b.Available(); err != nil {
		t.Skipf("libvips not available in test environment: %v", err)
	}

	formats := b.SupportedFormats()
	if !formats.CanRead(FormatJPEG) || !formats.CanWrite(FormatJPEG) {
		t.Fatalf("vips should read and write jpeg, got %v", formats)
	}

	h, err := b.Read(encodeTestImage(t, testImage(40, 20), FormatPNG), DefaultCanvasOptions())
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	defer h.Close()

	if h.Format() != FormatPNG {
		t.Errorf("Format() = %q, want png", h.Format())
	}

	resized, err := h.Resize(10, 5)
	if err != nil {
		t.Fatalf("Resize() error: %v", err)
	}
	defer resized.Close()
	if got := resized.Size(); got != (geometry.Dimensions{Width: 10, Height: 5}) {
		t.Errorf("Resize() size = %v, want 10x5", got)
	}

	rotated, err := h.Rotate(90)
	if err != nil {
		t.Fatalf("Rotate() error: %v", err)
	}
	defer rotated.Close()
	if got := rotated.Size(); got != (geometry.Dimensions{Width: 20, Height: 40}) {
		t.Errorf("Rotate(90) size = %v, want 20x40", got)
	}

	cropped, err := h.Crop(geometry.Rect{X: 5, Y: 5, Width: 10, Height: 10})
	if err != nil {
		t.Fatalf("Crop() error: %v", err)
	}
	defer cropped.Close()

	flipped, err := cropped.Flip()
	if err != nil {
		t.Fatalf("Flip() error: %v", err)
	}
	defer flipped.Close()

	var buf bytes.Buffer
	if err := flipped.Encode(&buf, FormatJPEG, 80); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if Detect(buf.Bytes()) != FormatJPEG {
		t.Error("Encode(jpeg) did not produce JPEG data")
	}

	if got := h.Size(); got != (geometry.Dimensions{Width: 40, Height: 20}) {
		t.Errorf("receiver changed to %v", got)
	}
}
