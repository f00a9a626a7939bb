package thumbnail

import (
	"errors"
	"image/color"
	"testing"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.ResizeUp {
		t.Error("ResizeUp should default to false")
	}
	if opts.JPEGQuality != 100 {
		t.Errorf("JPEGQuality = %d, want 100", opts.JPEGQuality)
	}
	if !opts.PreserveAlpha || !opts.PreserveTransparency {
		t.Error("alpha and transparency should be preserved by default")
	}
	if opts.AlphaMaskColor != (RGB{R: 255, G: 255, B: 255}) {
		t.Errorf("AlphaMaskColor = %s, want #ffffff", opts.AlphaMaskColor)
	}
	if opts.TransparencyMaskColor != (RGB{}) {
		t.Errorf("TransparencyMaskColor = %s, want #000000", opts.TransparencyMaskColor)
	}
	if opts.CorrectPermissions {
		t.Error("CorrectPermissions should default to false")
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		quality int
		wantErr bool
	}{
		{-1, true},
		{0, false},
		{50, false},
		{100, false},
		{101, true},
	}

	for _, tt := range tests {
		opts := DefaultOptions()
		opts.JPEGQuality = tt.quality

		err := opts.Validate()
		if tt.wantErr && !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Validate() with quality %d error = %v, want ErrInvalidArgument", tt.quality, err)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("Validate() with quality %d error: %v", tt.quality, err)
		}
	}
}

func TestOptionsQuality(t *testing.T) {
	opts := DefaultOptions()

	opts.JPEGQuality = 0
	if q := opts.quality(); q != 1 {
		t.Errorf("quality() = %d for 0, want 1", q)
	}

	opts.JPEGQuality = 85
	if q := opts.quality(); q != 85 {
		t.Errorf("quality() = %d, want 85", q)
	}
}

func TestOptionsCanvas(t *testing.T) {
	opts := DefaultOptions()
	opts.PreserveAlpha = false
	opts.AlphaMaskColor = RGB{R: 10, G: 20, B: 30}

	canvas := opts.canvas()
	if canvas.PreserveAlpha {
		t.Error("PreserveAlpha not carried to canvas")
	}
	if canvas.AlphaMaskColor != (color.NRGBA{R: 10, G: 20, B: 30, A: 255}) {
		t.Errorf("AlphaMaskColor = %v", canvas.AlphaMaskColor)
	}
	if !canvas.PreserveTransparency {
		t.Error("PreserveTransparency not carried to canvas")
	}
}

func TestRGBString(t *testing.T) {
	tests := []struct {
		color    RGB
		expected string
	}{
		{RGB{}, "#000000"},
		{RGB{R: 255, G: 255, B: 255}, "#ffffff"},
		{RGB{R: 0x12, G: 0xab, B: 0x0f}, "#12ab0f"},
	}

	for _, tt := range tests {
		if got := tt.color.String(); got != tt.expected {
			t.Errorf("String() = %q, want %q", got, tt.expected)
		}
	}
}

func TestOptionsCopy(t *testing.T) {
	opts := DefaultOptions()
	opts.Engines = []string{"raster"}

	th, err := New(opts)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	opts.Engines[0] = "vips"
	got := th.Options()
	if got.Engines[0] != "raster" {
		t.Errorf("session options changed with caller slice: %v", got.Engines)
	}

	got.Engines[0] = "imaging"
	if th.Options().Engines[0] != "raster" {
		t.Error("Options() exposes internal slice")
	}
}
