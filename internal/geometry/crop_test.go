package geometry

import (
	"image"
	"testing"
)

func TestPlanCrop(t *testing.T) {
	cur := Dimensions{200, 100}

	tests := []struct {
		name                string
		width, height, x, y int
		expected            Rect
	}{
		{"Inside", 50, 40, 10, 20, Rect{10, 20, 50, 40}},
		{"Overflow right shifts left", 50, 40, 180, 0, Rect{150, 0, 50, 40}},
		{"Overflow bottom shifts up", 50, 40, 0, 90, Rect{0, 60, 50, 40}},
		{"Oversized clamps to image", 500, 500, 30, 30, Rect{0, 0, 200, 100}},
		{"Negative offsets clamp to zero", 50, 40, -10, -5, Rect{0, 0, 50, 40}},
		{"Full image", 200, 100, 0, 0, Rect{0, 0, 200, 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlanCrop(cur, tt.width, tt.height, tt.x, tt.y)
			if got != tt.expected {
				t.Errorf("PlanCrop(%v, %d, %d, %d, %d) = %+v, want %+v",
					cur, tt.width, tt.height, tt.x, tt.y, got, tt.expected)
			}
		})
	}
}

func TestPlanCropAlwaysInBounds(t *testing.T) {
	currents := []Dimensions{{1, 1}, {7, 3}, {200, 100}, {100, 200}}
	values := []int{-1000, -51, -1, 0, 1, 6, 99, 100, 199, 200, 201, 5000}

	for _, cur := range currents {
		for _, w := range values {
			for _, h := range values {
				for _, x := range values {
					for _, y := range values {
						r := PlanCrop(cur, w, h, x, y)
						if !r.Within(cur) {
							t.Fatalf("PlanCrop(%v, %d, %d, %d, %d) = %+v is out of bounds", cur, w, h, x, y, r)
						}
					}
				}
			}
		}
	}
}

func TestPlanCenterCrop(t *testing.T) {
	tests := []struct {
		name          string
		cur           Dimensions
		width, height int
		expected      Rect
	}{
		{"Square from landscape", Dimensions{200, 100}, 50, 0, Rect{75, 25, 50, 50}},
		{"Explicit height", Dimensions{200, 100}, 100, 20, Rect{50, 40, 100, 20}},
		{"Larger than image", Dimensions{200, 100}, 300, 300, Rect{0, 0, 200, 100}},
		{"Odd remainder floors", Dimensions{101, 51}, 50, 0, Rect{25, 0, 50, 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlanCenterCrop(tt.cur, tt.width, tt.height)
			if got != tt.expected {
				t.Errorf("PlanCenterCrop(%v, %d, %d) = %+v, want %+v", tt.cur, tt.width, tt.height, got, tt.expected)
			}
		})
	}
}

func TestPlanAdaptiveCrop(t *testing.T) {
	tests := []struct {
		name     string
		cur      Dimensions
		expected Rect
	}{
		{"Wide overflow", Dimensions{134, 100}, Rect{17, 0, 100, 100}},
		{"Tall overflow", Dimensions{100, 134}, Rect{0, 17, 100, 100}},
		{"Exact", Dimensions{100, 100}, Rect{0, 0, 100, 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlanAdaptiveCrop(tt.cur, 100, 100)
			if got != tt.expected {
				t.Errorf("PlanAdaptiveCrop(%v) = %+v, want %+v", tt.cur, got, tt.expected)
			}
		})
	}
}

func TestRectImage(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 30, Height: 40}
	if got := r.Image(); got != image.Rect(10, 20, 40, 60) {
		t.Errorf("Image() = %v", got)
	}
	if got := r.String(); got != "30x40+10+20" {
		t.Errorf("String() = %q", got)
	}
	if got := r.Dimensions(); got != (Dimensions{30, 40}) {
		t.Errorf("Dimensions() = %v", got)
	}
}
