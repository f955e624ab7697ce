package processing

import (
	"image"
	"image/color"
	"testing"
)

func TestEnhanceNormalizeStretchesRange(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 100, G: 10, B: 50, A: 255})
	img.SetRGBA(1, 0, color.RGBA{R: 150, G: 20, B: 50, A: 255})

	Enhance(img, EnhanceOptions{Normalize: true})

	lo, hi := img.RGBAAt(0, 0), img.RGBAAt(1, 0)
	if lo.R != 0 || hi.R != 255 {
		t.Fatalf("red not stretched: %d..%d", lo.R, hi.R)
	}
	if lo.G != 0 || hi.G != 255 {
		t.Fatalf("green not stretched: %d..%d", lo.G, hi.G)
	}
	if lo.B != 50 || hi.B != 50 {
		t.Fatalf("flat blue channel changed: %d %d", lo.B, hi.B)
	}
	if lo.A != 255 {
		t.Fatalf("alpha changed: %d", lo.A)
	}
}

func TestEnhanceBrightnessAndContrast(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 100, G: 200, B: 0, A: 255})

	Enhance(img, EnhanceOptions{Brightness: 0.5})
	if c := img.RGBAAt(0, 0); c.R != 178 || c.G != 228 || c.B != 128 {
		t.Fatalf("unexpected brightened pixel: %#v", c)
	}

	img.SetRGBA(0, 0, color.RGBA{R: 100, G: 200, B: 128, A: 255})
	Enhance(img, EnhanceOptions{Contrast: 0.5})
	if c := img.RGBAAt(0, 0); c.R >= 100 || c.G <= 200 {
		t.Fatalf("contrast did not spread values: %#v", c)
	}
}

func TestEnhanceNil(t *testing.T) {
	Enhance(nil, DefaultEnhance())
}
