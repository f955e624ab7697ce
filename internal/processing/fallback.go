package processing

import (
	"image"
	"image/color"
)

const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// MakeFallbackRaster returns a placeholder raster with a diagonal gradient.
// Non-positive or oversized dimensions are replaced by the defaults.
func MakeFallbackRaster(width, height int) *image.RGBA {
	if width <= 0 || height <= 0 || width > MaxPixels/height {
		width, height = DefaultWidth, DefaultHeight
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x * 255 / maxInt(width-1, 1)),
				G: uint8(y * 255 / maxInt(height-1, 1)),
				B: 0x80,
				A: 0xFF,
			})
		}
	}
	return img
}

// DecodeOrFallback decodes once and, on a structural failure, substitutes
// the fallback raster. The returned error is the decode error, if any.
func DecodeOrFallback(raw []byte, width, height int, opts DecodeOptions) (Decoded, bool, error) {
	decoded, err := DecodeRGB565(raw, width, height, opts)
	if err == nil {
		return decoded, false, nil
	}
	img := MakeFallbackRaster(width, height)
	bounds := img.Bounds()
	return Decoded{
		Image:    img,
		Order:    OrderAuto,
		Expected: bounds.Dx() * bounds.Dy() * 2,
		Received: len(raw),
	}, true, err
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
