package processing

import (
	"errors"
	"image"
	"image/color"
)

const (
	// MaxPixels bounds the raster allocation for a single frame.
	MaxPixels = 4096 * 4096

	orderSamples = 10
)

var (
	ErrInvalidDimensions = errors.New("invalid frame dimensions")
	ErrFrameTooLarge     = errors.New("frame exceeds pixel limit")
)

var (
	fillPixel    = color.RGBA{R: 0, G: 0, B: 0, A: 0xFF}
	neutralPixel = color.RGBA{R: 128, G: 128, B: 128, A: 0xFF}
)

type ByteOrder int

const (
	OrderAuto ByteOrder = iota
	LittleEndian
	BigEndian
)

func (o ByteOrder) String() string {
	switch o {
	case LittleEndian:
		return "le"
	case BigEndian:
		return "be"
	default:
		return "auto"
	}
}

// ParseByteOrder accepts "le", "be" and their long forms; anything else is auto.
func ParseByteOrder(value string) ByteOrder {
	switch value {
	case "le", "LE", "little", "little-endian":
		return LittleEndian
	case "be", "BE", "big", "big-endian":
		return BigEndian
	default:
		return OrderAuto
	}
}

type Scaling int

const (
	// ScaleProportional maps v to round(v*255/max).
	ScaleProportional Scaling = iota
	// ScaleReplicate shifts v to the top bits and repeats its high bits below.
	ScaleReplicate
)

func ParseScaling(value string) (Scaling, error) {
	switch value {
	case "", "proportional":
		return ScaleProportional, nil
	case "replicate", "shift":
		return ScaleReplicate, nil
	default:
		return ScaleProportional, errors.New("unknown scaling " + value)
	}
}

type DecodeOptions struct {
	Order   ByteOrder
	Scaling Scaling
}

type Decoded struct {
	Image *image.RGBA
	Order ByteOrder
	// Pixels is the number of source pixels actually read.
	Pixels int
	// Expected is the payload length implied by the declared dimensions.
	Expected int
	Received int
}

func (d Decoded) SizeMismatch() bool {
	return d.Expected != d.Received
}

// DecodeRGB565 converts a headerless RGB565 buffer into an RGBA raster of
// width x height. Short buffers leave trailing cells at the fill color and
// surplus bytes are ignored. Only non-positive or oversized dimensions fail.
func DecodeRGB565(raw []byte, width, height int, opts DecodeOptions) (Decoded, error) {
	if width <= 0 || height <= 0 {
		return Decoded{}, ErrInvalidDimensions
	}
	if width > MaxPixels/height {
		return Decoded{}, ErrFrameTooLarge
	}

	total := width * height
	pixelCount := len(raw) / 2
	if pixelCount > total {
		pixelCount = total
	}

	order := opts.Order
	if order == OrderAuto {
		order = DetectByteOrder(raw, pixelCount)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < total; i++ {
		c := fillPixel
		if i < pixelCount {
			c = pixelAt(raw, i*2, order, opts.Scaling)
		}
		off := i * 4
		img.Pix[off] = c.R
		img.Pix[off+1] = c.G
		img.Pix[off+2] = c.B
		img.Pix[off+3] = c.A
	}

	return Decoded{
		Image:    img,
		Order:    order,
		Pixels:   pixelCount,
		Expected: total * 2,
		Received: len(raw),
	}, nil
}

func pixelAt(raw []byte, p int, order ByteOrder, scaling Scaling) color.RGBA {
	v, ok := read565(raw, p, order)
	if !ok {
		return neutralPixel
	}
	r, g, b := split565(v)
	return color.RGBA{
		R: scale(r, 5, scaling),
		G: scale(g, 6, scaling),
		B: scale(b, 5, scaling),
		A: 0xFF,
	}
}

func read565(raw []byte, p int, order ByteOrder) (uint16, bool) {
	if p < 0 || p+1 >= len(raw) {
		return 0, false
	}
	if order == BigEndian {
		return uint16(raw[p])<<8 | uint16(raw[p+1]), true
	}
	return uint16(raw[p+1])<<8 | uint16(raw[p]), true
}

func split565(v uint16) (r, g, b uint8) {
	return uint8(v>>11) & 0x1F, uint8(v>>5) & 0x3F, uint8(v) & 0x1F
}

func scale(v uint8, bits uint, scaling Scaling) uint8 {
	max := uint32(1)<<bits - 1
	if uint32(v) > max {
		v = uint8(max)
	}
	if scaling == ScaleReplicate {
		return v<<(8-bits) | v>>(2*bits-8)
	}
	return uint8((uint32(v)*255 + max/2) / max)
}

// DetectByteOrder guesses the byte order of an RGB565 buffer by comparing
// the pixel-to-pixel channel variation of the first few pixels under both
// readings. Photographic content varies more under the correct reading.
// Flat frames give no signal and resolve to little-endian.
func DetectByteOrder(raw []byte, pixelCount int) ByteOrder {
	samples := pixelCount
	if samples > orderSamples {
		samples = orderSamples
	}
	if samples < 2 {
		return LittleEndian
	}
	le := variation(raw, samples, LittleEndian)
	be := variation(raw, samples, BigEndian)
	if be > le {
		return BigEndian
	}
	return LittleEndian
}

func variation(raw []byte, samples int, order ByteOrder) int {
	total := 0
	var pr, pg, pb int
	for i := 0; i < samples; i++ {
		v, ok := read565(raw, i*2, order)
		if !ok {
			break
		}
		r5, g6, b5 := split565(v)
		r := int(scale(r5, 5, ScaleProportional))
		g := int(scale(g6, 6, ScaleProportional))
		b := int(scale(b5, 5, ScaleProportional))
		if i > 0 {
			total += abs(r-pr) + abs(g-pg) + abs(b-pb)
		}
		pr, pg, pb = r, g, b
	}
	return total
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
