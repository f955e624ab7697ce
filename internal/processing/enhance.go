package processing

import "image"

type EnhanceOptions struct {
	Normalize bool
	// Brightness and Contrast are in [-1, 1]; zero leaves the image unchanged.
	Brightness float64
	Contrast   float64
}

func DefaultEnhance() EnhanceOptions {
	return EnhanceOptions{
		Normalize:  true,
		Brightness: 0.1,
		Contrast:   0.2,
	}
}

// Enhance widens the narrow dynamic range of 565 sources in place:
// per-channel histogram stretch, then brightness, then contrast.
func Enhance(img *image.RGBA, opts EnhanceOptions) {
	if img == nil || len(img.Pix) == 0 {
		return
	}
	var lut [3][256]uint8
	for ch := 0; ch < 3; ch++ {
		lo, hi := uint8(0), uint8(255)
		if opts.Normalize {
			lo, hi = channelRange(img.Pix, ch)
		}
		for v := 0; v < 256; v++ {
			f := float64(v)
			if opts.Normalize && hi > lo {
				f = (f - float64(lo)) * 255 / float64(hi-lo)
			}
			f = brighten(f, clampUnit(opts.Brightness))
			f = contrast(f, clampUnit(opts.Contrast))
			lut[ch][v] = clampByte(f)
		}
	}
	for i := 0; i+3 < len(img.Pix); i += 4 {
		img.Pix[i] = lut[0][img.Pix[i]]
		img.Pix[i+1] = lut[1][img.Pix[i+1]]
		img.Pix[i+2] = lut[2][img.Pix[i+2]]
	}
}

func channelRange(pix []uint8, ch int) (uint8, uint8) {
	lo, hi := uint8(255), uint8(0)
	for i := ch; i < len(pix); i += 4 {
		v := pix[i]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func brighten(v, amount float64) float64 {
	if amount < 0 {
		return v * (1 + amount)
	}
	return v + (255-v)*amount
}

func contrast(v, amount float64) float64 {
	if amount >= 1 {
		amount = 0.999
	}
	factor := (amount + 1) / (1 - amount)
	return factor*(v-127.5) + 127.5
}

func clampUnit(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
