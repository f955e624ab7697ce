package simulator

import (
	"context"
	"fmt"
	"time"

	"fridgecam-go/internal/types"
)

const squareSize = 50

// Checkerboard renders a 50px red/green/blue/white RGB565 checkerboard,
// the test card camera modules upload when exercising the server.
func Checkerboard(width, height int, bigEndian bool) []byte {
	if width <= 0 || height <= 0 {
		return nil
	}
	buf := make([]byte, width*height*2)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			evenX := (x/squareSize)%2 == 0
			evenY := (y/squareSize)%2 == 0
			var r, g, b uint16
			switch {
			case evenX && evenY:
				r = 31
			case !evenX && evenY:
				g = 63
			case evenX && !evenY:
				b = 31
			default:
				r, g, b = 31, 63, 31
			}
			PutPixel(buf, y*width+x, r, g, b, bigEndian)
		}
	}
	return buf
}

// PutPixel packs 5/6/5-bit channels into buf at pixel index i.
func PutPixel(buf []byte, i int, r, g, b uint16, bigEndian bool) {
	v := (r&0x1F)<<11 | (g&0x3F)<<5 | (b & 0x1F)
	pos := i * 2
	if bigEndian {
		buf[pos] = byte(v >> 8)
		buf[pos+1] = byte(v)
		return
	}
	buf[pos] = byte(v)
	buf[pos+1] = byte(v >> 8)
}

// Stream emits checkerboard frames at rate frames per second, shifting the
// pattern each frame so consecutive uploads differ.
func Stream(ctx context.Context, width, height int, rate float64) <-chan types.RawMessage {
	out := make(chan types.RawMessage)
	go func() {
		defer close(out)
		if rate <= 0 {
			rate = 1
		}
		ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
		defer ticker.Stop()

		base := Checkerboard(width, height, false)
		seq := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				data := make([]byte, len(base))
				shift := (seq % squareSize) * 2
				if shift > len(base) {
					shift = 0
				}
				copy(data, base[shift:])
				copy(data[len(base)-shift:], base[:shift])

				msg := types.RawMessage{
					Type: "frame",
					Frame: types.RawFrame{
						ID:         fmt.Sprintf("sim-%06d", seq),
						Width:      width,
						Height:     height,
						Format:     types.FormatRGB565,
						Data:       data,
						ReceivedAt: time.Now(),
						Source:     "simulator",
					},
				}
				select {
				case <-ctx.Done():
					return
				case out <- msg:
				}
				seq++
			}
		}
	}()

	return out
}
