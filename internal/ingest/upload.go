package ingest

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"fridgecam-go/internal/types"
)

const (
	HeaderFormat    = "X-Image-Format"
	HeaderWidth     = "X-Image-Width"
	HeaderHeight    = "X-Image-Height"
	HeaderByteOrder = "X-Image-Byte-Order"
)

var (
	ErrEmptyBody    = errors.New("empty image body")
	ErrBodyTooLarge = errors.New("image body too large")
)

type UploadDefaults struct {
	Width    int
	Height   int
	MaxBytes int64
}

// ParseUpload reads an image upload. Frames marked RGB565 keep the declared
// (or default) dimensions; anything else is treated as a JPEG passthrough.
func ParseUpload(r *http.Request, defaults UploadDefaults) (types.RawFrame, error) {
	limit := defaults.MaxBytes
	if limit <= 0 {
		limit = 16 << 20
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return types.RawFrame{}, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return types.RawFrame{}, ErrBodyTooLarge
	}
	if len(body) == 0 {
		return types.RawFrame{}, ErrEmptyBody
	}

	frame := types.RawFrame{
		ID:         uuid.NewString(),
		Format:     types.FormatJPEG,
		Data:       body,
		ReceivedAt: time.Now(),
		Source:     "http",
	}
	if !strings.EqualFold(strings.TrimSpace(r.Header.Get(HeaderFormat)), types.FormatRGB565) {
		return frame, nil
	}
	frame.Format = types.FormatRGB565
	frame.Width = headerInt(r.Header, HeaderWidth, defaults.Width)
	frame.Height = headerInt(r.Header, HeaderHeight, defaults.Height)
	frame.Order = strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderByteOrder)))
	return frame, nil
}

func headerInt(h http.Header, key string, fallback int) int {
	raw := strings.TrimSpace(h.Get(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
