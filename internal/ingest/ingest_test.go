package ingest

import (
	"context"
	"testing"

	"github.com/fxamacker/cbor/v2"

	"fridgecam-go/internal/types"
)

func TestDecodeMessageFrame(t *testing.T) {
	msg := map[string]any{
		"type":       "frame",
		"image_id":   7,
		"width":      2,
		"height":     1,
		"start_time": 1.25,
		"data":       []byte{0x00, 0xF8, 0x00, 0xF8},
	}

	payload, err := cbor.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	raw, err := decodeMessage(payload)
	if err != nil {
		t.Fatalf("decodeMessage error: %v", err)
	}
	if raw.Type != "frame" {
		t.Fatalf("unexpected type: %q", raw.Type)
	}
	frame := raw.Frame
	if frame.ID != "frame-7" {
		t.Fatalf("unexpected id: %q", frame.ID)
	}
	if frame.Width != 2 || frame.Height != 1 {
		t.Fatalf("unexpected dimensions: %dx%d", frame.Width, frame.Height)
	}
	if frame.Format != types.FormatRGB565 {
		t.Fatalf("unexpected format: %q", frame.Format)
	}
	if len(frame.Data) != 4 || frame.Data[1] != 0xF8 {
		t.Fatalf("unexpected data: %v", frame.Data)
	}
	if frame.ReceivedAt.UnixMilli() != 1250 {
		t.Fatalf("unexpected start time: %v", frame.ReceivedAt)
	}
}

func TestDecodeMessageMultiDimBigEndian(t *testing.T) {
	msg := map[string]any{
		"type":   "frame",
		"width":  99,
		"height": 99,
		"data": cbor.Tag{
			Number: tagMultiDimArray,
			Content: []any{
				[]any{2, 3},
				cbor.Tag{Number: tagUint16BE, Content: make([]byte, 12)},
			},
		},
	}
	payload, err := cbor.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	raw, err := decodeMessage(payload)
	if err != nil {
		t.Fatalf("decodeMessage error: %v", err)
	}
	if raw.Frame.Width != 3 || raw.Frame.Height != 2 {
		t.Fatalf("shape should override declared size: %dx%d", raw.Frame.Width, raw.Frame.Height)
	}
	if raw.Frame.Order != "be" {
		t.Fatalf("unexpected order: %q", raw.Frame.Order)
	}
	if raw.Frame.ID == "" {
		t.Fatalf("missing generated id")
	}
}

func TestDecodeMessageSession(t *testing.T) {
	payload, err := cbor.Marshal(map[string]any{"type": "start", "camera": "esp32-cam"})
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	raw, err := decodeMessage(payload)
	if err != nil {
		t.Fatalf("decodeMessage error: %v", err)
	}
	if raw.Type != "start" || raw.Meta["camera"] != "esp32-cam" {
		t.Fatalf("unexpected session message: %#v", raw)
	}
	if _, ok := raw.Meta["type"]; ok {
		t.Fatalf("type key should be stripped from meta")
	}
}

func TestDecodeMessageRejects(t *testing.T) {
	cases := []map[string]any{
		{"type": "unknown"},
		{"type": "frame", "width": "2", "height": 1, "data": []byte{0, 0}},
		{"type": "frame", "width": 2, "height": 1, "data": "pixels"},
	}
	for i, msg := range cases {
		payload, err := cbor.Marshal(msg)
		if err != nil {
			t.Fatalf("case %d: marshal error: %v", i, err)
		}
		if _, err := decodeMessage(payload); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
	if _, err := decodeMessage([]byte{0xFF, 0x00}); err == nil {
		t.Fatalf("expected CBOR error")
	}
}

func TestStreamRejectsBadEndpoint(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if _, err := Stream(ctx, "not-an-endpoint", 0, nil); err == nil {
		t.Fatalf("expected connect error for malformed endpoint")
	}
}
