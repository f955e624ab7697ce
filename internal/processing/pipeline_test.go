package processing

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"sync"
	"testing"
	"time"

	"fridgecam-go/internal/classify"
	"fridgecam-go/internal/output"
	"fridgecam-go/internal/types"
)

type memStore struct {
	mu      sync.Mutex
	temp    map[string][]byte
	images  map[string][]byte
	meta    map[string]output.Metadata
	removed []string
}

func newMemStore() *memStore {
	return &memStore{
		temp:   make(map[string][]byte),
		images: make(map[string][]byte),
		meta:   make(map[string]output.Metadata),
	}
}

func (s *memStore) SaveTemp(name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temp[name] = data
	return name, nil
}

func (s *memStore) SaveImage(prefix string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := prefix + ".jpg"
	s.images[path] = data
	return path, nil
}

func (s *memStore) SaveMetadata(imagePath string, meta output.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[imagePath] = meta
	return nil
}

func (s *memStore) Remove(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.temp, path)
	s.removed = append(s.removed, path)
	return nil
}

type failingClassifier struct{}

func (failingClassifier) Classify(context.Context, []byte) (types.Recognition, error) {
	return types.Recognition{}, errors.New("service down")
}

func rgb565Frame(w, h int) types.RawFrame {
	return types.RawFrame{
		ID:         "frame-1",
		Width:      w,
		Height:     h,
		Format:     types.FormatRGB565,
		Data:       redBlue(w*h, false),
		ReceivedAt: time.Now(),
		Source:     "test",
	}
}

func TestPipelineProcessRGB565(t *testing.T) {
	store := newMemStore()
	p := NewPipeline(PipelineConfig{Enhance: true, EnhanceOpts: DefaultEnhance()}, store, classify.MockClassifier{})

	result, err := p.Process(context.Background(), rgb565Frame(8, 4))
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if result.ByteOrder != "le" {
		t.Fatalf("unexpected byte order: %q", result.ByteOrder)
	}
	if result.Fallback {
		t.Fatalf("unexpected fallback")
	}
	if result.Pixels != 32 {
		t.Fatalf("unexpected pixels: %d", result.Pixels)
	}
	if result.Recognition == nil || !result.Recognition.IsFood {
		t.Fatalf("missing recognition: %#v", result.Recognition)
	}

	data, ok := store.images["esp32.jpg"]
	if !ok {
		t.Fatalf("image not saved: %v", store.images)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("saved image is not a JPEG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 4 {
		t.Fatalf("unexpected saved bounds: %v", b)
	}
	if meta := store.meta["esp32.jpg"]; meta.OriginalSize != 64 || meta.Format != types.FormatRGB565 {
		t.Fatalf("unexpected metadata: %#v", meta)
	}
	if len(store.temp) != 0 || len(store.removed) != 1 {
		t.Fatalf("temp raw frame not cleaned up: temp=%v removed=%v", store.temp, store.removed)
	}
}

func TestPipelineFallbackOnBadDimensions(t *testing.T) {
	store := newMemStore()
	p := NewPipeline(PipelineConfig{}, store, nil)

	frame := rgb565Frame(4, 4)
	frame.Width = 0
	result, err := p.Process(context.Background(), frame)
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if !result.Fallback {
		t.Fatalf("expected fallback result")
	}
	img, err := jpeg.Decode(bytes.NewReader(store.images["esp32.jpg"]))
	if err != nil {
		t.Fatalf("decode fallback jpeg: %v", err)
	}
	if b := img.Bounds(); b.Dx() != DefaultWidth || b.Dy() != DefaultHeight {
		t.Fatalf("unexpected fallback bounds: %v", b)
	}
}

func TestPipelineJPEGPassthrough(t *testing.T) {
	store := newMemStore()
	p := NewPipeline(PipelineConfig{}, store, classify.MockClassifier{})

	payload := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	result, err := p.Process(context.Background(), types.RawFrame{ID: "j", Format: types.FormatJPEG, Data: payload})
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if !bytes.Equal(store.images["jpeg.jpg"], payload) {
		t.Fatalf("passthrough bytes changed")
	}
	if result.ByteOrder != "" || len(store.temp) != 0 {
		t.Fatalf("passthrough should not decode: %#v", result)
	}
}

func TestPipelineErrors(t *testing.T) {
	p := NewPipeline(PipelineConfig{}, nil, failingClassifier{})

	if _, err := p.Process(context.Background(), types.RawFrame{ID: "empty"}); !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("expected ErrEmptyFrame, got %v", err)
	}
	result, err := p.Process(context.Background(), rgb565Frame(2, 2))
	if err == nil {
		t.Fatalf("expected classifier error")
	}
	if result.Error == "" {
		t.Fatalf("result should carry the error")
	}
}

func TestPipelineDeclaredOrderWins(t *testing.T) {
	p := NewPipeline(PipelineConfig{}, nil, nil)
	frame := rgb565Frame(4, 2)
	frame.Order = "be"
	result, err := p.Process(context.Background(), frame)
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if result.ByteOrder != "be" {
		t.Fatalf("unexpected byte order: %q", result.ByteOrder)
	}
}
