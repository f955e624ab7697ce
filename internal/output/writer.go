package output

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultJPEGQuality = 90

	maxNameAttempts = 1000
)

// Metadata is written next to each saved image as a plain text info file.
type Metadata struct {
	CapturedAt   time.Time
	Width        int
	Height       int
	Format       string
	OriginalSize int
	ByteOrder    string
	Fallback     bool
	SavedPath    string
}

// Store is the filesystem capability handed to the pipeline. Temp files are
// scratch space; saved images are permanent copies.
type Store interface {
	SaveTemp(name string, data []byte) (string, error)
	SaveImage(prefix string, data []byte) (string, error)
	SaveMetadata(imagePath string, meta Metadata) error
	Remove(path string) error
}

type DirStore struct {
	TempDir  string
	SavedDir string
	now      func() time.Time
}

func NewDirStore(tempDir, savedDir string) (*DirStore, error) {
	for _, dir := range []string{tempDir, savedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &DirStore{TempDir: tempDir, SavedDir: savedDir, now: time.Now}, nil
}

func (s *DirStore) SaveTemp(name string, data []byte) (string, error) {
	path := filepath.Join(s.TempDir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// SaveImage writes a permanent copy named <prefix>_image_<timestamp>.jpg.
// Concurrent saves within the same timestamp get a numeric suffix instead
// of overwriting each other.
func (s *DirStore) SaveImage(prefix string, data []byte) (string, error) {
	ts := strings.NewReplacer(":", "-", ".", "-").Replace(s.now().UTC().Format(time.RFC3339Nano))
	base := fmt.Sprintf("%s_image_%s", prefix, ts)
	for n := 0; n < maxNameAttempts; n++ {
		name := base + ".jpg"
		if n > 0 {
			name = fmt.Sprintf("%s_%d.jpg", base, n)
		}
		path := filepath.Join(s.SavedDir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", err
		}
		if err := f.Close(); err != nil {
			return "", err
		}
		return path, nil
	}
	return "", fmt.Errorf("no free image name for %s", base)
}

func (s *DirStore) SaveMetadata(imagePath string, meta Metadata) error {
	path := strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + "_info.txt"
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteMetadata(f, meta); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (s *DirStore) Remove(path string) error {
	return os.Remove(path)
}

func WriteMetadata(w io.Writer, meta Metadata) error {
	_, err := fmt.Fprintf(w,
		"Image captured: %s\nResolution: %dx%d\nOriginal format: %s\nOriginal size: %d bytes\nByte order: %s\nFallback: %t\nConverted to: JPEG\nSaved path: %s\n",
		meta.CapturedAt.Format(time.RFC1123),
		meta.Width,
		meta.Height,
		meta.Format,
		meta.OriginalSize,
		orDash(meta.ByteOrder),
		meta.Fallback,
		meta.SavedPath,
	)
	return err
}

// EncodeJPEG encodes img at the given quality; out-of-range values use the default.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
