package processing

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"fridgecam-go/internal/classify"
	"fridgecam-go/internal/output"
	"fridgecam-go/internal/types"
)

var ErrEmptyFrame = errors.New("empty frame payload")

type PipelineConfig struct {
	Decode      DecodeOptions
	Enhance     bool
	EnhanceOpts EnhanceOptions
	JPEGQuality int
}

// Pipeline turns one uploaded frame into a stored JPEG and a recognition.
type Pipeline struct {
	cfg        PipelineConfig
	store      output.Store
	classifier classify.Classifier
}

func NewPipeline(cfg PipelineConfig, store output.Store, classifier classify.Classifier) *Pipeline {
	return &Pipeline{cfg: cfg, store: store, classifier: classifier}
}

func (p *Pipeline) Process(ctx context.Context, frame types.RawFrame) (types.Result, error) {
	result := types.Result{
		FrameID: frame.ID,
		Source:  frame.Source,
		Format:  frame.Format,
		Width:   frame.Width,
		Height:  frame.Height,
	}
	if len(frame.Data) == 0 {
		return p.fail(result, ErrEmptyFrame)
	}

	jpegBytes := frame.Data
	prefix := "jpeg"
	if strings.EqualFold(frame.Format, types.FormatRGB565) {
		prefix = "esp32"
		encoded, decoded, fallback, err := p.convert(frame)
		if err != nil {
			return p.fail(result, err)
		}
		jpegBytes = encoded
		result.Fallback = fallback
		result.Pixels = decoded.Pixels
		if !fallback {
			result.ByteOrder = decoded.Order.String()
		}
	}

	if p.store != nil {
		saved, err := p.store.SaveImage(prefix, jpegBytes)
		if err != nil {
			log.Error().Err(err).Str("frame", frame.ID).Msg("save image failed")
		} else {
			result.SavedPath = saved
			meta := output.Metadata{
				CapturedAt:   frame.ReceivedAt,
				Width:        frame.Width,
				Height:       frame.Height,
				Format:       frame.Format,
				OriginalSize: len(frame.Data),
				ByteOrder:    result.ByteOrder,
				Fallback:     result.Fallback,
				SavedPath:    saved,
			}
			if err := p.store.SaveMetadata(saved, meta); err != nil {
				log.Warn().Err(err).Str("frame", frame.ID).Msg("save metadata failed")
			}
		}
	}

	if p.classifier != nil {
		rec, err := p.classifier.Classify(ctx, jpegBytes)
		if err != nil {
			return p.fail(result, fmt.Errorf("classify: %w", err))
		}
		result.Recognition = &rec
	}

	result.ProcessedAt = time.Now()
	return result, nil
}

func (p *Pipeline) convert(frame types.RawFrame) ([]byte, Decoded, bool, error) {
	if p.store != nil {
		tmp, err := p.store.SaveTemp(frame.ID+".raw", frame.Data)
		if err != nil {
			log.Warn().Err(err).Str("frame", frame.ID).Msg("save raw frame failed")
		} else {
			defer func() {
				if err := p.store.Remove(tmp); err != nil {
					log.Warn().Err(err).Str("path", tmp).Msg("remove raw frame failed")
				}
			}()
		}
	}

	decoded, fallback, err := DecodeOrFallback(frame.Data, frame.Width, frame.Height, p.decodeOptions(frame))
	if err != nil {
		log.Warn().Err(err).
			Str("frame", frame.ID).
			Int("width", frame.Width).
			Int("height", frame.Height).
			Msg("decode failed, using fallback raster")
	} else if decoded.SizeMismatch() {
		log.Warn().
			Str("frame", frame.ID).
			Int("received", decoded.Received).
			Int("expected", decoded.Expected).
			Msg("image data size mismatch")
	}

	if p.cfg.Enhance && !fallback {
		Enhance(decoded.Image, p.cfg.EnhanceOpts)
	}
	encoded, err := output.EncodeJPEG(decoded.Image, p.cfg.JPEGQuality)
	if err != nil {
		return nil, decoded, fallback, fmt.Errorf("encode jpeg: %w", err)
	}
	return encoded, decoded, fallback, nil
}

func (p *Pipeline) fail(result types.Result, err error) (types.Result, error) {
	result.Error = err.Error()
	result.ProcessedAt = time.Now()
	return result, err
}

// Raster runs only the decode step, for tools that need pixels but no
// storage or classification. err is the decode error behind a fallback.
func (p *Pipeline) Raster(frame types.RawFrame) (image.Image, Decoded, bool, error) {
	decoded, fallback, err := DecodeOrFallback(frame.Data, frame.Width, frame.Height, p.decodeOptions(frame))
	if p.cfg.Enhance && !fallback {
		Enhance(decoded.Image, p.cfg.EnhanceOpts)
	}
	return decoded.Image, decoded, fallback, err
}

// A byte order declared by the transport wins over inference.
func (p *Pipeline) decodeOptions(frame types.RawFrame) DecodeOptions {
	opts := p.cfg.Decode
	if order := ParseByteOrder(frame.Order); order != OrderAuto {
		opts.Order = order
	}
	return opts
}
