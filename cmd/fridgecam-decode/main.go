package main

import (
	"flag"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"fridgecam-go/internal/logging"
	"fridgecam-go/internal/output"
	"fridgecam-go/internal/processing"
	"fridgecam-go/internal/types"
)

func main() {
	var (
		path    = flag.String("path", "", "Path to a .raw RGB565 file or a directory of them")
		outDir  = flag.String("out", "", "Output directory (defaults next to each input)")
		width   = flag.Int("width", 640, "Frame width in pixels")
		height  = flag.Int("height", 480, "Frame height in pixels")
		order   = flag.String("order", "auto", "Byte order: auto, le or be")
		scaling = flag.String("scaling", "proportional", "Channel scaling: proportional or replicate")
		enhance = flag.Bool("enhance", false, "Normalize, brighten and add contrast")
		quality = flag.Int("quality", output.DefaultJPEGQuality, "JPEG quality (1-100)")
	)
	flag.Parse()

	logging.Init("fridgecam-decode")

	if *path == "" {
		log.Fatal().Msg("missing -path")
	}
	scale, err := processing.ParseScaling(*scaling)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -scaling")
	}

	files, err := listFiles(*path)
	if err != nil {
		log.Fatal().Err(err).Msg("list files")
	}

	pipeline := processing.NewPipeline(processing.PipelineConfig{
		Decode: processing.DecodeOptions{
			Order:   processing.ParseByteOrder(*order),
			Scaling: scale,
		},
		Enhance:     *enhance,
		EnhanceOpts: processing.DefaultEnhance(),
	}, nil, nil)

	var converted, fallbacks int
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			log.Error().Err(err).Str("file", file).Msg("read failed")
			continue
		}
		frame := types.RawFrame{
			ID:         strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)),
			Width:      *width,
			Height:     *height,
			Format:     types.FormatRGB565,
			Data:       data,
			ReceivedAt: time.Now(),
			Source:     "file",
		}
		img, decoded, fallback, err := pipeline.Raster(frame)
		if err != nil {
			log.Warn().Err(err).Str("file", file).Msg("decode failed, writing fallback raster")
		}
		if fallback {
			fallbacks++
		}
		encoded, err := output.EncodeJPEG(img, *quality)
		if err != nil {
			log.Error().Err(err).Str("file", file).Msg("encode failed")
			continue
		}
		dir := filepath.Dir(file)
		if *outDir != "" {
			dir = *outDir
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Fatal().Err(err).Msg("create output dir")
			}
		}
		target := filepath.Join(dir, frame.ID+".jpg")
		if err := os.WriteFile(target, encoded, 0o644); err != nil {
			log.Error().Err(err).Str("file", target).Msg("write failed")
			continue
		}
		converted++
		log.Info().
			Str("file", target).
			Str("order", decoded.Order.String()).
			Int("pixels", decoded.Pixels).
			Bool("size_mismatch", decoded.SizeMismatch()).
			Bool("fallback", fallback).
			Msg("converted")
	}

	log.Info().Int("converted", converted).Int("fallback", fallbacks).Int("files", len(files)).Msg("summary")
}

func listFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) == ".raw" {
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
