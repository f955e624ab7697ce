package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"fridgecam-go/internal/classify"
	"fridgecam-go/internal/config"
	"fridgecam-go/internal/ingest"
	"fridgecam-go/internal/logging"
	"fridgecam-go/internal/output"
	"fridgecam-go/internal/processing"
	"fridgecam-go/internal/server"
	"fridgecam-go/internal/simulator"
	"fridgecam-go/internal/types"
)

type metrics struct {
	streamFrames  atomic.Uint64
	metaMessages  atomic.Uint64
	resultsOK     atomic.Uint64
	resultsFailed atomic.Uint64
	fallbacks     atomic.Uint64
	uiBroadcast   atomic.Uint64
	uiDropped     atomic.Uint64
}

func (m *metrics) snapshot() map[string]any {
	return map[string]any{
		"stream_frames_total":  m.streamFrames.Load(),
		"meta_messages_total":  m.metaMessages.Load(),
		"results_ok_total":     m.resultsOK.Load(),
		"results_failed_total": m.resultsFailed.Load(),
		"fallback_total":       m.fallbacks.Load(),
		"ui_broadcast_total":   m.uiBroadcast.Load(),
		"ui_dropped_total":     m.uiDropped.Load(),
	}
}

func main() {
	var (
		configPath    = flag.String("config", "", "Path to a TOML config file")
		port          = flag.Int("port", 0, "HTTP port for the API and web UI")
		endpoint      = flag.String("endpoint", "", "ZMQ endpoint for camera bridges")
		ingestOn      = flag.Bool("ingest", false, "Pull frames from the ZMQ endpoint")
		workers       = flag.Int("workers", 0, "Number of processing workers")
		debug         = flag.Bool("debug", false, "Feed simulated checkerboard frames")
		debugRate     = flag.Float64("debug-rate", 0, "Simulated frame rate (frames/sec)")
		classifierURL = flag.String("classifier-url", "", "Classifier endpoint; empty uses the built-in mock")
		rawLog        = flag.Bool("raw-log", false, "Write raw CBOR messages to disk")
		enhance       = flag.Bool("enhance", true, "Normalize, brighten and add contrast to decoded frames")
	)
	flag.Parse()

	logging.Init("fridgecam")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "endpoint":
			cfg.Endpoint = *endpoint
		case "ingest":
			cfg.IngestEnabled = *ingestOn
		case "workers":
			cfg.Workers = *workers
		case "debug":
			cfg.Debug = *debug
		case "debug-rate":
			cfg.DebugRate = *debugRate
		case "classifier-url":
			cfg.ClassifierURL = *classifierURL
		case "raw-log":
			cfg.RawLogEnabled = *rawLog
		case "enhance":
			cfg.Enhance = *enhance
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := output.NewDirStore(cfg.TempDir, cfg.SavedDir)
	if err != nil {
		log.Fatal().Err(err).Msg("create image store")
	}

	var classifier classify.Classifier = classify.MockClassifier{}
	if cfg.ClassifierURL != "" {
		classifier = classify.NewHTTPClassifier(cfg.ClassifierURL, cfg.ClassifierTimeout.Duration)
	}

	scaling, err := processing.ParseScaling(cfg.Scaling)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid scaling")
	}
	pipeline := processing.NewPipeline(processing.PipelineConfig{
		Decode: processing.DecodeOptions{
			Order:   processing.ParseByteOrder(cfg.ByteOrder),
			Scaling: scaling,
		},
		Enhance:     cfg.Enhance,
		EnhanceOpts: processing.DefaultEnhance(),
		JPEGQuality: cfg.JPEGQuality,
	}, store, classifier)
	pool := processing.NewPool(pipeline, cfg.Workers, cfg.QueueSize)

	var m metrics
	var statusMu sync.Mutex
	status := map[string]any{
		"source":      "http",
		"classifier":  "unknown",
		"last_frame":  "",
		"last_result": "",
		"session":     nil,
	}
	setStatus := func(key string, value any) {
		statusMu.Lock()
		status[key] = value
		statusMu.Unlock()
	}

	var messages <-chan types.RawMessage
	switch {
	case cfg.Debug:
		setStatus("source", "simulator")
		messages = simulator.Stream(ctx, cfg.DefaultWidth, cfg.DefaultHeight, cfg.DebugRate)
	case cfg.IngestEnabled:
		setStatus("source", "zmq")
		var recorder ingest.RawRecorder
		if cfg.RawLogEnabled {
			writer, err := output.NewRawLogWriter(cfg.RawLogDir, "raw_cbor")
			if err != nil {
				log.Fatal().Err(err).Msg("failed to start raw log")
			}
			recorder = writer
			go func() {
				<-ctx.Done()
				if err := writer.Close(); err != nil {
					log.Error().Err(err).Msg("raw log close failed")
				}
			}()
		}
		stream, err := ingest.Stream(ctx, cfg.Endpoint, cfg.IngestLogEvery, recorder)
		if err != nil {
			log.Fatal().Err(err).Str("endpoint", cfg.Endpoint).Msg("failed to start ingest")
		}
		messages = stream
	}

	if messages != nil {
		frames := make(chan types.RawFrame, cfg.QueueSize)
		go func() {
			defer close(frames)
			for msg := range messages {
				if msg.Type != "frame" {
					m.metaMessages.Add(1)
					meta := output.NormalizeJSONValue(msg.Meta)
					log.Info().Str("type", msg.Type).Msgf("session meta:\n%s", mustPrettyJSON(meta))
					if msg.Type == "start" {
						setStatus("session", meta)
					} else {
						setStatus("session", nil)
					}
					continue
				}
				m.streamFrames.Add(1)
				setStatus("last_frame", time.Now().Format(time.RFC3339))
				select {
				case <-ctx.Done():
					return
				case frames <- msg.Frame:
				}
			}
		}()
		go pool.Feed(ctx, frames)
	}

	if cfg.ClassifierHealthURL != "" {
		go classify.PollHealth(ctx, cfg.ClassifierHealthURL, cfg.HealthInterval.Duration, func(state string) {
			setStatus("classifier", state)
		})
	} else if cfg.ClassifierURL == "" {
		setStatus("classifier", "mock")
	}

	agg := processing.NewAggregator(cfg.RecentResults)
	uiMessages := make(chan any, 16)
	publish := func(message any) {
		select {
		case uiMessages <- message:
			m.uiBroadcast.Add(1)
		default:
			m.uiDropped.Add(1)
		}
	}

	go func() {
		defer close(uiMessages)
		uiRate := cfg.UIRate.Duration
		if uiRate <= 0 {
			uiRate = time.Second
		}
		ticker := time.NewTicker(uiRate)
		defer ticker.Stop()
		dirty := false
		for {
			select {
			case <-ctx.Done():
				return
			case result, ok := <-pool.Results():
				if !ok {
					return
				}
				if result.Error != "" {
					m.resultsFailed.Add(1)
				} else {
					m.resultsOK.Add(1)
				}
				if result.Fallback {
					m.fallbacks.Add(1)
				}
				agg.Add(result)
				setStatus("last_result", result.ProcessedAt.Format(time.RFC3339))
				publish(types.UIEvent{Type: "result", Result: result})
				dirty = true
			case <-ticker.C:
				if dirty {
					publish(agg.SnapshotCopy())
					dirty = false
				}
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := pool.Stats()
				log.Info().
					Uint64("processed", stats.Processed).
					Uint64("failed", stats.Failed).
					Uint64("stream_frames", m.streamFrames.Load()).
					Uint64("decode_failures", ingest.DecodeFailures()).
					Msg("pipeline stats")
			}
		}
	}()

	statusFn := func() map[string]any {
		statusMu.Lock()
		defer statusMu.Unlock()
		copy := map[string]any{}
		for k, v := range status {
			copy[k] = v
		}
		metricsPayload := m.snapshot()
		stats := pool.Stats()
		metricsPayload["processed_total"] = stats.Processed
		metricsPayload["process_failed_total"] = stats.Failed
		metricsPayload["process_nanos_total"] = stats.Nanos
		metricsPayload["ingest_decode_failures_total"] = ingest.DecodeFailures()
		decodeCount, decodeNanos := ingest.DecodeTiming()
		metricsPayload["ingest_decode_total"] = decodeCount
		metricsPayload["ingest_decode_nanos_total"] = decodeNanos
		copy["metrics"] = metricsPayload
		return copy
	}

	snapshotFn := func() any {
		if agg.Len() == 0 {
			return nil
		}
		return agg.SnapshotCopy()
	}

	log.Info().Msgf("Starting web UI at http://localhost:%d", cfg.Port)
	if err := server.Run(ctx, cfg, uiMessages, statusFn, snapshotFn, pool.Submit); err != nil {
		log.Error().Err(err).Msg("server stopped")
	}
	pool.Close()
}

func mustPrettyJSON(value any) string {
	data, err := output.MarshalJSON(value, "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"%v"}`, err)
	}
	return string(data)
}
