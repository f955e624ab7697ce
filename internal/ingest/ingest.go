package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/pebbe/zmq4"
	"github.com/rs/zerolog/log"

	"fridgecam-go/internal/types"
)

// RawRecorder receives every message as it arrived on the wire.
type RawRecorder interface {
	Record(payload []byte) error
}

var (
	decodeFailures atomic.Uint64
	decodeCount    atomic.Uint64
	decodeNanos    atomic.Uint64
	logCounter     atomic.Uint64
)

func DecodeFailures() uint64 {
	return decodeFailures.Load()
}

func DecodeTiming() (uint64, uint64) {
	return decodeCount.Load(), decodeNanos.Load()
}

// Stream pulls CBOR frame messages from camera bridges on a ZMQ PULL socket.
// Messages look like:
//
//	{ "type": "frame", "image_id": <int|str>, "width": <int>, "height": <int>,
//	  "format": "RGB565", "start_time": <float>, "data": <bstr|typed array> }
//
// plus "start" and "end" session messages carrying arbitrary metadata.
// Receive and decode errors are logged once every logEvery occurrences.
// A nil recorder skips raw logging.
func Stream(ctx context.Context, endpoint string, logEvery int, recorder RawRecorder) (<-chan types.RawMessage, error) {
	if logEvery < 1 {
		logEvery = 1
	}
	socket, err := zmq4.NewSocket(zmq4.PULL)
	if err != nil {
		return nil, err
	}
	if err := socket.SetRcvtimeo(250 * time.Millisecond); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.Connect(endpoint); err != nil {
		_ = socket.Close()
		return nil, err
	}

	out := make(chan types.RawMessage, 128)
	go func() {
		defer close(out)
		defer socket.Close()

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			msg, err := socket.RecvBytes(0)
			if err != nil {
				if zmq4.AsErrno(err) == zmq4.Errno(syscall.EAGAIN) {
					continue
				}
				logEveryN(logEvery, "ingest recv error", err)
				continue
			}
			if recorder != nil {
				if err := recorder.Record(msg); err != nil {
					logEveryN(logEvery, "raw log record failed", err)
				}
			}

			start := time.Now()
			raw, err := decodeMessage(msg)
			decodeCount.Add(1)
			decodeNanos.Add(uint64(time.Since(start).Nanoseconds()))
			if err != nil {
				decodeFailures.Add(1)
				logEveryN(logEvery, "ingest decode skipped message", err)
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- raw:
			}
		}
	}()

	return out, nil
}

func decodeMessage(msg []byte) (types.RawMessage, error) {
	var payload map[string]any
	if err := cbor.Unmarshal(msg, &payload); err != nil {
		return types.RawMessage{}, fmt.Errorf("cbor: %w", err)
	}

	msgType, _ := payload["type"].(string)
	switch msgType {
	case "frame", "image":
	case "start", "end":
		delete(payload, "type")
		return types.RawMessage{Type: msgType, Meta: payload}, nil
	default:
		return types.RawMessage{}, fmt.Errorf("unexpected message type %q", msgType)
	}

	width, err := toInt(payload["width"])
	if err != nil {
		return types.RawMessage{}, fmt.Errorf("invalid width: %w", err)
	}
	height, err := toInt(payload["height"])
	if err != nil {
		return types.RawMessage{}, fmt.Errorf("invalid height: %w", err)
	}
	data, err := decodePixelData(payload["data"])
	if err != nil {
		return types.RawMessage{}, err
	}
	if data.rows > 0 && data.cols > 0 {
		width, height = data.cols, data.rows
	}

	format, _ := payload["format"].(string)
	if format == "" {
		format = types.FormatRGB565
	}
	order, _ := payload["byte_order"].(string)
	if data.order != "" {
		order = data.order
	}

	frame := types.RawFrame{
		ID:         frameID(payload["image_id"]),
		Width:      width,
		Height:     height,
		Format:     strings.ToUpper(format),
		Order:      order,
		Data:       data.bytes,
		ReceivedAt: receivedAt(payload["start_time"]),
		Source:     "zmq",
	}
	return types.RawMessage{Type: "frame", Frame: frame}, nil
}

func frameID(v any) string {
	switch id := v.(type) {
	case string:
		if id != "" {
			return id
		}
	case nil:
	default:
		if n, err := toInt(id); err == nil {
			return fmt.Sprintf("frame-%d", n)
		}
	}
	return uuid.NewString()
}

func receivedAt(v any) time.Time {
	secs, err := toFloat(v)
	if err != nil || secs <= 0 {
		return time.Now()
	}
	return time.Unix(0, int64(secs*1e9))
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case uint32:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("unsupported int type %T", v)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("unsupported float type %T", v)
	}
}

func logEveryN(n int, msg string, err error) {
	if logCounter.Add(1)%uint64(n) == 0 {
		log.Warn().Err(err).Msg(msg)
	}
}
