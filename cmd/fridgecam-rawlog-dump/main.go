package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog/log"

	"fridgecam-go/internal/logging"
	"fridgecam-go/internal/output"
)

func main() {
	var (
		path  = flag.String("path", "", "Path to rawlog .bin file")
		limit = flag.Int("limit", 1, "Number of records to dump (0 for all)")
	)
	flag.Parse()

	logging.Init("fridgecam-rawlog-dump")

	if *path == "" {
		log.Fatal().Msg("path is required")
	}

	f, err := os.Open(*path)
	if err != nil {
		log.Fatal().Err(err).Msg("open rawlog")
	}
	defer f.Close()

	reader, err := output.NewRawLogReader(f)
	if err != nil {
		log.Fatal().Err(err).Msg("read rawlog header")
	}

	count := 0
	for {
		if *limit > 0 && count >= *limit {
			return
		}
		record, err := reader.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			log.Fatal().Err(err).Msg("read record")
		}
		if len(record.Payload) == 0 {
			log.Warn().Int("record", count).Msg("empty payload")
			count++
			continue
		}

		var decoded any
		if err := cbor.Unmarshal(record.Payload, &decoded); err != nil {
			log.Warn().Err(err).Int("record", count).Msg("CBOR decode error")
			count++
			continue
		}

		pretty, err := output.MarshalJSON(output.NormalizeJSONValue(decoded), "  ")
		if err != nil {
			log.Warn().Err(err).Int("record", count).Msg("JSON encode error")
			count++
			continue
		}

		log.Info().
			Int("record", count).
			Str("timestamp", record.Timestamp.Format(time.RFC3339Nano)).
			Int("size", len(record.Payload)).
			Msg("record")
		fmt.Println(string(pretty))
		count++
	}
}
