// Command tailer follows one (header, payload) shard pair to completion:
// either a clean day rollover, a give-up on a permanently torn trailing
// record, or a fatal error. It is spawned once per shard by the
// supervisor and exits with the status code taxonomy documented in
// internal/tailer.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/FrodeRanders/zlogtail/internal/clickhouse"
	"github.com/FrodeRanders/zlogtail/internal/config"
	"github.com/FrodeRanders/zlogtail/internal/dateutil"
	"github.com/FrodeRanders/zlogtail/internal/observability"
	"github.com/FrodeRanders/zlogtail/internal/sink"
	"github.com/FrodeRanders/zlogtail/internal/tailer"
	"github.com/rs/zerolog/log"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: tailer -p <shardId> <baseDir> <YYYY-MM-DD> <headerFilename> <payloadFilename>")
}

func main() {
	if len(os.Args) != 7 || os.Args[1] != "-p" {
		usage()
		os.Exit(int(tailer.StatusGeneralFailure))
	}

	shardID := os.Args[2]
	baseDir := os.Args[3]
	dateStr := os.Args[4]
	headerName := os.Args[5]
	payloadName := os.Args[6]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(int(tailer.StatusGeneralFailure))
	}
	cfg.BaseDir = baseDir

	observability.InitLogger(cfg.LogLevel, cfg.LogFile)

	date, err := dateutil.ParseDate(dateStr)
	if err != nil {
		log.Error().Err(err).Str("date", dateStr).Msg("invalid date argument")
		os.Exit(int(tailer.StatusGeneralFailure))
	}

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracer(observability.TracerConfig{
			ServiceName:    "zlogtail-tailer",
			ServiceVersion: "0.1.0",
			Endpoint:       cfg.TracingEndpoint,
			Protocol:       cfg.TracingProtocol,
			Enabled:        true,
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to initialize tracer")
		} else {
			defer shutdown(context.Background())
		}
	}

	trigger, closeSink, err := buildTrigger(cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to build sink")
		os.Exit(int(tailer.StatusGeneralFailure))
	}
	defer closeSink()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	t := tailer.New(tailer.Config{
		ShardID:        shardID,
		BaseDir:        cfg.BaseDir,
		Date:           date,
		HeaderName:     headerName,
		PayloadName:    payloadName,
		PollInterval:   cfg.PollInterval,
		MaxTornRetries: cfg.MaxTornRetries,
		MirrorCursor:   cfg.CursorMirror,
	}, log.Logger, trigger)

	status := t.Run(ctx)
	os.Exit(int(status))
}

// buildTrigger wires the sink Trigger over a ClickHouse-backed downstream,
// or a no-op downstream when the tailer is running in read-only mode.
func buildTrigger(cfg *config.Config) (*sink.Trigger, func(), error) {
	if cfg.ReadOnly {
		return sink.NewTrigger(readOnlyDownstream{}, cfg.NominalBatchSize, cfg.NominalBatchCount), func() {}, nil
	}

	client, err := clickhouse.NewClient(cfg.ClickHouseHost, cfg.ClickHousePort, cfg.ClickHouseDB)
	if err != nil {
		return nil, nil, err
	}

	downstream := sink.NewClickHouseDownstream(client, "logs.payload_entries")
	trigger := sink.NewTrigger(downstream, cfg.NominalBatchSize, cfg.NominalBatchCount)

	return trigger, func() {
		if err := downstream.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing sink downstream")
		}
	}, nil
}

// readOnlyDownstream discards entries, used when READ_ONLY is set so the
// tailer can be exercised against production files without writing.
type readOnlyDownstream struct{}

func (readOnlyDownstream) Write(ctx context.Context, shardID string, headerFields [7]string, inputBuf, outputBuf []byte) error {
	return nil
}

func (readOnlyDownstream) Flush(ctx context.Context, shardID string, reason sink.FlushReason) error {
	return nil
}

func (readOnlyDownstream) Close() error { return nil }
