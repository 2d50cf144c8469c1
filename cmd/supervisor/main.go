// Command supervisor discovers shard pairs in a day directory and
// dispatches one tailer subprocess per pair, routing exit codes to
// re-queue, archive, or operator-review decisions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/FrodeRanders/zlogtail/internal/config"
	"github.com/FrodeRanders/zlogtail/internal/dateutil"
	"github.com/FrodeRanders/zlogtail/internal/observability"
	"github.com/FrodeRanders/zlogtail/internal/supervisor"
	"github.com/rs/zerolog/log"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: supervisor <baseDir> [<YYYY-MM-DD>]")
}

func main() {
	if len(os.Args) < 2 || len(os.Args) > 3 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg.BaseDir = os.Args[1]

	observability.InitLogger(cfg.LogLevel, cfg.LogFile)

	log.Info().
		Str("version", "0.1.0").
		Str("base_dir", cfg.BaseDir).
		Msg("starting shard supervisor")

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracer(observability.TracerConfig{
			ServiceName:    "zlogtail-supervisor",
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

	date := dateutil.Today()
	if len(os.Args) == 3 {
		date, err = dateutil.ParseDate(os.Args[2])
		if err != nil {
			log.Fatal().Err(err).Str("date", os.Args[2]).Msg("invalid date argument")
		}
	}

	svc, err := supervisor.NewService(cfg, log.Logger, date)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create supervisor service")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := svc.Start(ctx); err != nil && ctx.Err() == nil {
			errChan <- err
		}
	}()

	log.Info().Msg("supervisor started successfully")

	select {
	case <-sigChan:
		log.Info().Msg("received shutdown signal")
	case err := <-errChan:
		log.Error().Err(err).Msg("supervisor error")
	}

	log.Info().Msg("shutting down gracefully...")
	cancel()

	if err := svc.Stop(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}

	log.Info().Msg("supervisor stopped")
}
