package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/tailcursor/tailcursor/internal/config"
	"github.com/tailcursor/tailcursor/internal/mirror"
	"github.com/tailcursor/tailcursor/internal/observability"
	"github.com/tailcursor/tailcursor/internal/service"
)

func main() {
	manifestPath := flag.String("config", "tailcursor.yaml", "path to the source manifest")
	flag.Parse()

	manifest, err := config.Load(*manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if flag.Arg(0) == "status" {
		runStatus(manifest)
		return
	}

	observability.InitLogger(manifest.Observability.LogLevel, "")
	log.Info().Str("config", *manifestPath).Msg("starting tailcursor")

	if manifest.Observability.TracingEnabled {
		shutdown, err := observability.InitTracer(observability.TracerConfig{
			ServiceName: "tailcursor",
			Endpoint:    manifest.Observability.OTLPEndpoint,
			Protocol:    "grpc",
			Enabled:     true,
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to initialize tracer")
		} else {
			defer shutdown(context.Background())
		}
	}

	mir, err := buildMirror(manifest.Mirror)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build position mirror")
	}
	defer mir.Close()

	svc := service.New(manifest, mir, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- svc.Run(ctx)
	}()

	log.Info().Int("sources", len(manifest.Sources)).Msg("tailcursor running")

	select {
	case <-sigChan:
		log.Info().Msg("received shutdown signal")
	case err := <-errChan:
		if err != nil {
			log.Error().Err(err).Msg("service exited with error")
		}
	}

	log.Info().Msg("shutting down gracefully")
	cancel()
	<-errChan

	log.Info().Msg("tailcursor stopped")
}

func buildMirror(cfg config.MirrorConfig) (mirror.Mirror, error) {
	var chain mirror.ChainMirror

	if cfg.BoltPath != "" {
		m, err := mirror.NewBoltMirror(cfg.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("bolt mirror: %w", err)
		}
		chain = append(chain, m)
	}

	if cfg.ClickHouseDSN != "" {
		m, err := mirror.NewClickHouseMirror(context.Background(), mirror.ClickHouseConfig{
			Addr: []string{cfg.ClickHouseDSN},
		})
		if err != nil {
			return nil, fmt.Errorf("clickhouse mirror: %w", err)
		}
		chain = append(chain, m)
	}

	if len(chain) == 0 {
		return mirror.NullMirror{}, nil
	}
	return chain, nil
}

// runStatus implements the "tailcursor status" subcommand: it queries the
// mirror's Snapshot, not the log files or cursors themselves, so it never
// competes with a running reader for a lock.
func runStatus(manifest *config.Manifest) {
	if manifest.Mirror.BoltPath == "" {
		fmt.Fprintln(os.Stderr, "no bolt_path mirror configured, nothing to report")
		os.Exit(1)
	}

	m, err := mirror.NewBoltMirror(manifest.Mirror.BoltPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open mirror: %v\n", err)
		os.Exit(1)
	}
	defer m.Close()

	snap, err := m.Snapshot(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "snapshot mirror: %v\n", err)
		os.Exit(1)
	}

	for logPath, rec := range snap {
		fmt.Printf("%s\toffset=%d\tlag=%d\tupdated=%s\n", logPath, rec.Offset, rec.Lag, rec.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
}
