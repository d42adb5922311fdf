// Package service wires one Reader per configured source (C9) and runs
// them concurrently: a poll ticker drives Read() the way the teacher's
// tailer.go drives processNewRecords(), and an independent commit ticker
// decouples commit cadence from line volume. Each source performs one
// final commit on shutdown, mirroring the teacher's saveAndCleanup.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"github.com/tailcursor/tailcursor/internal/config"
	"github.com/tailcursor/tailcursor/internal/mirror"
	"github.com/tailcursor/tailcursor/internal/reader"
)

// Sink receives each line a source produces. line is []byte unless a
// Filter was configured, in which case it is the filter's return value.
type Sink func(source string, line any)

// Service runs every source named in a Manifest until its context is
// cancelled.
type Service struct {
	manifest       *config.Manifest
	mirror         mirror.Mirror
	sink           Sink
	pollInterval   time.Duration
	commitInterval time.Duration
}

// New constructs a Service. A nil sink writes raw lines to stdout.
func New(m *config.Manifest, mir mirror.Mirror, sink Sink) *Service {
	if mir == nil {
		mir = mirror.NullMirror{}
	}
	if sink == nil {
		sink = stdoutSink
	}
	return &Service{
		manifest:       m,
		mirror:         mir,
		sink:           sink,
		pollInterval:   500 * time.Millisecond,
		commitInterval: 5 * time.Second,
	}
}

func stdoutSink(source string, line any) {
	if b, ok := line.([]byte); ok {
		fmt.Print(string(b))
		return
	}
	fmt.Printf("%s: %v\n", source, line)
}

// Run builds one Reader per source and blocks until ctx is cancelled or a
// source fails to open.
func (s *Service) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	errs := make(chan error, len(s.manifest.Sources))

	for _, src := range s.manifest.Sources {
		rc, err := src.ReaderConfig()
		if err != nil {
			return err
		}
		rc.Mirror = s.mirror
		rc.SessionID = uuid.NewString()
		rc.Tracer = otel.Tracer("tailcursor/reader")

		rd, err := reader.New(ctx, rc)
		if err != nil {
			return fmt.Errorf("open source %q: %w", src.Name, err)
		}
		log.Info().Str("source", src.Name).Str("session_id", rc.SessionID).Msg("source opened")

		wg.Add(1)
		go func(name string, rd *reader.Reader) {
			defer wg.Done()
			errs <- s.runSource(ctx, name, rd)
		}(src.Name, rd)
	}

	wg.Wait()
	close(errs)

	var first error
	for err := range errs {
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (s *Service) runSource(ctx context.Context, name string, rd *reader.Reader) error {
	defer rd.Close()

	poll := time.NewTicker(s.pollInterval)
	defer poll.Stop()
	commit := time.NewTicker(s.commitInterval)
	defer commit.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := rd.Commit(context.Background(), nil); err != nil {
				log.Warn().Err(err).Str("source", name).Msg("final commit failed")
			}
			return nil

		case <-commit.C:
			if err := rd.Commit(ctx, nil); err != nil {
				log.Warn().Err(err).Str("source", name).Msg("commit failed")
			}

		case <-poll.C:
			s.drain(ctx, name, rd)
		}
	}
}

func (s *Service) drain(ctx context.Context, name string, rd *reader.Reader) {
	for {
		line, ok, err := rd.Read(ctx)
		if err != nil {
			log.Warn().Err(err).Str("source", name).Msg("read failed")
			return
		}
		if !ok {
			return
		}
		s.sink(name, line)
	}
}
