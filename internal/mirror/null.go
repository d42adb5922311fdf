package mirror

import (
	"context"

	"github.com/tailcursor/tailcursor/internal/position"
)

// NullMirror is the no-op Mirror used when no side-index is configured.
type NullMirror struct{}

var _ Mirror = NullMirror{}

func (NullMirror) Update(ctx context.Context, logPath string, p position.Record, lag uint64) {}

func (NullMirror) Snapshot(ctx context.Context) (map[string]MirrorRecord, error) {
	return map[string]MirrorRecord{}, nil
}

func (NullMirror) Close() error { return nil }
