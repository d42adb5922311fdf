package mirror

import (
	"context"

	"github.com/tailcursor/tailcursor/internal/position"
)

// ChainMirror fans Update out to every member. Snapshot is served by the
// first member, which by convention is the locally-authoritative one
// (BoltMirror), so a status query never depends on a remote store being up.
type ChainMirror []Mirror

var _ Mirror = ChainMirror(nil)

func (c ChainMirror) Update(ctx context.Context, logPath string, p position.Record, lag uint64) {
	for _, m := range c {
		m.Update(ctx, logPath, p, lag)
	}
}

func (c ChainMirror) Snapshot(ctx context.Context) (map[string]MirrorRecord, error) {
	if len(c) == 0 {
		return map[string]MirrorRecord{}, nil
	}
	return c[0].Snapshot(ctx)
}

func (c ChainMirror) Close() error {
	var first error
	for _, m := range c {
		if err := m.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
