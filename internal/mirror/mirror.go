// Package mirror implements the optional, non-authoritative position
// side-index (C7): every committed position is additionally written to a
// queryable store so a status tool can report "where is each source right
// now" without opening its cursor file. Mirror writes never fail a
// Reader's commit(); errors are logged and dropped inside each
// implementation.
package mirror

import (
	"context"
	"time"

	"github.com/tailcursor/tailcursor/internal/position"
)

// MirrorRecord is the Mirror's own, lag-annotated view of a committed
// position, derived from a position.Record but never fed back into
// rotation-recovery.
type MirrorRecord struct {
	LogPath   string
	Offset    int64
	Inode     *uint64
	Lag       uint64
	UpdatedAt time.Time
}

func fromPosition(logPath string, p position.Record, lag uint64, updatedAt time.Time) MirrorRecord {
	return MirrorRecord{
		LogPath:   logPath,
		Offset:    p.Offset,
		Inode:     p.Inode,
		Lag:       lag,
		UpdatedAt: updatedAt,
	}
}

// Mirror observes committed positions, keyed by canonical log path.
// Update never returns an error: a failed mirror write is a diagnostic
// event, never a reason to fail the commit that triggered it.
type Mirror interface {
	Update(ctx context.Context, logPath string, p position.Record, lag uint64)
	Snapshot(ctx context.Context) (map[string]MirrorRecord, error)
	Close() error
}
