// Package cursor implements the durable position store (C2/C3/C4):
// a small ring of recently committed positions, persisted atomically, with
// a bounded rollback window and an optional advisory lock.
package cursor

import (
	"context"

	"github.com/tailcursor/tailcursor/internal/position"
)

// Lock selects how a FileCursor's on-disk lock file is acquired.
type Lock int

const (
	LockNone Lock = iota
	LockBlocking
	LockNonblocking
)

// ParseLock maps a configuration string to a Lock mode.
func ParseLock(s string) (Lock, bool) {
	switch s {
	case "", "none":
		return LockNone, true
	case "blocking":
		return LockBlocking, true
	case "nonblocking":
		return LockNonblocking, true
	default:
		return LockNone, false
	}
}

// Cursor persists and retrieves Reader position records. Implementations:
// FileCursor (durable, the default) and NullCursor (persistence disabled).
type Cursor interface {
	// Read returns the newest persisted record, or nil if none exists.
	Read(ctx context.Context) (*position.Record, error)

	// Commit durably persists p as the newest record, applying the
	// rollback-window retention policy.
	Commit(ctx context.Context, p position.Record) error

	// Rollback discards the newest record and reports whether a strictly
	// older one remains and became newest.
	Rollback(ctx context.Context) (bool, error)

	// Clean removes all persisted state.
	Clean(ctx context.Context) error

	// Close releases any held lock and underlying resources.
	Close() error
}
