// Package reader implements the Reader state machine (C6): the open-handle
// owner that locates the correct physical segment for a cursor position,
// advances across rotations, and reports lag.
package reader

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/tailcursor/tailcursor/internal/cursor"
	"github.com/tailcursor/tailcursor/internal/mirror"
)

// Start selects where a Reader begins when no cursor record exists.
type Start int

const (
	StartBegin Start = iota
	StartEnd
	StartFirst
)

// ParseStart maps a configuration string to a Start mode.
func ParseStart(s string) (Start, bool) {
	switch s {
	case "begin":
		return StartBegin, true
	case "end":
		return StartEnd, true
	case "first":
		return StartFirst, true
	default:
		return StartBegin, false
	}
}

// End controls whether a Reader follows appends past its open-time EOF.
type End int

const (
	EndFuture End = iota
	EndFixed
)

// ParseEnd maps a configuration string to an End mode.
func ParseEnd(s string) (End, bool) {
	switch s {
	case "", "future":
		return EndFuture, true
	case "fixed":
		return EndFixed, true
	default:
		return EndFuture, false
	}
}

// Filter is the caller-owned per-line transform. Its errors are propagated
// to the caller of Read unchanged; the reader's own position still
// advances past the triggering line.
type Filter func(line []byte) (any, error)

// Config configures a Reader. Exactly one of Cursor or PosPath must be set.
type Config struct {
	LogPath string // "-" reads from standard input.

	Cursor  cursor.Cursor // supplied, already-open cursor.
	PosPath string        // path a FileCursor is opened from, or "-" for NullCursor.

	// RollbackPeriod and Lock apply only when PosPath constructs the
	// cursor internally; ignored when Cursor is supplied directly.
	RollbackPeriod time.Duration
	Lock           cursor.Lock

	Start Start
	End   End

	CheckInode    bool
	CheckLastLine bool
	CheckLog      bool
	AutofixCursor bool

	Filter Filter

	// Mirror, if set, is updated best-effort after every successful
	// Commit with the committed position and current lag. A mirror
	// failure is logged inside the Mirror implementation and never
	// fails the commit. The update runs synchronously inside Commit, so
	// Commit returns only after the Mirror's Update (including any
	// retries it makes) has finished.
	Mirror mirror.Mirror

	// Tracer, if set, wraps Read, Commit and construction-time
	// rotation-recovery in spans. Nil disables
	// tracing entirely; no span is ever on the hot path's critical
	// latency beyond local bookkeeping.
	Tracer trace.Tracer

	// SessionID tags every span this Reader produces, so spans from the
	// same Reader across a process's lifetime correlate in a trace
	// backend. Callers typically set this from google/uuid.
	SessionID string

	// Now overrides the wall clock; defaults to time.Now. Propagated to
	// an internally-constructed FileCursor.
	Now func() time.Time
}
