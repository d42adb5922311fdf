package cursor

import (
	"context"

	"github.com/tailcursor/tailcursor/internal/position"
)

// NullCursor is the no-op Cursor used when persistence is disabled (the
// "-" position path, or pos == "-").
type NullCursor struct{}

var _ Cursor = NullCursor{}

func (NullCursor) Read(ctx context.Context) (*position.Record, error) { return nil, nil }

func (NullCursor) Commit(ctx context.Context, p position.Record) error { return nil }

func (NullCursor) Rollback(ctx context.Context) (bool, error) { return false, nil }

func (NullCursor) Clean(ctx context.Context) error { return nil }

func (NullCursor) Close() error { return nil }
