package cursor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tailcursor/tailcursor/internal/cursorerr"
	"github.com/tailcursor/tailcursor/internal/position"
)

// FileCursor is the durable Cursor backed by a position file: atomic
// rename on every commit, with a bounded multi-generation rollback window.
type FileCursor struct {
	path           string
	rollbackPeriod time.Duration
	now            func() time.Time
	lock           *fileLock
}

var _ Cursor = (*FileCursor)(nil)

// Config configures a FileCursor.
type Config struct {
	Path string

	// RollbackPeriod enables multi-record retention; zero disables it and
	// every commit keeps only the newest record.
	RollbackPeriod time.Duration

	// Lock selects the advisory-lock mode taken for the cursor's
	// lifetime. Defaults to LockNone.
	Lock Lock

	// Now overrides the wall clock; defaults to time.Now. Tests use this
	// to exercise the rollback window deterministically.
	Now func() time.Time
}

// Open constructs a FileCursor, acquiring its lock (if any) for the
// lifetime of the returned Cursor.
func Open(cfg Config) (*FileCursor, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: cursor path is required", cursorerr.ErrConfig)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	l, err := acquireLock(cfg.Path, cfg.Lock)
	if err != nil {
		return nil, err
	}

	return &FileCursor{
		path:           cfg.Path,
		rollbackPeriod: cfg.RollbackPeriod,
		now:            now,
		lock:           l,
	}, nil
}

func (c *FileCursor) Read(ctx context.Context) (*position.Record, error) {
	records, err := c.load()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	r := records[0]
	return &r, nil
}

func (c *FileCursor) Commit(ctx context.Context, p position.Record) error {
	existing, err := c.load()
	if err != nil && !errors.Is(err, cursorerr.ErrCursorMissing) {
		return err
	}

	p = p.Stamp(c.now())
	retained := retain(existing, p, c.now(), c.rollbackPeriod)
	return c.save(retained)
}

func (c *FileCursor) Rollback(ctx context.Context) (bool, error) {
	existing, err := c.load()
	if err != nil {
		return false, err
	}
	if len(existing) < 2 {
		return false, nil
	}
	if err := c.save(existing[1:]); err != nil {
		return false, err
	}
	return true, nil
}

func (c *FileCursor) Clean(ctx context.Context) error {
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (c *FileCursor) Close() error {
	return c.lock.release()
}

// load reads the cursor file's records, newest first. A missing file is
// not an error: it simply means no record has ever been committed.
func (c *FileCursor) load() ([]position.Record, error) {
	f, err := os.Open(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return nil, cursorerr.ErrCursorMissing
	}

	records, err := position.DecodeAll(f)
	if err != nil {
		log.Debug().Err(err).Str("path", c.path).Msg("cursor file failed to parse")
		if errors.Is(err, position.ErrNoPosition) {
			return nil, cursorerr.ErrCursorCorrupt
		}
		var dup *position.ErrDuplicateField
		if errors.As(err, &dup) {
			return nil, cursorerr.ErrCursorCorrupt
		}
		return nil, cursorerr.ErrCursorCorrupt
	}
	return records, nil
}

func (c *FileCursor) save(records []position.Record) error {
	content := position.EncodeAll(records)
	return writeAtomic(c.path, []byte(content))
}

// retain implements the rollback-window retention policy described in the
// cursor store design: at most one record aged <= rollbackPeriod and one
// aged > rollbackPeriod are kept alongside the newest, so rollback()
// exposes progressively older checkpoints.
func retain(existing []position.Record, p position.Record, now time.Time, rollbackPeriod time.Duration) []position.Record {
	if rollbackPeriod <= 0 {
		return []position.Record{p}
	}
	if len(existing) == 0 {
		return []position.Record{p}
	}

	r0 := existing[0]
	if age(r0, now) > rollbackPeriod {
		return []position.Record{p, r0}
	}
	if len(existing) == 1 {
		return []position.Record{p, r0}
	}

	r1 := existing[1]
	if age(r1, now) <= rollbackPeriod {
		out := make([]position.Record, 0, len(existing))
		out = append(out, p)
		out = append(out, existing[1:]...)
		return out
	}
	return []position.Record{p, r0, r1}
}

func age(r position.Record, now time.Time) time.Duration {
	if r.CommitTime == nil {
		return 0
	}
	return time.Duration(r.Age(now)) * time.Second
}

// writeAtomic writes content to a temp file in dir(path) and renames it
// over path. The target is never truncated in place: on a crash the
// cursor file reflects either the prior commit or the new one, never a
// partial write.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
