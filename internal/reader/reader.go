package reader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tailcursor/tailcursor/internal/cursor"
	"github.com/tailcursor/tailcursor/internal/cursorerr"
	"github.com/tailcursor/tailcursor/internal/mirror"
	"github.com/tailcursor/tailcursor/internal/position"
	"github.com/tailcursor/tailcursor/internal/segment"
)

// Reader is the open-handle owner for one logical, rotation-aware log: it
// locates the right physical segment for a cursor position, advances
// across rotations as the active file fills and rotates, and reports lag.
// A Reader is used by exactly one caller at a time and owns its Cursor
// and its handle exclusively.
type Reader struct {
	logPath       string
	cur           cursor.Cursor
	start         Start
	end           End
	checkInode    bool
	checkLastLine bool
	checkLog      bool
	autofixCursor bool
	filter        Filter
	mirror        mirror.Mirror
	tracer        trace.Tracer
	sessionID     string

	isStdin          bool
	segmentIndex     int
	lastSegmentIndex int
	handle           *os.File
	offset           int64
	lastLine         []byte
	eofLimit         *int64

	br      *bufio.Reader // stdin only: persists across Read calls.
	pending []byte        // stdin only: undelimited bytes carried forward.
}

// New constructs a Reader per cfg, resolving its cursor, running
// rotation-recovery if a position was persisted, and otherwise starting
// fresh per cfg.Start.
func New(ctx context.Context, cfg Config) (*Reader, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	cur, err := resolveCursor(cfg)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		logPath:       cfg.LogPath,
		cur:           cur,
		start:         cfg.Start,
		end:           cfg.End,
		checkInode:    cfg.CheckInode,
		checkLastLine: cfg.CheckLastLine,
		checkLog:      cfg.CheckLog,
		autofixCursor: cfg.AutofixCursor,
		filter:        cfg.Filter,
		mirror:        cfg.Mirror,
		tracer:        cfg.Tracer,
		sessionID:     cfg.SessionID,
	}

	rec, err := cur.Read(ctx)
	if err != nil {
		cur.Close()
		return nil, err
	}

	if r.logPath == "" {
		if rec == nil || rec.LogPath == "" {
			cur.Close()
			return nil, fmt.Errorf("%w: no log supplied and cursor has no stored position", cursorerr.ErrConfig)
		}
		r.logPath = rec.LogPath
	}
	r.isStdin = r.logPath == "-"

	if rec != nil && r.checkLog && !r.isStdin && rec.LogPath != "" && rec.LogPath != r.logPath {
		cur.Close()
		return nil, fmt.Errorf("%w: cursor logfile %q != %q", cursorerr.ErrLogfileMismatch, rec.LogPath, r.logPath)
	}

	if err := r.open(ctx, rec); err != nil {
		cur.Close()
		return nil, err
	}
	return r, nil
}

func validateConfig(cfg Config) error {
	if !cfg.CheckInode && !cfg.CheckLastLine {
		return fmt.Errorf("%w: at least one of check_inode/check_lastline must be enabled", cursorerr.ErrConfig)
	}
	if cfg.Cursor != nil && cfg.PosPath != "" {
		return fmt.Errorf("%w: cursor and pos are mutually exclusive", cursorerr.ErrConfig)
	}
	if cfg.Cursor == nil && cfg.PosPath == "" {
		return fmt.Errorf("%w: one of cursor or pos is required", cursorerr.ErrConfig)
	}
	if cfg.PosPath == "-" && cfg.LogPath == "" {
		return fmt.Errorf("%w: pos \"-\" requires a log", cursorerr.ErrConfig)
	}
	return nil
}

func resolveCursor(cfg Config) (cursor.Cursor, error) {
	if cfg.Cursor != nil {
		return cfg.Cursor, nil
	}
	if cfg.PosPath == "-" {
		return cursor.NullCursor{}, nil
	}
	if _, err := os.Stat(cfg.PosPath); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if cfg.LogPath == "" {
			return nil, fmt.Errorf("%w: position file %s does not exist and no log supplied", cursorerr.ErrConfig, cfg.PosPath)
		}
	}
	return cursor.Open(cursor.Config{
		Path:           cfg.PosPath,
		RollbackPeriod: cfg.RollbackPeriod,
		Lock:           cfg.Lock,
		Now:            cfg.Now,
	})
}

// open chooses the starting physical segment and offset: rotation-recovery
// when rec is present, otherwise a fresh start per r.start.
func (r *Reader) open(ctx context.Context, rec *position.Record) error {
	if r.isStdin {
		r.handle = os.Stdin
		r.segmentIndex = 0
		r.lastSegmentIndex = 0
		r.offset = 0
		return nil
	}

	last, err := segment.LastIndex(r.logPath)
	if err != nil {
		return err
	}
	r.lastSegmentIndex = last

	if r.end == EndFixed {
		size := int64(0)
		if info, err := os.Stat(r.logPath); err == nil {
			size = info.Size()
		} else if !os.IsNotExist(err) {
			return err
		}
		r.eofLimit = &size
	}

	if rec == nil {
		return r.freshStart()
	}

	idx, f, offset, err := r.recoverPositionTraced(ctx, *rec)
	if err != nil {
		if errors.Is(err, cursorerr.ErrPositionLost) && r.autofixCursor {
			if cerr := r.cur.Clean(ctx); cerr != nil {
				return cerr
			}
			return r.freshStart()
		}
		return err
	}

	r.segmentIndex = idx
	r.handle = f
	r.offset = offset
	r.lastLine = nil
	return nil
}

// recoverPositionTraced wraps recoverPosition in a span when tracing is
// enabled. The span is opened before r.segmentIndex is set, so its
// segment_index attribute is always 0, the zero value at construction,
// not the segment recovery ends up choosing.
func (r *Reader) recoverPositionTraced(ctx context.Context, rec position.Record) (idx int, f *os.File, offset int64, err error) {
	if r.tracer != nil {
		var span trace.Span
		_, span = r.tracer.Start(ctx, "reader.rotation_recover", trace.WithAttributes(r.spanAttrs()...))
		defer func() {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.End()
		}()
	}
	return recoverPosition(r.logPath, r.lastSegmentIndex, rec, r.checkInode, r.checkLastLine, r.end == EndFixed)
}

func (r *Reader) freshStart() error {
	switch r.start {
	case StartBegin:
		f, err := openOptional(segment.PathFor(r.logPath, 0))
		if err != nil {
			return err
		}
		r.segmentIndex = 0
		r.handle = f
		r.offset = 0
		return nil

	case StartEnd:
		f, err := openOptional(segment.PathFor(r.logPath, 0))
		if err != nil {
			return err
		}
		r.segmentIndex = 0
		r.handle = f
		if f != nil {
			off, err := seekToLastLineBoundary(f)
			if err != nil {
				return err
			}
			r.offset = off
		}
		return nil

	case StartFirst:
		idx := r.lastSegmentIndex
		f, err := openOptional(segment.PathFor(r.logPath, idx))
		if err != nil {
			return err
		}
		r.segmentIndex = idx
		r.handle = f
		r.offset = 0
		return nil

	default:
		return fmt.Errorf("%w: unknown start mode", cursorerr.ErrConfig)
	}
}

// spanAttrs tags a span with the fields that correlate it to a reader
// across both logs and other spans from the same reader: its session UUID
// (C10) and the physical segment it was operating on when the span opened.
func (r *Reader) spanAttrs() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("session_id", r.sessionID),
		attribute.Int("segment_index", r.segmentIndex),
	}
}

func openOptional(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", cursorerr.ErrUnreadableLog, path, err)
	}
	return f, nil
}

// Read returns the next complete line (terminator included), or false if
// none is available right now. When a filter is configured its output
// replaces the raw line; a filter error is returned unchanged and the
// reader's position still reflects the triggering line having been
// consumed, so the next call yields the line after it.
func (r *Reader) Read(ctx context.Context) (value any, ok bool, err error) {
	if r.tracer != nil {
		var span trace.Span
		ctx, span = r.tracer.Start(ctx, "reader.read", trace.WithAttributes(r.spanAttrs()...))
		defer func() {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.End()
		}()
	}

	for {
		if r.handle == nil {
			return nil, false, nil
		}

		if !r.isStdin && r.end == EndFixed && r.segmentIndex == 0 && r.eofLimit != nil {
			if r.offset >= *r.eofLimit {
				return nil, false, nil
			}
		}

		data, complete, rerr := r.readRaw()
		if rerr != nil {
			return nil, false, rerr
		}

		if len(data) == 0 {
			walked, werr := r.walkNewer()
			if werr != nil {
				return nil, false, werr
			}
			if !walked {
				return nil, false, nil
			}
			continue
		}

		if complete {
			return r.consume(data)
		}

		last, lerr := r.isLastNonEmptySegment()
		if lerr != nil {
			return nil, false, lerr
		}
		if last {
			return nil, false, nil // incomplete trailing line, offset unchanged
		}
		return r.consume(data) // rotated segment won't grow: treat as a final record
	}
}

func (r *Reader) consume(data []byte) (any, bool, error) {
	r.offset += int64(len(data))
	r.lastLine = append([]byte(nil), data...)
	if r.filter == nil {
		return data, true, nil
	}
	v, err := r.filter(data)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *Reader) readRaw() ([]byte, bool, error) {
	if r.isStdin {
		return r.readStdin()
	}

	if _, err := r.handle.Seek(r.offset, io.SeekStart); err != nil {
		return nil, false, err
	}
	br := bufio.NewReader(r.handle)
	data, rerr := br.ReadBytes('\n')
	if rerr != nil && rerr != io.EOF {
		return nil, false, rerr
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	return data, data[len(data)-1] == '\n', nil
}

// readStdin accumulates undelimited bytes across calls in r.pending, since
// a pipe can't be re-seeked the way a regular file can.
func (r *Reader) readStdin() ([]byte, bool, error) {
	if r.br == nil {
		r.br = bufio.NewReader(r.handle)
	}
	chunk, rerr := r.br.ReadBytes('\n')
	if rerr != nil && rerr != io.EOF {
		return nil, false, rerr
	}
	full := append(r.pending, chunk...)
	r.pending = nil
	if len(full) == 0 {
		return nil, false, nil
	}
	if full[len(full)-1] == '\n' {
		return full, true, nil
	}
	r.pending = full
	return nil, false, nil
}

func (r *Reader) isLastNonEmptySegment() (bool, error) {
	if r.isStdin || r.segmentIndex == 0 {
		return true, nil
	}
	nextPath := segment.PathFor(r.logPath, r.segmentIndex-1)
	info, err := os.Stat(nextPath)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	return info.Size() == 0, nil
}

// walkNewer moves to the next-newer segment on EOF of a rotated segment,
// per 4.6. It refreshes lastSegmentIndex and tolerates a target segment
// having vanished mid-walk (a second rotation racing the first), per the
// conservative resolution of the re-validation open question: a vanished
// target simply yields "nothing newer yet" rather than a hard failure.
func (r *Reader) walkNewer() (bool, error) {
	if r.isStdin || r.segmentIndex == 0 {
		return false, nil
	}

	target := r.segmentIndex - 1
	path := segment.PathFor(r.logPath, target)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %s: %v", cursorerr.ErrUnreadableLog, path, err)
	}

	r.handle.Close()
	r.handle = f
	r.segmentIndex = target
	r.offset = 0
	r.lastLine = nil

	if last, lerr := segment.LastIndex(r.logPath); lerr == nil && last > r.lastSegmentIndex {
		r.lastSegmentIndex = last
	}
	return true, nil
}

// Position snapshots the reader's current resumable state. It returns nil
// if no handle is open.
func (r *Reader) Position(ctx context.Context) (*position.Record, error) {
	if r.handle == nil {
		return nil, nil
	}

	rec := position.Record{
		Offset:  r.offset,
		LogPath: r.logPath,
	}

	if r.checkInode && !r.isStdin {
		info, err := r.handle.Stat()
		if err != nil {
			return nil, err
		}
		if ino, ok := inodeOf(info); ok {
			rec.Inode = &ino
		}
	}

	if r.checkLastLine {
		if len(r.lastLine) > 0 {
			rec = rec.WithLastLine(r.lastLine)
		} else if !r.isStdin {
			tail, err := tailBefore(r.handle, r.logPath, r.segmentIndex, r.offset)
			if err != nil {
				return nil, err
			}
			rec = rec.WithLastLine(tail)
		}
	}

	return &rec, nil
}

// Commit persists p (or the current Position if p is nil) to the cursor.
// It is a no-op if there is no position to commit.
func (r *Reader) Commit(ctx context.Context, p *position.Record) (err error) {
	if r.tracer != nil {
		var span trace.Span
		ctx, span = r.tracer.Start(ctx, "reader.commit", trace.WithAttributes(r.spanAttrs()...))
		defer func() {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.End()
		}()
	}

	if p == nil {
		pos, err := r.Position(ctx)
		if err != nil {
			return err
		}
		p = pos
	}
	if p == nil {
		return nil
	}
	if err := r.cur.Commit(ctx, *p); err != nil {
		return err
	}
	if r.mirror != nil {
		lag, _ := r.Lag() // best-effort; a mirror update is never fatal
		r.mirror.Update(ctx, r.logPath, *p, lag)
	}
	return nil
}

// Rollback discards the newest committed position and reports whether an
// older one became newest. It does not reposition the reader itself; the
// caller constructs a new Reader to resume from the rolled-back cursor.
func (r *Reader) Rollback(ctx context.Context) (bool, error) {
	return r.cur.Rollback(ctx)
}

// Lag returns the number of unread bytes between the reader's current
// position and the end of the newest data visible to it.
func (r *Reader) Lag() (uint64, error) {
	if r.handle == nil || r.isStdin {
		return 0, cursorerr.ErrLagUnavailable
	}

	var total int64
	for idx := r.segmentIndex; idx >= 0; idx-- {
		info, err := os.Stat(segment.PathFor(r.logPath, idx))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		total += info.Size()
	}
	total -= r.offset
	if total < 0 {
		total = 0
	}
	return uint64(total), nil
}

// LogNumber returns the index of the segment currently open (0 = active).
func (r *Reader) LogNumber() int { return r.segmentIndex }

// LogName returns the physical path of the segment currently open.
func (r *Reader) LogName() string {
	if r.isStdin {
		return "-"
	}
	return segment.PathFor(r.logPath, r.segmentIndex)
}

// Close releases the reader's handle and its cursor's lock.
func (r *Reader) Close() error {
	var err error
	if r.handle != nil && !r.isStdin {
		err = r.handle.Close()
	}
	if cerr := r.cur.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
