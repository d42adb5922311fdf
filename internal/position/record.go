// Package position defines the value object that a Reader hands to a
// Cursor: a byte offset plus enough physical-file identity to recognize
// the same spot after a rotation.
package position

import "time"

// maxLastLine is the longest trailing line signature a Record keeps.
// Longer lines are truncated on the left, per the cursor file format.
const maxLastLine = 255

// Record is a snapshot of where a Reader would resume from.
//
// LogPath is always the logical base path (without a numeric rotation
// suffix), even when the Reader producing the Record is currently
// positioned inside an older segment.
type Record struct {
	Offset     int64
	Inode      *uint64
	LastLine   []byte
	LogPath    string
	CommitTime *int64
}

// WithLastLine returns a copy of r with LastLine truncated on the left to
// at most 255 bytes, as required by the cursor file format.
func (r Record) WithLastLine(line []byte) Record {
	r.LastLine = Truncate(line)
	return r
}

// Truncate trims b on the left so that at most 255 trailing bytes remain.
func Truncate(b []byte) []byte {
	if len(b) <= maxLastLine {
		return b
	}
	return b[len(b)-maxLastLine:]
}

// Stamp sets CommitTime to t, expressed as seconds since epoch.
func (r Record) Stamp(t time.Time) Record {
	sec := t.Unix()
	r.CommitTime = &sec
	return r
}

// Age returns t.Unix() - *r.CommitTime. Callers must check CommitTime is
// non-nil first.
func (r Record) Age(t time.Time) int64 {
	return t.Unix() - *r.CommitTime
}
