package position

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// recordSeparator marks the boundary between two serialized records in a
// multi-generation cursor file.
const recordSeparator = "###"

// ErrNoPosition is returned when a record block has no position: line.
var ErrNoPosition = fmt.Errorf("position: missing mandatory field")

// ErrDuplicateField is returned when a record block repeats a key.
type ErrDuplicateField struct{ Field string }

func (e *ErrDuplicateField) Error() string {
	return fmt.Sprintf("duplicate field %q in cursor record", e.Field)
}

// Encode renders r as the key/value block described by the cursor file
// format. It does not append a trailing separator; callers join multiple
// blocks with "###\n" themselves.
func Encode(r Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "logfile: %s\n", r.LogPath)
	fmt.Fprintf(&b, "position: %d\n", r.Offset)
	if r.Inode != nil {
		fmt.Fprintf(&b, "inode: %d\n", *r.Inode)
	}
	if r.LastLine != nil {
		fmt.Fprintf(&b, "lastline: %s\n", strconv.Quote(string(r.LastLine)))
	}
	if r.CommitTime != nil {
		fmt.Fprintf(&b, "committime: %d\n", *r.CommitTime)
	}
	return b.String()
}

// EncodeAll renders records newest-first, separated by "###" lines, in the
// on-disk cursor file format.
func EncodeAll(records []Record) string {
	var b strings.Builder
	for i, r := range records {
		if i > 0 {
			b.WriteString(recordSeparator + "\n")
		}
		b.WriteString(Encode(r))
	}
	return b.String()
}

// DecodeAll parses the cursor file format: one or more key/value blocks
// separated by lines containing exactly "###". A file with no separator at
// all is accepted as a single-record file, for backward compatibility with
// the pre-rollback format.
func DecodeAll(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	var records []Record
	cur := map[string]string{}
	seenAny := false

	flush := func() error {
		if len(cur) == 0 {
			return nil
		}
		rec, err := fromFields(cur)
		if err != nil {
			return err
		}
		records = append(records, rec)
		cur = map[string]string{}
		return nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == recordSeparator {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		seenAny = true
		key, val, ok := splitField(line)
		if !ok {
			continue
		}
		if _, dup := cur[key]; dup {
			return nil, &ErrDuplicateField{Field: key}
		}
		cur[key] = val
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if !seenAny {
		return nil, fmt.Errorf("cursor file is empty")
	}
	if len(records) == 0 {
		return nil, ErrNoPosition
	}
	return records, nil
}

// splitField splits a "key: value" line. Integer fields tolerate zero or
// more spaces after the colon; text fields use exactly one, but we accept
// any amount on read and are strict only on write.
func splitField(line string) (key, val string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:idx])
	val = strings.TrimLeft(line[idx+1:], " ")
	return key, val, true
}

func fromFields(f map[string]string) (Record, error) {
	posStr, ok := f["position"]
	if !ok {
		return Record{}, ErrNoPosition
	}
	offset, err := strconv.ParseInt(posStr, 10, 64)
	if err != nil || offset < 0 {
		return Record{}, fmt.Errorf("invalid position value %q", posStr)
	}

	rec := Record{
		Offset:  offset,
		LogPath: f["logfile"],
	}

	if v, ok := f["inode"]; ok {
		ino, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Record{}, fmt.Errorf("invalid inode value %q", v)
		}
		rec.Inode = &ino
	}
	if v, ok := f["lastline"]; ok {
		unquoted, err := strconv.Unquote(v)
		if err != nil {
			return Record{}, fmt.Errorf("invalid lastline value %q: %w", v, err)
		}
		rec.LastLine = Truncate([]byte(unquoted))
	}
	if v, ok := f["committime"]; ok {
		ct, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Record{}, fmt.Errorf("invalid committime value %q", v)
		}
		rec.CommitTime = &ct
	}
	return rec, nil
}
