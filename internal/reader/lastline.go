package reader

import (
	"bytes"
	"io"
	"os"

	"github.com/tailcursor/tailcursor/internal/position"
	"github.com/tailcursor/tailcursor/internal/segment"
)

// tailBefore returns up to 256 trailing bytes ending at offset within the
// segment at idx, truncated to position.Record's 255-byte limit. When
// offset is 0 it looks into the next-older segment's tail instead, per the
// cross-segment look-back described for last-line extraction.
func tailBefore(f *os.File, logPath string, idx int, offset int64) ([]byte, error) {
	if offset > 0 {
		back := offset
		if back > 256 {
			back = 256
		}
		buf := make([]byte, back)
		n, err := f.ReadAt(buf, offset-back)
		if err != nil && err != io.EOF {
			return nil, err
		}
		return position.Truncate(buf[:n]), nil
	}

	olderPath := segment.PathFor(logPath, idx+1)
	of, err := os.Open(olderPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []byte{}, nil
		}
		return nil, err
	}
	defer of.Close()

	info, err := of.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	back := size
	if back > 256 {
		back = 256
	}
	buf := make([]byte, back)
	n, err := of.ReadAt(buf, size-back)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return position.Truncate(buf[:n]), nil
}

// seekToLastLineBoundary scans backward from f's EOF for the last newline
// and returns the offset immediately after it (0 if none is found, or if
// the file is empty). It never advances f's own seek position.
func seekToLastLineBoundary(f *os.File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	size := info.Size()
	if size == 0 {
		return 0, nil
	}

	const chunk = 4096
	pos := size
	for pos > 0 {
		readSize := int64(chunk)
		if readSize > pos {
			readSize = pos
		}
		start := pos - readSize
		buf := make([]byte, readSize)
		if _, err := f.ReadAt(buf, start); err != nil && err != io.EOF {
			return 0, err
		}
		if idx := bytes.LastIndexByte(buf, '\n'); idx >= 0 {
			return start + int64(idx) + 1, nil
		}
		pos = start
	}
	return 0, nil
}
