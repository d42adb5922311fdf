package reader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/tailcursor/tailcursor/internal/cursorerr"
	"github.com/tailcursor/tailcursor/internal/position"
	"github.com/tailcursor/tailcursor/internal/segment"
)

// recoverPosition implements the rotation-recovery protocol (4.4): it
// walks candidate segments 0..lastSegmentIndex looking for the one that
// physically corresponds to p, and returns it open, plus the byte offset
// within that segment to resume from. The offset equals p.Offset for the
// matched candidate itself, but resets to 0 if advanceIfExhausted walks
// the result forward onto a newer segment, whose bytes p.Offset never
// described.
func recoverPosition(logPath string, lastSegmentIndex int, p position.Record, checkInode, checkLastLine bool, endFixed bool) (int, *os.File, int64, error) {
	for idx := 0; idx <= lastSegmentIndex; idx++ {
		path := segment.PathFor(logPath, idx)
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, nil, 0, fmt.Errorf("%w: %s: %v", cursorerr.ErrUnreadableLog, path, err)
		}

		ok, err := candidateMatches(f, logPath, idx, p, checkInode, checkLastLine, endFixed)
		if err != nil {
			f.Close()
			return 0, nil, 0, err
		}
		if !ok {
			f.Close()
			continue
		}

		newIdx, nf, err := advanceIfExhausted(logPath, idx, f)
		if err != nil {
			nf.Close()
			return 0, nil, 0, err
		}
		offset := p.Offset
		if newIdx != idx {
			offset = 0
		}
		return newIdx, nf, offset, nil
	}
	return 0, nil, 0, cursorerr.ErrPositionLost
}

func candidateMatches(f *os.File, logPath string, idx int, p position.Record, checkInode, checkLastLine, endFixed bool) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("%w: %v", cursorerr.ErrUnreadableLog, err)
	}
	size := info.Size()
	if size < p.Offset {
		return false, nil
	}
	if size == 0 && idx == 0 && endFixed {
		return false, nil
	}
	if _, err := f.Seek(p.Offset, io.SeekStart); err != nil {
		return false, fmt.Errorf("%w: %v", cursorerr.ErrUnreadableLog, err)
	}

	if checkInode && p.Inode != nil {
		ino, ok := inodeOf(info)
		if !ok || ino != *p.Inode {
			return false, nil
		}
	}

	if checkLastLine && len(p.LastLine) > 0 {
		tail, err := tailBefore(f, logPath, idx, p.Offset)
		if err != nil {
			return false, err
		}
		if !bytes.HasSuffix(tail, p.LastLine) {
			return false, nil
		}
	}

	return true, nil
}

// advanceIfExhausted implements the defence-in-depth forward walk: a
// candidate accepted at idx but already at its own EOF can't yield data,
// so walk to progressively newer segments until one has unread bytes or
// segment 0 is reached.
func advanceIfExhausted(logPath string, idx int, f *os.File) (int, *os.File, error) {
	for idx > 0 {
		info, err := f.Stat()
		if err != nil {
			return idx, f, err
		}
		tell, err := f.Seek(0, io.SeekCurrent)
		if err != nil {
			return idx, f, err
		}
		if tell < info.Size() {
			return idx, f, nil
		}

		nextPath := segment.PathFor(logPath, idx-1)
		nf, err := os.Open(nextPath)
		if err != nil {
			if os.IsNotExist(err) {
				return idx, f, nil
			}
			return idx, f, fmt.Errorf("%w: %s: %v", cursorerr.ErrUnreadableLog, nextPath, err)
		}
		f.Close()
		f = nf
		idx--
	}
	return idx, f, nil
}

// inodeOf extracts the platform inode number from a stat result, per the
// syscall.Stat_t pattern used throughout the pack for rotation detection.
func inodeOf(info os.FileInfo) (uint64, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}
	return st.Ino, true
}
