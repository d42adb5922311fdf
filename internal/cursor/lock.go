package cursor

import (
	"fmt"
	"os"
	"syscall"

	"github.com/tailcursor/tailcursor/internal/cursorerr"
)

// fileLock wraps an advisory flock(2) on a "<cursor>.lock" file. It is the
// only cross-process synchronization primitive the cursor offers; holding
// it serializes cursor transitions across readers that share a path.
type fileLock struct {
	f *os.File
}

// acquireLock opens (creating if needed) path+".lock" and takes an
// exclusive advisory lock per mode. mode == LockNone returns a nil lock
// on which release() is a safe no-op.
func acquireLock(path string, mode Lock) (*fileLock, error) {
	if mode == LockNone {
		return nil, nil
	}

	f, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	how := syscall.LOCK_EX
	if mode == LockNonblocking {
		how |= syscall.LOCK_NB
	}

	if err := syscall.Flock(int(f.Fd()), how); err != nil {
		f.Close()
		if mode == LockNonblocking && err == syscall.EWOULDBLOCK {
			return nil, cursorerr.ErrLockBusy
		}
		return nil, fmt.Errorf("flock: %w", err)
	}

	return &fileLock{f: f}, nil
}

func (l *fileLock) release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	return l.f.Close()
}
