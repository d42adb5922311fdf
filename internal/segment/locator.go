// Package segment enumerates the physical files that make up a logical,
// rotation-aware log: the active file at logPath, and rotated segments
// logPath.1, logPath.2, ... in increasing age order.
package segment

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PathFor returns the physical path for segment index idx. Index 0 is the
// active file (logPath itself); idx > 0 is logPath + ".idx".
func PathFor(logPath string, idx int) string {
	if idx == 0 {
		return logPath
	}
	return fmt.Sprintf("%s.%d", logPath, idx)
}

// LastIndex returns the largest k such that logPath.k exists on disk. Any
// candidate whose suffix after the final "." is not purely decimal digits
// is ignored. If no rotated segment exists, LastIndex returns 0.
func LastIndex(logPath string) (int, error) {
	dir := filepath.Dir(logPath)
	base := filepath.Base(logPath)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	last := 0
	prefix := base + "."
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		suffix := name[len(prefix):]
		if suffix == "" || !allDigits(suffix) {
			continue // ignore non-numeric suffixes, e.g. "log.1.gz"
		}
		n, err := strconv.Atoi(suffix)
		if err != nil || n < 0 {
			continue
		}
		if n > last {
			last = n
		}
	}
	return last, nil
}

func allDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
