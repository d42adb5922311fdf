package segment

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPathFor(t *testing.T) {
	tests := []struct {
		name string
		idx  int
		want string
	}{
		{name: "active segment", idx: 0, want: "/var/log/app.log"},
		{name: "first rotation", idx: 1, want: "/var/log/app.log.1"},
		{name: "third rotation", idx: 3, want: "/var/log/app.log.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PathFor("/var/log/app.log", tt.idx); got != tt.want {
				t.Errorf("PathFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLastIndex(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")

	touch := func(name string) {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("WriteFile(%s): %v", name, err)
		}
	}

	t.Run("no rotations", func(t *testing.T) {
		touch("app.log")
		last, err := LastIndex(logPath)
		if err != nil {
			t.Fatalf("LastIndex() error = %v", err)
		}
		if last != 0 {
			t.Errorf("LastIndex() = %d, want 0", last)
		}
	})

	t.Run("several rotations", func(t *testing.T) {
		touch("app.log.1")
		touch("app.log.2")
		touch("app.log.5")
		last, err := LastIndex(logPath)
		if err != nil {
			t.Fatalf("LastIndex() error = %v", err)
		}
		if last != 5 {
			t.Errorf("LastIndex() = %d, want 5", last)
		}
	})

	t.Run("ignores non-numeric suffixes", func(t *testing.T) {
		touch("app.log.gz")
		touch("app.log.1.gz")
		last, err := LastIndex(logPath)
		if err != nil {
			t.Fatalf("LastIndex() error = %v", err)
		}
		if last != 5 {
			t.Errorf("LastIndex() = %d, want 5 (unaffected by non-numeric siblings)", last)
		}
	})

	t.Run("directory does not exist", func(t *testing.T) {
		last, err := LastIndex(filepath.Join(dir, "missing", "app.log"))
		if err != nil {
			t.Fatalf("LastIndex() error = %v", err)
		}
		if last != 0 {
			t.Errorf("LastIndex() = %d, want 0", last)
		}
	})
}
