package mirror

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tailcursor/tailcursor/internal/position"
)

func TestEncodeDecodeRecordRoundTrip(t *testing.T) {
	rec := MirrorRecord{
		LogPath:   "/var/log/app.log",
		Offset:    98765,
		Lag:       42,
		UpdatedAt: time.Unix(1700000000, 0),
	}

	decoded, ok := decodeRecord(encodeRecord(rec))
	if !ok {
		t.Fatal("decodeRecord() ok = false, want true")
	}
	if decoded.Offset != rec.Offset || decoded.Lag != rec.Lag || decoded.LogPath != rec.LogPath {
		t.Errorf("decodeRecord() = %+v, want %+v", decoded, rec)
	}
	if !decoded.UpdatedAt.Equal(rec.UpdatedAt) {
		t.Errorf("decodeRecord().UpdatedAt = %v, want %v", decoded.UpdatedAt, rec.UpdatedAt)
	}
}

func TestDecodeRecordRejectsShortBuffer(t *testing.T) {
	if _, ok := decodeRecord([]byte{1, 2, 3}); ok {
		t.Error("decodeRecord() ok = true for a buffer shorter than the fixed header")
	}
}

func TestBoltMirrorUpdateAndSnapshot(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "mirror.db")

	m, err := NewBoltMirror(dbPath)
	if err != nil {
		t.Fatalf("NewBoltMirror() error = %v", err)
	}
	defer m.Close()

	m.Update(ctx, "/var/log/app.log", position.Record{Offset: 1024}, 5)
	m.Update(ctx, "/var/log/other.log", position.Record{Offset: 2048}, 0)

	snap, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("Snapshot() returned %d entries, want 2", len(snap))
	}
	if got := snap["/var/log/app.log"]; got.Offset != 1024 || got.Lag != 5 {
		t.Errorf("Snapshot()[app.log] = %+v, want offset 1024 lag 5", got)
	}
	if got := snap["/var/log/other.log"]; got.Offset != 2048 {
		t.Errorf("Snapshot()[other.log] = %+v, want offset 2048", got)
	}
}

func TestBoltMirrorUpdateOverwritesPriorValue(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "mirror.db")

	m, err := NewBoltMirror(dbPath)
	if err != nil {
		t.Fatalf("NewBoltMirror() error = %v", err)
	}
	defer m.Close()

	m.Update(ctx, "/var/log/app.log", position.Record{Offset: 10}, 0)
	m.Update(ctx, "/var/log/app.log", position.Record{Offset: 20}, 0)

	snap, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if got := snap["/var/log/app.log"]; got.Offset != 20 {
		t.Errorf("Snapshot()[app.log].Offset = %d, want 20 (latest update wins)", got.Offset)
	}
}
