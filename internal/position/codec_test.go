package position

import (
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ino := uint64(778899)
	ct := int64(1700000000)
	tests := []struct {
		name string
		rec  Record
	}{
		{
			name: "full record",
			rec: Record{
				Offset:     4096,
				Inode:      &ino,
				LastLine:   []byte("2026-08-06 last line of input\n"),
				LogPath:    "/var/log/app/app.log",
				CommitTime: &ct,
			},
		},
		{
			name: "no optional fields",
			rec: Record{
				Offset:  0,
				LogPath: "/var/log/app/app.log",
			},
		},
		{
			name: "inode without lastline",
			rec: Record{
				Offset:  128,
				Inode:   &ino,
				LogPath: "-",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := Encode(tt.rec)
			got, err := DecodeAll(strings.NewReader(encoded))
			if err != nil {
				t.Fatalf("DecodeAll() error = %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("DecodeAll() returned %d records, want 1", len(got))
			}
			assertRecordsEqual(t, got[0], tt.rec)
		})
	}
}

func TestEncodeDecodeLastLinePreservesTrailingNewline(t *testing.T) {
	rec := Record{
		Offset:   10,
		LogPath:  "/var/log/app.log",
		LastLine: []byte("final line\n"),
	}

	got, err := DecodeAll(strings.NewReader(Encode(rec)))
	if err != nil {
		t.Fatalf("DecodeAll() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("DecodeAll() returned %d records, want 1", len(got))
	}
	if string(got[0].LastLine) != string(rec.LastLine) {
		t.Fatalf("LastLine = %q, want %q (trailing newline must survive the round trip)", got[0].LastLine, rec.LastLine)
	}
}

func TestDecodeAllMultiGeneration(t *testing.T) {
	r1 := Record{Offset: 100, LogPath: "/var/log/app.log"}
	r2 := Record{Offset: 200, LogPath: "/var/log/app.log"}
	r3 := Record{Offset: 300, LogPath: "/var/log/app.log"}

	blob := EncodeAll([]Record{r3, r2, r1})
	got, err := DecodeAll(strings.NewReader(blob))
	if err != nil {
		t.Fatalf("DecodeAll() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("DecodeAll() returned %d records, want 3", len(got))
	}
	if got[0].Offset != 300 || got[1].Offset != 200 || got[2].Offset != 100 {
		t.Errorf("DecodeAll() order = %v, %v, %v; want newest-first", got[0].Offset, got[1].Offset, got[2].Offset)
	}
}

func TestDecodeAllSingleRecordNoSeparator(t *testing.T) {
	blob := "logfile: /var/log/app.log\nposition: 42\n"
	got, err := DecodeAll(strings.NewReader(blob))
	if err != nil {
		t.Fatalf("DecodeAll() error = %v", err)
	}
	if len(got) != 1 || got[0].Offset != 42 {
		t.Fatalf("DecodeAll() = %+v, want single record offset 42", got)
	}
}

func TestDecodeAllErrors(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{name: "empty file", blob: ""},
		{name: "missing position field", blob: "logfile: /var/log/app.log\n"},
		{name: "invalid position value", blob: "logfile: /var/log/app.log\nposition: not-a-number\n"},
		{name: "duplicate field", blob: "logfile: /var/log/app.log\nposition: 1\nposition: 2\n"},
		{name: "invalid inode value", blob: "logfile: /var/log/app.log\nposition: 1\ninode: abc\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeAll(strings.NewReader(tt.blob)); err == nil {
				t.Errorf("DecodeAll(%q) error = nil, want error", tt.blob)
			}
		})
	}
}

func TestTruncateLeftOnOverflow(t *testing.T) {
	long := strings.Repeat("x", maxLastLine+50)
	got := Truncate([]byte(long))
	if len(got) != maxLastLine {
		t.Fatalf("Truncate() length = %d, want %d", len(got), maxLastLine)
	}
	if string(got) != long[50:] {
		t.Errorf("Truncate() kept the wrong tail")
	}
}

func TestTruncateUnderLimit(t *testing.T) {
	short := []byte("short line")
	got := Truncate(short)
	if string(got) != string(short) {
		t.Errorf("Truncate() = %q, want unchanged %q", got, short)
	}
}

func assertRecordsEqual(t *testing.T, got, want Record) {
	t.Helper()
	if got.Offset != want.Offset {
		t.Errorf("Offset = %d, want %d", got.Offset, want.Offset)
	}
	if got.LogPath != want.LogPath {
		t.Errorf("LogPath = %q, want %q", got.LogPath, want.LogPath)
	}
	if (got.Inode == nil) != (want.Inode == nil) {
		t.Fatalf("Inode presence mismatch: got %v, want %v", got.Inode, want.Inode)
	}
	if got.Inode != nil && *got.Inode != *want.Inode {
		t.Errorf("Inode = %d, want %d", *got.Inode, *want.Inode)
	}
	if string(got.LastLine) != string(want.LastLine) {
		t.Errorf("LastLine = %q, want %q", got.LastLine, want.LastLine)
	}
}
