package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tailcursor.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

const validManifest = `
sources:
  - name: app
    log: /var/log/app/app.log
    pos: /var/lib/tailcursor/app.pos
    start: begin
    end: future
    check_inode: true
    check_lastline: true
    rollback_period: 300
    lock: nonblocking
mirror:
  bolt_path: /var/lib/tailcursor/mirror.db
observability:
  log_level: info
`

func TestLoadValidManifest(t *testing.T) {
	path := writeManifest(t, validManifest)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(m.Sources) != 1 {
		t.Fatalf("Load() sources = %d, want 1", len(m.Sources))
	}
	if m.Sources[0].Name != "app" {
		t.Errorf("Sources[0].Name = %q, want %q", m.Sources[0].Name, "app")
	}
	if m.Mirror.BoltPath != "/var/lib/tailcursor/mirror.db" {
		t.Errorf("Mirror.BoltPath = %q, want the configured path", m.Mirror.BoltPath)
	}
}

func TestLoadOverlaysEnvVars(t *testing.T) {
	path := writeManifest(t, validManifest)

	t.Setenv("TAILCURSOR_LOG_LEVEL", "debug")
	t.Setenv("TAILCURSOR_MIRROR_BOLT_PATH", "/override/mirror.db")

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m.Observability.LogLevel != "debug" {
		t.Errorf("Observability.LogLevel = %q, want env override %q", m.Observability.LogLevel, "debug")
	}
	if m.Mirror.BoltPath != "/override/mirror.db" {
		t.Errorf("Mirror.BoltPath = %q, want env override", m.Mirror.BoltPath)
	}
}

func TestValidateRejectsInvalidManifests(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
	}{
		{
			name:     "no sources",
			manifest: "sources: []\n",
		},
		{
			name: "duplicate source names",
			manifest: `
sources:
  - name: app
    log: /var/log/app.log
    pos: /var/lib/app.pos
    start: begin
    check_inode: true
  - name: app
    log: /var/log/other.log
    pos: /var/lib/other.pos
    start: begin
    check_inode: true
`,
		},
		{
			name: "unknown start mode",
			manifest: `
sources:
  - name: app
    log: /var/log/app.log
    pos: /var/lib/app.pos
    start: yesterday
    check_inode: true
`,
		},
		{
			name: "neither check flag enabled",
			manifest: `
sources:
  - name: app
    log: /var/log/app.log
    pos: /var/lib/app.pos
    start: begin
`,
		},
		{
			name: "missing pos",
			manifest: `
sources:
  - name: app
    log: /var/log/app.log
    start: begin
    check_inode: true
`,
		},
		{
			name: "pos dash without log",
			manifest: `
sources:
  - name: app
    pos: "-"
    start: begin
    check_inode: true
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, tt.manifest)
			if _, err := Load(path); err == nil {
				t.Errorf("Load(%q) error = nil, want a validation error", tt.name)
			}
		})
	}
}

func TestSourceConfigReaderConfig(t *testing.T) {
	path := writeManifest(t, validManifest)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	rc, err := m.Sources[0].ReaderConfig()
	if err != nil {
		t.Fatalf("ReaderConfig() error = %v", err)
	}
	if rc.LogPath != "/var/log/app/app.log" {
		t.Errorf("ReaderConfig().LogPath = %q, want the manifest's log path", rc.LogPath)
	}
	if rc.RollbackPeriod.Seconds() != 300 {
		t.Errorf("ReaderConfig().RollbackPeriod = %v, want 300s", rc.RollbackPeriod)
	}
	if !rc.CheckInode || !rc.CheckLastLine {
		t.Error("ReaderConfig() did not carry check_inode/check_lastline through")
	}
}
