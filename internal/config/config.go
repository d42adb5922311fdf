// Package config loads the YAML manifest of tracked logs (C8) and
// overlays environment-variable globals, following the teacher's
// getEnv/getEnvInt/getEnvBool pattern for the env layer and its
// yaml.v3-based mapping loader for the manifest itself.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tailcursor/tailcursor/internal/cursor"
	"github.com/tailcursor/tailcursor/internal/cursorerr"
	"github.com/tailcursor/tailcursor/internal/reader"
)

// SourceConfig is one tracked log, as it appears in the YAML manifest.
// Fields mirror the Reader configuration table one-to-one, plus Name,
// used only for logging, tracing, and mirror keys.
type SourceConfig struct {
	Name           string `yaml:"name"`
	Log            string `yaml:"log"`
	Pos            string `yaml:"pos"`
	Start          string `yaml:"start"`
	End            string `yaml:"end"`
	CheckInode     bool   `yaml:"check_inode"`
	CheckLastLine  bool   `yaml:"check_lastline"`
	CheckLog       bool   `yaml:"check_log"`
	AutofixCursor  bool   `yaml:"autofix_cursor"`
	RollbackPeriod int    `yaml:"rollback_period"`
	Lock           string `yaml:"lock"`
}

// MirrorConfig selects the optional position side-index sinks.
type MirrorConfig struct {
	BoltPath      string `yaml:"bolt_path"`
	ClickHouseDSN string `yaml:"clickhouse_dsn"`
}

// ObservabilityConfig selects the logger/tracer setup.
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	TracingEnabled bool   `yaml:"tracing_enabled"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
}

// Manifest is the top-level YAML document.
type Manifest struct {
	Sources       []SourceConfig      `yaml:"sources"`
	Mirror        MirrorConfig        `yaml:"mirror"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// Load reads and validates a YAML manifest, then overlays env-var globals
// onto its Observability and Mirror sections.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read manifest: %v", cursorerr.ErrConfig, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parse manifest: %v", cursorerr.ErrConfig, err)
	}

	m.Observability.LogLevel = getEnv("TAILCURSOR_LOG_LEVEL", m.Observability.LogLevel)
	m.Observability.TracingEnabled = getEnvBool("TAILCURSOR_TRACING_ENABLED", m.Observability.TracingEnabled)
	m.Observability.OTLPEndpoint = getEnv("TAILCURSOR_OTLP_ENDPOINT", m.Observability.OTLPEndpoint)
	m.Mirror.BoltPath = getEnv("TAILCURSOR_MIRROR_BOLT_PATH", m.Mirror.BoltPath)
	m.Mirror.ClickHouseDSN = getEnv("TAILCURSOR_MIRROR_CLICKHOUSE_DSN", m.Mirror.ClickHouseDSN)

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate rejects a manifest with zero sources, duplicate names, or a
// SourceConfig whose symbols would fail Reader construction.
func (m *Manifest) Validate() error {
	if len(m.Sources) == 0 {
		return fmt.Errorf("%w: manifest has no sources", cursorerr.ErrConfig)
	}

	seen := make(map[string]bool, len(m.Sources))
	for _, s := range m.Sources {
		if s.Name == "" {
			return fmt.Errorf("%w: source with empty name", cursorerr.ErrConfig)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: duplicate source name %q", cursorerr.ErrConfig, s.Name)
		}
		seen[s.Name] = true

		if _, ok := reader.ParseStart(s.Start); !ok {
			return fmt.Errorf("%w: source %q: unknown start %q", cursorerr.ErrConfig, s.Name, s.Start)
		}
		if _, ok := reader.ParseEnd(s.End); !ok {
			return fmt.Errorf("%w: source %q: unknown end %q", cursorerr.ErrConfig, s.Name, s.End)
		}
		if _, ok := cursor.ParseLock(s.Lock); !ok {
			return fmt.Errorf("%w: source %q: unknown lock %q", cursorerr.ErrConfig, s.Name, s.Lock)
		}
		if !s.CheckInode && !s.CheckLastLine {
			return fmt.Errorf("%w: source %q: at least one of check_inode/check_lastline must be true", cursorerr.ErrConfig, s.Name)
		}
		if s.Pos == "" {
			return fmt.Errorf("%w: source %q: pos is required", cursorerr.ErrConfig, s.Name)
		}
		if s.Pos == "-" && s.Log == "" {
			return fmt.Errorf("%w: source %q: pos \"-\" requires a log", cursorerr.ErrConfig, s.Name)
		}
	}
	return nil
}

// ReaderConfig translates a SourceConfig into a reader.Config. The caller
// still supplies Mirror, Tracer and Filter, which have no manifest
// representation.
func (s SourceConfig) ReaderConfig() (reader.Config, error) {
	start, ok := reader.ParseStart(s.Start)
	if !ok {
		return reader.Config{}, fmt.Errorf("%w: unknown start %q", cursorerr.ErrConfig, s.Start)
	}
	end, ok := reader.ParseEnd(s.End)
	if !ok {
		return reader.Config{}, fmt.Errorf("%w: unknown end %q", cursorerr.ErrConfig, s.End)
	}
	lock, ok := cursor.ParseLock(s.Lock)
	if !ok {
		return reader.Config{}, fmt.Errorf("%w: unknown lock %q", cursorerr.ErrConfig, s.Lock)
	}

	return reader.Config{
		LogPath:        s.Log,
		PosPath:        s.Pos,
		RollbackPeriod: time.Duration(s.RollbackPeriod) * time.Second,
		Lock:           lock,
		Start:          start,
		End:            end,
		CheckInode:     s.CheckInode,
		CheckLastLine:  s.CheckLastLine,
		CheckLog:       s.CheckLog,
		AutofixCursor:  s.AutofixCursor,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}
