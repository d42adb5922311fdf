package mirror

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/rs/zerolog/log"

	"github.com/tailcursor/tailcursor/internal/position"
	"github.com/tailcursor/tailcursor/internal/retry"
)

// ClickHouseConfig configures the ClickHouse side-index.
type ClickHouseConfig struct {
	Addr     []string
	Database string
	Username string
	Password string
	Table    string
}

// ClickHouseMirror mirrors committed positions into a ClickHouse table,
// wrapping connect/insert/query in the pack's retry-with-backoff helper
// since a mirror write racing a ClickHouse restart must never fail a
// Reader's commit.
type ClickHouseMirror struct {
	conn  driver.Conn
	table string
	retry retry.Config
}

var _ Mirror = (*ClickHouseMirror)(nil)

// NewClickHouseMirror connects to ClickHouse and ensures the mirror table
// exists, matching the teacher's Open + Ping-with-retry client construction.
func NewClickHouseMirror(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseMirror, error) {
	table := cfg.Table
	if table == "" {
		table = "tailcursor_positions"
	}
	rc := retry.DefaultConfig()

	conn, err := retry.DoWithResult(ctx, rc, func() (driver.Conn, error) {
		conn, err := clickhouse.Open(&clickhouse.Options{
			Addr: cfg.Addr,
			Auth: clickhouse.Auth{
				Database: cfg.Database,
				Username: cfg.Username,
				Password: cfg.Password,
			},
		})
		if err != nil {
			return nil, err
		}
		if err := conn.Ping(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		return conn, nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to clickhouse mirror: %w", err)
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		log_path String,
		offset UInt64,
		lag UInt64,
		updated_at DateTime
	) ENGINE = ReplacingMergeTree(updated_at) ORDER BY log_path`, table)
	if err := conn.Exec(ctx, ddl); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create clickhouse mirror table: %w", err)
	}

	log.Info().Strs("addr", cfg.Addr).Str("table", table).Msg("clickhouse position mirror initialized")
	return &ClickHouseMirror{conn: conn, table: table, retry: rc}, nil
}

func (m *ClickHouseMirror) Update(ctx context.Context, logPath string, p position.Record, lag uint64) {
	rec := fromPosition(logPath, p, lag, time.Now())
	insert := fmt.Sprintf("INSERT INTO %s (log_path, offset, lag, updated_at) VALUES (?, ?, ?, ?)", m.table)
	err := retry.Do(ctx, m.retry, func() error {
		return m.conn.Exec(ctx, insert, rec.LogPath, uint64(rec.Offset), rec.Lag, rec.UpdatedAt)
	})
	if err != nil {
		log.Warn().Err(err).Str("log_path", logPath).Msg("clickhouse position mirror update failed")
	}
}

func (m *ClickHouseMirror) Snapshot(ctx context.Context) (map[string]MirrorRecord, error) {
	result := make(map[string]MirrorRecord)

	rows, err := retry.DoWithResult(ctx, m.retry, func() (driver.Rows, error) {
		return m.conn.Query(ctx, fmt.Sprintf("SELECT log_path, offset, lag, updated_at FROM %s FINAL", m.table))
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot clickhouse mirror: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec MirrorRecord
		if err := rows.Scan(&rec.LogPath, &rec.Offset, &rec.Lag, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		result[rec.LogPath] = rec
	}
	return result, rows.Err()
}

func (m *ClickHouseMirror) Close() error {
	return m.conn.Close()
}
