package mirror

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"

	"github.com/tailcursor/tailcursor/internal/position"
)

const bucketName = "positions"

// BoltMirror persists one MirrorRecord per log path, keyed by the
// canonical log path, in a single bbolt bucket, mirroring the key/value
// shape of the teacher's offset.BoltDBStore.
type BoltMirror struct {
	db *bbolt.DB
}

// NewBoltMirror opens (creating if needed) a BoltDB file at dbPath.
func NewBoltMirror(dbPath string) (*BoltMirror, error) {
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open position mirror (may be locked by another process): %w", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create position mirror bucket: %w", err)
	}

	log.Info().Str("db_path", dbPath).Msg("position mirror initialized")
	return &BoltMirror{db: db}, nil
}

var _ Mirror = (*BoltMirror)(nil)

func (m *BoltMirror) Update(ctx context.Context, logPath string, p position.Record, lag uint64) {
	rec := fromPosition(logPath, p, lag, time.Now())
	err := m.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		return b.Put([]byte(logPath), encodeRecord(rec))
	})
	if err != nil {
		log.Warn().Err(err).Str("log_path", logPath).Msg("bolt position mirror update failed")
	}
}

func (m *BoltMirror) Snapshot(ctx context.Context) (map[string]MirrorRecord, error) {
	result := make(map[string]MirrorRecord)
	err := m.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		return b.ForEach(func(k, v []byte) error {
			rec, ok := decodeRecord(v)
			if !ok {
				return nil
			}
			result[string(k)] = rec
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot position mirror: %w", err)
	}
	return result, nil
}

func (m *BoltMirror) Close() error {
	return m.db.Close()
}

// encodeRecord/decodeRecord use a small fixed binary layout: offset (8
// bytes), lag (8 bytes), updated_at unix seconds (8 bytes), followed by
// log_path. Mirrors offset.BoltDBStore's use of encoding/binary for its
// offset values, extended to the extra fields a status query needs.
func encodeRecord(r MirrorRecord) []byte {
	buf := make([]byte, 24+len(r.LogPath))
	binary.BigEndian.PutUint64(buf[0:8], uint64(r.Offset))
	binary.BigEndian.PutUint64(buf[8:16], r.Lag)
	binary.BigEndian.PutUint64(buf[16:24], uint64(r.UpdatedAt.Unix()))
	copy(buf[24:], r.LogPath)
	return buf
}

func decodeRecord(buf []byte) (MirrorRecord, bool) {
	if len(buf) < 24 {
		return MirrorRecord{}, false
	}
	return MirrorRecord{
		Offset:    int64(binary.BigEndian.Uint64(buf[0:8])),
		Lag:       binary.BigEndian.Uint64(buf[8:16]),
		UpdatedAt: time.Unix(int64(binary.BigEndian.Uint64(buf[16:24])), 0),
		LogPath:   string(buf[24:]),
	}, true
}
