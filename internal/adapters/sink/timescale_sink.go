package sink

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/ghalamif/MotionFlow/internal/domain"
	"github.com/ghalamif/MotionFlow/internal/ports"
)

type TimescaleSink struct {
	db        *sql.DB
	tableName string
}

// OpenTimescale connects with lib/pq and wraps the pool in a sink.
func OpenTimescale(dsn, table string) (*TimescaleSink, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewTimescaleSink(db, table), nil
}

func NewTimescaleSink(db *sql.DB, table string) *TimescaleSink {
	if table == "" {
		table = DefaultTable
	}
	return &TimescaleSink{db: db, tableName: table}
}

func (t *TimescaleSink) Name() string { return "timescaledb" }

// EnsureSchema creates the readings table and its idempotency key.
func (t *TimescaleSink) EnsureSchema() error {
	_, err := t.db.Exec(`CREATE TABLE IF NOT EXISTS ` + t.tableName + ` (
	device_id   TEXT NOT NULL,
	session_id  TEXT NOT NULL,
	message_id  BIGINT NOT NULL,
	sensor_name TEXT NOT NULL,
	ts          TIMESTAMPTZ NOT NULL,
	ts_ns       BIGINT NOT NULL,
	accuracy    DOUBLE PRECISION,
	fields      JSONB NOT NULL,
	UNIQUE (device_id, session_id, message_id, sensor_name, ts_ns)
)`)
	return err
}

// WriteBatch inserts readings with one multi-row statement per chunk.
// Duplicate readings from WAL replay are ignored by the conflict clause.
func (t *TimescaleSink) WriteBatch(readings []*domain.Reading) error {
	if len(readings) == 0 {
		return nil
	}
	return chunks(readings, func(rows int, args []any) error {
		_, err := t.db.Exec(buildInsert(t.tableName, rows, dollarPlaceholder), args...)
		return err
	})
}

func (t *TimescaleSink) Close() error { return t.db.Close() }

var _ ports.Sink = (*TimescaleSink)(nil)
