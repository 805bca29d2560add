package sink

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/ghalamif/MotionFlow/internal/domain"
	"github.com/ghalamif/MotionFlow/internal/ports"
)

// SQLiteSink stores readings in a local SQLite file. It suits a single edge
// box with no database server.
type SQLiteSink struct {
	db        *sql.DB
	tableName string
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(path, table string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer at a time avoids SQLITE_BUSY under the sink pipeline
	db.SetMaxOpenConns(1)

	s := NewSQLiteSink(db, table)
	if err := s.EnsureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func NewSQLiteSink(db *sql.DB, table string) *SQLiteSink {
	if table == "" {
		table = DefaultTable
	}
	return &SQLiteSink{db: db, tableName: table}
}

func (s *SQLiteSink) Name() string { return "sqlite" }

func (s *SQLiteSink) EnsureSchema() error {
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return fmt.Errorf("sqlite pragma: %w", err)
	}
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS ` + s.tableName + ` (
	device_id   TEXT NOT NULL,
	session_id  TEXT NOT NULL,
	message_id  INTEGER NOT NULL,
	sensor_name TEXT NOT NULL,
	ts          TIMESTAMP NOT NULL,
	ts_ns       INTEGER NOT NULL,
	accuracy    REAL,
	fields      TEXT NOT NULL,
	UNIQUE (device_id, session_id, message_id, sensor_name, ts_ns)
)`)
	if err != nil {
		return fmt.Errorf("sqlite schema: %w", err)
	}
	return nil
}

func (s *SQLiteSink) WriteBatch(readings []*domain.Reading) error {
	if len(readings) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	err = chunks(readings, func(rows int, args []any) error {
		_, err := tx.Exec(buildInsert(s.tableName, rows, questionPlaceholder), args...)
		return err
	})
	if err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Count returns the number of stored readings.
func (s *SQLiteSink) Count() (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM ` + s.tableName).Scan(&n)
	return n, err
}

func (s *SQLiteSink) Close() error { return s.db.Close() }

var _ ports.Sink = (*SQLiteSink)(nil)
