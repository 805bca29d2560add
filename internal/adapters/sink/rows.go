package sink

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/ghalamif/MotionFlow/internal/domain"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultTable is used when no table name is configured.
const DefaultTable = "sensor_readings"

// rowsPerStatement keeps a multi-row insert well under the Postgres limit of
// 65535 bind parameters.
const rowsPerStatement = 1000

var readingColumns = []string{
	"device_id", "session_id", "message_id", "sensor_name",
	"ts", "ts_ns", "accuracy", "fields",
}

// conflictClause makes replayed WAL batches idempotent.
const conflictClause = " ON CONFLICT (device_id, session_id, message_id, sensor_name, ts_ns) DO NOTHING"

type placeholderFunc func(n int) string

func dollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

func questionPlaceholder(int) string { return "?" }

func buildInsert(table string, rows int, ph placeholderFunc) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(readingColumns, ", "))
	b.WriteString(") VALUES ")

	n := 0
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(")
		for c := range readingColumns {
			if c > 0 {
				b.WriteString(",")
			}
			n++
			b.WriteString(ph(n))
		}
		b.WriteString(")")
	}
	b.WriteString(conflictClause)
	return b.String()
}

func rowArgs(r *domain.Reading) ([]any, error) {
	vals, err := jsonAPI.Marshal(r.Values)
	if err != nil {
		return nil, fmt.Errorf("marshal values: %w", err)
	}
	var accuracy any
	if r.Accuracy != nil {
		accuracy = *r.Accuracy
	}
	return []any{
		r.DeviceID,
		r.SessionID,
		r.MessageID,
		r.Sensor,
		r.Time.Time(),
		int64(r.Time),
		accuracy,
		vals,
	}, nil
}

// chunks splits readings into statement-sized groups and hands each group's
// bind arguments to fn.
func chunks(readings []*domain.Reading, fn func(rows int, args []any) error) error {
	for start := 0; start < len(readings); start += rowsPerStatement {
		end := min(start+rowsPerStatement, len(readings))
		args := make([]any, 0, (end-start)*len(readingColumns))
		for _, r := range readings[start:end] {
			a, err := rowArgs(r)
			if err != nil {
				return err
			}
			args = append(args, a...)
		}
		if err := fn(end-start, args); err != nil {
			return err
		}
	}
	return nil
}
