package sink

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ghalamif/MotionFlow/internal/domain"
)

func TestTimescaleSinkWriteBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "readings")
	acc := 2.0
	ts := domain.Nanos(1700000000000000001)

	readings := []*domain.Reading{
		{
			DeviceID:  "watch-1",
			SessionID: "s-1",
			MessageID: 4,
			Sensor:    "accelerometer",
			Time:      ts,
			Accuracy:  &acc,
			Values:    domain.Values{"x": 1},
		},
	}

	expectedQuery := regexp.QuoteMeta("INSERT INTO readings (device_id, session_id, message_id, sensor_name, ts, ts_ns, accuracy, fields) VALUES ($1,$2,$3,$4,$5,$6,$7,$8) ON CONFLICT (device_id, session_id, message_id, sensor_name, ts_ns) DO NOTHING")
	mock.ExpectExec(expectedQuery).
		WithArgs("watch-1", "s-1", int64(4), "accelerometer", ts.Time(), int64(ts), 2.0, []byte(`{"x":1}`)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := sink.WriteBatch(readings); err != nil {
		t.Fatalf("write batch: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkWriteBatchNoReadings(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "readings")
	if err := sink.WriteBatch(nil); err != nil {
		t.Fatalf("expected nil error for empty batch, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkChunksLargeBatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	readings := make([]*domain.Reading, rowsPerStatement+1)
	for i := range readings {
		readings[i] = &domain.Reading{Sensor: "gravity", Time: domain.Nanos(i)}
	}
	mock.ExpectExec("INSERT INTO sensor_readings").WillReturnResult(sqlmock.NewResult(0, rowsPerStatement))
	mock.ExpectExec("INSERT INTO sensor_readings").WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewTimescaleSink(db, "").WriteBatch(readings); err != nil {
		t.Fatalf("write batch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkPropagatesExecError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO").WillReturnError(errors.New("connection reset"))
	err = NewTimescaleSink(db, "readings").WriteBatch([]*domain.Reading{{Sensor: "gyroscope"}})
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("expected exec error, got %v", err)
	}
}

func TestTimescaleSinkName(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	sink := NewTimescaleSink(db, "readings")
	if sink.Name() != "timescaledb" {
		t.Fatalf("expected sink name timescaledb, got %s", sink.Name())
	}
}

func TestBuildInsertPlaceholders(t *testing.T) {
	q := buildInsert("t", 2, questionPlaceholder)
	if strings.Count(q, "?") != 2*len(readingColumns) {
		t.Fatalf("expected %d placeholders in %q", 2*len(readingColumns), q)
	}
	q = buildInsert("t", 2, dollarPlaceholder)
	if !strings.Contains(q, "($9,$10,$11,$12,$13,$14,$15,$16)") {
		t.Fatalf("second row placeholders wrong: %q", q)
	}
}
