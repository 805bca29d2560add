package observability

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ghalamif/MotionFlow/internal/ports"
)

func swapRegistry(t *testing.T) {
	t.Helper()
	origReg := prometheus.DefaultRegisterer
	origGatherer := prometheus.DefaultGatherer
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = origReg
		prometheus.DefaultGatherer = origGatherer
	})

	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg
}

func TestPromObsMetrics(t *testing.T) {
	swapRegistry(t)
	obs := NewPromObs(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	obs.IncCounter(EventsAppliedTotal, 5)
	if got := testutil.ToFloat64(obs.counters[EventsAppliedTotal]); got != 5 {
		t.Fatalf("expected applied counter 5, got %f", got)
	}

	obs.IncCounter(SpoolDroppedTotal, 2)
	if got := testutil.ToFloat64(obs.counters[SpoolDroppedTotal]); got != 2 {
		t.Fatalf("expected spool drop counter 2, got %f", got)
	}

	obs.SetGauge(WALSizeBytes, 42)
	if got := testutil.ToFloat64(obs.gauges[WALSizeBytes]); got != 42 {
		t.Fatalf("expected wal gauge 42, got %f", got)
	}

	obs.ObserveLatency(SinkLatencySeconds, 0.5)
	hCollector := obs.histos[SinkLatencySeconds].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected latency histogram to record 1 sample, got %d", samples)
	}

	// Unknown names are ignored rather than panicking.
	obs.IncCounter("nope", 1)
	obs.SetGauge("nope", 1)
	obs.ObserveLatency("nope", 1)
}

func TestPromObsLogsStructuredFields(t *testing.T) {
	swapRegistry(t)
	var buf bytes.Buffer
	obs := NewPromObs(slog.New(slog.NewTextHandler(&buf, nil)))

	obs.LogError("archive_write_failed", errors.New("disk full"), ports.Field{Key: "path", Value: "data/x.json"})
	out := buf.String()
	for _, want := range []string{"archive_write_failed", "path=data/x.json", "disk full"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected log to contain %q, got %q", want, out)
		}
	}

	buf.Reset()
	obs.LogInfo("ready", ports.Field{Key: "addr", Value: ":8000"})
	if !strings.Contains(buf.String(), "addr=:8000") {
		t.Fatalf("expected addr field, got %q", buf.String())
	}
}
