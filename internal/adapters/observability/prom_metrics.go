package observability

import (
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghalamif/MotionFlow/internal/ports"
)

// Metric names shared by the runtime, the ingest service and the stats CLI.
const (
	IngestRequestsTotal    = "motion_ingest_requests_total"
	IngestRejectedTotal    = "motion_ingest_rejected_total"
	EventsAppliedTotal     = "motion_events_applied_total"
	EventsIgnoredTotal     = "motion_events_ignored_total"
	ArchiveFailuresTotal   = "motion_archive_failures_total"
	ArchiveDroppedTotal    = "motion_archive_dropped_total"
	SpoolDroppedTotal      = "motion_spool_dropped_total"
	QueueDroppedTotal      = "motion_queue_dropped_total"
	ReadingsPersistedTotal = "motion_readings_persisted_total"

	WALSizeBytes   = "motion_wal_size_bytes"
	QueueLength    = "motion_queue_length"
	TimelineLength = "motion_timeline_length"

	IngestLatencySeconds = "motion_ingest_latency_seconds"
	SinkLatencySeconds   = "motion_sink_latency_seconds"
)

type PromObs struct {
	logger   *slog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the MotionFlow collectors on the default registerer.
// A nil logger logs JSON to stderr.
func NewPromObs(logger *slog.Logger) *PromObs {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}

	counters := map[string]prometheus.Counter{}
	for name, help := range map[string]string{
		IngestRequestsTotal:    "Ingest requests received over HTTP or MQTT.",
		IngestRejectedTotal:    "Ingest requests rejected as malformed.",
		EventsAppliedTotal:     "Sensor events dispatched into the live buffer.",
		EventsIgnoredTotal:     "Sensor events dropped because the sensor name is unknown.",
		ArchiveFailuresTotal:   "Raw payload archive writes that failed.",
		ArchiveDroppedTotal:    "Raw payloads not archived because the archive queue was full.",
		SpoolDroppedTotal:      "Readings not spooled because the spool was full.",
		QueueDroppedTotal:      "Readings lost due to queue backpressure policies.",
		ReadingsPersistedTotal: "Readings successfully written to the sink.",
	} {
		counters[name] = prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	}

	gauges := map[string]prometheus.Gauge{}
	for name, help := range map[string]string{
		WALSizeBytes:   "Size of the reading WAL on disk.",
		QueueLength:    "Readings buffered in the in-memory queue.",
		TimelineLength: "Samples currently held by the timeline channel.",
	} {
		gauges[name] = prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	}

	ingestLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    IngestLatencySeconds,
		Help:    "Time to archive, parse and dispatch one ingest request.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
	})
	sinkLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    SinkLatencySeconds,
		Help:    "Time to write one reading batch to the sink.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	collectors := []prometheus.Collector{ingestLatency, sinkLatency}
	for _, c := range counters {
		collectors = append(collectors, c)
	}
	for _, g := range gauges {
		collectors = append(collectors, g)
	}
	prometheus.MustRegister(collectors...)

	return &PromObs{
		logger:   logger,
		counters: counters,
		gauges:   gauges,
		histos: map[string]prometheus.Observer{
			IngestLatencySeconds: ingestLatency,
			SinkLatencySeconds:   sinkLatency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.logger.Info(msg, attrs(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.logger.Error(msg, append(attrs(fields), slog.Any("error", err))...)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.logger.Error(msg, append(attrs(fields), slog.Any("error", err), slog.Bool("critical", true))...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func attrs(fields []ports.Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
