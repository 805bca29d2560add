package motionflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghalamif/MotionFlow/internal/adapters/archive"
	"github.com/ghalamif/MotionFlow/internal/adapters/httpapi"
	"github.com/ghalamif/MotionFlow/internal/adapters/mqtt"
	"github.com/ghalamif/MotionFlow/internal/adapters/observability"
	"github.com/ghalamif/MotionFlow/internal/adapters/queue"
	"github.com/ghalamif/MotionFlow/internal/adapters/sink"
	"github.com/ghalamif/MotionFlow/internal/adapters/wal"
	"github.com/ghalamif/MotionFlow/internal/app/ingest"
	"github.com/ghalamif/MotionFlow/internal/app/pipeline"
	"github.com/ghalamif/MotionFlow/internal/app/poller"
	"github.com/ghalamif/MotionFlow/internal/app/telemetry"
	"github.com/ghalamif/MotionFlow/internal/domain"
	"github.com/ghalamif/MotionFlow/internal/ports"
)

// ErrRuntimeClosed is returned by Ingest after Shutdown.
var ErrRuntimeClosed = errors.New("motionflow: runtime closed")

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	collector     Collector
	sink          Sink
	wal           WAL
	queue         ReadingQueue
	archiver      Archiver
	observability Observability
	listeners     []SnapshotListener
}

// WithCollector injects a payload source besides HTTP (MQTT, replay files,
// simulators). It replaces the MQTT collector built from config.
func WithCollector(col Collector) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.collector = col
	}
}

// WithSink enables reading persistence with a caller-provided sink,
// overriding sink.driver.
func WithSink(s Sink) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.sink = s
	}
}

// WithWAL lets callers bring their own WAL implementation or reuse an existing instance.
func WithWAL(w WAL) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.wal = w
	}
}

// WithReadingQueue injects a custom queue implementation (e.g., lock-free, sharded).
func WithReadingQueue(q ReadingQueue) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.queue = q
	}
}

// WithArchiver replaces the file archiver for raw payloads.
func WithArchiver(a Archiver) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.archiver = a
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithSnapshotListener registers fn for every poller frame.
func WithSnapshotListener(fn SnapshotListener) RuntimeOption {
	return func(o *runtimeOverrides) {
		if fn != nil {
			o.listeners = append(o.listeners, fn)
		}
	}
}

// Runtime wires the ingest service, the live store and its poller, the HTTP
// API and, when a sink is configured, the spool -> WAL -> queue -> sink
// pipeline. It exposes simple lifecycle hooks for embedding MotionFlow inside
// any Go service.
type Runtime struct {
	cfg       *Config
	policy    ports.Policy
	obs       ports.Observability
	store     *telemetry.Store
	service   *ingest.Service
	poller    *poller.Poller
	api       *httpapi.Server
	archiver  ports.Archiver
	collector ports.Collector

	sink  ports.Sink
	wal   ports.WAL
	queue ports.ReadingQueue
	spool chan *domain.Reading

	// adapters built from config; injected ones belong to the caller
	owned      []io.Closer
	ownArchive *archive.FileArchiver

	metricsSrv *http.Server
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	spoolDone  <-chan struct{}

	mu      sync.RWMutex
	started bool
	closed  bool
}

// NewRuntime bootstraps the default adapters (file archiver, Prometheus
// observability and, depending on config, an MQTT collector and a Postgres or
// SQLite sink backed by a file WAL). RuntimeOption values override any of
// them.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs(nil)
	}

	rt := &Runtime{
		cfg:    cfg,
		policy: cfg.Policy,
		obs:    obs,
		store:  telemetry.NewStore(cfg.Buffer.Capacity),
	}

	rt.archiver = overrides.archiver
	if rt.archiver == nil && !cfg.Archive.Disabled {
		fa, err := archive.NewFileArchiver(cfg.Archive, obs)
		if err != nil {
			return nil, err
		}
		rt.archiver = fa
		rt.ownArchive = fa
	}

	if err := rt.buildSpool(cfg, overrides); err != nil {
		rt.closeResources(context.Background())
		return nil, err
	}

	rt.collector = overrides.collector
	if rt.collector == nil && cfg.MQTT.Broker != "" {
		col, err := mqtt.NewCollector(cfg.MQTT, obs)
		if err != nil {
			rt.closeResources(context.Background())
			return nil, err
		}
		rt.collector = col
	}

	var spool chan<- *domain.Reading
	if rt.spool != nil {
		spool = rt.spool
	}
	rt.service = ingest.NewService(rt.store, rt.archiver, spool, obs)
	rt.poller = poller.New(rt.store, cfg.Poll.Interval(), obs)
	for _, fn := range overrides.listeners {
		rt.poller.Subscribe(fn)
	}
	rt.api = httpapi.New(cfg.HTTP.Addr, guardedIngester{rt}, rt.store, rt.poller, obs)

	return rt, nil
}

func (r *Runtime) buildSpool(cfg *Config, overrides runtimeOverrides) error {
	r.sink = overrides.sink
	if r.sink == nil {
		switch cfg.Sink.Driver {
		case "postgres":
			ts, err := sink.OpenTimescale(cfg.Sink.DSN, cfg.Sink.Table)
			if err != nil {
				return err
			}
			r.owned = append(r.owned, ts)
			if err := ts.EnsureSchema(); err != nil {
				return fmt.Errorf("timescale schema: %w", err)
			}
			r.sink = ts
		case "sqlite":
			ss, err := sink.OpenSQLite(cfg.Sink.DSN, cfg.Sink.Table)
			if err != nil {
				return err
			}
			r.owned = append(r.owned, ss)
			r.sink = ss
		}
	}
	if r.sink == nil {
		return nil
	}

	r.wal = overrides.wal
	if r.wal == nil {
		w, err := wal.NewFileWAL(cfg.WAL.Dir)
		if err != nil {
			return err
		}
		r.owned = append(r.owned, w)
		r.wal = w
	}

	r.queue = overrides.queue
	if r.queue == nil {
		r.queue = queue.NewMemQueue(cfg.Policy.MaxQueueLen)
	}

	if err := replayWALIntoQueue(r.wal, r.queue, cfg.Policy, r.obs); err != nil {
		return err
	}
	r.spool = make(chan *domain.Reading, cfg.Policy.SpoolSize)
	return nil
}

// Store returns the live telemetry buffer.
func (r *Runtime) Store() *Store { return r.store }

// Latest returns the most recent poller frame.
func (r *Runtime) Latest() (Frame, bool) { return r.poller.Latest() }

// Handler returns the HTTP API handler, for mounting inside another server.
// After Shutdown, POST /data answers 400 failure.
func (r *Runtime) Handler() http.Handler { return r.api.Routes() }

// Ingest feeds one raw batch payload through the same path as POST /data.
func (r *Runtime) Ingest(raw []byte) (IngestResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return IngestResult{}, ErrRuntimeClosed
	}
	return r.service.Accept(raw)
}

// guardedIngester sends HTTP bodies through Ingest so nothing reaches the
// spool once it is closed.
type guardedIngester struct{ r *Runtime }

func (g guardedIngester) Accept(raw []byte) (IngestResult, error) { return g.r.Ingest(raw) }

// Start launches the poller, the HTTP API, the metrics server, the collector
// and the persistence pipeline. It returns immediately; call Run to block on
// a context instead.
func (r *Runtime) Start() error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRuntimeClosed
	}
	if r.started {
		return fmt.Errorf("runtime already started")
	}

	// the collector goes first so a failed connect leaves nothing running
	var in chan []byte
	if r.collector != nil {
		in = make(chan []byte, 64)
		if err := r.collector.Start(in); err != nil {
			return fmt.Errorf("start collector: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	if r.sink != nil {
		r.spoolDone = pipeline.RunSpoolPipeline(r.spool, r.wal, r.queue, r.policy, r.obs)
		r.goRun(func() { pipeline.RunSinkPipeline(ctx, r.wal, r.queue, r.sink, r.policy, r.obs) })
	}
	r.goRun(func() { r.poller.Run(ctx) })
	if in != nil {
		r.goRun(func() { r.feed(ctx, in) })
	}

	r.api.Start()
	r.startMetrics(ctx)
	r.started = true

	r.obs.LogInfo("runtime_started",
		ports.Field{Key: "http_addr", Value: r.cfg.HTTP.Addr},
		ports.Field{Key: "capacity", Value: r.cfg.Buffer.Capacity},
		ports.Field{Key: "channels", Value: len(r.store.Names())},
		ports.Field{Key: "persistence", Value: r.sink != nil})
	return nil
}

// Run starts the runtime and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Shutdown stops intake first (HTTP, collector), then drains the spool into
// the sink and closes every owned resource. It is safe to call more than once.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	started := r.started
	r.mu.Unlock()

	var errs []error
	if started {
		if err := r.api.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http api: %w", err))
		}
		if r.collector != nil {
			if err := r.collector.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("collector: %w", err))
			}
		}
		r.cancel()
		r.wg.Wait()

		if r.spool != nil {
			close(r.spool)
			<-r.spoolDone
			if !pipeline.FlushQueue(r.wal, r.queue, r.sink, r.policy.MaxBatchSize, r.obs) {
				r.obs.LogError("shutdown_flush_incomplete", errors.New("readings left in WAL"),
					ports.Field{Key: "queued", Value: r.queue.Len()})
			}
		}

		if r.metricsSrv != nil {
			if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs = append(errs, fmt.Errorf("metrics: %w", err))
			}
		}
	}

	if err := r.closeResources(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *Runtime) closeResources(ctx context.Context) error {
	var errs []error
	for _, c := range r.owned {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.owned = nil
	if r.ownArchive != nil {
		if err := r.ownArchive.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("archive: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (r *Runtime) goRun(fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn()
	}()
}

// feed pushes collector payloads through the ingest service.
func (r *Runtime) feed(ctx context.Context, in <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-in:
			if !ok {
				return
			}
			if _, err := r.service.Accept(raw); err != nil {
				r.obs.LogError("collector_payload_rejected", err,
					ports.Field{Key: "size", Value: humanize.Bytes(uint64(len(raw)))})
			}
		}
	}
}

func (r *Runtime) startMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{
		Addr:              r.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.obs.LogError("metrics_server_exited", err, ports.Field{Key: "addr", Value: r.cfg.Metrics.Addr})
		}
	}()

	if r.sink != nil {
		r.goRun(func() { r.recordResourceGauges(ctx, time.Second) })
	}
}

func (r *Runtime) recordResourceGauges(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := r.wal.Stats()
			r.obs.SetGauge(observability.WALSizeBytes, float64(stats.SizeBytes))
			r.obs.SetGauge(observability.QueueLength, float64(r.queue.Len()))
		}
	}
}

func replayWALIntoQueue(walAdapter ports.WAL, q ports.ReadingQueue, pol ports.Policy, obs ports.Observability) error {
	stats := walAdapter.Stats()
	if stats.LatestAppended == 0 {
		return nil
	}
	start := stats.OldestUncommitted
	if start == 0 || start > stats.LatestAppended {
		return nil
	}

	var replayed int
	err := walAdapter.Iterate(start, func(id ports.WALEntryID, r *domain.Reading) error {
		if q.Enqueue(id, r) {
			replayed++
			return nil
		}
		// nothing drains the queue before Start, so blocking would hang
		return fmt.Errorf("queue full during WAL replay after %d readings", replayed)
	})
	if err != nil {
		return err
	}
	if replayed > 0 {
		obs.LogInfo("wal_replay_complete",
			ports.Field{Key: "readings", Value: replayed},
			ports.Field{Key: "from_id", Value: uint64(start)},
			ports.Field{Key: "wal_size", Value: humanize.Bytes(uint64(stats.SizeBytes))})
	}
	return nil
}
