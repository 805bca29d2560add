// Package archive writes a verbatim copy of every received request body to
// disk. Writes happen on a background goroutine; the ingest path only performs
// a non-blocking channel send and never learns about failures.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zstd"

	"github.com/ghalamif/MotionFlow/internal/adapters/observability"
	"github.com/ghalamif/MotionFlow/internal/ports"
)

// Config controls where and how raw payloads are archived.
type Config struct {
	Dir       string `yaml:"dir"`
	QueueSize int    `yaml:"queue_size"`
	Compress  bool   `yaml:"compress"`
	Disabled  bool   `yaml:"disabled"`
}

const fileTimeLayout = "20060102150405"

type job struct {
	received time.Time
	raw      []byte
}

// FileArchiver stores each payload at <dir>/data_<YYYYMMDDHHMMSS>.json (or
// .json.zst when compressing). Two payloads received in the same second
// share a name; the later one wins.
type FileArchiver struct {
	dir   string
	obs   ports.Observability
	queue chan job
	enc   *zstd.Encoder
	done  chan struct{}

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewFileArchiver creates dir if needed and starts the writer goroutine.
func NewFileArchiver(cfg Config, obs ports.Observability) (*FileArchiver, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("archive: dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: mkdir: %w", err)
	}
	qsize := cfg.QueueSize
	if qsize <= 0 {
		qsize = 256
	}

	a := &FileArchiver{
		dir:   cfg.Dir,
		obs:   obs,
		queue: make(chan job, qsize),
		done:  make(chan struct{}),
	}
	if cfg.Compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("archive: zstd: %w", err)
		}
		a.enc = enc
	}

	go a.writeLoop()
	return a, nil
}

// Archive queues raw for writing. The slice is copied. A full queue drops the
// payload and counts it.
func (a *FileArchiver) Archive(received time.Time, raw []byte) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}

	buf := make([]byte, len(raw))
	copy(buf, raw)

	select {
	case a.queue <- job{received: received, raw: buf}:
	default:
		a.obs.IncCounter(observability.ArchiveDroppedTotal, 1)
	}
}

// PathFor returns the archive path used for a payload received at t.
func (a *FileArchiver) PathFor(t time.Time) string {
	name := "data_" + t.Format(fileTimeLayout) + ".json"
	if a.enc != nil {
		name += ".zst"
	}
	return filepath.Join(a.dir, name)
}

// Close stops accepting payloads and waits for queued writes to finish or
// for ctx to expire.
func (a *FileArchiver) Close(ctx context.Context) error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.queue)
		a.mu.Unlock()
	})

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *FileArchiver) writeLoop() {
	defer close(a.done)
	for j := range a.queue {
		a.write(j)
	}
	if a.enc != nil {
		_ = a.enc.Close()
	}
}

func (a *FileArchiver) write(j job) {
	path := a.PathFor(j.received)
	data := j.raw
	if a.enc != nil {
		data = a.enc.EncodeAll(j.raw, make([]byte, 0, len(j.raw)/2))
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		a.obs.IncCounter(observability.ArchiveFailuresTotal, 1)
		a.obs.LogError("archive_write_failed", err,
			ports.Field{Key: "path", Value: path},
			ports.Field{Key: "size", Value: humanize.Bytes(uint64(len(j.raw)))})
	}
}

var _ ports.Archiver = (*FileArchiver)(nil)
