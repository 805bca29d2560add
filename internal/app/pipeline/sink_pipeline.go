package pipeline

import (
	"context"
	"time"

	"github.com/ghalamif/MotionFlow/internal/adapters/observability"
	"github.com/ghalamif/MotionFlow/internal/domain"
	"github.com/ghalamif/MotionFlow/internal/ports"
)

const maxRetrySleep = time.Second

// RunSinkPipeline drains the queue into sink until ctx is cancelled. A batch
// that fails to write is retried with a growing pause and is only committed
// to the WAL once the sink accepts it. An unwritten batch at cancellation
// stays uncommitted and is replayed from the WAL on the next start.
func RunSinkPipeline(ctx context.Context, wal ports.WAL, q ports.ReadingQueue, sink ports.Sink, pol ports.Policy, obs ports.Observability) {
	var (
		pending []ports.QueuedReading
		sleep   = idleSleep(pol)
		backoff = sleep
	)

	for {
		if len(pending) == 0 {
			pending = q.DequeueBatch(pol.MaxBatchSize)
		}
		if len(pending) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(sleep):
			}
			continue
		}

		if writeBatch(pending, wal, q, sink, obs) {
			pending = nil
			backoff = sleep
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxRetrySleep)
	}
}

// FlushQueue writes everything currently queued in batches of max. It stops
// at the first failed batch and reports whether the queue was fully flushed.
func FlushQueue(wal ports.WAL, q ports.ReadingQueue, sink ports.Sink, max int, obs ports.Observability) bool {
	for {
		batch := q.DequeueBatch(max)
		if len(batch) == 0 {
			return true
		}
		if !writeBatch(batch, wal, q, sink, obs) {
			return false
		}
	}
}

func writeBatch(batch []ports.QueuedReading, wal ports.WAL, q ports.ReadingQueue, sink ports.Sink, obs ports.Observability) bool {
	var (
		out   = make([]*domain.Reading, 0, len(batch))
		maxID ports.WALEntryID
	)
	for _, item := range batch {
		out = append(out, item.Reading)
		if item.ID > maxID {
			maxID = item.ID
		}
	}

	start := time.Now()
	if err := sink.WriteBatch(out); err != nil {
		obs.LogError("sink_write_failed", err,
			ports.Field{Key: "sink", Value: sink.Name()},
			ports.Field{Key: "batch", Value: len(out)})
		return false
	}
	obs.ObserveLatency(observability.SinkLatencySeconds, time.Since(start).Seconds())
	obs.IncCounter(observability.ReadingsPersistedTotal, float64(len(out)))

	if err := wal.Commit(maxID); err != nil {
		obs.LogError("wal_commit_failed", err)
		return true
	}
	if q.Len() == 0 {
		if err := wal.TruncateCommitted(); err != nil {
			obs.LogError("wal_truncate_failed", err)
		}
	}
	return true
}
