// Package pipeline moves labelled readings from the ingest spool through the
// WAL and the in-memory queue into a persistent sink. It sits beside the live
// telemetry buffer and never feeds back into it.
package pipeline

import (
	"fmt"
	"time"

	"github.com/ghalamif/MotionFlow/internal/adapters/observability"
	"github.com/ghalamif/MotionFlow/internal/domain"
	"github.com/ghalamif/MotionFlow/internal/ports"
)

const defaultIdleSleep = 5 * time.Millisecond

// RunSpoolPipeline appends every reading received on in to the WAL and queues
// it for the sink. The returned channel closes once in is closed and drained.
func RunSpoolPipeline(in <-chan *domain.Reading, wal ports.WAL, q ports.ReadingQueue, pol ports.Policy, obs ports.Observability) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range in {
			spoolOne(r, wal, q, pol, obs)
		}
	}()
	return done
}

func spoolOne(r *domain.Reading, wal ports.WAL, q ports.ReadingQueue, pol ports.Policy, obs ports.Observability) {
	if !waitForWALCapacity(wal, pol, obs) {
		obs.IncCounter(observability.QueueDroppedTotal, 1)
		return
	}

	id, err := wal.Append(r)
	if err != nil {
		obs.LogCritical("wal_append_failed", err, ports.Field{Key: "sensor", Value: r.Sensor})
		return
	}

	if !enqueueWithPolicy(q, id, r, pol, obs) {
		// still in the WAL; replayed on the next start
		obs.IncCounter(observability.QueueDroppedTotal, 1)
	}
}

func idleSleep(pol ports.Policy) time.Duration {
	if pol.IdleSleep <= 0 {
		return defaultIdleSleep
	}
	return pol.IdleSleep
}

func waitForWALCapacity(wal ports.WAL, pol ports.Policy, obs ports.Observability) bool {
	if pol.MaxWALSizeBytes <= 0 {
		return true
	}
	sleep := idleSleep(pol)

	for {
		stats := wal.Stats()
		if stats.SizeBytes < pol.MaxWALSizeBytes {
			return true
		}

		switch pol.OnWALFull {
		case "block":
			time.Sleep(sleep)
		case "drop":
			obs.LogError("wal_full_drop", fmt.Errorf("size=%d limit=%d", stats.SizeBytes, pol.MaxWALSizeBytes))
			return false
		default:
			obs.LogError("wal_policy_invalid", fmt.Errorf("policy=%s", pol.OnWALFull))
			return false
		}
	}
}

func enqueueWithPolicy(q ports.ReadingQueue, id ports.WALEntryID, r *domain.Reading, pol ports.Policy, obs ports.Observability) bool {
	sleep := idleSleep(pol)

	for {
		if ok := q.Enqueue(id, r); ok {
			return true
		}

		switch pol.OnQueueFull {
		case "block":
			time.Sleep(sleep)
		case "drop", "reject":
			obs.LogError("queue_full_drop", fmt.Errorf("queue length exceeded capacity %d", pol.MaxQueueLen),
				ports.Field{Key: "wal_id", Value: uint64(id)})
			return false
		default:
			obs.LogError("queue_policy_invalid", fmt.Errorf("policy=%s", pol.OnQueueFull))
			return false
		}
	}
}
