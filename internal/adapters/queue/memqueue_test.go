package queue

import (
	"sync"
	"testing"

	"github.com/ghalamif/MotionFlow/internal/domain"
	"github.com/ghalamif/MotionFlow/internal/ports"
)

func TestMemQueueEnqueueDequeueOrder(t *testing.T) {
	q := NewMemQueue(4)

	r1 := &domain.Reading{Sensor: "accelerometer"}
	r2 := &domain.Reading{Sensor: "gyroscope"}

	if !q.Enqueue(1, r1) || !q.Enqueue(2, r2) {
		t.Fatalf("expected successful enqueue")
	}

	batch := q.DequeueBatch(1)
	if len(batch) != 1 || batch[0].ID != 1 || batch[0].Reading.Sensor != "accelerometer" {
		t.Fatalf("unexpected first batch: %+v", batch)
	}

	remaining := q.DequeueBatch(10)
	if len(remaining) != 1 || remaining[0].ID != 2 {
		t.Fatalf("unexpected second batch: %+v", remaining)
	}

	if q.Len() != 0 {
		t.Fatalf("queue should be empty, got %d", q.Len())
	}
	if q.DequeueBatch(1) != nil {
		t.Fatalf("empty queue should return nil batch")
	}
}

func TestMemQueueCapacity(t *testing.T) {
	q := NewMemQueue(2)
	r := &domain.Reading{Sensor: "gravity"}

	if !q.Enqueue(1, r) || !q.Enqueue(2, r) {
		t.Fatalf("expected enqueue within capacity")
	}
	if q.Enqueue(3, r) {
		t.Fatalf("enqueue should fail when capacity exceeded")
	}

	q.DequeueBatch(1)
	if !q.Enqueue(4, r) {
		t.Fatalf("expected enqueue to succeed after dequeue")
	}

	// Order survives the ring wrapping around.
	got := q.DequeueBatch(0)
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 4 {
		t.Fatalf("unexpected order after wrap: %+v", got)
	}
}

func TestMemQueueZeroCapacityClamped(t *testing.T) {
	q := NewMemQueue(0)
	if q.Cap() != 1 {
		t.Fatalf("expected capacity 1, got %d", q.Cap())
	}
	if !q.Enqueue(1, &domain.Reading{}) {
		t.Fatalf("expected single slot to accept")
	}
}

func TestMemQueueConcurrentProducers(t *testing.T) {
	q := NewMemQueue(1000)
	var wg sync.WaitGroup
	for p := 0; p < 10; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Enqueue(ports.WALEntryID(p*100+i+1), &domain.Reading{})
			}
		}(p)
	}
	wg.Wait()

	if q.Len() != 1000 {
		t.Fatalf("expected 1000 queued, got %d", q.Len())
	}
	seen := map[ports.WALEntryID]bool{}
	for _, item := range q.DequeueBatch(0) {
		seen[item.ID] = true
	}
	if len(seen) != 1000 {
		t.Fatalf("expected 1000 distinct ids, got %d", len(seen))
	}
}
