package queue

import (
	"sync"

	"github.com/ghalamif/MotionFlow/internal/domain"
	"github.com/ghalamif/MotionFlow/internal/ports"
)

// MemQueue is a bounded FIFO of WAL-backed readings waiting for the sink.
// Entries sit in a fixed ring so dequeues never shift the backing array.
type MemQueue struct {
	mu   sync.Mutex
	ring []ports.QueuedReading
	head int
	size int
}

// NewMemQueue returns a queue holding at most capacity readings; capacity is
// clamped to 1.
func NewMemQueue(capacity int) *MemQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &MemQueue{ring: make([]ports.QueuedReading, capacity)}
}

func (q *MemQueue) Enqueue(id ports.WALEntryID, r *domain.Reading) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size == len(q.ring) {
		return false
	}
	q.ring[(q.head+q.size)%len(q.ring)] = ports.QueuedReading{ID: id, Reading: r}
	q.size++
	return true
}

// DequeueBatch removes up to max readings in arrival order. max <= 0 drains
// the queue.
func (q *MemQueue) DequeueBatch(max int) []ports.QueuedReading {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size == 0 {
		return nil
	}
	if max <= 0 || max > q.size {
		max = q.size
	}
	out := make([]ports.QueuedReading, max)
	for i := range out {
		idx := (q.head + i) % len(q.ring)
		out[i] = q.ring[idx]
		q.ring[idx] = ports.QueuedReading{}
	}
	q.head = (q.head + max) % len(q.ring)
	q.size -= max
	return out
}

func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

func (q *MemQueue) Cap() int {
	return len(q.ring)
}

var _ ports.ReadingQueue = (*MemQueue)(nil)
