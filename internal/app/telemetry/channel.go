package telemetry

import "sync"

// Channel is a fixed-capacity ring of samples. Appending to a full channel
// evicts the oldest sample. All methods are safe for concurrent use; each
// call holds the channel's own lock only.
type Channel struct {
	mu   sync.Mutex
	buf  []float64
	head int // index of the oldest sample
	size int
}

// NewChannel allocates a channel holding at most capacity samples. A
// capacity below 1 is raised to 1.
func NewChannel(capacity int) *Channel {
	if capacity < 1 {
		capacity = 1
	}
	return &Channel{buf: make([]float64, capacity)}
}

// Append adds v at the end. Values are stored as given, NaN and Inf included.
func (c *Channel) Append(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	capacity := len(c.buf)
	if c.size < capacity {
		c.buf[(c.head+c.size)%capacity] = v
		c.size++
		return
	}
	c.buf[c.head] = v
	c.head = (c.head + 1) % capacity
}

// Snapshot returns an independent copy of the contents, oldest first.
func (c *Channel) Snapshot() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]float64, c.size)
	n := copy(out, c.buf[c.head:min(c.head+c.size, len(c.buf))])
	copy(out[n:], c.buf[:c.size-n])
	return out
}

func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func (c *Channel) Cap() int { return len(c.buf) }
