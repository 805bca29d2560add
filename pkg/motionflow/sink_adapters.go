package motionflow

import (
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/ghalamif/MotionFlow/internal/domain"
)

// ErrChannelSinkClosed is returned when a channel sink is written to after being closed.
var ErrChannelSinkClosed = errors.New("motionflow: channel sink closed")

// ReadingBatchSink receives readings that left the WAL. Returning an error
// makes the runtime retry the same batch later.
type ReadingBatchSink func(batch []Reading) error

// NewCallbackSink adapts a ReadingBatchSink into a Sink so callers can plug
// plain functions in as the persistence target.
func NewCallbackSink(name string, fn ReadingBatchSink) Sink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes batches via a channel. It returns the sink, the
// read-only channel and a close function the caller invokes during shutdown.
// Writes block until the batch is received or the sink is closed.
func NewChannelSink(name string, buffer int) (Sink, <-chan []Reading, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan []Reading, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, s.close
}

type callbackSink struct {
	name string
	fn   ReadingBatchSink
}

func (s *callbackSink) WriteBatch(readings []*domain.Reading) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	if len(readings) == 0 {
		return nil
	}
	return s.fn(copyBatch(readings))
}

func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name string
	ch   chan []Reading

	mu     sync.Mutex
	closed chan struct{}
	done   bool
}

func (s *channelSink) WriteBatch(readings []*domain.Reading) error {
	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	default:
	}
	if len(readings) == 0 {
		return nil
	}

	batch := copyBatch(readings)
	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case s.ch <- batch:
		return nil
	}
}

func (s *channelSink) Name() string { return s.name }

// close leaves ch open: a writer racing with close could otherwise send on a
// closed channel.
func (s *channelSink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done {
		s.done = true
		close(s.closed)
	}
}

// copyBatch detaches the readings from the queue so callers may keep or
// mutate them.
func copyBatch(readings []*domain.Reading) []Reading {
	out := make([]Reading, len(readings))
	for i, r := range readings {
		out[i] = *r
		out[i].Values = maps.Clone(r.Values)
		if r.Accuracy != nil {
			acc := *r.Accuracy
			out[i].Accuracy = &acc
		}
	}
	return out
}
