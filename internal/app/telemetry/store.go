// Package telemetry holds the bounded live window of sensor samples: one ring
// per channel plus the shared timeline, and the routing that fans a sensor
// event out to its channel group.
//
// Locking is per channel. Apply appends to the channels of one event one at a
// time, so a concurrent Snapshot can observe some channels of that event
// updated and others not yet. Each individual channel is never torn.
package telemetry

import (
	"github.com/ghalamif/MotionFlow/internal/domain"
)

// DefaultCapacity is the number of samples retained per channel.
const DefaultCapacity = 1000

// Snapshot maps channel name to its samples, oldest first.
type Snapshot map[string][]float64

// Store owns the timeline channel and every per-field channel. The channel
// set is fixed at construction; only channel contents change afterwards.
type Store struct {
	capacity int
	timeline *Channel
	channels map[string]*Channel
	names    []string
	routes   map[domain.Sensor]boundRoute
}

// NewStore creates an empty store whose channels each retain capacity
// samples. A non-positive capacity selects DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s := &Store{
		capacity: capacity,
		channels: make(map[string]*Channel),
		names:    domain.ChannelNames(),
	}
	for _, name := range s.names {
		s.channels[name] = NewChannel(capacity)
	}
	s.timeline = s.channels[domain.TimelineChannel]
	s.routes = bindRoutes(s.channels)
	return s
}

// Apply dispatches ev to its channel group. It reports false, leaving every
// channel untouched, when the sensor name is not recognized.
func (s *Store) Apply(ev domain.SensorEvent) bool {
	r, ok := s.routes[ev.Sensor()]
	if !ok {
		return false
	}
	r.dispatch(s.timeline, ev)
	return true
}

// Snapshot copies every channel. Channels are captured one after another.
func (s *Store) Snapshot() Snapshot {
	out := make(Snapshot, len(s.channels))
	for _, name := range s.names {
		out[name] = s.channels[name].Snapshot()
	}
	return out
}

// Channel copies a single channel.
func (s *Store) Channel(name string) ([]float64, bool) {
	ch, ok := s.channels[name]
	if !ok {
		return nil, false
	}
	return ch.Snapshot(), true
}

// Lengths reports the current length of every channel.
func (s *Store) Lengths() map[string]int {
	out := make(map[string]int, len(s.channels))
	for name, ch := range s.channels {
		out[name] = ch.Len()
	}
	return out
}

// Names lists channel names, timeline first.
func (s *Store) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s *Store) Capacity() int { return s.capacity }
