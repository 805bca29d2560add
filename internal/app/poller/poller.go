// Package poller takes a full snapshot of the telemetry store on a fixed
// period and publishes it as the latest frame for the live view.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ghalamif/MotionFlow/internal/adapters/observability"
	"github.com/ghalamif/MotionFlow/internal/app/telemetry"
	"github.com/ghalamif/MotionFlow/internal/domain"
	"github.com/ghalamif/MotionFlow/internal/ports"
)

// Frame is one published snapshot.
type Frame struct {
	Seq      uint64
	TakenAt  time.Time
	Channels telemetry.Snapshot
}

// Listener is called with every new frame on the poller goroutine. The frame
// is shared with Latest, so listeners treat it as read-only.
type Listener func(Frame)

type Poller struct {
	store    *telemetry.Store
	interval time.Duration
	obs      ports.Observability

	mu        sync.Mutex
	listeners []Listener

	seq    atomic.Uint64
	latest atomic.Pointer[Frame]
	now    func() time.Time
}

// New returns a poller for store. A non-positive interval means 100ms.
func New(store *telemetry.Store, interval time.Duration, obs ports.Observability) *Poller {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Poller{store: store, interval: interval, obs: obs, now: time.Now}
}

func (p *Poller) Interval() time.Duration { return p.interval }

// Subscribe registers fn for every subsequent frame.
func (p *Poller) Subscribe(fn Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll()
		}
	}
}

// Poll takes one snapshot now, publishes it and returns it.
func (p *Poller) Poll() Frame {
	f := Frame{
		Seq:      p.seq.Add(1),
		TakenAt:  p.now(),
		Channels: p.store.Snapshot(),
	}
	p.latest.Store(&f)
	p.obs.SetGauge(observability.TimelineLength, float64(len(f.Channels[domain.TimelineChannel])))

	p.mu.Lock()
	listeners := append([]Listener(nil), p.listeners...)
	p.mu.Unlock()
	for _, fn := range listeners {
		fn(f)
	}
	return f
}

// Latest returns the most recent frame. ok is false before the first poll.
func (p *Poller) Latest() (Frame, bool) {
	f := p.latest.Load()
	if f == nil {
		return Frame{}, false
	}
	return *f, true
}
