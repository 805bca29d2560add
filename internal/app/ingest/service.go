// Package ingest turns one raw batch payload into buffer updates. It is shared
// by the HTTP endpoint and every collector so that all transports archive,
// parse and dispatch the same way.
package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/ghalamif/MotionFlow/internal/adapters/observability"
	"github.com/ghalamif/MotionFlow/internal/app/telemetry"
	"github.com/ghalamif/MotionFlow/internal/domain"
	"github.com/ghalamif/MotionFlow/internal/ports"
)

// ErrMalformedRequest wraps every rejection caused by the payload itself.
var ErrMalformedRequest = errors.New("malformed request")

// Result summarizes what one accepted payload did.
type Result struct {
	Events  int
	Applied int
	Ignored int
	Spooled int
	Dropped int
}

type Service struct {
	store    *telemetry.Store
	archiver ports.Archiver
	spool    chan<- *domain.Reading
	obs      ports.Observability
	now      func() time.Time
}

// NewService wires the live store with an optional archiver and an optional
// spool feeding the persistent sink. Either may be nil.
func NewService(store *telemetry.Store, archiver ports.Archiver, spool chan<- *domain.Reading, obs ports.Observability) *Service {
	return &Service{
		store:    store,
		archiver: archiver,
		spool:    spool,
		obs:      obs,
		now:      time.Now,
	}
}

// Accept archives raw, then parses and dispatches it. A payload that is not a
// batch document returns an error wrapping ErrMalformedRequest and leaves the
// store untouched; its archived copy is kept.
func (s *Service) Accept(raw []byte) (Result, error) {
	start := s.now()
	s.obs.IncCounter(observability.IngestRequestsTotal, 1)

	if s.archiver != nil {
		s.archiver.Archive(start, raw)
	}

	batch, err := domain.ParseBatch(raw)
	if err != nil {
		s.obs.IncCounter(observability.IngestRejectedTotal, 1)
		return Result{}, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}

	res := Result{Events: len(batch.Payload)}
	readings := batch.Readings()
	for i, ev := range batch.Payload {
		if !s.store.Apply(ev) {
			res.Ignored++
			continue
		}
		res.Applied++
		if s.offer(readings[i]) {
			res.Spooled++
		} else if s.spool != nil {
			res.Dropped++
		}
	}

	if res.Applied > 0 {
		s.obs.IncCounter(observability.EventsAppliedTotal, float64(res.Applied))
	}
	if res.Ignored > 0 {
		s.obs.IncCounter(observability.EventsIgnoredTotal, float64(res.Ignored))
	}
	if res.Dropped > 0 {
		s.obs.IncCounter(observability.SpoolDroppedTotal, float64(res.Dropped))
	}
	s.obs.ObserveLatency(observability.IngestLatencySeconds, s.now().Sub(start).Seconds())
	return res, nil
}

// Store exposes the live buffer the service writes into.
func (s *Service) Store() *telemetry.Store { return s.store }

func (s *Service) offer(r *domain.Reading) bool {
	if s.spool == nil {
		return false
	}
	select {
	case s.spool <- r:
		return true
	default:
		return false
	}
}
