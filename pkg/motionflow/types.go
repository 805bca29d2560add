package motionflow

import (
	"github.com/ghalamif/MotionFlow/internal/app/ingest"
	"github.com/ghalamif/MotionFlow/internal/app/poller"
	"github.com/ghalamif/MotionFlow/internal/app/telemetry"
	"github.com/ghalamif/MotionFlow/internal/domain"
	"github.com/ghalamif/MotionFlow/internal/ports"
)

// Reading is one sensor event labelled with its batch envelope. It is what
// flows through the WAL, the queue and into sinks.
type Reading = domain.Reading

// Values holds the numeric fields of one reading.
type Values = domain.Values

// QueuedReading represents an item buffered inside the bounded queue.
type QueuedReading = ports.QueuedReading

// Store is the live, bounded multi-channel telemetry buffer.
type Store = telemetry.Store

// Snapshot maps every channel name to a copy of its samples, oldest first.
type Snapshot = telemetry.Snapshot

// Frame is one snapshot published by the poller.
type Frame = poller.Frame

// SnapshotListener receives every poller frame.
type SnapshotListener = poller.Listener

// IngestResult summarizes one accepted payload.
type IngestResult = ingest.Result

// Collector streams raw batch payloads from a transport other than HTTP.
type Collector = ports.Collector

// ReadingQueue is the bounded, in-memory queue between the WAL and the sink.
type ReadingQueue = ports.ReadingQueue

// Sink consumes batches of readings and persists them to any downstream system.
type Sink = ports.Sink

// Archiver keeps a verbatim copy of every received payload.
type Archiver = ports.Archiver

// Observability emits logs and metrics about ingest, spooling and sinks.
type Observability = ports.Observability

// Field is a structured log/metric field used by Observability implementations.
type Field = ports.Field

// WAL abstracts the write-ahead log used for durability and crash recovery.
type WAL = ports.WAL

// WALStats exposes WAL metadata for observability.
type WALStats = ports.WALStats

// WALEntryID uniquely identifies a WAL entry.
type WALEntryID = ports.WALEntryID

// ErrMalformedRequest is wrapped by every Ingest error caused by the payload.
var ErrMalformedRequest = ingest.ErrMalformedRequest
