package motionflow

import (
	base "github.com/ghalamif/MotionFlow/pkg/motionflow"
)

// Re-exported errors for convenience.
var (
	ErrMalformedRequest  = base.ErrMalformedRequest
	ErrRuntimeClosed     = base.ErrRuntimeClosed
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import github.com/ghalamif/MotionFlow directly.
type (
	Config           = base.Config
	BufferConfig     = base.BufferConfig
	PollConfig       = base.PollConfig
	HTTPConfig       = base.HTTPConfig
	MetricsConfig    = base.MetricsConfig
	ArchiveConfig    = base.ArchiveConfig
	Policy           = base.Policy
	SinkConfig       = base.SinkConfig
	WALConfig        = base.WALConfig
	MQTTConfig       = base.MQTTConfig
	Flow             = base.Flow
	FlowOption       = base.FlowOption
	StreamInOption   = base.StreamInOption
	StreamOutOption  = base.StreamOutOption
	Runtime          = base.Runtime
	RuntimeOption    = base.RuntimeOption
	Reading          = base.Reading
	Values           = base.Values
	ReadingBatchSink = base.ReadingBatchSink
	Store            = base.Store
	Snapshot         = base.Snapshot
	Frame            = base.Frame
	SnapshotListener = base.SnapshotListener
	IngestResult     = base.IngestResult
	Collector        = base.Collector
	Sink             = base.Sink
	Archiver         = base.Archiver
	ReadingQueue     = base.ReadingQueue
	WAL              = base.WAL
	Observability    = base.Observability
	Field            = base.Field
	QueuedReading    = base.QueuedReading
	WALEntryID       = base.WALEntryID
	WALStats         = base.WALStats
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInMQTT(broker, topic string) StreamInOption {
	return base.StreamInMQTT(broker, topic)
}

func StreamInCollector(col Collector) StreamInOption {
	return base.StreamInCollector(col)
}

func StreamInQueue(q ReadingQueue) StreamInOption {
	return base.StreamInQueue(q)
}

func StreamInWAL(w WAL) StreamInOption {
	return base.StreamInWAL(w)
}

func StreamInArchiver(a Archiver) StreamInOption {
	return base.StreamInArchiver(a)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamOutSink(s Sink) StreamOutOption {
	return base.StreamOutSink(s)
}

func StreamOutSnapshot(fn SnapshotListener) StreamOutOption {
	return base.StreamOutSnapshot(fn)
}

func StreamOutObservability(obs Observability) StreamOutOption {
	return base.StreamOutObservability(obs)
}

func StreamOutCallback(name string, fn ReadingBatchSink) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithCollector(col Collector) RuntimeOption {
	return base.WithCollector(col)
}

func WithSink(s Sink) RuntimeOption {
	return base.WithSink(s)
}

func WithWAL(w WAL) RuntimeOption {
	return base.WithWAL(w)
}

func WithReadingQueue(q ReadingQueue) RuntimeOption {
	return base.WithReadingQueue(q)
}

func WithArchiver(a Archiver) RuntimeOption {
	return base.WithArchiver(a)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

func WithSnapshotListener(fn SnapshotListener) RuntimeOption {
	return base.WithSnapshotListener(fn)
}

// Sink adapters.
func NewCallbackSink(name string, fn ReadingBatchSink) Sink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (Sink, <-chan []Reading, func()) {
	return base.NewChannelSink(name, buffer)
}
