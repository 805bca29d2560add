package motionflow

import (
	"context"
	"fmt"
)

// Flow assembles a Runtime in two halves. The intake half (StreamIN) decides
// where batch payloads come from besides POST /data and how they are archived
// and spooled. The output half (StreamOUT) decides where labelled readings
// and live snapshots go.
//
//	flow, _ := motionflow.Conf("config.yaml")
//	rt, _ := flow.StreamIN(motionflow.StreamInMQTT("tcp://broker:1883", "")).
//		StreamOUT(motionflow.StreamOutCallback("print", printReadings))
type Flow struct {
	cfg  *Config
	opts []RuntimeOption
}

// FlowOption adjusts the Flow right after its configuration is loaded.
type FlowOption func(*Flow)

// StreamInOption configures payload intake: collectors, raw archival, the
// WAL and the reading queue.
type StreamInOption func(*Flow)

// StreamOutOption configures reading persistence and snapshot consumers.
type StreamOutOption func(*Flow)

// Conf loads a YAML file (an empty path means defaults) and returns a Flow.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig starts a Flow from an in-memory Config. The config is
// validated when the Runtime is built, not here.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config exposes the configuration; edits take effect at StreamOUT.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// Options appends RuntimeOption values that have no StreamIn/StreamOut form.
func (f *Flow) Options(opts ...RuntimeOption) *Flow {
	if f == nil {
		return nil
	}
	f.appendOptions(opts...)
	return f
}

// StreamIN applies intake options.
func (f *Flow) StreamIN(opts ...StreamInOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// StreamOUT applies output options and builds the Runtime. Nothing listens
// until Start or Run.
func (f *Flow) StreamOUT(opts ...StreamOutOption) (*Runtime, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return NewRuntime(f.cfg, f.opts...)
}

// Run builds the Runtime and serves until ctx is cancelled, then drains
// spooled readings into the sink before returning.
func (f *Flow) Run(ctx context.Context, opts ...StreamOutOption) error {
	rt, err := f.StreamOUT(opts...)
	if err != nil {
		return err
	}
	return rt.Run(ctx)
}

// WithFlowOptions appends RuntimeOption values during Conf.
func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(opts...)
		}
	}
}

// StreamInMQTT subscribes to broker for batch payloads in addition to HTTP.
// An empty topic keeps the configured one, or motion/data.
func StreamInMQTT(broker, topic string) StreamInOption {
	return func(f *Flow) {
		if f == nil || f.cfg == nil || broker == "" {
			return
		}
		f.cfg.MQTT.Broker = broker
		if topic != "" {
			f.cfg.MQTT.Topic = topic
		}
	}
}

// StreamInCollector adds a payload source of the caller's own, such as a
// replay file or a simulator. It takes the place of the MQTT subscriber.
func StreamInCollector(col Collector) StreamInOption {
	return func(f *Flow) {
		if f != nil && col != nil {
			f.appendOptions(WithCollector(col))
		}
	}
}

// StreamInQueue replaces the in-memory queue between the WAL and the sink.
func StreamInQueue(q ReadingQueue) StreamInOption {
	return func(f *Flow) {
		if f != nil && q != nil {
			f.appendOptions(WithReadingQueue(q))
		}
	}
}

// StreamInWAL replaces the file WAL that spooled readings pass through.
func StreamInWAL(w WAL) StreamInOption {
	return func(f *Flow) {
		if f != nil && w != nil {
			f.appendOptions(WithWAL(w))
		}
	}
}

// StreamInArchiver replaces the file archiver for raw request bodies.
func StreamInArchiver(a Archiver) StreamInOption {
	return func(f *Flow) {
		if f != nil && a != nil {
			f.appendOptions(WithArchiver(a))
		}
	}
}

// StreamInObservability sets the log and metrics backend.
func StreamInObservability(obs Observability) StreamInOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// StreamOutSink persists readings to s instead of sink.driver.
func StreamOutSink(s Sink) StreamOutOption {
	return func(f *Flow) {
		if f != nil && s != nil {
			f.appendOptions(WithSink(s))
		}
	}
}

// StreamOutSnapshot subscribes fn to every poller frame.
func StreamOutSnapshot(fn SnapshotListener) StreamOutOption {
	return func(f *Flow) {
		if f != nil && fn != nil {
			f.appendOptions(WithSnapshotListener(fn))
		}
	}
}

// StreamOutObservability sets the log and metrics backend.
func StreamOutObservability(obs Observability) StreamOutOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// StreamOutCallback persists readings through fn instead of a database.
func StreamOutCallback(name string, fn ReadingBatchSink) StreamOutOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(WithSink(NewCallbackSink(name, fn)))
		}
	}
}

func (f *Flow) appendOptions(opts ...RuntimeOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}
