package mqtt

import (
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/ghalamif/MotionFlow/internal/ports"
)

func TestConfigDefaultsAndValidate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Topic != "motion/data" || cfg.ClientID == "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing broker error")
	}
	cfg.Broker = "tcp://localhost:1883"
	cfg.QoS = 3
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected qos error")
	}
	cfg.QoS = 1
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCollectorSubscribesAndForwards(t *testing.T) {
	obs := &mockObs{}
	c, err := NewCollector(Config{Broker: "tcp://broker:1883", Topic: "phones/+/data", QoS: 1}, obs)
	if err != nil {
		t.Fatalf("new collector: %v", err)
	}
	fake := &fakeClient{}
	c.newClient = fake.build

	out := make(chan []byte, 1)
	if err := c.Start(out); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := c.Start(out); err == nil {
		t.Fatalf("expected second start to fail")
	}
	if fake.topic != "phones/+/data" || fake.qos != 1 {
		t.Fatalf("unexpected subscription %q qos=%d", fake.topic, fake.qos)
	}

	payload := []byte(`{"payload":[]}`)
	fake.deliver(payload)
	payload[0] = 'X'

	select {
	case got := <-out:
		if string(got) != `{"payload":[]}` {
			t.Fatalf("payload not copied: %q", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("no payload forwarded")
	}

	// Second delivery with a full channel is dropped, not blocked.
	out <- []byte("occupied")
	fake.deliver([]byte("late"))
	if len(obs.errs()) != 1 {
		t.Fatalf("expected drop to be logged, got %d errors", len(obs.errs()))
	}

	if err := c.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !fake.disconnected || fake.unsubscribed != "phones/+/data" {
		t.Fatalf("expected unsubscribe and disconnect, got %+v", fake)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("second stop should be a no-op: %v", err)
	}
}

func TestCollectorConnectError(t *testing.T) {
	c, err := NewCollector(Config{Broker: "tcp://broker:1883"}, &mockObs{})
	if err != nil {
		t.Fatalf("new collector: %v", err)
	}
	fake := &fakeClient{connectErr: errors.New("refused")}
	c.newClient = fake.build

	if err := c.Start(make(chan []byte)); err == nil {
		t.Fatalf("expected connect error")
	}
}

type fakeToken struct{ err error }

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t fakeToken) Error() error { return t.err }

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type fakeClient struct {
	paho.Client

	opts         *paho.ClientOptions
	connectErr   error
	topic        string
	qos          byte
	handler      paho.MessageHandler
	unsubscribed string
	disconnected bool
}

func (f *fakeClient) build(opts *paho.ClientOptions) paho.Client {
	f.opts = opts
	return f
}

func (f *fakeClient) Connect() paho.Token {
	if f.connectErr != nil {
		return fakeToken{err: f.connectErr}
	}
	if f.opts.OnConnect != nil {
		f.opts.OnConnect(f)
	}
	return fakeToken{}
}

func (f *fakeClient) IsConnected() bool { return f.connectErr == nil && !f.disconnected }

func (f *fakeClient) Subscribe(topic string, qos byte, cb paho.MessageHandler) paho.Token {
	f.topic, f.qos, f.handler = topic, qos, cb
	return fakeToken{}
}

func (f *fakeClient) Unsubscribe(topics ...string) paho.Token {
	if len(topics) > 0 {
		f.unsubscribed = topics[0]
	}
	return fakeToken{}
}

func (f *fakeClient) Disconnect(uint) { f.disconnected = true }

func (f *fakeClient) deliver(payload []byte) {
	f.handler(f, fakeMessage{topic: f.topic, payload: payload})
}

type mockObs struct {
	mu     sync.Mutex
	errors []error
}

func (m *mockObs) LogInfo(string, ...ports.Field) {}
func (m *mockObs) LogError(_ string, err error, _ ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, err)
}
func (m *mockObs) LogCritical(string, error, ...ports.Field) {}
func (m *mockObs) IncCounter(string, float64)                {}
func (m *mockObs) ObserveLatency(string, float64)            {}
func (m *mockObs) SetGauge(string, float64)                  {}

func (m *mockObs) errs() []error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]error(nil), m.errors...)
}
