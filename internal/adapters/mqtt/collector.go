// Package mqtt subscribes to a broker topic and forwards each message body as
// a raw batch payload, the same bytes a device would POST over HTTP.
package mqtt

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/ghalamif/MotionFlow/internal/ports"
)

// Config captures the broker details for one subscription.
type Config struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	QoS      byte   `yaml:"qos"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

func (c *Config) ApplyDefaults() {
	if c.Topic == "" {
		c.Topic = "motion/data"
	}
	if c.ClientID == "" {
		host, _ := os.Hostname()
		c.ClientID = fmt.Sprintf("motionflow-%s-%d", host, time.Now().Unix())
	}
}

func (c *Config) Validate() error {
	if c.Broker == "" {
		return errors.New("broker is required")
	}
	if c.QoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2, got %d", c.QoS)
	}
	return nil
}

type Collector struct {
	cfg Config
	obs ports.Observability

	mu      sync.Mutex
	client  paho.Client
	out     chan<- []byte
	started bool

	newClient func(*paho.ClientOptions) paho.Client
}

func NewCollector(cfg Config, obs ports.Observability) (*Collector, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Collector{cfg: cfg, obs: obs, newClient: paho.NewClient}, nil
}

// Start connects to the broker and subscribes. Subscription is redone on
// every reconnect. Messages arriving while out is full are dropped and logged.
func (c *Collector) Start(out chan<- []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return fmt.Errorf("mqtt collector already started")
	}
	c.out = out

	opts := paho.NewClientOptions().
		AddBroker(c.cfg.Broker).
		SetClientID(c.cfg.ClientID).
		SetKeepAlive(60 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetConnectTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(time.Minute).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost)
	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username).SetPassword(c.cfg.Password)
	}

	client := c.newClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect %s: %w", c.cfg.Broker, token.Error())
	}

	c.client = client
	c.started = true
	return nil
}

func (c *Collector) Stop() error {
	c.mu.Lock()
	client := c.client
	started := c.started
	c.started = false
	c.client = nil
	c.mu.Unlock()

	if !started || client == nil {
		return nil
	}

	var err error
	if client.IsConnected() {
		token := client.Unsubscribe(c.cfg.Topic)
		if token.WaitTimeout(2*time.Second) && token.Error() != nil {
			err = token.Error()
		}
	}
	client.Disconnect(250)
	return err
}

func (c *Collector) onConnect(client paho.Client) {
	token := client.Subscribe(c.cfg.Topic, c.cfg.QoS, c.handle)
	if token.Wait() && token.Error() != nil {
		c.obs.LogError("mqtt_subscribe_failed", token.Error(), ports.Field{Key: "topic", Value: c.cfg.Topic})
		return
	}
	c.obs.LogInfo("mqtt_subscribed",
		ports.Field{Key: "broker", Value: c.cfg.Broker},
		ports.Field{Key: "topic", Value: c.cfg.Topic})
}

func (c *Collector) onConnectionLost(_ paho.Client, err error) {
	c.obs.LogError("mqtt_connection_lost", err, ports.Field{Key: "broker", Value: c.cfg.Broker})
}

// handle copies the payload since paho may reuse the message buffer.
func (c *Collector) handle(_ paho.Client, msg paho.Message) {
	c.mu.Lock()
	out := c.out
	c.mu.Unlock()
	if out == nil {
		return
	}

	body := make([]byte, len(msg.Payload()))
	copy(body, msg.Payload())

	select {
	case out <- body:
	default:
		c.obs.LogError("mqtt_payload_dropped", errors.New("ingest channel full"),
			ports.Field{Key: "topic", Value: msg.Topic()},
			ports.Field{Key: "bytes", Value: len(body)})
	}
}

var _ ports.Collector = (*Collector)(nil)
