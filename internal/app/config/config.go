package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghalamif/MotionFlow/internal/adapters/archive"
	"github.com/ghalamif/MotionFlow/internal/adapters/mqtt"
	"github.com/ghalamif/MotionFlow/internal/app/telemetry"
	"github.com/ghalamif/MotionFlow/internal/ports"
)

type Config struct {
	Buffer  BufferConfig   `yaml:"buffer"`
	Poll    PollConfig     `yaml:"poll"`
	HTTP    HTTPConfig     `yaml:"http"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Archive archive.Config `yaml:"archive"`
	Policy  ports.Policy   `yaml:"policy"`
	Sink    SinkConfig     `yaml:"sink"`
	WAL     WALConfig      `yaml:"wal"`
	MQTT    mqtt.Config    `yaml:"mqtt"`
}

type BufferConfig struct {
	Capacity int `yaml:"capacity"`
}

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

// Interval returns the snapshot poll period.
func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMs) * time.Millisecond
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// SinkConfig selects the optional persistent store for labelled readings.
// An empty driver disables persistence.
type SinkConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Table  string `yaml:"table"`
}

type WALConfig struct {
	Dir string `yaml:"dir"`
}

// Load reads path as YAML. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a validated configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Normalize applies defaults to a hand-built configuration and validates it.
func (c *Config) Normalize() error {
	c.applyDefaults()
	return c.validate()
}

func (c *Config) applyDefaults() {
	if c.Buffer.Capacity == 0 {
		c.Buffer.Capacity = telemetry.DefaultCapacity
	}
	if c.Poll.IntervalMs == 0 {
		c.Poll.IntervalMs = 100
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8000"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Archive.Dir == "" {
		c.Archive.Dir = "./data"
	}
	if c.Archive.QueueSize == 0 {
		c.Archive.QueueSize = 256
	}
	if c.Policy.MaxWALSizeBytes == 0 {
		c.Policy.MaxWALSizeBytes = 1 << 30
	}
	if c.Policy.MaxQueueLen == 0 {
		c.Policy.MaxQueueLen = 100_000
	}
	if c.Policy.MaxBatchSize == 0 {
		c.Policy.MaxBatchSize = 500
	}
	if c.Policy.SpoolSize == 0 {
		c.Policy.SpoolSize = 4096
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 5 * time.Millisecond
	}
	if c.Policy.OnQueueFull == "" {
		c.Policy.OnQueueFull = "block"
	}
	if c.Policy.OnWALFull == "" {
		c.Policy.OnWALFull = "block"
	}
	if c.Sink.Table == "" {
		c.Sink.Table = "sensor_readings"
	}
	if c.WAL.Dir == "" {
		c.WAL.Dir = "./data/wal"
	}
	if c.MQTT.Broker != "" {
		c.MQTT.ApplyDefaults()
	}
}

func (c *Config) validate() error {
	if c.Buffer.Capacity < 1 {
		return fmt.Errorf("buffer.capacity must be positive, got %d", c.Buffer.Capacity)
	}
	if c.Poll.IntervalMs < 1 {
		return fmt.Errorf("poll.interval_ms must be positive, got %d", c.Poll.IntervalMs)
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	if c.Archive.QueueSize < 1 {
		return fmt.Errorf("archive.queue_size must be positive, got %d", c.Archive.QueueSize)
	}
	switch c.Sink.Driver {
	case "":
	case "postgres", "sqlite":
		if c.Sink.DSN == "" {
			return fmt.Errorf("sink.dsn is required for driver %q", c.Sink.Driver)
		}
	default:
		return fmt.Errorf("sink.driver %q is not supported", c.Sink.Driver)
	}
	switch c.Policy.OnQueueFull {
	case "block", "drop", "reject":
	default:
		return fmt.Errorf("policy.on_queue_full %q is not supported", c.Policy.OnQueueFull)
	}
	switch c.Policy.OnWALFull {
	case "block", "drop":
	default:
		return fmt.Errorf("policy.on_wal_full %q is not supported", c.Policy.OnWALFull)
	}
	if c.MQTT.Broker != "" {
		if err := c.MQTT.Validate(); err != nil {
			return fmt.Errorf("mqtt config: %w", err)
		}
	}
	if c.WAL.Dir == "" {
		return fmt.Errorf("wal.dir is required")
	}
	return nil
}
