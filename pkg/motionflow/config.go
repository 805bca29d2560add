package motionflow

import (
	"github.com/ghalamif/MotionFlow/internal/adapters/archive"
	"github.com/ghalamif/MotionFlow/internal/adapters/mqtt"
	"github.com/ghalamif/MotionFlow/internal/app/config"
	"github.com/ghalamif/MotionFlow/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// BufferConfig sets the per-channel sample capacity.
	BufferConfig = config.BufferConfig
	// PollConfig sets the snapshot poll period.
	PollConfig = config.PollConfig
	// HTTPConfig configures the ingest and query API.
	HTTPConfig = config.HTTPConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// ArchiveConfig controls raw payload archival.
	ArchiveConfig = archive.Config
	// Policy bounds the persistent reading spool.
	Policy = ports.Policy
	// SinkConfig selects the persistent reading store.
	SinkConfig = config.SinkConfig
	// WALConfig configures on-disk durability for spooled readings.
	WALConfig = config.WALConfig
	// MQTTConfig holds broker and topic details.
	MQTTConfig = mqtt.Config
)

// LoadConfig loads YAML from disk using the internal config reader. An empty
// path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return config.Default()
}
