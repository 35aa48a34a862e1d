package fieldsync

import (
	"github.com/agrovolt/fieldsync/internal/adapters/source"
	"github.com/agrovolt/fieldsync/internal/app/config"
)

// Config re-exports the root configuration struct so downstream projects
// can construct or modify it programmatically.
type Config = config.Config

type (
	// CollectorConfig selects and configures the upload destination.
	CollectorConfig = config.CollectorConfig
	// ProbeConfig configures the reachability check.
	ProbeConfig = config.ProbeConfig
	// QueueConfig configures on-disk durability and the storage budget.
	QueueConfig = config.QueueConfig
	// SyncConfig controls the background drain cadence and batching.
	SyncConfig = config.SyncConfig
	// SamplingConfig controls snapshot cadence.
	SamplingConfig = config.SamplingConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// DemoConfig controls the synthetic source.
	DemoConfig = source.DemoConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
