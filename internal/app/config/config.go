package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agrovolt/fieldsync/internal/adapters/source"
)

type Config struct {
	Collector CollectorConfig   `yaml:"collector"`
	Probe     ProbeConfig       `yaml:"probe"`
	Queue     QueueConfig       `yaml:"queue"`
	Sync      SyncConfig        `yaml:"sync"`
	Sampling  SamplingConfig    `yaml:"sampling"`
	Metrics   MetricsConfig     `yaml:"metrics"`
	Demo      source.DemoConfig `yaml:"demo"`
}

// CollectorConfig selects and configures the upload destination.
type CollectorConfig struct {
	// Kind is "http" or "postgres".
	Kind string `yaml:"kind"`

	// URL is the HTTP collector endpoint. An empty URL is not a load
	// error: the device runs in queue-only mode with a logged warning.
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`

	// Postgres collector settings, used when Kind == "postgres".
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

type ProbeConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type QueueConfig struct {
	Path            string `yaml:"path"`
	MaxStorageBytes int64  `yaml:"max_storage_bytes"`
}

type SyncConfig struct {
	Interval   time.Duration `yaml:"interval"`
	BatchSize  int           `yaml:"batch_size"`
	BatchPause time.Duration `yaml:"batch_pause"`
}

// SamplingConfig sets the snapshot cadence. Sources that drive their own
// ticker (the demo generator) inherit it unless overridden.
type SamplingConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Collector.Kind == "" {
		c.Collector.Kind = "http"
	}
	if c.Collector.Timeout == 0 {
		c.Collector.Timeout = 30 * time.Second
	}
	if c.Collector.Table == "" {
		c.Collector.Table = "snapshots"
	}
	if c.Probe.URL == "" {
		c.Probe.URL = "https://www.google.com"
	}
	if c.Probe.Timeout == 0 {
		c.Probe.Timeout = 5 * time.Second
	}
	if c.Queue.Path == "" {
		c.Queue.Path = "./data/fieldsync.db"
	}
	if c.Queue.MaxStorageBytes == 0 {
		c.Queue.MaxStorageBytes = 500 << 20
	}
	if c.Sync.Interval == 0 {
		c.Sync.Interval = time.Minute
	}
	if c.Sync.BatchSize == 0 {
		c.Sync.BatchSize = 50
	}
	if c.Sync.BatchPause == 0 {
		c.Sync.BatchPause = time.Second
	}
	if c.Sampling.Interval == 0 {
		c.Sampling.Interval = 10 * time.Second
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Demo.Interval == 0 {
		c.Demo.Interval = c.Sampling.Interval
	}
	c.Demo.ApplyDefaults()
}

func (c *Config) Validate() error {
	switch c.Collector.Kind {
	case "http":
		// A missing URL means queue-only mode, checked at runtime.
	case "postgres":
		if c.Collector.ConnString == "" {
			return fmt.Errorf("collector.conn_string is required for kind=postgres")
		}
	default:
		return fmt.Errorf("collector.kind must be http or postgres, got %q", c.Collector.Kind)
	}
	if c.Queue.Path == "" {
		return fmt.Errorf("queue.path is required")
	}
	if c.Queue.MaxStorageBytes < 0 {
		return fmt.Errorf("queue.max_storage_bytes must be >= 0")
	}
	if c.Sync.BatchSize < 0 {
		return fmt.Errorf("sync.batch_size must be >= 0")
	}
	return nil
}

// CollectorConfigured reports whether the config names a destination. When
// false the uplink still ingests, but everything lands in the queue.
func (c *Config) CollectorConfigured() bool {
	switch c.Collector.Kind {
	case "postgres":
		return c.Collector.ConnString != ""
	default:
		return c.Collector.URL != ""
	}
}
