package fieldsync

import (
	base "github.com/agrovolt/fieldsync/pkg/fieldsync"
)

// Type aliases so consumers can import github.com/agrovolt/fieldsync directly.
type (
	Config            = base.Config
	CollectorConfig   = base.CollectorConfig
	ProbeConfig       = base.ProbeConfig
	QueueConfig       = base.QueueConfig
	SyncConfig        = base.SyncConfig
	SamplingConfig    = base.SamplingConfig
	MetricsConfig     = base.MetricsConfig
	DemoConfig        = base.DemoConfig
	Runtime           = base.Runtime
	RuntimeOption     = base.RuntimeOption
	Snapshot          = base.Snapshot
	QueueRecord       = base.QueueRecord
	QueueStats        = base.QueueStats
	RecordID          = base.RecordID
	DurableQueue      = base.DurableQueue
	Transport         = base.Transport
	ConnectivityProbe = base.ConnectivityProbe
	Source            = base.Source
	Observability     = base.Observability
	Field             = base.Field
	Engine            = base.Engine
	Outcome           = base.Outcome
	Status            = base.Status
	BatchFunc         = base.BatchFunc
)

// Ingest outcomes.
const (
	OutcomeDelivered = base.OutcomeDelivered
	OutcomeQueued    = base.OutcomeQueued
	OutcomeDropped   = base.OutcomeDropped
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Runtime construction and dependency overrides.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithQueue(q DurableQueue) RuntimeOption {
	return base.WithQueue(q)
}

func WithTransport(t Transport) RuntimeOption {
	return base.WithTransport(t)
}

func WithProbe(p ConnectivityProbe) RuntimeOption {
	return base.WithProbe(p)
}

func WithSource(s Source) RuntimeOption {
	return base.WithSource(s)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

// Adapters for embedding.
func NewSnapshot(signals map[string]any) *Snapshot {
	return base.NewSnapshot(signals)
}

func NewCallbackTransport(name string, fn BatchFunc) Transport {
	return base.NewCallbackTransport(name, fn)
}

func NewMemQueue(limitBytes int64) DurableQueue {
	return base.NewMemQueue(limitBytes)
}

func StaticProbe(online bool) ConnectivityProbe {
	return base.StaticProbe(online)
}

func NewDemoSource(cfg DemoConfig) Source {
	return base.NewDemoSource(cfg)
}

func NewNopObservability() Observability {
	return base.NewNopObservability()
}
