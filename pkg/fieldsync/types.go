package fieldsync

import (
	"github.com/agrovolt/fieldsync/internal/adapters/observability"
	"github.com/agrovolt/fieldsync/internal/adapters/probe"
	"github.com/agrovolt/fieldsync/internal/adapters/source"
	"github.com/agrovolt/fieldsync/internal/adapters/store"
	"github.com/agrovolt/fieldsync/internal/adapters/transport"
	"github.com/agrovolt/fieldsync/internal/app/engine"
	"github.com/agrovolt/fieldsync/internal/domain"
	"github.com/agrovolt/fieldsync/internal/ports"
)

// Snapshot is the unit of telemetry flowing through the uplink. Exported so
// custom sources and transports can reference it.
type Snapshot = domain.Snapshot

// QueueRecord is one persisted snapshot awaiting upload.
type QueueRecord = ports.QueueRecord

// QueueStats describes durable-queue occupancy.
type QueueStats = ports.QueueStats

// RecordID identifies a queued record.
type RecordID = ports.RecordID

// DurableQueue is the persistent FIFO buffer contract.
type DurableQueue = ports.DurableQueue

// Transport sends snapshot batches to the collector as an atomic unit.
type Transport = ports.Transport

// ConnectivityProbe answers whether the collector is reachable right now.
type ConnectivityProbe = ports.ConnectivityProbe

// Source streams snapshots from an acquisition collaborator.
type Source = ports.Source

// Observability emits logs and metrics about the uplink.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// Engine is the sync engine orchestrating ingest and drain.
type Engine = engine.Engine

// Outcome is the result of ingesting one snapshot.
type Outcome = engine.Outcome

// Status is the side-effect-free engine status surface.
type Status = engine.Status

const (
	OutcomeDelivered = engine.OutcomeDelivered
	OutcomeQueued    = engine.OutcomeQueued
	OutcomeDropped   = engine.OutcomeDropped
)

// BatchFunc adapts a plain function into a Transport via NewCallbackTransport.
type BatchFunc = transport.BatchFunc

// NewSnapshot stamps signals with the current wall clock.
func NewSnapshot(signals map[string]any) *Snapshot {
	return domain.NewSnapshot(signals)
}

// NewCallbackTransport routes batches to an arbitrary function.
func NewCallbackTransport(name string, fn BatchFunc) Transport {
	return transport.NewCallbackTransport(name, fn)
}

// NewMemQueue builds an in-memory queue for embedding without a database file.
func NewMemQueue(limitBytes int64) DurableQueue {
	return store.NewMemQueue(limitBytes)
}

// StaticProbe always reports the given answer.
func StaticProbe(online bool) ConnectivityProbe {
	return probe.Static(online)
}

// NewDemoSource builds the synthetic field-machine source.
func NewDemoSource(cfg DemoConfig) Source {
	return source.NewDemo(cfg)
}

// NewNopObservability discards all logs and metrics.
func NewNopObservability() Observability {
	return observability.NewNopObs()
}
