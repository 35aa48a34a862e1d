package engine

import (
	"context"
	"sync"
	"time"

	"github.com/agrovolt/fieldsync/internal/domain"
	"github.com/agrovolt/fieldsync/internal/ports"
)

// Outcome is the result of ingesting one snapshot.
type Outcome int

const (
	// OutcomeDelivered means the snapshot reached the collector directly.
	OutcomeDelivered Outcome = iota
	// OutcomeQueued means the snapshot was persisted for a later drain.
	OutcomeQueued
	// OutcomeDropped means both the transport and local storage failed.
	OutcomeDropped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeQueued:
		return "queued"
	case OutcomeDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Status is the side-effect-free view exposed by the engine.
type Status struct {
	Online bool `json:"online"`
	ports.QueueStats
}

const (
	DefaultBatchSize  = 50
	DefaultBatchPause = time.Second
	DefaultInterval   = time.Minute
)

// Option customizes an Engine.
type Option func(*Engine)

// WithBatchSize sets how many records one drain pass pulls per upload.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithBatchPause sets the rate-limiting pause between consecutive batch
// uploads within a single drain.
func WithBatchPause(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.batchPause = d
		}
	}
}

// Engine decides, for every snapshot, whether to send it immediately or
// persist it, and drains persisted snapshots in FIFO order once
// connectivity returns. One caller-driven synchronous path (Ingest) plus
// one background drain loop are the only concurrency; the queue handles
// its own atomicity.
type Engine struct {
	queue      ports.DurableQueue
	transport  ports.Transport
	probe      ports.ConnectivityProbe
	obs        ports.Observability
	batchSize  int
	batchPause time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func New(q ports.DurableQueue, tr ports.Transport, pr ports.ConnectivityProbe, obs ports.Observability, opts ...Option) *Engine {
	e := &Engine{
		queue:      q,
		transport:  tr,
		probe:      pr,
		obs:        obs,
		batchSize:  DefaultBatchSize,
		batchPause: DefaultBatchPause,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Ingest is the synchronous producer path. It never returns an error: all
// failures degrade to queueing, and a queueing failure degrades to a
// logged drop.
func (e *Engine) Ingest(ctx context.Context, s *domain.Snapshot) Outcome {
	if !e.probe.Online(ctx) {
		return e.enqueue(ctx, s)
	}

	start := time.Now()
	if err := e.transport.Send(ctx, []*domain.Snapshot{s}); err != nil {
		e.obs.LogWarn("direct send failed, queueing snapshot",
			ports.Field{Key: "transport", Value: e.transport.Name()},
			ports.Field{Key: "reason", Value: err.Error()})
		return e.enqueue(ctx, s)
	}
	e.obs.ObserveLatency("fieldsync_upload_latency_seconds", time.Since(start).Seconds())
	e.obs.IncCounter("fieldsync_snapshots_delivered_total", 1)
	return OutcomeDelivered
}

func (e *Engine) enqueue(ctx context.Context, s *domain.Snapshot) Outcome {
	if err := e.queue.Enqueue(ctx, s); err != nil {
		e.obs.LogError("enqueue failed, snapshot dropped", err)
		e.obs.IncCounter("fieldsync_snapshots_dropped_total", 1)
		return OutcomeDropped
	}
	e.obs.IncCounter("fieldsync_snapshots_queued_total", 1)
	return OutcomeQueued
}

// DrainOnce uploads queued records in enqueue order until the queue is
// empty or an upload fails, and returns how many records were confirmed.
// Records are removed only after the transport accepts the exact batch
// containing them, so a failure partway never loses or half-removes a
// batch.
func (e *Engine) DrainOnce(ctx context.Context) int {
	if !e.probe.Online(ctx) {
		return 0
	}

	total := 0
	for {
		batch, err := e.queue.PeekBatch(ctx, e.batchSize)
		if err != nil {
			e.obs.LogError("peek batch failed", err)
			return total
		}
		if len(batch) == 0 {
			return total
		}

		payloads := make([]*domain.Snapshot, len(batch))
		ids := make([]ports.RecordID, len(batch))
		for i, rec := range batch {
			payloads[i] = rec.Snapshot
			ids[i] = rec.ID
		}

		start := time.Now()
		if err := e.transport.Send(ctx, payloads); err != nil {
			e.obs.LogWarn("batch upload failed, records stay queued",
				ports.Field{Key: "batch", Value: len(batch)},
				ports.Field{Key: "reason", Value: err.Error()})
			return total
		}
		e.obs.ObserveLatency("fieldsync_upload_latency_seconds", time.Since(start).Seconds())

		if err := e.queue.Remove(ctx, ids); err != nil {
			// The collector already has the batch; the next drain will
			// re-send it. Duplicates are the documented trade-off.
			e.obs.LogError("remove after upload failed", err)
			return total
		}

		total += len(batch)
		e.obs.IncCounter("fieldsync_records_synced_total", float64(len(batch)))

		if e.batchPause > 0 {
			select {
			case <-ctx.Done():
				return total
			case <-time.After(e.batchPause):
			}
		}
	}
}

// StartBackgroundSync launches the drain loop. Calling it while the loop
// is already running is a no-op.
func (e *Engine) StartBackgroundSync(interval time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	e.running = true
	go e.loop(interval, e.stopCh, e.doneCh)

	e.obs.LogInfo("background sync started",
		ports.Field{Key: "interval", Value: interval.String()})
}

func (e *Engine) loop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx := context.Background()
			if !e.probe.Online(ctx) || e.queue.PendingCount(ctx) == 0 {
				continue
			}
			if n := e.DrainOnce(ctx); n > 0 {
				e.obs.LogInfo("synced queued records",
					ports.Field{Key: "records", Value: n})
			}
		}
	}
}

// StopBackgroundSync stops the drain loop and waits for it to exit. An
// in-flight batch finishes its timeout-bounded send first. Safe to call
// before any start.
func (e *Engine) StopBackgroundSync() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	stop, done := e.stopCh, e.doneCh
	e.running = false
	e.stopCh = nil
	e.doneCh = nil
	e.mu.Unlock()

	close(stop)
	<-done
}

// Running reports whether the background loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Status reports connectivity and queue occupancy without side effects.
func (e *Engine) Status(ctx context.Context) Status {
	online := e.probe.Online(ctx)
	stats := e.queue.Stats(ctx)

	if online {
		e.obs.SetGauge("fieldsync_online", 1)
	} else {
		e.obs.SetGauge("fieldsync_online", 0)
	}
	e.obs.SetGauge("fieldsync_queue_pending_records", float64(stats.PendingRecords))
	e.obs.SetGauge("fieldsync_queue_storage_bytes", float64(stats.StorageUsedBytes))

	return Status{Online: online, QueueStats: stats}
}
