package fieldsync

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agrovolt/fieldsync/internal/adapters/observability"
	"github.com/agrovolt/fieldsync/internal/adapters/probe"
	"github.com/agrovolt/fieldsync/internal/adapters/source"
	"github.com/agrovolt/fieldsync/internal/adapters/store"
	"github.com/agrovolt/fieldsync/internal/adapters/transport"
	"github.com/agrovolt/fieldsync/internal/app/config"
	"github.com/agrovolt/fieldsync/internal/app/engine"
	"github.com/agrovolt/fieldsync/internal/domain"
	"github.com/agrovolt/fieldsync/internal/ports"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	queue         DurableQueue
	transport     Transport
	probe         ConnectivityProbe
	source        Source
	observability Observability
}

// WithQueue injects a custom durable queue implementation.
func WithQueue(q DurableQueue) RuntimeOption {
	return func(o *runtimeOverrides) { o.queue = q }
}

// WithTransport points the uplink at any collector (HTTP, database, MQTT
// bridge, test double).
func WithTransport(t Transport) RuntimeOption {
	return func(o *runtimeOverrides) { o.transport = t }
}

// WithProbe overrides the reachability check.
func WithProbe(p ConnectivityProbe) RuntimeOption {
	return func(o *runtimeOverrides) { o.probe = p }
}

// WithSource injects the acquisition collaborator (J1939 reader, simulator,
// channel adapter).
func WithSource(s Source) RuntimeOption {
	return func(o *runtimeOverrides) { o.source = s }
}

// WithObservability plugs in a custom telemetry backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) { o.observability = obs }
}

// Runtime wires source → sync engine → durable queue → transport and
// exposes lifecycle hooks for embedding the uplink inside any Go service.
type Runtime struct {
	cfg        *config.Config
	obs        ports.Observability
	queue      ports.DurableQueue
	engine     *engine.Engine
	source     ports.Source
	db         *sql.DB
	ownedQueue *store.SQLiteQueue
	metricsSrv *http.Server
	feedDoneCh chan struct{}
	snapCh     chan *domain.Snapshot
}

// NewRuntime bootstraps the default adapters (SQLite queue, HTTP collector
// transport, HTTP probe, demo source, Prometheus observability). Options
// override any dependency.
func NewRuntime(cfg *config.Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs()
	}

	rt := &Runtime{cfg: cfg, obs: obs}

	if overrides.queue != nil {
		rt.queue = overrides.queue
	} else {
		q, err := store.OpenSQLiteQueue(cfg.Queue.Path, cfg.Queue.MaxStorageBytes, obs)
		if err != nil {
			return nil, err
		}
		rt.queue = q
		rt.ownedQueue = q
	}

	var tr ports.Transport
	switch {
	case overrides.transport != nil:
		tr = overrides.transport
	case cfg.Collector.Kind == "postgres":
		db, err := sql.Open("postgres", cfg.Collector.ConnString)
		if err != nil {
			rt.closeOwned()
			return nil, fmt.Errorf("open collector db: %w", err)
		}
		rt.db = db
		tr = transport.NewPostgresTransport(db, cfg.Collector.Table)
	default:
		tr = transport.NewHTTPTransport(cfg.Collector.URL, cfg.Collector.Timeout)
	}

	pr := overrides.probe
	if pr == nil {
		pr = probe.NewHTTPProbe(cfg.Probe.URL, cfg.Probe.Timeout)
	}

	src := overrides.source
	if src == nil {
		src = source.NewDemo(cfg.Demo)
	}

	rt.source = src
	rt.engine = engine.New(rt.queue, tr, pr, obs,
		engine.WithBatchSize(cfg.Sync.BatchSize),
		engine.WithBatchPause(cfg.Sync.BatchPause))

	return rt, nil
}

// Engine exposes the sync engine for direct Ingest/DrainOnce/Status calls.
func (r *Runtime) Engine() *engine.Engine { return r.engine }

// Start launches the source feed, the background sync loop, and the
// metrics server. It returns immediately; call Run to block on a context.
func (r *Runtime) Start() error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}

	if !r.cfg.CollectorConfigured() {
		r.obs.LogWarn("collector destination not configured, running queue-only",
			ports.Field{Key: "kind", Value: r.cfg.Collector.Kind})
	}

	r.snapCh = make(chan *domain.Snapshot, 64)
	if err := r.source.Start(r.snapCh); err != nil {
		return fmt.Errorf("start source: %w", err)
	}

	r.feedDoneCh = make(chan struct{})
	go r.feed()

	r.engine.StartBackgroundSync(r.cfg.Sync.Interval)
	r.startMetrics()
	return nil
}

func (r *Runtime) feed() {
	defer close(r.feedDoneCh)
	for snap := range r.snapCh {
		outcome := r.engine.Ingest(context.Background(), snap)
		r.obs.LogInfo("snapshot ingested",
			ports.Field{Key: "outcome", Value: outcome.String()},
			ports.Field{Key: "signals", Value: len(snap.Signals)})
	}
}

// Run starts the runtime and blocks until the context is cancelled, then
// shuts down gracefully.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Shutdown stops the source, the background sync, the metrics server, and
// closes owned storage. Queued records stay on disk for the next start.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if r.source != nil {
		if err := r.source.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.snapCh != nil {
		close(r.snapCh)
		<-r.feedDoneCh
		r.snapCh = nil
	}

	r.engine.StopBackgroundSync()

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.closeOwned(); err != nil {
		errs = append(errs, err)
	}

	stats := r.queue.Stats(context.Background())
	r.obs.LogInfo("uplink stopped",
		ports.Field{Key: "pending_records", Value: stats.PendingRecords})

	return errors.Join(errs...)
}

func (r *Runtime) closeOwned() error {
	if r.ownedQueue == nil {
		return nil
	}
	q := r.ownedQueue
	r.ownedQueue = nil
	return q.Close()
}

func (r *Runtime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/statusz", func(w http.ResponseWriter, req *http.Request) {
		status := r.engine.Status(req.Context())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(status)
	})

	r.metricsSrv = &http.Server{
		Addr:    r.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.obs.LogError("metrics server exited", err)
		}
	}()
}
