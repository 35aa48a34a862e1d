package observability

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agrovolt/fieldsync/internal/ports"
)

type PromObs struct {
	log      *slog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs() *PromObs {
	delivered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fieldsync_snapshots_delivered_total",
		Help: "Snapshots sent directly to the collector on ingest.",
	})
	queued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fieldsync_snapshots_queued_total",
		Help: "Snapshots persisted to the durable queue.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fieldsync_snapshots_dropped_total",
		Help: "Snapshots lost because both transport and local storage failed.",
	})
	synced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fieldsync_records_synced_total",
		Help: "Queued records confirmed uploaded and removed.",
	})
	evicted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fieldsync_records_evicted_total",
		Help: "Queued records deleted unsent by the storage-limit policy.",
	})
	pendingGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fieldsync_queue_pending_records",
		Help: "Records currently waiting in the durable queue.",
	})
	storageGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fieldsync_queue_storage_bytes",
		Help: "Payload bytes persisted in the durable queue.",
	})
	onlineGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fieldsync_online",
		Help: "1 when the connectivity probe last reported reachable.",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fieldsync_upload_latency_seconds",
		Help:    "Latency of one transport batch send.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	prometheus.MustRegister(delivered, queued, dropped, synced, evicted,
		pendingGauge, storageGauge, onlineGauge, latency)

	return &PromObs{
		log: slog.Default(),
		counters: map[string]prometheus.Counter{
			"fieldsync_snapshots_delivered_total": delivered,
			"fieldsync_snapshots_queued_total":    queued,
			"fieldsync_snapshots_dropped_total":   dropped,
			"fieldsync_records_synced_total":      synced,
			"fieldsync_records_evicted_total":     evicted,
		},
		gauges: map[string]prometheus.Gauge{
			"fieldsync_queue_pending_records": pendingGauge,
			"fieldsync_queue_storage_bytes":   storageGauge,
			"fieldsync_online":                onlineGauge,
		},
		histos: map[string]prometheus.Observer{
			"fieldsync_upload_latency_seconds": latency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.Info(msg, slogArgs(fields)...)
}

func (p *PromObs) LogWarn(msg string, fields ...ports.Field) {
	p.log.Warn(msg, slogArgs(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	args := slogArgs(fields)
	if err != nil {
		args = append(args, "error", err)
	}
	p.log.Error(msg, args...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func slogArgs(fields []ports.Field) []any {
	args := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		args = append(args, f.Key, f.Value)
	}
	return args
}

var _ ports.Observability = (*PromObs)(nil)
