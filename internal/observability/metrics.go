package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters of one kgbuild process. All methods are safe on
// a nil receiver so callers can run without metrics.
type Metrics struct {
	reg *prometheus.Registry

	items        *prometheus.CounterVec
	rateLimited  *prometheus.CounterVec
	itemLatency  *prometheus.HistogramVec
	runs         *prometheus.CounterVec
	pending      *prometheus.GaugeVec
	triples      *prometheus.CounterVec
	loadDuration prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kg_enrich_items_total",
			Help: "Enrichment items finished, by stage and outcome.",
		}, []string{"stage", "outcome"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kg_enrich_rate_limited_total",
			Help: "Rate-limited upstream calls, by stage.",
		}, []string{"stage"}),
		itemLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kg_enrich_item_duration_seconds",
			Help:    "Wall time per item including backoff waits.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"stage"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kg_enrich_runs_total",
			Help: "Batch runs, by stage and final state.",
		}, []string{"stage", "state"}),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kg_enrich_pending_items",
			Help: "Items still pending at the start of the last run.",
		}, []string{"stage"}),
		triples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kg_graph_triples_total",
			Help: "Triples handed to the graph loader, by outcome.",
		}, []string{"outcome"}),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kg_graph_load_duration_seconds",
			Help:    "Duration of one transactional triple upsert.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.reg.MustRegister(m.items, m.rateLimited, m.itemLatency, m.runs, m.pending, m.triples, m.loadDuration)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) SetPending(stage string, n int) {
	if m == nil {
		return
	}
	m.pending.WithLabelValues(stage).Set(float64(n))
}

func (m *Metrics) ObserveItem(stage, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(stage, outcome).Inc()
	m.itemLatency.WithLabelValues(stage).Observe(dur.Seconds())
}

func (m *Metrics) IncRateLimited(stage string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(stage).Inc()
}

func (m *Metrics) IncRun(stage, state string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(stage, state).Inc()
}

func (m *Metrics) ObserveLoad(loaded, skipped int, dur time.Duration) {
	if m == nil {
		return
	}
	m.triples.WithLabelValues("loaded").Add(float64(loaded))
	m.triples.WithLabelValues("skipped").Add(float64(skipped))
	m.loadDuration.Observe(dur.Seconds())
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("observability: write textfile: %w", err)
	}
	return nil
}
