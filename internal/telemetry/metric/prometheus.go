package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "brainsync"

// Write outcome label values.
const (
	OutcomeCreated = "created"
	OutcomeUpdated = "updated"
	OutcomeFailed  = "failed"
)

// Lookup result label values.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

// Registry holds all sync engine metrics.
type Registry struct {
	registry *prometheus.Registry

	// Save metrics
	SaveCycles     prometheus.Counter
	SaveDuration   prometheus.Histogram
	KeysSkipped    prometheus.Counter
	Writes         *prometheus.CounterVec // labels: type, outcome
	InflightWrites prometheus.Gauge

	// Load metrics
	LoadDuration  prometheus.Gauge
	LoadedRecords prometheus.Gauge

	// Side-collection metrics
	Lookups *prometheus.CounterVec // labels: op, result
}

// NewRegistry creates a registry with all metrics registered, plus the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		SaveCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "save",
			Name:      "cycles_total",
			Help:      "Total save cycles handled",
		}),
		SaveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "save",
			Name:      "duration_seconds",
			Help:      "Time from diff start until every write of the cycle settled",
			Buckets:   prometheus.DefBuckets,
		}),
		KeysSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "save",
			Name:      "keys_skipped_total",
			Help:      "Keys skipped because they were unchanged since the last sync",
		}),
		Writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "writes_total",
			Help:      "Upserts and appends issued, by record type and outcome",
		}, []string{"type", "outcome"}),
		InflightWrites: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "inflight_writes",
			Help:      "Writes currently awaiting the document store",
		}),
		LoadDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "load",
			Name:      "duration_seconds",
			Help:      "Duration of the last startup load",
		}),
		LoadedRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "load",
			Name:      "records",
			Help:      "Private records merged into the brain by the last load",
		}),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stored",
			Name:      "lookups_total",
			Help:      "Side-collection retrieve and find calls, by result",
		}, []string{"op", "result"}),
	}

	r.registry.MustRegister(
		r.SaveCycles,
		r.SaveDuration,
		r.KeysSkipped,
		r.Writes,
		r.InflightWrites,
		r.LoadDuration,
		r.LoadedRecords,
		r.Lookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Registerer exposes the underlying registry so other components (e.g. the
// Badger store) can add their own metrics.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
