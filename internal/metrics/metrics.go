package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values for the model output counter.
const (
	OutputClean     = "clean"
	OutputRepaired  = "repaired"
	OutputSalvaged  = "salvaged"
	OutputMalformed = "malformed"
)

// Label values for balance reads.
const (
	CacheHit      = "hit"
	CacheMiss     = "miss"
	CacheDisabled = "disabled"
)

// Metrics provides observability for split resolution and balance reads.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Split resolutions by the stage that produced the result
	Resolutions *prometheus.CounterVec

	// Text generation call latency by outcome
	GenerateLatency *prometheus.HistogramVec

	// How model output had to be treated before it could be used
	ModelOutput *prometheus.CounterVec

	// Model splits whose sums did not reconcile
	SumMismatches prometheus.Counter

	// Balance reads by cache result
	BalanceReads *prometheus.CounterVec

	// RPC handling time by procedure and Connect code
	RPCDuration *prometheus.HistogramVec
}

// New creates a Metrics instance registered with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "splitledger_split_resolutions_total",
			Help: "Total split resolutions by source",
		}, []string{"source"}), // source: "parsed", "ai_generated", "fallback"

		GenerateLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "splitledger_generate_duration_seconds",
			Help:    "Duration of text generation calls by outcome",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"outcome"}), // outcome: "ok", "error", "timeout"

		ModelOutput: f.NewCounterVec(prometheus.CounterOpts{
			Name: "splitledger_model_output_total",
			Help: "Model responses by how they were decoded",
		}, []string{"outcome"}),

		SumMismatches: f.NewCounter(prometheus.CounterOpts{
			Name: "splitledger_model_sum_mismatches_total",
			Help: "Model generated splits whose sums did not reconcile with the total",
		}),

		BalanceReads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "splitledger_balance_reads_total",
			Help: "Balance reads by cache result",
		}, []string{"cache"}),

		RPCDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "splitledger_rpc_duration_seconds",
			Help:    "Duration of RPC calls by procedure and code",
			Buckets: prometheus.DefBuckets,
		}, []string{"procedure", "code"}),
	}
}

// IncrementResolution records which stage produced a split.
func (m *Metrics) IncrementResolution(source string) {
	if m != nil {
		m.Resolutions.WithLabelValues(source).Inc()
	}
}

// ObserveGenerateLatency records the duration of one text generation call.
func (m *Metrics) ObserveGenerateLatency(outcome string, d time.Duration) {
	if m != nil {
		m.GenerateLatency.WithLabelValues(outcome).Observe(d.Seconds())
	}
}

// IncrementModelOutput records how a model response was decoded.
func (m *Metrics) IncrementModelOutput(outcome string) {
	if m != nil {
		m.ModelOutput.WithLabelValues(outcome).Inc()
	}
}

// IncrementSumMismatch records a model split that did not reconcile.
func (m *Metrics) IncrementSumMismatch() {
	if m != nil {
		m.SumMismatches.Inc()
	}
}

// IncrementBalanceRead records a balance read.
func (m *Metrics) IncrementBalanceRead(cache string) {
	if m != nil {
		m.BalanceReads.WithLabelValues(cache).Inc()
	}
}

// ObserveRPC records one handled RPC.
func (m *Metrics) ObserveRPC(procedure, code string, d time.Duration) {
	if m != nil {
		m.RPCDuration.WithLabelValues(procedure, code).Observe(d.Seconds())
	}
}
