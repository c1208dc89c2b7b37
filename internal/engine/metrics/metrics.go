package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the decision engine.
type Metrics struct {
	// Verdicts by outcome and whether the structured parse degraded
	Verdicts *prometheus.CounterVec

	// Fallback decisions produced when the pipeline failed outright
	Fallbacks prometheus.Counter

	// Classifier call latency
	ClassifyLatency prometheus.Histogram

	// Overall decision latency including embedding and neighbor search
	DecisionLatency prometheus.Histogram
}

// New creates a Metrics instance with all engine metrics registered.
func New() *Metrics {
	return &Metrics{
		Verdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_engine_verdicts_total",
			Help: "AI verdicts by outcome and parse mode",
		}, []string{"verdict", "mode"}), // mode: "parsed", "degraded"

		Fallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_engine_fallbacks_total",
			Help: "Terminal escalation fallbacks after pipeline failures",
		}),

		ClassifyLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "kycgate_engine_classify_duration_seconds",
			Help:    "Duration of classifier calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		DecisionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "kycgate_engine_decision_duration_seconds",
			Help:    "Duration of full decision pipeline including embedding and neighbor search",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

// IncVerdict records a produced verdict.
func (m *Metrics) IncVerdict(verdict, mode string) {
	if m != nil {
		m.Verdicts.WithLabelValues(verdict, mode).Inc()
	}
}

// IncFallback records a terminal escalation fallback.
func (m *Metrics) IncFallback() {
	if m != nil {
		m.Fallbacks.Inc()
	}
}

// ObserveClassifyLatency records one classifier call duration.
func (m *Metrics) ObserveClassifyLatency(d time.Duration) {
	if m != nil {
		m.ClassifyLatency.Observe(d.Seconds())
	}
}

// ObserveDecisionLatency records the total pipeline duration.
func (m *Metrics) ObserveDecisionLatency(d time.Duration) {
	if m != nil {
		m.DecisionLatency.Observe(d.Seconds())
	}
}
