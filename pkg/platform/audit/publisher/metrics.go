package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the audit publisher.
type Metrics struct {
	EntriesEmitted prometheus.Counter
	AppendFailures prometheus.Counter
}

// NewMetrics creates and registers audit publisher metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		EntriesEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_audit_entries_emitted_total",
			Help: "Total audit entries successfully appended to the store",
		}),
		AppendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_audit_append_failures_total",
			Help: "Total audit entries dropped because the store append failed",
		}),
	}
}

// IncEntriesEmitted records a successful append.
func (m *Metrics) IncEntriesEmitted() {
	if m != nil {
		m.EntriesEmitted.Inc()
	}
}

// IncAppendFailures records a swallowed append failure.
func (m *Metrics) IncAppendFailures() {
	if m != nil {
		m.AppendFailures.Inc()
	}
}
