package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the workflow engine.
type Metrics struct {
	// Decision transitions by action and resulting status
	Transitions *prometheus.CounterVec

	// Step access checks by outcome
	AccessChecks *prometheus.CounterVec

	// Workflow instances reaching a terminal status
	InstancesFinished *prometheus.CounterVec

	// Step deadline breaches surfaced by the timeout sweep
	TimeoutBreaches prometheus.Counter
}

// New creates a Metrics instance with all workflow metrics registered.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_workflow_transitions_total",
			Help: "Decision record transitions by action and resulting status",
		}, []string{"action", "status"}),

		AccessChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_workflow_access_checks_total",
			Help: "Step access checks by outcome",
		}, []string{"outcome"}), // outcome: "granted", "denied"

		InstancesFinished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_workflow_instances_finished_total",
			Help: "Workflow instances reaching a terminal status",
		}, []string{"workflow_type", "status"}),

		TimeoutBreaches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_workflow_timeout_breaches_total",
			Help: "Step deadline breaches surfaced by the timeout sweep",
		}),
	}
}

// IncTransition records a decision transition.
func (m *Metrics) IncTransition(action, status string) {
	if m != nil {
		m.Transitions.WithLabelValues(action, status).Inc()
	}
}

// IncAccessCheck records one step access check outcome.
func (m *Metrics) IncAccessCheck(granted bool) {
	if m != nil {
		outcome := "granted"
		if !granted {
			outcome = "denied"
		}
		m.AccessChecks.WithLabelValues(outcome).Inc()
	}
}

// IncInstanceFinished records a workflow instance reaching a terminal status.
func (m *Metrics) IncInstanceFinished(workflowType, status string) {
	if m != nil {
		m.InstancesFinished.WithLabelValues(workflowType, status).Inc()
	}
}

// IncTimeoutBreach records one overdue step found by the sweep.
func (m *Metrics) IncTimeoutBreach() {
	if m != nil {
		m.TimeoutBreaches.Inc()
	}
}
