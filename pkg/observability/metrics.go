package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics.
//
// Every recording method is safe on a nil *Metrics, so components can be built without metrics.
type Metrics struct {
	// Billing provider metrics
	BillingCallsTotal *prometheus.CounterVec

	// Subscription transition metrics
	TransitionsTotal *prometheus.CounterVec

	// Account aggregation metrics
	AggregateDegradedTotal *prometheus.CounterVec
	AggregateDuration      prometheus.Histogram

	// Notification metrics
	NotificationsTotal *prometheus.CounterVec

	// Seat invariant metrics
	SeatInvariantViolationsTotal prometheus.Counter
	ReconcileRunsTotal           *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		BillingCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teamseats_billing_calls_total",
				Help: "Total number of billing provider calls",
			},
			[]string{"operation", "status"},
		),
		TransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teamseats_transitions_total",
				Help: "Total number of subscription and seat transitions attempted",
			},
			[]string{"transition", "outcome"},
		),
		AggregateDegradedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teamseats_aggregate_degraded_total",
				Help: "Total number of account view fields degraded to their neutral value",
			},
			[]string{"field"},
		),
		AggregateDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "teamseats_aggregate_duration_seconds",
				Help:    "Account view build duration in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teamseats_notifications_total",
				Help: "Total number of notification emails dispatched",
			},
			[]string{"kind", "status"},
		),
		SeatInvariantViolationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "teamseats_seat_invariant_violations_total",
				Help: "Total number of subscriptions found with fewer seats than occupied",
			},
		),
		ReconcileRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teamseats_reconcile_runs_total",
				Help: "Total number of seat reconciliation runs",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.BillingCallsTotal,
		m.TransitionsTotal,
		m.AggregateDegradedTotal,
		m.AggregateDuration,
		m.NotificationsTotal,
		m.SeatInvariantViolationsTotal,
		m.ReconcileRunsTotal,
	)

	return m
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordBillingCall counts a billing provider call
func (m *Metrics) RecordBillingCall(operation string, err error) {
	if m == nil {
		return
	}
	m.BillingCallsTotal.WithLabelValues(operation, statusLabel(err)).Inc()
}

// RecordTransition counts a transition attempt with its outcome
func (m *Metrics) RecordTransition(transition, outcome string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(transition, outcome).Inc()
}

// RecordDegraded counts an account view field that fell back to its neutral value
func (m *Metrics) RecordDegraded(field string) {
	if m == nil {
		return
	}
	m.AggregateDegradedTotal.WithLabelValues(field).Inc()
}

// ObserveAggregate records how long an account view build took
func (m *Metrics) ObserveAggregate(d time.Duration) {
	if m == nil {
		return
	}
	m.AggregateDuration.Observe(d.Seconds())
}

// RecordNotification counts a dispatched notification
func (m *Metrics) RecordNotification(kind string, err error) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(kind, statusLabel(err)).Inc()
}

// RecordSeatViolation counts a subscription found violating the seat invariant
func (m *Metrics) RecordSeatViolation() {
	if m == nil {
		return
	}
	m.SeatInvariantViolationsTotal.Inc()
}

// RecordReconcileRun counts a reconciliation run
func (m *Metrics) RecordReconcileRun(err error) {
	if m == nil {
		return
	}
	m.ReconcileRunsTotal.WithLabelValues(statusLabel(err)).Inc()
}

// MetricsHandler serves the registry in the Prometheus exposition format
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
