package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Recording(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.RecordBillingCall("update_subscription", nil)
	m.RecordBillingCall("update_subscription", errors.New("card declined"))
	m.RecordBillingCall("update_subscription", nil)
	m.RecordTransition("cancel", "ok")
	m.RecordDegraded("upcoming_invoice")
	m.ObserveAggregate(20 * time.Millisecond)
	m.RecordNotification("invite", nil)
	m.RecordSeatViolation()
	m.RecordReconcileRun(nil)

	if got := testutil.ToFloat64(m.BillingCallsTotal.WithLabelValues("update_subscription", "success")); got != 2 {
		t.Errorf("Expected 2 successful billing calls, got %v", got)
	}
	if got := testutil.ToFloat64(m.BillingCallsTotal.WithLabelValues("update_subscription", "error")); got != 1 {
		t.Errorf("Expected 1 failed billing call, got %v", got)
	}
	if got := testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("cancel", "ok")); got != 1 {
		t.Errorf("Expected 1 cancel transition, got %v", got)
	}
	if got := testutil.ToFloat64(m.AggregateDegradedTotal.WithLabelValues("upcoming_invoice")); got != 1 {
		t.Errorf("Expected 1 degraded field, got %v", got)
	}
	if got := testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("invite", "success")); got != 1 {
		t.Errorf("Expected 1 notification, got %v", got)
	}
	if got := testutil.ToFloat64(m.SeatInvariantViolationsTotal); got != 1 {
		t.Errorf("Expected 1 seat violation, got %v", got)
	}
	if got := testutil.ToFloat64(m.ReconcileRunsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("Expected 1 reconcile run, got %v", got)
	}
	if got := testutil.CollectAndCount(m.AggregateDuration); got != 1 {
		t.Errorf("Expected aggregate histogram to be collected, got %d", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	// None of these may panic.
	m.RecordBillingCall("fetch_subscription", nil)
	m.RecordTransition("upgrade", "rejected")
	m.RecordDegraded("teammates")
	m.ObserveAggregate(time.Second)
	m.RecordNotification("invite", errors.New("boom"))
	m.RecordSeatViolation()
	m.RecordReconcileRun(errors.New("boom"))
}

func TestMetricsHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.RecordTransition("reactivate", "ok")

	rec := httptest.NewRecorder()
	MetricsHandler(registry).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `teamseats_transitions_total{outcome="ok",transition="reactivate"} 1`) {
		t.Errorf("Expected transition counter in exposition, got:\n%s", rec.Body.String())
	}
}
