package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCronJobMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.IncSuccess("expiration-sweep")
	m.IncSuccess("expiration-sweep")
	m.IncFailure("expiration-sweep")
	m.ObserveDuration("expiration-sweep", 120*time.Millisecond)
	m.AddExpired("plate", 3)
	m.AddExpired("temporary_access", 0)

	if got := testutil.ToFloat64(m.success.WithLabelValues("expiration-sweep")); got != 2 {
		t.Fatalf("expected 2 successes, got %f", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues("expiration-sweep")); got != 1 {
		t.Fatalf("expected 1 failure, got %f", got)
	}
	if got := testutil.ToFloat64(m.expired.WithLabelValues("plate")); got != 3 {
		t.Fatalf("expected 3 expired plates, got %f", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *CronJobMetrics
	m.IncSuccess("x")
	m.IncFailure("x")
	m.ObserveDuration("x", time.Second)
	m.AddExpired("x", 1)

	empty := NewCronJobMetrics(nil)
	empty.IncSuccess("x")
}

func TestNormalizeLabel(t *testing.T) {
	if normalizeLabel("") != "unknown" {
		t.Fatal("empty labels should normalize")
	}
	if normalizeLabel("sweep") != "sweep" {
		t.Fatal("labels should pass through")
	}
}
