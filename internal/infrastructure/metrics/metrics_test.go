package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveReconstruction("fund_balance", 20*time.Millisecond)
	m.ObserveHTTP("GET", "/api/v1/tenants/{tenantID}/funds/{fundID}/balance", 200, time.Millisecond)

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}
}

func TestNewTwiceOnSameRegistryPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	New(registry)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected duplicate registration to panic")
		}
	}()
	New(registry)
}

func TestRecorderCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordCache("fund_balance", true)
	m.RecordCache("fund_balance", false)
	m.RecordCache("fund_balance", false)
	m.RecordVariance("critical")
	m.RecordImmutabilityViolations(3)
	m.RecordImmutabilityViolations(0)
	m.RecordInvariantFailure("ledger_balanced")
	m.RecordAudit("tampering_detected")
	m.RecordPublish(true)
	m.RecordPublish(false)
	m.RecordRateLimitHit()

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"cache hit", testutil.ToFloat64(m.SnapshotCache.WithLabelValues("fund_balance", "hit")), 1},
		{"cache miss", testutil.ToFloat64(m.SnapshotCache.WithLabelValues("fund_balance", "miss")), 2},
		{"variance", testutil.ToFloat64(m.Variances.WithLabelValues("critical")), 1},
		{"immutability", testutil.ToFloat64(m.ImmutabilityViolations), 3},
		{"invariant", testutil.ToFloat64(m.InvariantFailures.WithLabelValues("ledger_balanced")), 1},
		{"audit", testutil.ToFloat64(m.AuditEntriesCreated.WithLabelValues("tampering_detected")), 1},
		{"publish ok", testutil.ToFloat64(m.OutboxEventsPublished.WithLabelValues("ok")), 1},
		{"publish error", testutil.ToFloat64(m.OutboxEventsPublished.WithLabelValues("error")), 1},
		{"rate limit", testutil.ToFloat64(m.RateLimitHits), 1},
	}

	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}
