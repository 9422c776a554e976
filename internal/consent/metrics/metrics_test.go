package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementConsentDecision("api_call")
		m.ObserveCategories(map[string]bool{"analytics": true})
		m.IncrementRevocations()
		m.IncrementDeletions()
		m.IncrementVerification("analytics", false)
		m.ObserveWriteLatency(0.1)
		m.IncrementTierRead("cookie", "hit")
		m.IncrementTierWriteFailure("cookie", "too_large")
		m.IncrementMirrorFailure("set")
		m.IncrementScriptInjection("analytics")
	})
}

func TestCounters(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveCategories(map[string]bool{"analytics": true, "marketing": false})
	m.IncrementVerification("analytics", true)
	m.IncrementTierRead("cookie", "expired")
	m.IncrementTierRead("cookie", "expired")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CategoryDecisions.WithLabelValues("analytics", "granted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CategoryDecisions.WithLabelValues("marketing", "denied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConsentVerifications.WithLabelValues("analytics", "true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TierReads.WithLabelValues("cookie", "expired")))
}
