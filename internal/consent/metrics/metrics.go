package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for consent operations. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	ConsentDecisions     *prometheus.CounterVec
	CategoryDecisions    *prometheus.CounterVec
	ConsentRevocations   prometheus.Counter
	ConsentDeletions     prometheus.Counter
	ConsentVerifications *prometheus.CounterVec
	ConsentWriteLatency  prometheus.Histogram

	// Storage tiers
	TierReads         *prometheus.CounterVec
	TierWriteFailures *prometheus.CounterVec
	MirrorFailures    *prometheus.CounterVec

	// Script gate
	ScriptInjections *prometheus.CounterVec
}

// New registers consent collectors with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers consent collectors with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ConsentDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cookiegate_consent_decisions_total",
			Help: "Total number of persisted consent decisions, labeled by source",
		}, []string{"source"}),
		CategoryDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cookiegate_consent_category_decisions_total",
			Help: "Per-category outcome of persisted consent decisions",
		}, []string{"category", "decision"}),
		ConsentRevocations: f.NewCounter(prometheus.CounterOpts{
			Name: "cookiegate_consent_revocations_total",
			Help: "Total number of consent revocations",
		}),
		ConsentDeletions: f.NewCounter(prometheus.CounterOpts{
			Name: "cookiegate_consent_deletions_total",
			Help: "Total number of consent deletions",
		}),
		ConsentVerifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cookiegate_consent_verifications_total",
			Help: "Total number of category verification checks, labeled by category and result",
		}, []string{"category", "allowed"}),
		ConsentWriteLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "cookiegate_consent_write_latency_seconds",
			Help:    "Latency of consent writes across all storage tiers",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		TierReads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cookiegate_consent_tier_reads_total",
			Help: "Storage tier read outcomes (hit, miss, expired, invalid, error)",
		}, []string{"tier", "outcome"}),
		TierWriteFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cookiegate_consent_tier_write_failures_total",
			Help: "Storage tier writes that were skipped or failed",
		}, []string{"tier", "reason"}),
		MirrorFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cookiegate_consent_mirror_failures_total",
			Help: "Failed operations against the server-side device mirror",
		}, []string{"operation"}),
		ScriptInjections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cookiegate_script_injections_total",
			Help: "Third-party script injections, labeled by category",
		}, []string{"category"}),
	}
}

func (m *Metrics) IncrementConsentDecision(source string) {
	if m == nil {
		return
	}
	m.ConsentDecisions.WithLabelValues(source).Inc()
}

// ObserveCategories records one granted/denied sample per category.
func (m *Metrics) ObserveCategories(decisions map[string]bool) {
	if m == nil {
		return
	}
	for category, granted := range decisions {
		decision := "denied"
		if granted {
			decision = "granted"
		}
		m.CategoryDecisions.WithLabelValues(category, decision).Inc()
	}
}

func (m *Metrics) IncrementRevocations() {
	if m == nil {
		return
	}
	m.ConsentRevocations.Inc()
}

func (m *Metrics) IncrementDeletions() {
	if m == nil {
		return
	}
	m.ConsentDeletions.Inc()
}

func (m *Metrics) IncrementVerification(category string, allowed bool) {
	if m == nil {
		return
	}
	result := "false"
	if allowed {
		result = "true"
	}
	m.ConsentVerifications.WithLabelValues(category, result).Inc()
}

func (m *Metrics) ObserveWriteLatency(durationSeconds float64) {
	if m == nil {
		return
	}
	m.ConsentWriteLatency.Observe(durationSeconds)
}

func (m *Metrics) IncrementTierRead(tier, outcome string) {
	if m == nil {
		return
	}
	m.TierReads.WithLabelValues(tier, outcome).Inc()
}

func (m *Metrics) IncrementTierWriteFailure(tier, reason string) {
	if m == nil {
		return
	}
	m.TierWriteFailures.WithLabelValues(tier, reason).Inc()
}

func (m *Metrics) IncrementMirrorFailure(operation string) {
	if m == nil {
		return
	}
	m.MirrorFailures.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncrementScriptInjection(category string) {
	if m == nil {
		return
	}
	m.ScriptInjections.WithLabelValues(category).Inc()
}
