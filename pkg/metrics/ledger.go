package metrics

import "github.com/prometheus/client_golang/prometheus"

// LedgerMetrics tracks the optimistic-concurrency write path.
type LedgerMetrics struct {
	conflicts *prometheus.CounterVec
	retries   *prometheus.CounterVec
	exhausted *prometheus.CounterVec
}

// NewLedgerMetrics registers the participation write metrics.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_version_conflicts_total",
		Help: "Version conflicts hit while writing participations.",
	}, []string{"op"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_retries_total",
		Help: "Retries performed after a version conflict.",
	}, []string{"op"})
	exhausted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_retries_exhausted_total",
		Help: "Writes that gave up after the retry budget ran out.",
	}, []string{"op"})
	reg.MustRegister(conflicts, retries, exhausted)
	return &LedgerMetrics{conflicts: conflicts, retries: retries, exhausted: exhausted}
}

// IncConflict records a version conflict for the named operation.
func (m *LedgerMetrics) IncConflict(op string) {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncRetry records a retry attempt for the named operation.
func (m *LedgerMetrics) IncRetry(op string) {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncExhausted records a write that ran out of retries.
func (m *LedgerMetrics) IncExhausted(op string) {
	if m == nil || m.exhausted == nil {
		return
	}
	m.exhausted.WithLabelValues(normalizeLabel(op)).Inc()
}
