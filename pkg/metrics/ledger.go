package metrics

import "github.com/prometheus/client_golang/prometheus"

// Propagation outcomes.
const (
	OutcomeMirrored      = "mirrored"
	OutcomeMirrorFailed  = "mirror_failed"
	OutcomePrimaryFailed = "primary_failed"
	OutcomeQueued        = "queued"
)

// Invoice materialization outcomes.
const (
	OutcomeCreated = "created"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// LedgerMetrics tracks how order mutations reach both party copies.
type LedgerMetrics struct {
	propagations *prometheus.CounterVec
	readRepairs  *prometheus.CounterVec
	reconciled   *prometheus.CounterVec
	invoices     *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	propagations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "propagations_total",
		Help:      "Order mutations by propagation outcome.",
	}, []string{"namespace", "outcome"})
	readRepairs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "read_repairs_total",
		Help:      "Stale copies overwritten during reads, by repaired namespace.",
	}, []string{"namespace"})
	reconciled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "mirror_reconciled_total",
		Help:      "Pending mirror writes processed by the reconciler.",
	}, []string{"outcome"})
	invoices := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "invoices",
		Name:      "materializations_total",
		Help:      "Invoice materialization attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(propagations, readRepairs, reconciled, invoices)
	return &LedgerMetrics{
		propagations: propagations,
		readRepairs:  readRepairs,
		reconciled:   reconciled,
		invoices:     invoices,
	}
}

// IncPropagation counts a propagation outcome for the acting namespace.
func (m *LedgerMetrics) IncPropagation(ns, outcome string) {
	if m == nil || m.propagations == nil {
		return
	}
	m.propagations.WithLabelValues(normalizeLabel(ns), normalizeLabel(outcome)).Inc()
}

// IncReadRepair counts an overwrite of a stale copy.
func (m *LedgerMetrics) IncReadRepair(ns string) {
	if m == nil || m.readRepairs == nil {
		return
	}
	m.readRepairs.WithLabelValues(normalizeLabel(ns)).Inc()
}

// IncReconciled counts a processed mirror write.
func (m *LedgerMetrics) IncReconciled(outcome string) {
	if m == nil || m.reconciled == nil {
		return
	}
	m.reconciled.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncInvoice counts an invoice materialization outcome (created, skipped).
func (m *LedgerMetrics) IncInvoice(outcome string) {
	if m == nil || m.invoices == nil {
		return
	}
	m.invoices.WithLabelValues(normalizeLabel(outcome)).Inc()
}
