// Package metrics exposes Prometheus instrumentation for the controller
// core: inclusion/exclusion outcomes, heal coverage, association churn and
// security bootstrap results (spec.md's testable properties, made
// observable). All metrics carry a zwcore_ prefix.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every Prometheus collector the controller core registers.
// A nil *Metrics is a valid no-op collector: every method on it tolerates a
// nil receiver, so components can be constructed without metrics in tests.
type Metrics struct {
	InclusionTotal   *prometheus.CounterVec
	InclusionSeconds prometheus.Histogram

	ExclusionTotal *prometheus.CounterVec

	ReplaceFailedTotal *prometheus.CounterVec
	RemoveFailedTotal  *prometheus.CounterVec

	HealNetworkRuns     prometheus.Counter
	HealNodeResultTotal *prometheus.CounterVec
	HealNodeSeconds     prometheus.Histogram

	AssociationChangesTotal *prometheus.CounterVec
	AssociationDeniedTotal  prometheus.Counter

	SecurityBootstrapTotal *prometheus.CounterVec

	NodesTotal *prometheus.GaugeVec
}

// New creates controller-core metrics and registers them against reg.
// Panics on duplicate registration, which only happens on a programming
// error during wiring.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		InclusionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zwcore_inclusion_total",
			Help: "Completed inclusion attempts by outcome.",
		}, []string{"outcome"}),
		InclusionSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "zwcore_inclusion_duration_seconds",
			Help:    "Time from BeginInclusion to a terminal AddNodeStatus.",
			Buckets: prometheus.DefBuckets,
		}),
		ExclusionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zwcore_exclusion_total",
			Help: "Completed exclusion attempts by outcome.",
		}, []string{"outcome"}),
		ReplaceFailedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zwcore_replace_failed_node_total",
			Help: "ReplaceFailedNode attempts by outcome.",
		}, []string{"outcome"}),
		RemoveFailedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zwcore_remove_failed_node_total",
			Help: "RemoveFailedNode attempts by outcome.",
		}, []string{"outcome"}),
		HealNetworkRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zwcore_heal_network_runs_total",
			Help: "Network heals started.",
		}),
		HealNodeResultTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zwcore_heal_node_result_total",
			Help: "Per-node heal outcomes by result.",
		}, []string{"result"}),
		HealNodeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "zwcore_heal_node_duration_seconds",
			Help:    "Time spent healing a single node.",
			Buckets: prometheus.DefBuckets,
		}),
		AssociationChangesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zwcore_association_changes_total",
			Help: "Association add/remove operations by kind.",
		}, []string{"kind"}),
		AssociationDeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zwcore_association_denied_total",
			Help: "Association adds rejected by command-class compatibility.",
		}),
		SecurityBootstrapTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zwcore_security_bootstrap_total",
			Help: "S0 bootstrap attempts by outcome.",
		}, []string{"outcome"}),
		NodesTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "zwcore_nodes_total",
			Help: "Known nodes by status.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		m.InclusionTotal, m.InclusionSeconds,
		m.ExclusionTotal,
		m.ReplaceFailedTotal, m.RemoveFailedTotal,
		m.HealNetworkRuns, m.HealNodeResultTotal, m.HealNodeSeconds,
		m.AssociationChangesTotal, m.AssociationDeniedTotal,
		m.SecurityBootstrapTotal,
		m.NodesTotal,
	)
	return m
}

// Null returns nil, a valid no-op Metrics.
func Null() *Metrics { return nil }

func (m *Metrics) RecordInclusion(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.InclusionTotal.WithLabelValues(outcome).Inc()
	m.InclusionSeconds.Observe(d.Seconds())
}

func (m *Metrics) RecordExclusion(outcome string) {
	if m == nil {
		return
	}
	m.ExclusionTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordReplaceFailed(outcome string) {
	if m == nil {
		return
	}
	m.ReplaceFailedTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordRemoveFailed(outcome string) {
	if m == nil {
		return
	}
	m.RemoveFailedTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordHealNetworkStarted() {
	if m == nil {
		return
	}
	m.HealNetworkRuns.Inc()
}

func (m *Metrics) RecordHealNode(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.HealNodeResultTotal.WithLabelValues(result).Inc()
	m.HealNodeSeconds.Observe(d.Seconds())
}

func (m *Metrics) RecordAssociationChange(kind string) {
	if m == nil {
		return
	}
	m.AssociationChangesTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordAssociationDenied() {
	if m == nil {
		return
	}
	m.AssociationDeniedTotal.Inc()
}

func (m *Metrics) RecordSecurityBootstrap(outcome string) {
	if m == nil {
		return
	}
	m.SecurityBootstrapTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetNodesByStatus(counts map[string]int) {
	if m == nil {
		return
	}
	m.NodesTotal.Reset()
	for status, n := range counts {
		m.NodesTotal.WithLabelValues(status).Set(float64(n))
	}
}
