// Package metrics provides Prometheus counters for reconciliation runs.
//
// A batch run has no scrape endpoint, so the registry is written to a
// node_exporter textfile at the end of the run.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/agentstation/genemap/pkg/errors"
	"github.com/agentstation/genemap/pkg/evidence"
	"github.com/agentstation/genemap/pkg/sources"
)

// ReconcileMetrics contains the reconciliation counters. It implements
// reconciler.Recorder.
type ReconcileMetrics struct {
	registry *prometheus.Registry

	rowsTotal       *prometheus.CounterVec
	relevantTotal   *prometheus.CounterVec
	bundlesTotal    *prometheus.CounterVec
	conflictsTotal  *prometheus.CounterVec
	unresolvedTotal *prometheus.CounterVec
	issuesTotal     *prometheus.CounterVec
	recordsTotal    *prometheus.CounterVec

	collectors []prometheus.Collector
}

// New creates reconciliation metrics on a fresh registry.
func New() (*ReconcileMetrics, error) {
	return NewReconcileMetrics(prometheus.NewRegistry())
}

// NewReconcileMetrics creates and registers reconciliation metrics.
func NewReconcileMetrics(registry *prometheus.Registry) (*ReconcileMetrics, error) {
	if registry == nil {
		return nil, errors.NewValidationError("registry", nil, "cannot be nil")
	}
	m := &ReconcileMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, errors.NewConfigError("metrics", "cannot register collectors", err)
	}
	return m, nil
}

func (m *ReconcileMetrics) initMetrics() {
	m.rowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genemap_source_rows_total",
			Help: "Raw source rows read by a merger",
		},
		[]string{"source"},
	)

	m.relevantTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genemap_source_relevant_rows_total",
			Help: "Source rows passing the relevance filter",
		},
		[]string{"source"},
	)

	m.bundlesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genemap_bundles_total",
			Help: "Evidence bundles attached to records",
		},
		[]string{"source", "state"}, // state: absent, empty, populated
	)

	m.conflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genemap_conflicts_total",
			Help: "Label groups whose strengths disagree",
		},
		[]string{"source"},
	)

	m.unresolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genemap_unresolved_labels_total",
			Help: "Distinct source labels that matched no entity",
		},
		[]string{"source", "reason"}, // reason: unknown, ambiguous
	)

	m.issuesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genemap_issues_total",
			Help: "Non-fatal reconciliation issues",
		},
		[]string{"source", "type"},
	)

	m.recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genemap_records_total",
			Help: "Unified records produced",
		},
		[]string{"join"},
	)

	m.collectors = []prometheus.Collector{
		m.rowsTotal,
		m.relevantTotal,
		m.bundlesTotal,
		m.conflictsTotal,
		m.unresolvedTotal,
		m.issuesTotal,
		m.recordsTotal,
	}
}

// Describe implements the Collector interface
func (m *ReconcileMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *ReconcileMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// Registry returns the registry the metrics are registered with.
func (m *ReconcileMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordOutput records the merge statistics and issues of one source.
func (m *ReconcileMetrics) RecordOutput(out *sources.Output) {
	if out == nil {
		return
	}
	source := string(out.Source)
	m.rowsTotal.WithLabelValues(source).Add(float64(out.Stats.Rows))
	m.relevantTotal.WithLabelValues(source).Add(float64(out.Stats.Relevant))
	m.conflictsTotal.WithLabelValues(source).Add(float64(out.Stats.Conflicts))
	m.unresolvedTotal.WithLabelValues(source, "unknown").Add(float64(out.Stats.Unresolved))
	m.unresolvedTotal.WithLabelValues(source, "ambiguous").Add(float64(out.Stats.Ambiguous))
	for _, issue := range out.Issues {
		m.issuesTotal.WithLabelValues(source, issueType(issue)).Inc()
	}
}

// RecordBundle records one attached bundle by state.
func (m *ReconcileMetrics) RecordBundle(source string, state evidence.State) {
	m.bundlesTotal.WithLabelValues(source, state.String()).Inc()
}

// RecordRecords records the records produced by one reconciliation.
func (m *ReconcileMetrics) RecordRecords(policy string, n int) {
	m.recordsTotal.WithLabelValues(policy).Add(float64(n))
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (m *ReconcileMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

func issueType(err error) string {
	switch {
	case errors.IsConflict(err):
		return "conflict"
	case errors.IsUnresolved(err):
		return "unresolved_key"
	case errors.IsMissingRankContext(err):
		return "missing_rank_context"
	default:
		return "other"
	}
}
