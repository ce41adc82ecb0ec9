package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/genemap/pkg/errors"
	"github.com/agentstation/genemap/pkg/evidence"
	"github.com/agentstation/genemap/pkg/sources"
	"github.com/agentstation/genemap/pkg/types"
)

func TestRecordOutput(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewReconcileMetrics(registry)
	require.NoError(t, err)

	m.RecordOutput(&sources.Output{
		Source: types.DisGeNETID,
		Stats:  sources.Stats{Rows: 10, Relevant: 4, Conflicts: 1, Unresolved: 2, Ambiguous: 1},
		Issues: []error{
			errors.NewConflictError("disgenet", "BCR", "Bipolar Disorder", []string{"0.6", "0.4"}),
			errors.NewUnresolvedKeyError("disgenet", "RHOF", nil),
			errors.NewRankContextError("ewas_atlas", "CG1", "BMI", "rank"),
		},
	})
	m.RecordOutput(nil)

	source := string(types.DisGeNETID)
	assert.Equal(t, float64(10), testutil.ToFloat64(m.rowsTotal.WithLabelValues(source)))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.relevantTotal.WithLabelValues(source)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.conflictsTotal.WithLabelValues(source)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.unresolvedTotal.WithLabelValues(source, "unknown")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.unresolvedTotal.WithLabelValues(source, "ambiguous")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.issuesTotal.WithLabelValues(source, "conflict")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.issuesTotal.WithLabelValues(source, "unresolved_key")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.issuesTotal.WithLabelValues(source, "missing_rank_context")))
}

func TestRecordBundleAndRecords(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	testCases := []struct {
		name  string
		state evidence.State
		times int
	}{
		{"absent", evidence.StateAbsent, 3},
		{"empty", evidence.StateEmpty, 1},
		{"populated", evidence.StatePopulated, 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for range tc.times {
				m.RecordBundle("gwas_catalog", tc.state)
			}
			count := testutil.ToFloat64(m.bundlesTotal.WithLabelValues("gwas_catalog", tc.state.String()))
			assert.Equal(t, float64(tc.times), count)
		})
	}

	m.RecordRecords("left", 5)
	m.RecordRecords("left", 2)
	assert.Equal(t, float64(7), testutil.ToFloat64(m.recordsTotal.WithLabelValues("left")))
}

func TestNilRegistry(t *testing.T) {
	_, err := NewReconcileMetrics(nil)
	assert.True(t, errors.IsValidationError(err))
}

func TestDoubleRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewReconcileMetrics(registry)
	require.NoError(t, err)

	_, err = NewReconcileMetrics(registry)
	assert.Error(t, err)
}

func TestWriteTextfile(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.RecordRecords("right", 3)

	path := filepath.Join(t.TempDir(), "genemap.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `genemap_records_total{join="right"} 3`)
}
