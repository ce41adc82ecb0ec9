package gaps_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/genemap/pkg/gaps"
	"github.com/agentstation/genemap/pkg/reconciler"
	"github.com/agentstation/genemap/pkg/sources"
	"github.com/agentstation/genemap/pkg/synonym"
	"github.com/agentstation/genemap/pkg/tables"
	"github.com/agentstation/genemap/pkg/types"
	"github.com/agentstation/genemap/pkg/vocab"
)

func livingIndex(t *testing.T) *synonym.Index {
	t.Helper()
	living := tables.New("living", "symbol", "synonyms")
	living.AppendRaw("GENE1", `["ALIAS1", "ALIAS2"]`)
	living.AppendRaw("GENE2", "")
	ix, err := synonym.FromTable(living, "symbol", "synonyms", nil)
	require.NoError(t, err)
	return ix
}

func atlasReferences() []sources.Reference {
	return []sources.Reference{
		{Source: types.EWASAtlasID, Entity: "cg1", Labels: []string{"GENE1", "NEWGENE"}},
		{Source: types.EWASAtlasID, Entity: "cg1", Labels: []string{"GENE1", "NEWGENE"}},
		{Source: types.EWASAtlasID, Entity: "cg2", Labels: []string{"ALIAS1", "DECIMAL.1", "ANOTHER"}},
	}
}

func TestAnalyze(t *testing.T) {
	r := gaps.Analyze(atlasReferences(), livingIndex(t))

	require.Len(t, r.Entries, 4, "duplicate rows collapse")
	assert.Equal(t, "4 unmapped labels: 1 synonyms, 2 established, 1 unestablished", r.String())

	require.Len(t, r.Synonym, 1)
	assert.Equal(t, "ALIAS1", r.Synonym[0].Label)
	assert.Equal(t, []string{"GENE1"}, r.Synonym[0].SynonymOf)
	assert.False(t, r.Synonym[0].Ambiguous())

	require.Len(t, r.Unestablished, 1)
	assert.Equal(t, "DECIMAL.1", r.Unestablished[0].Label)

	summaries := r.Summaries()
	require.Len(t, summaries, 2)
	assert.Equal(t, gaps.Summary{Entity: "cg1", Genes: []string{"NEWGENE"}}, summaries[0])
	assert.Equal(t, gaps.Summary{Entity: "cg2", Genes: []string{"ANOTHER"}, Regions: []string{"DECIMAL.1"}}, summaries[1],
		"synonyms are accounted for, not listed as unmapped genes")
}

func TestClassification(t *testing.T) {
	ix := livingIndex(t)
	refs := []sources.Reference{{Source: types.GWASCatalogID, Entity: "AP003039.3, RHOF", Labels: []string{"AP003039.3", "RHOF"}}}

	entries := gaps.FindUnmapped(refs, ix)
	require.Len(t, entries, 2)
	assert.Equal(t, gaps.BucketUnestablished, entries[0].Bucket)
	assert.Equal(t, gaps.BucketEstablished, entries[1].Bucket)
}

func TestEveryLabelInExactlyOneBucket(t *testing.T) {
	ix := livingIndex(t)
	ix.Add("GENE3", "ALIAS1")
	refs := append(atlasReferences(), sources.Reference{
		Source: types.DisGeNETID, Entity: "x", Labels: []string{"gene2", "ALIAS2", "ALIAS1", "LINC01.12", "RHOF"},
	})

	r := gaps.Analyze(refs, ix)
	assert.Equal(t, len(r.Entries), len(r.Synonym)+len(r.Established)+len(r.Unestablished))

	for _, e := range r.Entries {
		assert.NotEqual(t, "gene2", e.Label, "canonical labels are never reported")
		if e.Label == "ALIAS1" {
			assert.True(t, e.Ambiguous())
			assert.Equal(t, []string{"GENE1", "GENE3"}, e.SynonymOf)
		}
	}
}

func TestTables(t *testing.T) {
	r := gaps.Analyze(atlasReferences(), livingIndex(t))
	established, unestablished := r.Tables()

	require.Equal(t, 3, established.Len())
	var uncaptured []string
	for i := 0; i < established.Len(); i++ {
		uncaptured = append(uncaptured, established.Row(i).String(gaps.ColUncaptured))
	}
	assert.ElementsMatch(t, []string{"NEWGENE", "ALIAS1", "ANOTHER"}, uncaptured)
	assert.NotContains(t, uncaptured, "DECIMAL.1")

	for i := 0; i < established.Len(); i++ {
		row := established.Row(i)
		synonymOf, ok := row.Get(gaps.ColSynonymOf)
		if row.String(gaps.ColUncaptured) == "ALIAS1" {
			assert.Equal(t, "GENE1", synonymOf)
		} else {
			assert.False(t, ok)
		}
	}

	require.Equal(t, 1, unestablished.Len())
	assert.Equal(t, "DECIMAL.1", unestablished.Row(0).String(gaps.ColUncaptured))
	assert.Equal(t, "ALIAS1; DECIMAL.1; ANOTHER", unestablished.Row(0).String(gaps.ColLabels))

	summary := r.SummaryTable()
	require.Equal(t, 2, summary.Len())
	_, hasRegions := summary.Row(0).Get(gaps.ColUnmappedRegions)
	assert.False(t, hasRegions)
	assert.Equal(t, "DECIMAL.1", summary.Row(1).String(gaps.ColUnmappedRegions))
}

func TestNoGaps(t *testing.T) {
	r := gaps.Analyze([]sources.Reference{{Source: types.PubMedID, Entity: "GENE1", Labels: []string{"GENE1"}}}, livingIndex(t))
	assert.False(t, r.HasGaps())
	assert.Equal(t, "No unmapped labels", r.String())
}

func TestCoverage(t *testing.T) {
	ix := livingIndex(t)
	v, err := vocab.Default()
	require.NoError(t, err)

	raw := tables.New("disgenet", sources.DisGeNETGeneColumn, sources.DisGeNETDiseaseColumn, sources.DisGeNETClassColumn, sources.DisGeNETScoreColumn)
	raw.AppendRaw("GENE1", "Leukemia", "Neoplastic Process (T191)", "0.2")
	out, err := sources.NewDisGeNET(v.DisGeNET, sources.WithPsychiatricOnly(true)).Merge(context.Background(), raw, ix)
	require.NoError(t, err)

	base := tables.New("genes", "symbol")
	base.AppendRaw("GENE1")
	base.AppendRaw("GENE2")

	rec, err := reconciler.New()
	require.NoError(t, err)
	res, err := rec.Reconcile(context.Background(), reconciler.Input{
		Base: base, KeyColumn: "symbol", Kind: types.EntityGene,
		Attachments: []reconciler.Attachment{{Output: out}},
	})
	require.NoError(t, err)

	cov := gaps.Coverage(res)
	require.Equal(t, 2, cov.Len())
	assert.Equal(t, "empty", cov.Row(0).String(gaps.ColState))
	assert.Equal(t, "0", cov.Row(0).String(gaps.ColCount))
	assert.Equal(t, "absent", cov.Row(1).String(gaps.ColState))
	_, hasCount := cov.Row(1).Get(gaps.ColCount)
	assert.False(t, hasCount)
}
