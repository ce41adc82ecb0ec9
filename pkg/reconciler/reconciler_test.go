package reconciler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/agentstation/genemap/pkg/errors"
	"github.com/agentstation/genemap/pkg/evidence"
	"github.com/agentstation/genemap/pkg/provenance"
	"github.com/agentstation/genemap/pkg/reconciler"
	"github.com/agentstation/genemap/pkg/sources"
	"github.com/agentstation/genemap/pkg/synonym"
	"github.com/agentstation/genemap/pkg/tables"
	"github.com/agentstation/genemap/pkg/types"
	"github.com/agentstation/genemap/pkg/vocab"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fixture holds merged outputs for a small gene and CpG panel.
type fixture struct {
	index    *synonym.Index
	genes    *tables.Table
	cpgs     *tables.Table
	disgenet *sources.Output
	gwas     *sources.Output
	ewas     *sources.Output
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	v, err := vocab.Default()
	require.NoError(t, err)

	genes := tables.New("genes", "symbol", "name", "synonyms")
	genes.AppendRaw("BCR", "BCR activator of RhoGEF and GTPase", `["BCR1", "D22S11"]`)
	genes.AppendRaw("NTM", "neurotrimin", `["HNT"]`)
	genes.AppendRaw("C11orf39", "", "")
	ix, err := synonym.FromTable(genes, "symbol", "synonyms", nil)
	require.NoError(t, err)

	dg := tables.New("disgenet", sources.DisGeNETGeneColumn, sources.DisGeNETDiseaseColumn, sources.DisGeNETClassColumn, sources.DisGeNETScoreColumn)
	dg.AppendRaw("BCR", "Bipolar Disorder", "Mental or Behavioral Dysfunction (T048)", "0.6")
	dg.AppendRaw("BCR", "Bipolar Disorder", "Mental or Behavioral Dysfunction (T048)", "0.4")
	dg.AppendRaw("NTM", "Leukemia", "Neoplastic Process (T191)", "0.2")

	gw := tables.New("gwas", sources.GWASGeneColumn, sources.GWASTraitColumn, sources.GWASDiseaseColumn, sources.GWASPValueColumn)
	gw.AppendRaw("HNT, RHOF", "schizophrenia", "Schizophrenia", "1e-12")

	cpgs := tables.New("cpg_annotation", "cpg", "chr", "unique_gene_name")
	cpgs.AppendRaw("cg07252486", "chr11", "NTM")
	cpgs.AppendRaw("cg22084806", "chr1", "")

	ew := tables.New("ewas", sources.EWASCpGColumn, sources.EWASTraitColumn, sources.EWASPMIDColumn, sources.EWASRankColumn, sources.EWASTotalColumn, sources.EWASCorrelationColumn, sources.EWASGenesColumn)
	ew.AppendRaw("cg07252486", "BMI", "123", "10", "100", "pos", "NTM")
	ew.AppendRaw("cg07252486", "Obesity", "456", "", "100", "neg", "NTM")
	ew.AppendRaw("cg00000001", "Age", "789", "5", "50", "", "AP003039.3")

	ctx := context.Background()
	f := &fixture{index: ix, genes: genes, cpgs: cpgs}
	f.disgenet, err = sources.NewDisGeNET(v.DisGeNET, sources.WithPsychiatricOnly(true)).Merge(ctx, dg, ix)
	require.NoError(t, err)
	f.gwas, err = sources.NewGWAS(v.GWAS).Merge(ctx, gw, ix)
	require.NoError(t, err)
	f.ewas, err = sources.NewEWAS(v.EWASAtlas).Merge(ctx, ew, ix)
	require.NoError(t, err)
	return f
}

func (f *fixture) geneInput() reconciler.Input {
	return reconciler.Input{
		Base:      f.genes,
		KeyColumn: "symbol",
		Kind:      types.EntityGene,
		Attachments: []reconciler.Attachment{
			{Output: f.gwas},
			{Name: "disgenet_psych", Output: f.disgenet},
		},
	}
}

func TestReconcileLeftJoin(t *testing.T) {
	f := newFixture(t)
	r, err := reconciler.New()
	require.NoError(t, err)

	res, err := r.Reconcile(context.Background(), f.geneInput())
	require.NoError(t, err)

	require.Len(t, res.Records, 3, "one record per base gene")
	assert.Equal(t, []string{"BCR", "NTM", "C11ORF39"}, []string{res.Records[0].Key, res.Records[1].Key, res.Records[2].Key})

	bcr, ok := res.Bundle(0, "disgenet_psych")
	require.True(t, ok)
	assert.Equal(t, "Bipolar Disorder, error", bcr.Cell("disgenet_psych_diseases").Value)

	ntmGWAS, _ := res.Bundle(1, string(types.GWASCatalogID))
	assert.Equal(t, evidence.StatePopulated, ntmGWAS.State, "alias HNT joined onto NTM")

	ntmDisGeNET, _ := res.Bundle(1, "disgenet_psych")
	assert.Equal(t, evidence.StateEmpty, ntmDisGeNET.State)

	c11, _ := res.Bundle(2, "disgenet_psych")
	assert.Equal(t, evidence.StateAbsent, c11.State)

	out := res.Table("genes")
	assert.Equal(t, 3, out.Len())
	assert.True(t, out.Has("gwas_traits"))
	assert.True(t, out.Has("disgenet_psych_evidence"))
	assert.Equal(t, "0", out.Row(1).String("disgenet_psych_count"), "zero qualifying associations")
	_, present := out.Row(2).Get("disgenet_psych_count")
	assert.False(t, present, "absent from source renders null")

	assert.Equal(t, reconciler.JoinLeft, res.Metadata.Join)
	assert.Equal(t, []string{"gwas_catalog", "disgenet_psych"}, res.Metadata.Sources)
	assert.NotEmpty(t, res.Metadata.RunID)
	assert.Equal(t, 1, res.Metadata.Stats.Conflicts)
	assert.Equal(t, 1, res.Metadata.Stats.Unresolved, "RHOF")
	assert.Equal(t, 3, res.Metadata.Stats.Records)
	assert.Contains(t, res.Summary(), "Left Join: 3 records")
}

func TestReconcileRightJoinKeepsEveryProbe(t *testing.T) {
	f := newFixture(t)
	mapping, err := tables.ExpandCpGGenes(f.cpgs, "unique_gene_name")
	require.NoError(t, err)

	r, err := reconciler.New(reconciler.WithJoin(reconciler.JoinRight))
	require.NoError(t, err)

	res, err := r.Reconcile(context.Background(), reconciler.Input{
		Base:      mapping,
		KeyColumn: "cpg",
		Kind:      types.EntityCpG,
		Keys:      []string{"cg07252486", "cg99999999", "cg22084806", "cg07252486"},
		Attachments: []reconciler.Attachment{
			{Output: f.ewas},
			{Output: f.gwas, Column: "gene"},
		},
	})
	require.NoError(t, err)

	require.Len(t, res.Records, 3)
	assert.Equal(t, "CG07252486", res.Records[0].Key)
	assert.Equal(t, "CG99999999", res.Records[1].Key)
	assert.Equal(t, "CG22084806", res.Records[2].Key)
	assert.Equal(t, 1, res.Metadata.Stats.Unmatched)

	out := res.Table("cpg")
	assert.Equal(t, "cg99999999", out.Row(1).String("cpg"), "probe missing from annotation survives")
	assert.Equal(t, "unmapped", out.Row(2).String("gene"))
	assert.Equal(t, "BMI, 0.100, hyper, 123;\nObesity, 0.000, hypo, 456", out.Row(0).String("ewas_atlas_traits"))
	assert.Equal(t, "schizophrenia, 1e-12, NA", out.Row(0).String("gwas_traits"), "gene evidence joined on the gene column")
	_, present := out.Row(1).Get("ewas_atlas_traits")
	assert.False(t, present)

	assert.Equal(t, 1, res.Metadata.Stats.MissingRank)
	for _, ref := range res.References {
		assert.Equal(t, types.EWASAtlasID, ref.Source, "gene-keyed references belong to the gene phase")
		assert.NotEqual(t, "CG00000001", ref.Entity, "references of probes outside the list are dropped")
	}
	assert.Equal(t, "cg99999999", res.Records[1].Label)
	assert.Equal(t, "cg07252486", res.Records[0].Label)
}

func TestReconcileCpGReferencesUseDrivingSpelling(t *testing.T) {
	f := newFixture(t)
	mapping, err := tables.ExpandCpGGenes(f.cpgs, "unique_gene_name")
	require.NoError(t, err)

	ew := tables.New("ewas", sources.EWASCpGColumn, sources.EWASTraitColumn, sources.EWASGenesColumn)
	ew.AppendRaw("CG22084806", "Age", "AP003039.3; NTM")
	v, err := vocab.Default()
	require.NoError(t, err)
	out, err := sources.NewEWAS(v.EWASAtlas).Merge(context.Background(), ew, f.index)
	require.NoError(t, err)

	r, err := reconciler.New()
	require.NoError(t, err)
	res, err := r.Reconcile(context.Background(), reconciler.Input{
		Base:      mapping,
		KeyColumn: "cpg",
		Kind:      types.EntityCpG,
		Attachments: []reconciler.Attachment{
			{Output: out},
			{Output: f.gwas, Column: "gene"},
		},
	})
	require.NoError(t, err)

	require.Len(t, res.References, 1)
	assert.Equal(t, "cg22084806", res.References[0].Entity)
	assert.Equal(t, []string{"AP003039.3", "NTM"}, res.References[0].Labels)
}

func TestReconcileDuplicateGenes(t *testing.T) {
	f := newFixture(t)
	genes := tables.New("genes", "symbol", "name")
	genes.AppendRaw("BCR", "first")
	genes.AppendRaw(" bcr", "second")
	genes.AppendRaw("NTM", "")

	r, err := reconciler.New()
	require.NoError(t, err)
	res, err := r.Reconcile(context.Background(), reconciler.Input{
		Base:        genes,
		KeyColumn:   "symbol",
		Kind:        types.EntityGene,
		Attachments: []reconciler.Attachment{{Output: f.disgenet}},
	})
	require.NoError(t, err)

	require.Len(t, res.Records, 2, "one record per gene")
	assert.Equal(t, "BCR", res.Records[0].Label)
	assert.Equal(t, "first", res.Table("genes").Row(0).String("name"))
	assert.Equal(t, 1, res.Metadata.Stats.Duplicates)
}

func TestReconcileOuterJoin(t *testing.T) {
	f := newFixture(t)
	r, err := reconciler.New()
	require.NoError(t, err)

	in := f.geneInput()
	in.Join = reconciler.JoinOuter
	in.Keys = []string{"RHOF", "bcr"}

	res, err := r.Reconcile(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, res.Records, 4)
	assert.Equal(t, "RHOF", res.Records[3].Key)
	assert.Equal(t, "RHOF", res.Table("genes").Row(3).String("symbol"))
}

func TestReconcileIdempotent(t *testing.T) {
	f := newFixture(t)

	run := func(workers int) *reconciler.Result {
		r, err := reconciler.New(reconciler.WithWorkers(workers))
		require.NoError(t, err)
		res, err := r.Reconcile(context.Background(), f.geneInput())
		require.NoError(t, err)
		return res
	}

	first := run(1)
	for _, workers := range []int{1, 4, 16} {
		again := run(workers)
		assert.Equal(t, first.Records, again.Records)
		assert.Equal(t, first.Table("genes"), again.Table("genes"))
		assert.NotEqual(t, first.Metadata.RunID, again.Metadata.RunID, "run ID stays out of the records")
	}
}

func TestReconcileProvenance(t *testing.T) {
	f := newFixture(t)
	f.disgenet.Stamp(provenance.Stamp{Source: types.DisGeNETID, Version: "24.2"})

	r, err := reconciler.New()
	require.NoError(t, err)
	res, err := r.Reconcile(context.Background(), f.geneInput())
	require.NoError(t, err)

	key := "gene:C11ORF39:disgenet_psych"
	require.Contains(t, res.Provenance, key)
	assert.Equal(t, "absent", res.Provenance[key][0].State)
	assert.Equal(t, "24.2", res.Provenance[key][0].Stamp.Version, "absent bundles keep the source stamp")

	report := provenance.GenerateReport(res.Provenance)
	require.Len(t, report.Sources, 2)

	r, err = reconciler.New(reconciler.WithProvenance(false))
	require.NoError(t, err)
	res, err = r.Reconcile(context.Background(), f.geneInput())
	require.NoError(t, err)
	assert.Empty(t, res.Provenance)
}

func TestReconcileValidation(t *testing.T) {
	f := newFixture(t)
	r, err := reconciler.New()
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name  string
		input func() reconciler.Input
	}{
		{"unknown join", func() reconciler.Input { in := f.geneInput(); in.Join = "sideways"; return in }},
		{"missing key column", func() reconciler.Input { in := f.geneInput(); in.KeyColumn = "hgnc_id"; return in }},
		{"empty key column", func() reconciler.Input { in := f.geneInput(); in.KeyColumn = ""; return in }},
		{"left join without base", func() reconciler.Input { in := f.geneInput(); in.Base = nil; return in }},
		{"nil output", func() reconciler.Input {
			in := f.geneInput()
			in.Attachments = append(in.Attachments, reconciler.Attachment{})
			return in
		}},
		{"unknown attachment column", func() reconciler.Input {
			in := f.geneInput()
			in.Attachments[0].Column = "ensembl"
			return in
		}},
		{"duplicate attachment", func() reconciler.Input {
			in := f.geneInput()
			in.Attachments = append(in.Attachments, reconciler.Attachment{Output: f.gwas})
			return in
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Reconcile(ctx, tt.input())
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err), "got %v", err)
		})
	}
}

func TestOptions(t *testing.T) {
	_, err := reconciler.New(reconciler.WithWorkers(0))
	assert.Error(t, err)
	_, err = reconciler.New(reconciler.WithJoin("inner"))
	assert.Error(t, err)
	_, err = reconciler.New(reconciler.WithNormalizer(nil))
	assert.Error(t, err)
	_, err = reconciler.New(nil)
	assert.Error(t, err)
}

func TestReconcileCanceled(t *testing.T) {
	f := newFixture(t)
	r, err := reconciler.New()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Reconcile(ctx, f.geneInput())
	require.Error(t, err)
	assert.True(t, errors.IsCanceled(err))
}

func TestMerge(t *testing.T) {
	f := newFixture(t)
	v, err := vocab.Default()
	require.NoError(t, err)

	raw := map[string]*tables.Table{
		"disgenet": func() *tables.Table {
			dg := tables.New("disgenet", sources.DisGeNETGeneColumn, sources.DisGeNETDiseaseColumn, sources.DisGeNETScoreColumn)
			dg.AppendRaw("BCR", "Schizophrenia", "0.3")
			return dg
		}(),
		"ewas_atlas": tables.New("ewas", sources.EWASCpGColumn, sources.EWASTraitColumn),
	}
	mergers := sources.NewSources(
		sources.NewGWAS(v.GWAS),
		sources.NewDisGeNET(v.DisGeNET),
		sources.NewEWAS(v.EWASAtlas),
	).List()

	r, err := reconciler.New(reconciler.WithWorkers(2))
	require.NoError(t, err)
	outs, err := r.Merge(context.Background(), mergers, raw, f.index)
	require.NoError(t, err)

	require.Len(t, outs, 2, "gwas has no table and is skipped")
	assert.Equal(t, types.DisGeNETID, outs[0].Source)
	assert.Equal(t, types.EWASAtlasID, outs[1].Source)
	assert.Equal(t, "Schizophrenia, 0.3", outs[0].Bundle("BCR").Cell("disgenet_diseases").Value)

	raw["gwas_catalog"] = tables.New("gwas", sources.GWASGeneColumn)
	_, err = r.Merge(context.Background(), mergers, raw, f.index)
	assert.Error(t, err, "missing required columns fail the merge")
}
