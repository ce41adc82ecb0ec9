package tables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/genemap/pkg/constants"
	"github.com/agentstation/genemap/pkg/errors"
)

func TestTable(t *testing.T) {
	tbl := New("genes", "symbol", "name")
	tbl.AppendRaw("BCR", "BCR activator")
	tbl.AppendRaw("RHOF", "NaN")
	tbl.Append(String("NTM"))

	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, "BCR", tbl.Row(0).String("symbol"))

	_, ok := tbl.Row(1).Get("name")
	assert.False(t, ok, "NaN is null")

	_, ok = tbl.Row(2).Get("name")
	assert.False(t, ok, "short rows are padded with nulls")

	tbl.AddColumn("extra")
	assert.Equal(t, []string{"symbol", "name", "extra"}, tbl.Columns())
	assert.False(t, tbl.Row(0).Cell("extra").Valid)

	tbl.Set(0, "extra", String("x"))
	assert.Equal(t, "x", tbl.Row(0).String("extra"))
	assert.False(t, tbl.Row(0).Cell("nope").Valid)
}

func TestRequire(t *testing.T) {
	tbl := New("gwas", "MAPPED_GENE")
	assert.NoError(t, tbl.Require("MAPPED_GENE"))

	err := tbl.Require("MAPPED_GENE", "MAPPED_TRAIT")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
	assert.Contains(t, err.Error(), "MAPPED_TRAIT")
}

func TestExpandCpGGenes(t *testing.T) {
	ann := New("annotations", "cpg", "chr", "Start_hg38", "End_hg38", "unique_gene_name")
	ann.AppendRaw("cg1", "chr1", "100", "101", "C11orf39, NTM")
	ann.AppendRaw("cg2", "chr2", "200", "201", "GENE1")
	ann.AppendRaw("cg3", "chr3", "300", "301", "NaN")

	out, err := ExpandCpGGenes(ann, "")
	require.NoError(t, err)
	require.Equal(t, 4, out.Len())

	var pairs [][2]string
	for i := 0; i < out.Len(); i++ {
		r := out.Row(i)
		pairs = append(pairs, [2]string{r.String(constants.ColumnCpG), r.String(constants.ColumnGene)})
	}
	assert.Equal(t, [][2]string{
		{"cg1", "C11orf39"},
		{"cg1", "NTM"},
		{"cg2", "GENE1"},
		{"cg3", "unmapped"},
	}, pairs)
	assert.Equal(t, "chr1", out.Row(1).String(constants.ColumnChrom))
}
