package synonym

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/genemap/pkg/tables"
)

func testIndex() *Index {
	ix := NewIndex(nil)
	ix.Add("GENE1", "ALIAS1", "SHARED")
	ix.Add("GENE2", "ALIAS2", "shared")
	ix.Add("RHOF", "ARHF")
	return ix
}

func TestResolve(t *testing.T) {
	ix := testIndex()

	assert.Equal(t, Canonical, ix.Resolve("gene1", "GENE1"))
	assert.Equal(t, Synonym, ix.Resolve(" alias1", "GENE1"))
	assert.Equal(t, Unknown, ix.Resolve("ALIAS2", "GENE1"))
	assert.Equal(t, Unknown, ix.Resolve("NEWGENE", "GENE1"))
	assert.Equal(t, Unknown, ix.Resolve("", ""))
}

func TestLookup(t *testing.T) {
	ix := testIndex()

	t.Run("canonical", func(t *testing.T) {
		m := ix.Lookup("Gene:gene2")
		assert.Equal(t, Canonical, m.Status)
		assert.Equal(t, "GENE2", m.Key)
	})

	t.Run("unique synonym", func(t *testing.T) {
		m := ix.Lookup("ALIAS1")
		assert.Equal(t, Synonym, m.Status)
		assert.Equal(t, "GENE1", m.Key)
		assert.True(t, m.Resolved())
		assert.False(t, m.Ambiguous())
	})

	t.Run("ambiguous synonym is never attached", func(t *testing.T) {
		m := ix.Lookup("SHARED")
		assert.Equal(t, Synonym, m.Status)
		assert.True(t, m.Ambiguous())
		assert.False(t, m.Resolved())
		assert.Equal(t, []string{"GENE1", "GENE2"}, m.Candidates)
	})

	t.Run("unknown", func(t *testing.T) {
		m := ix.Lookup("AP003039.3")
		assert.Equal(t, Unknown, m.Status)
		assert.False(t, m.Resolved())
	})
}

func TestCanonicalWinsOverAlias(t *testing.T) {
	ix := NewIndex(nil)
	ix.Add("ABC", "XYZ")
	ix.Add("XYZ")

	m := ix.Lookup("xyz")
	assert.Equal(t, Canonical, m.Status)
	assert.Equal(t, "XYZ", m.Key)
}

func TestParseAliases(t *testing.T) {
	tests := []struct {
		cell string
		want []string
	}{
		{`["ALIAS1", "ALIAS2"]`, []string{"ALIAS1", "ALIAS2"}},
		{`['ARHF', 'RIF']`, []string{"ARHF", "RIF"}},
		{"ARHF; RIF", []string{"ARHF", "RIF"}},
		{"ARHF|RIF", []string{"ARHF", "RIF"}},
		{"[]", nil},
		{"NaN", nil},
	}
	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAliases(tt.cell))
		})
	}
}

func TestFromTable(t *testing.T) {
	tbl := tables.New("living", "symbol", "synonyms")
	tbl.AppendRaw("GENE1", `["ALIAS1"]`)
	tbl.AppendRaw("GENE2", "NaN")
	tbl.AppendRaw("NaN", "ORPHAN")

	ix, err := FromTable(tbl, "", "synonyms", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, ix.Len())
	assert.Equal(t, []string{"GENE1", "GENE2"}, ix.Keys())
	assert.Equal(t, Synonym, ix.Lookup("alias1").Status)

	_, err = FromTable(tbl, "gene_symbol", "", nil)
	assert.Error(t, err)
}
