package tables

import (
	"github.com/agentstation/genemap/pkg/constants"
	"github.com/agentstation/genemap/pkg/normalize"
)

// ExpandCpGGenes turns a CpG annotation table whose gene column holds a
// comma-separated list into one row per (cpg, gene). CpGs without any gene
// annotation keep a single row with gene "unmapped", so no probe is lost.
func ExpandCpGGenes(annotations *Table, geneColumn string) (*Table, error) {
	if geneColumn == "" {
		geneColumn = constants.ColumnGeneList
	}
	if err := annotations.Require(constants.ColumnCpG, geneColumn); err != nil {
		return nil, err
	}

	out := New("cpg_gene_mapping",
		constants.ColumnCpG, constants.ColumnChrom, constants.ColumnStart, constants.ColumnEnd, constants.ColumnGene)

	for i := 0; i < annotations.Len(); i++ {
		row := annotations.Row(i)
		base := map[string]Cell{
			constants.ColumnCpG:   row.Cell(constants.ColumnCpG),
			constants.ColumnChrom: row.Cell(constants.ColumnChrom),
			constants.ColumnStart: row.Cell(constants.ColumnStart),
			constants.ColumnEnd:   row.Cell(constants.ColumnEnd),
		}

		var genes []string
		if raw, ok := row.Get(geneColumn); ok {
			for _, g := range normalize.Split(raw, ",") {
				if !normalize.IsMissing(g) {
					genes = append(genes, g)
				}
			}
		}
		if len(genes) == 0 {
			genes = []string{constants.UnmappedGene}
		}

		for _, g := range genes {
			values := make(map[string]Cell, len(base)+1)
			for k, v := range base {
				values[k] = v
			}
			values[constants.ColumnGene] = String(g)
			out.AppendMap(values)
		}
	}
	return out, nil
}
