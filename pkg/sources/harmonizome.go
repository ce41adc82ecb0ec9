package sources

import (
	"context"

	"github.com/agentstation/genemap/pkg/evidence"
	"github.com/agentstation/genemap/pkg/synonym"
	"github.com/agentstation/genemap/pkg/tables"
	"github.com/agentstation/genemap/pkg/types"
	"github.com/agentstation/genemap/pkg/vocab"
)

// Harmonizome gene-attribute table columns.
const (
	HarmonizomeGeneColumn      = "gene"
	HarmonizomeAttributeColumn = "attribute"
	HarmonizomeDatasetColumn   = "dataset"
)

// Harmonizome output columns.
const (
	ColHarmonizomeCount    = "harmonizome_count"
	ColHarmonizomeTerms    = "harmonizome_terms"
	ColHarmonizomeDatasets = "harmonizome_datasets"
)

var harmonizomeLayout = evidence.Layout{
	Fields: []evidence.Field{evidence.FieldLabel},
}

// HarmonizomeMerger collects relevant disease terms per gene from the
// allow-listed Harmonizome datasets. Harmonizome values carry no strength,
// so terms are ordered alphabetically.
type HarmonizomeMerger struct {
	vocab vocab.Harmonizome
	opts  *options
}

// NewHarmonizome creates a Harmonizome merger.
func NewHarmonizome(v vocab.Harmonizome, opts ...Option) *HarmonizomeMerger {
	return &HarmonizomeMerger{vocab: v, opts: applyOptions(opts)}
}

func (m *HarmonizomeMerger) Name() string { return string(types.HarmonizomeID) }
func (m *HarmonizomeMerger) Source() types.SourceID { return types.HarmonizomeID }
func (m *HarmonizomeMerger) Kind() types.EntityKind { return types.EntityGene }

func (m *HarmonizomeMerger) Columns() []string {
	return []string{ColHarmonizomeCount, ColHarmonizomeTerms, ColHarmonizomeDatasets}
}

type harmonizomeAgg struct {
	items    []evidence.Item
	datasets valueSet
}

// Merge keeps rows from allow-listed datasets whose attribute matches the
// keywords. An empty dataset allow-list admits every dataset.
func (m *HarmonizomeMerger) Merge(ctx context.Context, raw *tables.Table, ix *synonym.Index) (*Output, error) {
	if err := requireColumns(m.Source(), raw, HarmonizomeGeneColumn, HarmonizomeAttributeColumn, HarmonizomeDatasetColumn); err != nil {
		return nil, err
	}
	c := newCollector(ctx, m.Source(), ix)
	aggs := make(map[string]*harmonizomeAgg)

	for i := 0; i < raw.Len(); i++ {
		row := raw.Row(i)
		c.stats.Rows++

		gene, ok := row.Get(HarmonizomeGeneColumn)
		if !ok {
			continue
		}
		c.reference(gene, []string{gene})
		key, ok := c.resolve(gene)
		if !ok {
			continue
		}
		c.touch(key)

		attr, ok := row.Get(HarmonizomeAttributeColumn)
		dataset := row.String(HarmonizomeDatasetColumn)
		if !ok || !m.admits(dataset) || !m.vocab.Keywords.Any(attr) {
			continue
		}
		c.stats.Relevant++

		agg := aggs[key]
		if agg == nil {
			agg = &harmonizomeAgg{datasets: valueSet{}}
			aggs[key] = agg
		}
		agg.items = append(agg.items, evidence.Item{Label: attr, Tag: string(m.Source())})
		agg.datasets.add(dataset)
	}

	return c.output(m.Name(), m.Kind(), m.Columns(), func(key string) evidence.Bundle {
		agg := aggs[key]
		if agg == nil {
			return evidence.NewBundle(m.Source(), key, evidence.StateEmpty, 0, nil, map[string]tables.Cell{
				ColHarmonizomeCount: intCell(0),
			})
		}
		f := evidence.Format(agg.items, harmonizomeLayout)
		return evidence.NewBundle(m.Source(), key, evidence.StatePopulated, len(f.Groups), f.Labels(), map[string]tables.Cell{
			ColHarmonizomeCount:    intCell(len(f.Groups)),
			ColHarmonizomeTerms:    textCell(f),
			ColHarmonizomeDatasets: agg.datasets.cell(),
		})
	}), nil
}

func (m *HarmonizomeMerger) admits(dataset string) bool {
	return len(m.vocab.Datasets) == 0 || m.vocab.Datasets.Contains(dataset)
}
