package sources

import (
	"context"

	"github.com/agentstation/genemap/pkg/evidence"
	"github.com/agentstation/genemap/pkg/normalize"
	"github.com/agentstation/genemap/pkg/synonym"
	"github.com/agentstation/genemap/pkg/tables"
	"github.com/agentstation/genemap/pkg/types"
	"github.com/agentstation/genemap/pkg/vocab"
)

// PubMed article table columns, one row per (gene, article).
const (
	PubMedGeneColumn  = "gene"
	PubMedPMIDColumn  = "pmid"
	PubMedTitleColumn = "title"
	PubMedYearColumn  = "year"
	PubMedMeSHColumn  = "mesh_terms"
)

// PubMed output columns.
const (
	ColPubMedCount        = "pubmed_count"
	ColPubMedGeneticCount = "pubmed_genetic_count"
	ColPubMedPMIDs        = "pubmed_pmids"
	ColPubMedTerms        = "pubmed_terms"
	ColPubMedBrief        = "pubmed_brief"
)

// Notes attached to PubMed evidence lines.
const (
	NoteGenetic    = "Genetic"
	NoteNotGenetic = "Not Genetic"
)

var pubmedLayout = evidence.Layout{
	Fields: []evidence.Field{evidence.FieldLabel, evidence.FieldYear, evidence.FieldReference, evidence.FieldNote},
}

// PubMedMerger keeps mental-health articles per gene and flags the
// genetic ones.
type PubMedMerger struct {
	vocab vocab.PubMed
	opts  *options
}

// NewPubMed creates a PubMed merger.
func NewPubMed(v vocab.PubMed, opts ...Option) *PubMedMerger {
	return &PubMedMerger{vocab: v, opts: applyOptions(opts)}
}

func (m *PubMedMerger) Name() string { return string(types.PubMedID) }
func (m *PubMedMerger) Source() types.SourceID { return types.PubMedID }
func (m *PubMedMerger) Kind() types.EntityKind { return types.EntityGene }

func (m *PubMedMerger) Columns() []string {
	return []string{ColPubMedCount, ColPubMedGeneticCount, ColPubMedPMIDs, ColPubMedTerms, ColPubMedBrief}
}

type pubmedAgg struct {
	items   []evidence.Item
	genetic map[string]bool
	terms   valueSet
}

// Merge keeps an article when one of its MeSH headings equals a configured
// heading or its title contains a configured text term.
func (m *PubMedMerger) Merge(ctx context.Context, raw *tables.Table, ix *synonym.Index) (*Output, error) {
	if err := requireColumns(m.Source(), raw, PubMedGeneColumn, PubMedPMIDColumn, PubMedTitleColumn); err != nil {
		return nil, err
	}
	c := newCollector(ctx, m.Source(), ix)
	aggs := make(map[string]*pubmedAgg)

	for i := 0; i < raw.Len(); i++ {
		row := raw.Row(i)
		c.stats.Rows++

		gene, ok := row.Get(PubMedGeneColumn)
		if !ok {
			continue
		}
		c.reference(gene, []string{gene})
		key, ok := c.resolve(gene)
		if !ok {
			continue
		}
		c.touch(key)

		title := row.String(PubMedTitleColumn)
		mesh := normalize.Split(row.String(PubMedMeSHColumn), m.opts.labelSeparators)
		matched := m.vocab.MeSHTerms.Matches(mesh)
		matched = append(matched, m.vocab.TextTerms.Matches(title)...)
		if len(matched) == 0 {
			continue
		}
		c.stats.Relevant++

		agg := aggs[key]
		if agg == nil {
			agg = &pubmedAgg{genetic: make(map[string]bool), terms: valueSet{}}
			aggs[key] = agg
		}
		agg.terms.add(matched...)

		pmid := cleanID(row.String(PubMedPMIDColumn))
		note := NoteNotGenetic
		if m.vocab.IsGenetic(title, mesh) {
			note = NoteGenetic
			agg.genetic[pmid] = true
		}
		agg.items = append(agg.items, evidence.Item{
			Label:     title,
			Year:      parseYear(row.Get(PubMedYearColumn)),
			Reference: evidence.PMIDRef(pmid),
			Tag:       pmid,
			Note:      note,
		})
	}

	return c.output(m.Name(), m.Kind(), m.Columns(), func(key string) evidence.Bundle {
		agg := aggs[key]
		if agg == nil {
			return evidence.NewBundle(m.Source(), key, evidence.StateEmpty, 0, nil, map[string]tables.Cell{
				ColPubMedCount:        intCell(0),
				ColPubMedGeneticCount: intCell(0),
			})
		}
		f := evidence.Format(agg.items, pubmedLayout)

		pmids := valueSet{}
		for _, g := range f.Groups {
			pmids.add(g.Tag)
		}

		return evidence.NewBundle(m.Source(), key, evidence.StatePopulated, len(f.Groups), f.Labels(), map[string]tables.Cell{
			ColPubMedCount:        intCell(len(f.Groups)),
			ColPubMedGeneticCount: intCell(len(agg.genetic)),
			ColPubMedPMIDs:        pmids.cell(),
			ColPubMedTerms:        agg.terms.cell(),
			ColPubMedBrief:        textCell(f),
		})
	}), nil
}
