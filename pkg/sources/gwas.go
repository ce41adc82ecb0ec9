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

// GWAS Catalog association export columns.
const (
	GWASGeneColumn     = "MAPPED_GENE"
	GWASTraitColumn    = "MAPPED_TRAIT"
	GWASDiseaseColumn  = "DISEASE/TRAIT"
	GWASTraitURIColumn = "MAPPED_TRAIT_URI"
	GWASPMIDColumn     = "PUBMEDID"
	GWASStudyColumn    = "STUDY ACCESSION"
	GWASPValueColumn   = "P-VALUE"
)

// GWAS output columns.
const (
	ColGWASCount   = "gwas_assoc_count"
	ColGWASTraits  = "gwas_traits"
	ColGWASLabels  = "gwas_labels"
	ColGWASPMIDs   = "gwas_pmids"
	ColGWASURIs    = "gwas_efo_uris"
	ColGWASStudies = "gwas_study_accessions"
	ColGWASExample = "gwas_traits_example"
)

var gwasLayout = evidence.Layout{
	Fields: []evidence.Field{evidence.FieldLabel, evidence.FieldStrength, evidence.FieldReference},
}

// GWASMerger summarizes relevant GWAS Catalog associations per gene.
type GWASMerger struct {
	vocab vocab.GWAS
	opts  *options
}

// NewGWAS creates a GWAS Catalog merger.
func NewGWAS(v vocab.GWAS, opts ...Option) *GWASMerger {
	return &GWASMerger{vocab: v, opts: applyOptions(opts)}
}

func (m *GWASMerger) Name() string { return string(types.GWASCatalogID) }
func (m *GWASMerger) Source() types.SourceID { return types.GWASCatalogID }
func (m *GWASMerger) Kind() types.EntityKind { return types.EntityGene }

func (m *GWASMerger) Columns() []string {
	return []string{ColGWASCount, ColGWASTraits, ColGWASLabels, ColGWASPMIDs, ColGWASURIs, ColGWASStudies, ColGWASExample}
}

type gwasHit struct {
	item evidence.Item
}

type gwasAgg struct {
	rows    int
	hits    map[[2]string]*gwasHit // (trait, study) -> strongest p-value
	order   [][2]string
	labels  valueSet
	pmids   valueSet
	uris    valueSet
	studies valueSet
}

// Merge filters associations whose mapped trait or reported trait matches
// the keywords, explodes comma-separated mapped genes and aggregates per
// gene. One evidence line is kept per (trait, study) with the study's
// smallest p-value.
func (m *GWASMerger) Merge(ctx context.Context, raw *tables.Table, ix *synonym.Index) (*Output, error) {
	if err := requireColumns(m.Source(), raw, GWASGeneColumn, GWASTraitColumn, GWASDiseaseColumn); err != nil {
		return nil, err
	}
	c := newCollector(ctx, m.Source(), ix)
	aggs := make(map[string]*gwasAgg)

	for i := 0; i < raw.Len(); i++ {
		row := raw.Row(i)
		c.stats.Rows++

		geneCell, ok := row.Get(GWASGeneColumn)
		if !ok {
			continue
		}
		genes := normalize.Split(geneCell, m.opts.geneSeparators)
		c.reference(geneCell, genes)

		trait := row.String(GWASTraitColumn)
		disease := row.String(GWASDiseaseColumn)
		relevant := m.vocab.Keywords.Any(trait, disease)
		if relevant {
			c.stats.Relevant++
		}

		for _, g := range genes {
			key, ok := c.resolve(g)
			if !ok {
				continue
			}
			c.touch(key)
			if !relevant {
				continue
			}
			agg := aggs[key]
			if agg == nil {
				agg = &gwasAgg{
					hits:    make(map[[2]string]*gwasHit),
					labels:  valueSet{},
					pmids:   valueSet{},
					uris:    valueSet{},
					studies: valueSet{},
				}
				aggs[key] = agg
			}
			m.add(agg, row, trait, disease)
		}
	}

	return c.output(m.Name(), m.Kind(), m.Columns(), func(key string) evidence.Bundle {
		agg := aggs[key]
		if agg == nil {
			return evidence.NewBundle(m.Source(), key, evidence.StateEmpty, 0, nil, map[string]tables.Cell{
				ColGWASCount: intCell(0),
			})
		}
		items := make([]evidence.Item, len(agg.order))
		for i, k := range agg.order {
			items[i] = agg.hits[k].item
		}
		f := evidence.Format(items, gwasLayout)
		conflicts := c.conflicts(key, f)

		example := tables.Null()
		if len(f.Groups) > 0 {
			example = tables.String(f.Groups[0].Label)
		}
		return evidence.NewBundle(m.Source(), key, evidence.StatePopulated, len(f.Groups), f.Labels(), map[string]tables.Cell{
			ColGWASCount:   intCell(agg.rows),
			ColGWASTraits:  textCell(f),
			ColGWASLabels:  agg.labels.cell(),
			ColGWASPMIDs:   agg.pmids.cell(),
			ColGWASURIs:    agg.uris.cell(),
			ColGWASStudies: agg.studies.cell(),
			ColGWASExample: example,
		}).WithConflicts(conflicts)
	}), nil
}

func (m *GWASMerger) add(agg *gwasAgg, row tables.Row, trait, disease string) {
	agg.rows++
	pmid := cleanID(row.String(GWASPMIDColumn))
	study := row.String(GWASStudyColumn)
	agg.labels.add(disease)
	agg.pmids.add(pmid)
	agg.uris.add(normalize.Split(row.String(GWASTraitURIColumn), ",")...)
	agg.studies.add(study)

	label := trait
	if normalize.IsMissing(label) {
		label = disease
	}
	tag := study
	if tag == "" {
		tag = pmid
	}
	p := parseFloat(row.Get(GWASPValueColumn))

	k := [2]string{normalize.Label(label), tag}
	hit, ok := agg.hits[k]
	if !ok {
		agg.hits[k] = &gwasHit{item: evidence.Item{
			Label:     label,
			Strength:  p,
			Kind:      evidence.KindPValue,
			Reference: evidence.PMIDRef(pmid),
			Tag:       tag,
		}}
		agg.order = append(agg.order, k)
		return
	}
	if p != nil && (hit.item.Strength == nil || *p < *hit.item.Strength) {
		hit.item.Strength = p
	}
}
