package sources

import (
	"context"
	"strings"

	"github.com/agentstation/genemap/pkg/constants"
	"github.com/agentstation/genemap/pkg/errors"
	"github.com/agentstation/genemap/pkg/evidence"
	"github.com/agentstation/genemap/pkg/normalize"
	"github.com/agentstation/genemap/pkg/synonym"
	"github.com/agentstation/genemap/pkg/tables"
	"github.com/agentstation/genemap/pkg/types"
	"github.com/agentstation/genemap/pkg/vocab"
)

// EWAS Atlas probe association columns.
const (
	EWASCpGColumn         = "cpg"
	EWASTraitColumn       = "trait"
	EWASPMIDColumn        = "pmid"
	EWASRankColumn        = "rank"
	EWASTotalColumn       = "total_associations"
	EWASCorrelationColumn = "correlation"
	EWASGenesColumn       = "genes"
)

// EWAS Atlas output columns.
const (
	ColEWASCount  = "ewas_atlas_count"
	ColEWASTraits = "ewas_atlas_traits"
)

// EWASMerger attaches EWAS Atlas traits to CpG probes. The strength of a
// trait is its rank within the study, rank/total, rendered with three
// decimals.
type EWASMerger struct {
	layout evidence.Layout
	opts   *options
}

// NewEWAS creates an EWAS Atlas merger.
func NewEWAS(v vocab.EWASAtlas, opts ...Option) *EWASMerger {
	return &EWASMerger{
		layout: evidence.Layout{
			Fields:   []evidence.Field{evidence.FieldLabel, evidence.FieldStrength, evidence.FieldPolarity, evidence.FieldReference},
			Polarity: v.Polarity,
		},
		opts: applyOptions(opts),
	}
}

func (m *EWASMerger) Name() string { return string(types.EWASAtlasID) }
func (m *EWASMerger) Source() types.SourceID { return types.EWASAtlasID }
func (m *EWASMerger) Kind() types.EntityKind { return types.EntityCpG }

func (m *EWASMerger) Columns() []string {
	return []string{ColEWASCount, ColEWASTraits}
}

// Merge keys rows by normalized probe ID; probes are not resolved through
// the synonym index. The index is only used to pick gene labels in the
// genes column worth handing to gap analysis, and may be nil.
func (m *EWASMerger) Merge(ctx context.Context, raw *tables.Table, ix *synonym.Index) (*Output, error) {
	if err := requireColumns(m.Source(), raw, EWASCpGColumn, EWASTraitColumn); err != nil {
		return nil, err
	}
	c := newCollector(ctx, m.Source(), ix)
	items := make(map[string][]evidence.Item)
	referenced := make(map[string]struct{})

	for i := 0; i < raw.Len(); i++ {
		row := raw.Row(i)
		c.stats.Rows++

		cpg, ok := row.Get(EWASCpGColumn)
		key := normalize.Key(cpg)
		if !ok || key == "" {
			continue
		}
		c.touch(key)
		if _, done := referenced[key]; !done {
			if genes := m.genes(row); len(genes) > 0 {
				referenced[key] = struct{}{}
				c.reference(key, genes)
			}
		}

		trait, ok := row.Get(EWASTraitColumn)
		if !ok {
			continue
		}
		c.stats.Relevant++
		items[key] = append(items[key], m.item(c, row, key, trait))
	}

	return c.output(m.Name(), m.Kind(), m.Columns(), func(key string) evidence.Bundle {
		list := items[key]
		if len(list) == 0 {
			return evidence.NewBundle(m.Source(), key, evidence.StateEmpty, 0, nil, map[string]tables.Cell{
				ColEWASCount: intCell(0),
			})
		}
		f := evidence.Format(list, m.layout)
		conflicts := c.conflicts(key, f)
		return evidence.NewBundle(m.Source(), key, evidence.StatePopulated, len(f.Groups), f.Labels(), map[string]tables.Cell{
			ColEWASCount:  intCell(len(f.Groups)),
			ColEWASTraits: textCell(f),
		}).WithConflicts(conflicts)
	}), nil
}

func (m *EWASMerger) item(c *collector, row tables.Row, key, trait string) evidence.Item {
	pmid := cleanID(row.String(EWASPMIDColumn))
	corr := row.String(EWASCorrelationColumn)
	return evidence.Item{
		Label:       trait,
		Strength:    m.rankScore(c, row, key, trait),
		Kind:        evidence.KindRank,
		Polarity:    evidence.ParsePolarity(corr),
		PolarityRaw: corr,
		Reference:   evidence.PMIDRef(pmid),
		Tag:         pmid,
	}
}

// rankScore is rank/total when both are present and total is positive.
// Otherwise the score defaults to zero and a MissingRankContext issue is
// recorded.
func (m *EWASMerger) rankScore(c *collector, row tables.Row, key, trait string) *float64 {
	rank := parseFloat(row.Get(EWASRankColumn))
	total := parseFloat(row.Get(EWASTotalColumn))

	var missing []string
	if rank == nil {
		missing = append(missing, EWASRankColumn)
	}
	if total == nil || *total <= 0 {
		missing = append(missing, EWASTotalColumn)
	}
	if len(missing) > 0 {
		c.issues = append(c.issues, errors.NewRankContextError(string(m.Source()), key, trait, strings.Join(missing, ",")))
		c.log.Debug().Str("cpg", key).Str("trait", trait).Strs("missing", missing).Msg("Rank score defaulted")
		return evidence.Float(0)
	}
	return evidence.Float(*rank / *total)
}

func (m *EWASMerger) genes(row tables.Row) []string {
	var out []string
	for _, g := range normalize.Split(row.String(EWASGenesColumn), m.opts.labelSeparators) {
		if !strings.EqualFold(g, constants.UnmappedGene) {
			out = append(out, g)
		}
	}
	return out
}
