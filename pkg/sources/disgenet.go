package sources

import (
	"context"
	"strings"

	"github.com/agentstation/genemap/pkg/evidence"
	"github.com/agentstation/genemap/pkg/normalize"
	"github.com/agentstation/genemap/pkg/synonym"
	"github.com/agentstation/genemap/pkg/tables"
	"github.com/agentstation/genemap/pkg/types"
	"github.com/agentstation/genemap/pkg/vocab"
)

// DisGeNET gene-evidence-association export columns.
const (
	DisGeNETGeneColumn      = "gene_symbol"
	DisGeNETDiseaseColumn   = "disease_name"
	DisGeNETClassColumn     = "diseaseClasses_UMLS_ST"
	DisGeNETScoreColumn     = "score"
	DisGeNETPolarityColumn  = "polarity"
	DisGeNETYearColumn      = "pmYear"
	DisGeNETRefTypeColumn   = "reference_type"
	DisGeNETRefColumn       = "reference"
	DisGeNETSourceColumn    = "source"
	DisGeNETAssocTypeColumn = "associationType"
)

// DisGeNET merger names; the psychiatric merger prefixes its columns with
// its own name so both modes can run in one pass.
const (
	DisGeNETName            = "disgenet"
	DisGeNETPsychiatricName = "disgenet_psych"
)

// disgenetTag groups every DisGeNET row of a disease together, so rows that
// disagree on the composite score surface as a conflict.
const disgenetTag = "disgenet"

var disgenetLayout = evidence.Layout{
	Fields: []evidence.Field{evidence.FieldLabel, evidence.FieldStrength},
}

// DisGeNETMerger aggregates DisGeNET gene-disease evidence per gene. The
// composite score is consistency checked: duplicate rows of a disease with
// different scores render "error".
type DisGeNETMerger struct {
	vocab    vocab.DisGeNET
	opts     *options
	evidence evidence.Layout
}

// NewDisGeNET creates a DisGeNET merger. WithPsychiatricOnly restricts rows
// to the configured disease classes.
func NewDisGeNET(v vocab.DisGeNET, opts ...Option) *DisGeNETMerger {
	return &DisGeNETMerger{
		vocab: v,
		opts:  applyOptions(opts),
		evidence: evidence.Layout{
			Fields:   []evidence.Field{evidence.FieldLabel, evidence.FieldPolarity, evidence.FieldYear, evidence.FieldReference},
			Detail:   true,
			Polarity: v.Polarity,
		},
	}
}

func (m *DisGeNETMerger) Name() string {
	if m.opts.psychiatricOnly {
		return DisGeNETPsychiatricName
	}
	return DisGeNETName
}

func (m *DisGeNETMerger) Source() types.SourceID { return types.DisGeNETID }
func (m *DisGeNETMerger) Kind() types.EntityKind { return types.EntityGene }

// Column names for this mode.
func (m *DisGeNETMerger) CountColumn() string    { return m.Name() + "_count" }
func (m *DisGeNETMerger) DiseasesColumn() string { return m.Name() + "_diseases" }
func (m *DisGeNETMerger) EvidenceColumn() string { return m.Name() + "_evidence" }

func (m *DisGeNETMerger) Columns() []string {
	return []string{m.CountColumn(), m.DiseasesColumn(), m.EvidenceColumn()}
}

// Merge groups rows by (gene, disease). A missing class column disables the
// psychiatric filter with a warning rather than dropping every row.
func (m *DisGeNETMerger) Merge(ctx context.Context, raw *tables.Table, ix *synonym.Index) (*Output, error) {
	if err := requireColumns(m.Source(), raw, DisGeNETGeneColumn, DisGeNETDiseaseColumn, DisGeNETScoreColumn); err != nil {
		return nil, err
	}
	c := newCollector(ctx, m.Source(), ix)
	filter := m.opts.psychiatricOnly
	if filter && !raw.Has(DisGeNETClassColumn) {
		c.log.Warn().Str("column", DisGeNETClassColumn).Msg("Disease class column missing, psychiatric filter disabled")
		filter = false
	}
	items := make(map[string][]evidence.Item)

	for i := 0; i < raw.Len(); i++ {
		row := raw.Row(i)
		c.stats.Rows++

		gene, ok := row.Get(DisGeNETGeneColumn)
		if !ok {
			continue
		}
		c.reference(gene, []string{gene})
		key, ok := c.resolve(gene)
		if !ok {
			continue
		}
		c.touch(key)

		disease, ok := row.Get(DisGeNETDiseaseColumn)
		if !ok || (filter && !m.psychiatric(row.String(DisGeNETClassColumn))) {
			continue
		}
		c.stats.Relevant++
		items[key] = append(items[key], m.item(row, disease))
	}

	return c.output(m.Name(), m.Kind(), m.Columns(), func(key string) evidence.Bundle {
		list := items[key]
		if len(list) == 0 {
			return evidence.NewBundle(m.Source(), key, evidence.StateEmpty, 0, nil, map[string]tables.Cell{
				m.CountColumn(): intCell(0),
			})
		}
		diseases := evidence.Format(list, disgenetLayout)
		conflicts := c.conflicts(key, diseases)
		detail := evidence.Format(list, m.evidence)

		return evidence.NewBundle(m.Source(), key, evidence.StatePopulated, len(diseases.Groups), diseases.Labels(), map[string]tables.Cell{
			m.CountColumn():    intCell(len(diseases.Groups)),
			m.DiseasesColumn(): textCell(diseases),
			m.EvidenceColumn(): textCell(detail),
		}).WithConflicts(conflicts)
	}), nil
}

func (m *DisGeNETMerger) psychiatric(classes string) bool {
	for _, class := range normalize.Split(classes, ";") {
		if m.vocab.PsychiatricClasses.Contains(class) {
			return true
		}
	}
	return false
}

func (m *DisGeNETMerger) item(row tables.Row, disease string) evidence.Item {
	pol := row.String(DisGeNETPolarityColumn)
	return evidence.Item{
		Label:       disease,
		Strength:    parseFloat(row.Get(DisGeNETScoreColumn)),
		Kind:        evidence.KindScore,
		Polarity:    evidence.ParsePolarity(pol),
		PolarityRaw: pol,
		Year:        parseYear(row.Get(DisGeNETYearColumn)),
		Reference:   disgenetReference(row),
		Tag:         disgenetTag,
	}
}

func disgenetReference(row tables.Row) evidence.Reference {
	value := row.String(DisGeNETRefColumn)
	if strings.EqualFold(strings.TrimSpace(row.String(DisGeNETRefTypeColumn)), "PMID") {
		return evidence.PMIDRef(cleanID(value))
	}
	if normalize.IsMissing(value) {
		value = ""
	}
	return evidence.Reference{
		Value:  value,
		Source: row.String(DisGeNETSourceColumn),
		Type:   row.String(DisGeNETAssocTypeColumn),
	}
}
