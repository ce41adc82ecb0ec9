// Package genemap annotates genes and CpG probes with evidence from the GWAS
// Catalog, Harmonizome, PubMed, DisGeNET and EWAS Atlas.
//
// A run has two phases. The gene phase joins gene-keyed evidence onto a gene
// table. The CpG phase expands a CpG annotation to one row per (probe, gene),
// joins EWAS Atlas evidence by probe and gene evidence by mapped gene, and
// keeps every listed probe even when it maps to no gene. Each phase ends with
// a gap analysis of the labels it could not attach.
package genemap

import (
	"context"
	"slices"

	"github.com/agentstation/genemap/pkg/constants"
	"github.com/agentstation/genemap/pkg/errors"
	"github.com/agentstation/genemap/pkg/gaps"
	"github.com/agentstation/genemap/pkg/logging"
	"github.com/agentstation/genemap/pkg/provenance"
	"github.com/agentstation/genemap/pkg/reconciler"
	"github.com/agentstation/genemap/pkg/sources"
	"github.com/agentstation/genemap/pkg/synonym"
	"github.com/agentstation/genemap/pkg/tables"
	"github.com/agentstation/genemap/pkg/types"
	"github.com/agentstation/genemap/pkg/vocab"
)

// Phase names.
const (
	PhaseGenes = "genes"
	PhaseCpGs  = "cpgs"
)

// Genemap runs evidence reconciliation over already-fetched tables
type Genemap interface {
	// Mergers returns the configured source mergers in column order
	Mergers() []sources.Merger

	// Merge builds the synonym index and merges every source with a table
	Merge(ctx context.Context, in *Inputs) (*Merged, error)

	// Annotate runs the gene phase
	Annotate(ctx context.Context, m *Merged) (*Phase, error)

	// Augment runs the CpG phase
	Augment(ctx context.Context, m *Merged) (*Phase, error)

	// Run merges and runs every phase the inputs allow
	Run(ctx context.Context, in *Inputs) (*Report, error)

	// OnSourceMerged registers a callback for merged sources
	OnSourceMerged(SourceMergedHook)

	// OnPhaseComplete registers a callback for finished phases
	OnPhaseComplete(PhaseCompleteHook)
}

// Inputs are the tables of one run.
type Inputs struct {
	// Genes is the canonical gene table with symbol and synonyms columns.
	Genes *tables.Table
	// CpGAnnotation maps probes to a comma-separated gene list.
	CpGAnnotation *tables.Table
	// CpGList is the probe list driving the CpG phase. Without it the
	// annotation rows drive.
	CpGList []string
	// Sources are raw source tables by merger name.
	Sources map[string]*tables.Table
	// Stamps describe the source tables by merger name.
	Stamps map[string]provenance.Stamp
}

// Merged is the merged evidence of one run.
type Merged struct {
	Index   *synonym.Index
	Outputs []*sources.Output

	genes   *tables.Table
	cpgs    *tables.Table
	cpgList []string
}

// Output returns the output of the named merger.
func (m *Merged) Output(name string) (*sources.Output, bool) {
	for _, out := range m.Outputs {
		if out.Name == name {
			return out, true
		}
	}
	return nil, false
}

func (m *Merged) outputs(kind types.EntityKind) []*sources.Output {
	var out []*sources.Output
	for _, o := range m.Outputs {
		if o.Kind == kind {
			out = append(out, o)
		}
	}
	return out
}

// Phase is the outcome of one reconciliation phase.
type Phase struct {
	Name     string
	Result   *reconciler.Result
	Gaps     *gaps.Report
	Coverage *tables.Table
}

// Tables returns every table the phase produces: records, coverage, the two
// gap tables and the per-entity gap summary.
func (p *Phase) Tables() []*tables.Table {
	established, unestablished := p.Gaps.Tables()
	return []*tables.Table{
		p.Result.Table(p.Name),
		p.Coverage,
		established,
		unestablished,
		p.Gaps.SummaryTable(),
	}
}

// Report holds the phases of a run. A phase the inputs did not allow is nil.
type Report struct {
	Merged *Merged
	Genes  *Phase
	CpGs   *Phase
}

// Phases returns the phases that ran, gene phase first.
func (r *Report) Phases() []*Phase {
	var out []*Phase
	for _, p := range []*Phase{r.Genes, r.CpGs} {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// genemap is the default implementation of Genemap
type genemap struct {
	config     *config
	sources    *sources.Sources
	reconciler reconciler.Reconciler
	hooks      *hooks
}

// New creates a Genemap with the given options
func New(opts ...Option) (Genemap, error) {
	c := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			return nil, errors.NewValidationError("option", nil, "cannot be nil")
		}
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.vocabulary == nil {
		v, err := vocab.Default()
		if err != nil {
			return nil, errors.NewConfigError("vocab", "cannot load embedded vocabularies", err)
		}
		c.vocabulary = v
	}

	r, err := reconciler.New(
		reconciler.WithJoin(c.join),
		reconciler.WithWorkers(c.workers),
		reconciler.WithProvenance(c.provenance),
		reconciler.WithNormalizer(c.normalizer),
		reconciler.WithRecorder(c.recorder),
	)
	if err != nil {
		return nil, err
	}

	return &genemap{
		config:     c,
		sources:    sources.NewSources(newMergers(c)...),
		reconciler: r,
		hooks:      newHooks(),
	}, nil
}

func newMergers(c *config) []sources.Merger {
	v := c.vocabulary
	common := []sources.Option{
		sources.WithGeneSeparators(c.geneSeparators),
		sources.WithLabelSeparators(c.labelSeparators),
	}
	psych := append(slices.Clone(common), sources.WithPsychiatricOnly(true))

	mergers := []sources.Merger{
		sources.NewGWAS(v.GWAS, common...),
		sources.NewHarmonizome(v.Harmonizome, common...),
		sources.NewPubMed(v.PubMed, common...),
		sources.NewDisGeNET(v.DisGeNET, common...),
		sources.NewEWAS(v.EWASAtlas, common...),
	}
	if c.psychiatricOnly {
		mergers = append(mergers, sources.NewDisGeNET(v.DisGeNET, psych...))
	}
	return mergers
}

func (g *genemap) Mergers() []sources.Merger {
	return g.sources.List()
}

func (g *genemap) OnSourceMerged(fn SourceMergedHook) {
	g.hooks.OnSourceMerged(fn)
}

func (g *genemap) OnPhaseComplete(fn PhaseCompleteHook) {
	g.hooks.OnPhaseComplete(fn)
}

// Merge builds the synonym index from the gene table and merges every
// source that has a table. Sources without a table are not attached.
func (g *genemap) Merge(ctx context.Context, in *Inputs) (*Merged, error) {
	if in == nil || in.Genes == nil {
		return nil, errors.NewValidationError("genes", nil, "a gene table is required")
	}
	ctx = logging.WithOperation(ctx, "merge")
	logger := logging.FromContext(ctx)

	ix, err := synonym.FromTable(in.Genes, g.config.symbolColumn, g.config.synonymsColumn, g.config.normalizer)
	if err != nil {
		return nil, errors.NewConfigError("genes", "cannot build synonym index", err)
	}
	logger.Info().Int("genes", ix.Len()).Msg("Built synonym index")

	var mergers []sources.Merger
	for _, m := range g.Mergers() {
		if t := in.Sources[m.Name()]; t != nil {
			mergers = append(mergers, m)
			continue
		}
		logger.Debug().Str("source", m.Name()).Msg("No table configured")
	}

	outs, err := g.reconciler.Merge(ctx, mergers, in.Sources, ix)
	if err != nil {
		return nil, err
	}
	for _, out := range outs {
		stamp, ok := in.Stamps[out.Name]
		if !ok {
			stamp = provenance.Stamp{Source: out.Source}
		}
		out.Stamp(stamp)
	}
	g.hooks.triggerSourceMerged(outs)

	return &Merged{
		Index:   ix,
		Outputs: outs,
		genes:   in.Genes,
		cpgs:    in.CpGAnnotation,
		cpgList: in.CpGList,
	}, nil
}

// Annotate joins every gene-keyed source onto the gene table. Under a right
// or outer join the driving list is every gene some source mentions.
func (g *genemap) Annotate(ctx context.Context, m *Merged) (*Phase, error) {
	if m == nil || m.genes == nil {
		return nil, errors.NewValidationError("genes", nil, "a gene table is required")
	}
	ctx = logging.WithOperation(ctx, "annotate")

	outs := m.outputs(types.EntityGene)
	in := reconciler.Input{
		Base:      m.genes,
		KeyColumn: g.config.symbolColumn,
		Kind:      types.EntityGene,
		Join:      g.config.join,
	}
	if g.config.join != reconciler.JoinLeft {
		in.Keys = sourceKeys(outs)
	}
	for _, out := range outs {
		in.Attachments = append(in.Attachments, reconciler.Attachment{Output: out})
	}
	return g.phase(ctx, PhaseGenes, m, in)
}

// Augment runs the CpG phase. EWAS Atlas evidence joins on the probe and
// gene-keyed evidence on the mapped gene of each (probe, gene) row. With a
// probe list every listed probe yields at least one record.
func (g *genemap) Augment(ctx context.Context, m *Merged) (*Phase, error) {
	if m == nil || (m.cpgs == nil && len(m.cpgList) == 0) {
		return nil, errors.NewValidationError("cpg_annotation", nil, "a CpG annotation or probe list is required")
	}
	ctx = logging.WithOperation(ctx, "augment")

	in := reconciler.Input{
		KeyColumn: constants.ColumnCpG,
		Kind:      types.EntityCpG,
		Join:      reconciler.JoinLeft,
	}
	if len(m.cpgList) > 0 {
		in.Join = reconciler.JoinRight
		in.Keys = m.cpgList
	}
	if m.cpgs != nil {
		base, err := tables.ExpandCpGGenes(m.cpgs, g.config.cpgGeneColumn)
		if err != nil {
			return nil, errors.NewConfigError("cpg_annotation", "cannot expand CpG gene mapping", err)
		}
		in.Base = base
	}

	for _, out := range m.outputs(types.EntityCpG) {
		in.Attachments = append(in.Attachments, reconciler.Attachment{Output: out})
	}
	if in.Base != nil {
		for _, out := range m.outputs(types.EntityGene) {
			in.Attachments = append(in.Attachments, reconciler.Attachment{Output: out, Column: constants.ColumnGene})
		}
	}
	return g.phase(ctx, PhaseCpGs, m, in)
}

func (g *genemap) phase(ctx context.Context, name string, m *Merged, in reconciler.Input) (*Phase, error) {
	res, err := g.reconciler.Reconcile(ctx, in)
	if err != nil {
		return nil, err
	}
	p := &Phase{
		Name:     name,
		Result:   res,
		Gaps:     gaps.Analyze(res.References, m.Index),
		Coverage: gaps.Coverage(res),
	}
	logging.FromContext(ctx).Info().
		Str("phase", name).
		Str("gaps", p.Gaps.String()).
		Msg(res.Summary())
	g.hooks.triggerPhaseComplete(p)
	return p, nil
}

// Run merges the inputs, runs the gene phase and, when a CpG annotation or
// probe list is given, the CpG phase.
func (g *genemap) Run(ctx context.Context, in *Inputs) (*Report, error) {
	m, err := g.Merge(ctx, in)
	if err != nil {
		return nil, err
	}
	report := &Report{Merged: m}

	if report.Genes, err = g.Annotate(ctx, m); err != nil {
		return nil, err
	}
	if m.cpgs != nil || len(m.cpgList) > 0 {
		if report.CpGs, err = g.Augment(ctx, m); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// sourceKeys returns the keys of every output, in output order.
func sourceKeys(outs []*sources.Output) []string {
	var keys []string
	for _, out := range outs {
		keys = append(keys, out.Keys()...)
	}
	return keys
}
