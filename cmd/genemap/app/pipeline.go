package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentstation/genemap"
	"github.com/agentstation/genemap/internal/metrics"
	"github.com/agentstation/genemap/internal/tableio"
	"github.com/agentstation/genemap/pkg/constants"
	"github.com/agentstation/genemap/pkg/errors"
	"github.com/agentstation/genemap/pkg/logging"
	"github.com/agentstation/genemap/pkg/provenance"
	"github.com/agentstation/genemap/pkg/reconciler"
	"github.com/agentstation/genemap/pkg/sources"
	"github.com/agentstation/genemap/pkg/tables"
	"github.com/agentstation/genemap/pkg/types"
	"github.com/agentstation/genemap/pkg/vocab"
)

// pipeline is one configured run.
type pipeline struct {
	genemap genemap.Genemap
	metrics *metrics.ReconcileMetrics
}

// newPipeline validates the configuration and builds a Genemap from it.
func (a *App) newPipeline() (*pipeline, error) {
	cfg := a.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	join, err := reconciler.ParseJoinPolicy(cfg.Join)
	if err != nil {
		return nil, err
	}
	m, err := metrics.New()
	if err != nil {
		return nil, err
	}

	opts := []genemap.Option{
		genemap.WithJoin(join),
		genemap.WithWorkers(cfg.Workers),
		genemap.WithPsychiatricOnly(cfg.PsychiatricOnly),
		genemap.WithProvenance(cfg.Provenance),
		genemap.WithSeparators(cfg.GeneSeparators, cfg.LabelSeparators),
		genemap.WithGeneColumns(cfg.Inputs.SymbolColumn, cfg.Inputs.SynonymsColumn),
		genemap.WithCpGGeneColumn(cfg.Inputs.CpGGeneColumn),
		genemap.WithRecorder(m),
	}
	if cfg.Vocab != "" {
		v, err := vocab.Load(cfg.Vocab)
		if err != nil {
			return nil, err
		}
		opts = append(opts, genemap.WithVocabulary(v))
	}

	g, err := genemap.New(opts...)
	if err != nil {
		return nil, err
	}
	g.OnSourceMerged(func(out *sources.Output) {
		a.logger.Info().
			Str("source", out.Name).
			Int("rows", out.Stats.Rows).
			Int("relevant", out.Stats.Relevant).
			Int("entities", len(out.Bundles)).
			Msg("Merged source")
	})

	return &pipeline{genemap: g, metrics: m}, nil
}

// sourceFiles returns the input file of every merger by merger name. The
// broad DisGeNET merger reads the dedicated broad table when one is
// configured, and the primary DisGeNET table otherwise.
func (a *App) sourceFiles() map[string]string {
	in := a.config.Inputs
	files := map[string]string{
		string(types.GWASCatalogID): in.GWASCatalog,
		string(types.HarmonizomeID): in.Harmonizome,
		string(types.PubMedID):      in.PubMed,
		string(types.EWASAtlasID):   in.EWASAtlas,
		sources.DisGeNETName:        in.DisGeNETBroad,
	}
	if files[sources.DisGeNETName] == "" {
		files[sources.DisGeNETName] = in.DisGeNET
	}
	if a.config.PsychiatricOnly {
		files[sources.DisGeNETPsychiatricName] = in.DisGeNET
	}
	for name, path := range files {
		if path == "" {
			delete(files, name)
		}
	}
	return files
}

// loadInputs reads every configured table. A table shared by several
// mergers is read once.
func (a *App) loadInputs(ctx context.Context) (*genemap.Inputs, error) {
	in := a.config.Inputs
	if in.Genes == "" {
		return nil, errors.NewValidationError("inputs.genes", nil, "a gene table is required")
	}
	logger := logging.FromContext(ctx)

	cache := make(map[string]*tables.Table)
	read := func(path string) (*tables.Table, error) {
		if t, ok := cache[path]; ok {
			return t, nil
		}
		t, err := tableio.Read(path)
		if err != nil {
			return nil, err
		}
		logger.Debug().Str("file", path).Int("rows", t.Len()).Msg("Read table")
		cache[path] = t
		return t, nil
	}

	genes, err := read(in.Genes)
	if err != nil {
		return nil, err
	}
	inputs := &genemap.Inputs{
		Genes:   genes,
		Sources: make(map[string]*tables.Table),
		Stamps:  make(map[string]provenance.Stamp),
	}

	if in.CpGAnnotation != "" {
		if inputs.CpGAnnotation, err = read(in.CpGAnnotation); err != nil {
			return nil, err
		}
	}
	if in.CpGList != "" {
		list, err := read(in.CpGList)
		if err != nil {
			return nil, err
		}
		inputs.CpGList = probeList(list)
	}

	for name, path := range a.sourceFiles() {
		t, err := read(path)
		if err != nil {
			return nil, err
		}
		inputs.Sources[name] = t
		inputs.Stamps[name] = in.Stamp(sourceOf(name), path)
	}
	return inputs, nil
}

// sourceOf maps a merger name to its source.
func sourceOf(name string) types.SourceID {
	if strings.HasPrefix(name, sources.DisGeNETName) {
		return types.DisGeNETID
	}
	return types.SourceID(name)
}

// probeList returns the probes of a CpG list table: its cpg column, or the
// first column when there is none.
func probeList(t *tables.Table) []string {
	column := constants.ColumnCpG
	if !t.Has(column) {
		column = t.Columns()[0]
	}
	probes := make([]string, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		if v, ok := t.Row(i).Get(column); ok && strings.TrimSpace(v) != "" {
			probes = append(probes, v)
		}
	}
	return probes
}

// writePhase writes the tables of a phase. XLSX output puts every table of
// the phase into one workbook; delimited output writes one file per table.
func (a *App) writePhase(ctx context.Context, p *genemap.Phase) error {
	out := a.config.Outputs
	ts := p.Tables()

	var written []string
	if tableio.Format(out.Format) == tableio.FormatXLSX {
		path := out.OutputPath(p.Name)
		if err := tableio.Write(path, ts...); err != nil {
			return err
		}
		written = append(written, path)
	} else {
		for i, t := range ts {
			name := p.Name
			if i > 0 {
				name += "_" + t.Name
			}
			path := out.OutputPath(name)
			if err := tableio.Write(path, t); err != nil {
				return err
			}
			written = append(written, path)
		}
	}

	logging.FromContext(ctx).Info().
		Str("phase", p.Name).
		Strs("files", written).
		Msg("Wrote phase tables")
	return nil
}

// finish writes the provenance report and the metrics textfile when they
// are configured.
func (a *App) finish(ctx context.Context, pl *pipeline, phases ...*genemap.Phase) error {
	out := a.config.Outputs
	logger := logging.FromContext(ctx)

	if out.Provenance != "" {
		m := make(provenance.Map)
		for _, p := range phases {
			for k, v := range p.Result.Provenance {
				m[k] = append(m[k], v...)
			}
		}
		if err := os.MkdirAll(filepath.Dir(out.Provenance), constants.DirPermissions); err != nil {
			return errors.WrapIO("create", filepath.Dir(out.Provenance), err)
		}
		if err := provenance.Save(out.Provenance, m); err != nil {
			return err
		}
		logger.Info().Str("file", out.Provenance).Int("entries", len(m)).Msg("Wrote provenance report")
	}

	if out.Metrics != "" {
		if err := pl.metrics.WriteTextfile(out.Metrics); err != nil {
			return err
		}
		logger.Info().Str("file", out.Metrics).Msg("Wrote metrics")
	}
	return nil
}
