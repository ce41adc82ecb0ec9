package app

import (
	"context"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/agentstation/genemap"
	"github.com/agentstation/genemap/internal/embedded"
	"github.com/agentstation/genemap/internal/tableio"
	"github.com/agentstation/genemap/pkg/errors"
	"github.com/agentstation/genemap/pkg/tables"
)

// addInputFlags adds the flags of commands that read input tables.
func addInputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("genes", "", "gene table with symbol and synonyms columns")
	f.String("cpg-annotation", "", "CpG annotation table mapping probes to genes")
	f.String("cpg-list", "", "CpG probe list driving the CpG phase")
	f.String("join", "", "gene phase join policy: left, right, outer")
	f.Int("workers", 0, "parallel merge and join workers")
	f.String("vocab", "", "vocabulary file replacing the embedded defaults")
	f.Bool("psychiatric-only", true, "add the psychiatric DisGeNET column set")
}

// addOutputFlags adds the flags of commands that write result tables.
func addOutputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("output-dir", "", "directory result tables are written to")
	f.String("format", "", "result table format: tsv, csv, xlsx")
	f.String("provenance-file", "", "write the provenance report to this YAML file")
	f.String("metrics-file", "", "write reconciliation counters in Prometheus textfile format")
}

// NewRunCommand creates the run command: the gene phase and, when CpG
// inputs are configured, the CpG phase.
func (a *App) NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		GroupID: "core",
		Short:   "Run every phase the inputs allow",
		Long: `Run merges every configured source, annotates the gene table and, when
a CpG annotation or probe list is configured, annotates the CpG probes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			pl, err := a.newPipeline()
			if err != nil {
				return err
			}
			in, err := a.loadInputs(ctx)
			if err != nil {
				return err
			}
			report, err := pl.genemap.Run(ctx, in)
			if err != nil {
				return err
			}
			for _, p := range report.Phases() {
				if err := a.writePhase(ctx, p); err != nil {
					return err
				}
			}
			return a.finish(ctx, pl, report.Phases()...)
		},
	}
	addInputFlags(cmd)
	addOutputFlags(cmd)
	return cmd
}

// NewAnnotateCommand creates the annotate command (gene phase only).
func (a *App) NewAnnotateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "annotate",
		GroupID: "core",
		Short:   "Annotate the gene table with source evidence",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runPhase(cmd, genemap.Genemap.Annotate)
		},
	}
	addInputFlags(cmd)
	addOutputFlags(cmd)
	return cmd
}

// NewAugmentCommand creates the augment command (CpG phase only).
func (a *App) NewAugmentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "augment",
		GroupID: "core",
		Short:   "Annotate CpG probes with EWAS Atlas and gene evidence",
		Long: `Augment expands the CpG annotation to one row per probe and mapped gene,
attaches EWAS Atlas traits by probe and gene evidence by mapped gene. With
a probe list every listed probe is kept, including probes that map to no
gene or are missing from the annotation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runPhase(cmd, genemap.Genemap.Augment)
		},
	}
	addInputFlags(cmd)
	addOutputFlags(cmd)
	return cmd
}

// runPhase merges the inputs and runs one phase.
func (a *App) runPhase(cmd *cobra.Command, phase func(genemap.Genemap, context.Context, *genemap.Merged) (*genemap.Phase, error)) error {
	ctx := cmd.Context()
	pl, err := a.newPipeline()
	if err != nil {
		return err
	}
	in, err := a.loadInputs(ctx)
	if err != nil {
		return err
	}
	m, err := pl.genemap.Merge(ctx, in)
	if err != nil {
		return err
	}
	p, err := phase(pl.genemap, ctx, m)
	if err != nil {
		return err
	}
	if err := a.writePhase(ctx, p); err != nil {
		return err
	}
	return a.finish(ctx, pl, p)
}

// NewGapsCommand creates the gaps command, which prints the labels each
// phase could not reconcile instead of writing result tables.
func (a *App) NewGapsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "gaps",
		GroupID: "core",
		Short:   "Print source labels that could not be reconciled",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			pl, err := a.newPipeline()
			if err != nil {
				return err
			}
			in, err := a.loadInputs(ctx)
			if err != nil {
				return err
			}
			report, err := pl.genemap.Run(ctx, in)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, p := range report.Phases() {
				cmd.Printf("# %s: %s\n", p.Name, p.Gaps)
				established, unestablished := p.Gaps.Tables()
				for _, t := range []*tables.Table{established, unestablished} {
					if t.Len() == 0 {
						continue
					}
					cmd.Printf("## %s\n", t.Name)
					if err := tableio.WriteDelimited(out, t, '\t'); err != nil {
						return errors.WrapIO("write", "stdout", err)
					}
				}
			}
			return nil
		},
	}
	addInputFlags(cmd)
	return cmd
}

// NewVocabCommand creates the vocab command, which prints the vocabularies
// a run would use.
func (a *App) NewVocabCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "vocab",
		GroupID: "management",
		Short:   "Print the relevance vocabularies",
		Long: `Vocab prints the keyword and term lists used to filter source rows. Copy
the output, edit it and pass it with --vocab or the vocab config key to
replace the embedded defaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				data []byte
				err  error
			)
			if path := a.config.Vocab; path != "" {
				data, err = os.ReadFile(path) //nolint:gosec
				if err != nil {
					return errors.WrapIO("read", path, err)
				}
			} else if data, err = embedded.FS.ReadFile(embedded.VocabulariesFile); err != nil {
				return errors.WrapIO("read", embedded.VocabulariesFile, err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

// NewValidateCommand creates the validate command, which checks the
// configuration and that every input table parses.
func (a *App) NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "validate",
		GroupID: "management",
		Short:   "Validate configuration and input tables",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.newPipeline(); err != nil {
				return err
			}
			in, err := a.loadInputs(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("genes: %d rows\n", in.Genes.Len())
			if in.CpGAnnotation != nil {
				cmd.Printf("cpg_annotation: %d rows\n", in.CpGAnnotation.Len())
			}
			if len(in.CpGList) > 0 {
				cmd.Printf("cpg_list: %d probes\n", len(in.CpGList))
			}
			for _, name := range slices.Sorted(maps.Keys(in.Sources)) {
				cmd.Printf("%s: %d rows\n", name, in.Sources[name].Len())
			}
			return nil
		},
	}
	addInputFlags(cmd)
	return cmd
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("genemap %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
