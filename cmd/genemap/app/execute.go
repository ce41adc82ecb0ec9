package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/genemap/internal/config"
	"github.com/agentstation/genemap/pkg/logging"
)

// flagKeys maps command flags to the config keys they override.
var flagKeys = map[string]string{
	"genes":            "inputs.genes",
	"cpg-annotation":   "inputs.cpg_annotation",
	"cpg-list":         "inputs.cpg_list",
	"join":             "join",
	"workers":          "workers",
	"vocab":            "vocab",
	"psychiatric-only": "psychiatric_only",
	"output-dir":       "outputs.dir",
	"format":           "outputs.format",
	"provenance-file":  "outputs.provenance",
	"metrics-file":     "outputs.metrics",
}

// Execute runs the genemap CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "genemap",
		Short:   "Gene and CpG evidence reconciliation",
		Version: a.version,
		Long: `Genemap annotates a gene table, and optionally a CpG probe list, with
evidence from the GWAS Catalog, Harmonizome, PubMed, DisGeNET and the
EWAS Atlas.

Source tables are read from already-downloaded TSV, CSV or XLSX files.
Each run writes one record per entity with one column set per source, a
coverage table, and tables of the source labels that could not be
reconciled with the gene table.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	rootCmd.SetOut(a.stdout)

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands:",
	})

	// Add global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default is ./.genemap.yaml or $HOME/.genemap.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")

	rootCmd.SetVersionTemplate("genemap {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs. It reloads configuration
// with the command's flags bound on top of the environment and config file.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := a.viper.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	cfg, err := config.Load(a.viper, mustGetString(cmd, "config"))
	if err != nil {
		return err
	}
	cfg.UpdateFromFlags(mustGetBool(cmd, "verbose"), mustGetBool(cmd, "quiet"), mustGetString(cmd, "log-level"))
	a.config = cfg

	logger := NewLogger(cfg)
	a.logger = &logger
	cmd.SetContext(logging.WithLogger(cmd.Context(), a.logger))

	if cfg.ConfigFile != "" {
		a.logger.Debug().Str("file", cfg.ConfigFile).Msg("Loaded config file")
	}
	return nil
}

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(a.NewRunCommand())
	rootCmd.AddCommand(a.NewAnnotateCommand())
	rootCmd.AddCommand(a.NewAugmentCommand())
	rootCmd.AddCommand(a.NewGapsCommand())

	// Management commands
	rootCmd.AddCommand(a.NewVocabCommand())
	rootCmd.AddCommand(a.NewValidateCommand())

	// Utility commands
	rootCmd.AddCommand(a.NewVersionCommand())
}

// ExitOnError is a helper that prints an error and exits with status 1.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err != nil {
		//nolint:errcheck // Ignoring write error since we're exiting anyway
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

// mustGetBool retrieves a boolean flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
