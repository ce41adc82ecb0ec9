// Package config loads genemap run configuration from a YAML config file,
// .env files, GENEMAP_* environment variables and command-line flags.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/genemap/pkg/constants"
	"github.com/agentstation/genemap/pkg/errors"
	"github.com/agentstation/genemap/pkg/logging"
	"github.com/agentstation/genemap/pkg/provenance"
	"github.com/agentstation/genemap/pkg/types"
)

// Config holds the configuration of one genemap run.
type Config struct {
	// Config file actually read, empty when none was found
	ConfigFile string `mapstructure:"-"`

	Inputs  Inputs  `mapstructure:"inputs"`
	Outputs Outputs `mapstructure:"outputs"`

	// Join policy of the gene phase: left, right or outer
	Join    string `mapstructure:"join" validate:"oneof=left right outer"`
	Workers int    `mapstructure:"workers" validate:"min=1,max=64"`

	// Vocab is a vocabulary file replacing the embedded defaults
	Vocab string `mapstructure:"vocab" validate:"omitempty,file"`

	// PsychiatricOnly restricts the primary DisGeNET table to psychiatric
	// disease classes
	PsychiatricOnly bool   `mapstructure:"psychiatric_only"`
	Provenance      bool   `mapstructure:"provenance"`
	GeneSeparators  string `mapstructure:"gene_separators"`
	LabelSeparators string `mapstructure:"label_separators"`

	Log logging.Config `mapstructure:"log"`

	// Global flags
	Verbose bool `mapstructure:"verbose"`
	Quiet   bool `mapstructure:"quiet"`
}

// Inputs names the input tables. Source tables are optional; a source
// without a table is not attached.
type Inputs struct {
	Genes          string `mapstructure:"genes"`
	SymbolColumn   string `mapstructure:"symbol_column" validate:"required"`
	SynonymsColumn string `mapstructure:"synonyms_column" validate:"required"`

	CpGAnnotation string `mapstructure:"cpg_annotation"`
	CpGList       string `mapstructure:"cpg_list"`
	CpGGeneColumn string `mapstructure:"cpg_gene_column"`

	GWASCatalog   string `mapstructure:"gwas_catalog"`
	Harmonizome   string `mapstructure:"harmonizome"`
	PubMed        string `mapstructure:"pubmed"`
	DisGeNET      string `mapstructure:"disgenet"`
	DisGeNETBroad string `mapstructure:"disgenet_broad"`
	EWASAtlas     string `mapstructure:"ewas_atlas"`

	// Versions are upstream release labels by source ID, recorded in
	// provenance.
	Versions map[string]string `mapstructure:"versions"`
}

// Outputs names where results are written.
type Outputs struct {
	Dir        string `mapstructure:"dir" validate:"required"`
	Format     string `mapstructure:"format" validate:"oneof=tsv csv xlsx"`
	Provenance string `mapstructure:"provenance"`
	Metrics    string `mapstructure:"metrics"`
}

// keys lists every config key with its default. Registering a default is
// what lets AutomaticEnv reach a key during Unmarshal.
var keys = map[string]any{
	"inputs.genes":           "",
	"inputs.symbol_column":   constants.ColumnSymbol,
	"inputs.synonyms_column": constants.ColumnSynonyms,
	"inputs.cpg_annotation":  "",
	"inputs.cpg_list":        "",
	"inputs.cpg_gene_column": constants.ColumnGeneList,
	"inputs.gwas_catalog":    "",
	"inputs.harmonizome":     "",
	"inputs.pubmed":          "",
	"inputs.disgenet":        "",
	"inputs.disgenet_broad":  "",
	"inputs.ewas_atlas":      "",
	"outputs.dir":            "out",
	"outputs.format":         "tsv",
	"outputs.provenance":     "",
	"outputs.metrics":        "",
	"join":                   "left",
	"workers":                constants.DefaultWorkers,
	"vocab":                  "",
	"psychiatric_only":       true,
	"provenance":             true,
	"gene_separators":        ",",
	"label_separators":       ";",
	"log.level":              "info",
	"log.format":             "auto",
	"log.output":             "stderr",
	"log.no_color":           false,
	"verbose":                false,
	"quiet":                  false,
}

// New returns a viper instance with genemap defaults and environment
// binding. GENEMAP_INPUTS_GENES sets inputs.genes; the unprefixed LOG_LEVEL,
// LOG_FORMAT and LOG_OUTPUT are honored too.
func New() *viper.Viper {
	v := viper.New()
	for k, d := range keys {
		v.SetDefault(k, d)
	}
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, k := range []string{"level", "format", "output"} {
		env := "LOG_" + strings.ToUpper(k)
		_ = v.BindEnv("log."+k, constants.EnvPrefix+"_"+env, env)
	}
	return v
}

// Load reads configuration in order of precedence:
// 1. Command-line flags bound to v
// 2. Environment variables
// 3. .env files
// 4. Config file (file, or .genemap.yaml in the working or home directory)
// 5. Defaults
func Load(v *viper.Viper, file string) (*Config, error) {
	loadEnvFiles()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigType("yaml")
		v.SetConfigName(constants.ConfigFileName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, errors.NewConfigError("config", "cannot read config file", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.WrapParse("yaml", v.ConfigFileUsed(), err)
	}
	c.ConfigFile = v.ConfigFileUsed()
	return &c, nil
}

// UpdateFromFlags applies the -v/-q shortcuts. An explicit log level wins.
func (c *Config) UpdateFromFlags(verbose, quiet bool, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	switch {
	case logLevel != "":
		c.Log.Level = logLevel
	case quiet:
		c.Log.Level = "warn"
	case verbose:
		c.Log.Level = "debug"
	}
}

// Validate checks field constraints and that every configured input file
// exists.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.NewValidationError(fe.Namespace(), fe.Value(), "failed "+fe.Tag()+" constraint")
		}
		return errors.WrapValidation("config", err)
	}
	for name, path := range c.Inputs.Files() {
		if _, err := os.Stat(path); err != nil {
			return errors.NewConfigError("config", "input "+name+" is not readable", errors.WrapIO("stat", path, err))
		}
	}
	return nil
}

var validate = validator.New()

// Files returns every configured input path by config key.
func (in Inputs) Files() map[string]string {
	all := map[string]string{
		"genes":          in.Genes,
		"cpg_annotation": in.CpGAnnotation,
		"cpg_list":       in.CpGList,
		"gwas_catalog":   in.GWASCatalog,
		"harmonizome":    in.Harmonizome,
		"pubmed":         in.PubMed,
		"disgenet":       in.DisGeNET,
		"disgenet_broad": in.DisGeNETBroad,
		"ewas_atlas":     in.EWASAtlas,
	}
	for k, v := range all {
		if v == "" {
			delete(all, k)
		}
	}
	return all
}

// Stamp describes the table of source read from path. The retrieval time
// is the file's modification time.
func (in Inputs) Stamp(source types.SourceID, path string) provenance.Stamp {
	s := provenance.Stamp{
		Source:  source,
		Version: in.Versions[string(source)],
		File:    filepath.Base(path),
	}
	if fi, err := os.Stat(path); err == nil {
		s.RetrievedAt = fi.ModTime().UTC().Truncate(time.Second)
	}
	return s
}

// OutputPath joins name and the configured format extension under the
// output directory.
func (o Outputs) OutputPath(name string) string {
	return filepath.Join(o.Dir, name+"."+o.Format)
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
