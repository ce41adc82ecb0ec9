package genemap

import (
	"github.com/agentstation/genemap/pkg/constants"
	"github.com/agentstation/genemap/pkg/errors"
	"github.com/agentstation/genemap/pkg/normalize"
	"github.com/agentstation/genemap/pkg/reconciler"
	"github.com/agentstation/genemap/pkg/vocab"
)

// config holds the settings of a Genemap instance.
type config struct {
	vocabulary      *vocab.Vocabulary
	normalizer      *normalize.Normalizer
	join            reconciler.JoinPolicy
	workers         int
	psychiatricOnly bool
	provenance      bool
	geneSeparators  string
	labelSeparators string
	symbolColumn    string
	synonymsColumn  string
	cpgGeneColumn   string
	recorder        reconciler.Recorder
}

func defaultConfig() *config {
	return &config{
		normalizer:      normalize.Default(),
		join:            reconciler.JoinLeft,
		workers:         constants.DefaultWorkers,
		psychiatricOnly: true,
		provenance:      true,
		symbolColumn:    constants.ColumnSymbol,
		synonymsColumn:  constants.ColumnSynonyms,
		cpgGeneColumn:   constants.ColumnGeneList,
	}
}

// Option is a function that configures a Genemap instance
type Option func(*config) error

// WithVocabulary sets the relevance vocabularies. The embedded defaults are
// used when none is given.
func WithVocabulary(v *vocab.Vocabulary) Option {
	return func(c *config) error {
		if v == nil {
			return errors.NewValidationError("vocabulary", nil, "cannot be nil")
		}
		c.vocabulary = v
		return nil
	}
}

// WithNormalizer sets the key normalizer shared by the synonym index and
// the join.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(c *config) error {
		if n == nil {
			return errors.NewValidationError("normalizer", nil, "cannot be nil")
		}
		c.normalizer = n
		return nil
	}
}

// WithJoin sets the join policy of the gene phase.
func WithJoin(policy reconciler.JoinPolicy) Option {
	return func(c *config) error {
		if !policy.Valid() {
			return errors.NewValidationError("join", string(policy), "must be left, right or outer")
		}
		c.join = policy
		return nil
	}
}

// WithWorkers bounds merge and join parallelism.
func WithWorkers(n int) Option {
	return func(c *config) error {
		c.workers = n
		return nil
	}
}

// WithPsychiatricOnly configures whether the primary DisGeNET table is
// restricted to psychiatric disease classes
func WithPsychiatricOnly(enabled bool) Option {
	return func(c *config) error {
		c.psychiatricOnly = enabled
		return nil
	}
}

// WithProvenance configures whether per-record provenance is tracked
func WithProvenance(enabled bool) Option {
	return func(c *config) error {
		c.provenance = enabled
		return nil
	}
}

// WithSeparators sets the separators of multi-gene cells and of list cells.
// Empty values keep the defaults.
func WithSeparators(genes, labels string) Option {
	return func(c *config) error {
		c.geneSeparators = genes
		c.labelSeparators = labels
		return nil
	}
}

// WithGeneColumns sets the symbol and synonyms columns of the gene table.
func WithGeneColumns(symbol, synonyms string) Option {
	return func(c *config) error {
		if symbol == "" {
			return errors.NewValidationError("symbol_column", nil, "cannot be empty")
		}
		c.symbolColumn = symbol
		c.synonymsColumn = synonyms
		return nil
	}
}

// WithCpGGeneColumn sets the CpG annotation column listing mapped genes.
func WithCpGGeneColumn(column string) Option {
	return func(c *config) error {
		if column != "" {
			c.cpgGeneColumn = column
		}
		return nil
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r reconciler.Recorder) Option {
	return func(c *config) error {
		c.recorder = r
		return nil
	}
}
