package reconciler

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/genemap/pkg/constants"
	"github.com/agentstation/genemap/pkg/errors"
	"github.com/agentstation/genemap/pkg/evidence"
	"github.com/agentstation/genemap/pkg/normalize"
	"github.com/agentstation/genemap/pkg/sources"
)

// Recorder receives reconciliation counters. internal/metrics provides a
// Prometheus implementation.
type Recorder interface {
	// RecordOutput observes one merged source
	RecordOutput(out *sources.Output)

	// RecordBundle observes one attached bundle
	RecordBundle(source string, state evidence.State)

	// RecordRecords observes the number of records produced
	RecordRecords(policy string, n int)
}

// options configures a reconciler.
type options struct {
	join       JoinPolicy
	workers    int
	tracking   bool
	normalizer *normalize.Normalizer
	recorder   Recorder
	logger     *zerolog.Logger
}

func defaultOptions() *options {
	return &options{
		join:       JoinLeft,
		workers:    constants.DefaultWorkers,
		tracking:   true,
		normalizer: normalize.Default(),
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (options *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if opt == nil {
			return nil, errors.NewValidationError("option", nil, "cannot be nil")
		}
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	return options, nil
}

// newOptions returns reconciler options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithJoin sets the default join policy used when an Input leaves it empty.
func WithJoin(policy JoinPolicy) Option {
	return func(o *options) error {
		if !policy.Valid() {
			return errors.NewValidationError("join", string(policy), "must be left, right or outer")
		}
		o.join = policy
		return nil
	}
}

// WithWorkers bounds the goroutines used to merge sources and build records.
// One worker runs everything sequentially.
func WithWorkers(n int) Option {
	return func(o *options) error {
		if n < 1 || n > constants.MaxWorkers {
			return errors.NewValidationError("workers", n, "must be between 1 and 64")
		}
		o.workers = n
		return nil
	}
}

// WithProvenance enables per-record source tracking.
func WithProvenance(enabled bool) Option {
	return func(o *options) error {
		o.tracking = enabled
		return nil
	}
}

// WithNormalizer sets the normalizer applied to join columns. It must match
// the normalizer of the synonym index the sources were merged with.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(o *options) error {
		if n == nil {
			return errors.NewValidationError("normalizer", nil, "cannot be nil")
		}
		o.normalizer = n
		return nil
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *options) error {
		o.recorder = r
		return nil
	}
}

// WithLogger sets the logger. By default the logger is taken from the
// context passed to each call.
func WithLogger(l *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = l
		return nil
	}
}
