package sources

// options configures a merger.
type options struct {
	psychiatricOnly bool
	geneSeparators  string
	labelSeparators string
}

// Option is a function that configures merger options.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		geneSeparators:  ",",
		labelSeparators: ";",
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithPsychiatricOnly restricts DisGeNET rows to the configured
// psychiatric disease classes.
func WithPsychiatricOnly(enabled bool) Option {
	return func(o *options) {
		o.psychiatricOnly = enabled
	}
}

// WithGeneSeparators sets the runes splitting multi-gene cells such as
// GWAS MAPPED_GENE.
func WithGeneSeparators(seps string) Option {
	return func(o *options) {
		if seps != "" {
			o.geneSeparators = seps
		}
	}
}

// WithLabelSeparators sets the runes splitting list cells such as the
// EWAS Atlas genes column or PubMed MeSH headings.
func WithLabelSeparators(seps string) Option {
	return func(o *options) {
		if seps != "" {
			o.labelSeparators = seps
		}
	}
}
