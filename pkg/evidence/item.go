// Package evidence turns a source's raw hits for one entity into a single
// deterministic, human-readable cell value.
//
// Items are deduplicated on (normalized label, source tag), ordered by
// strength, polarity, year, label and reference, and rendered as
// comma-separated fields joined with ";\n". Rendering is a pure function of
// the items, so the same input always produces byte-identical text.
package evidence

import (
	"fmt"
	"strings"

	"github.com/agentstation/genemap/pkg/constants"
)

// Kind is the meaning of an item's numeric strength.
type Kind int

const (
	// KindNone means the source reports no strength.
	KindNone Kind = iota
	// KindScore is a score where larger is stronger (DisGeNET score).
	KindScore
	// KindRank is a rank fraction rendered with three decimals (EWAS Atlas).
	KindRank
	// KindPValue is a p-value where smaller is stronger (GWAS Catalog).
	KindPValue
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindScore:
		return "score"
	case KindRank:
		return "rank"
	case KindPValue:
		return "p-value"
	default:
		return "none"
	}
}

// stronger reports whether a beats b under this kind.
func (k Kind) stronger(a, b float64) bool {
	if k == KindPValue {
		return a < b
	}
	return a > b
}

// Polarity is the direction of an association.
type Polarity int

const (
	// PolarityUnknown covers not-reported and unrecognized values.
	PolarityUnknown Polarity = iota
	// PolarityPositive is an increase (hypermethylation, positive association).
	PolarityPositive
	// PolarityNegative is a decrease (hypomethylation, negative association).
	PolarityNegative
)

// rank orders positive before unknown before negative.
func (p Polarity) rank() int {
	switch p {
	case PolarityPositive:
		return 0
	case PolarityNegative:
		return 2
	default:
		return 1
	}
}

// String returns the polarity name.
func (p Polarity) String() string {
	switch p {
	case PolarityPositive:
		return "positive"
	case PolarityNegative:
		return "negative"
	default:
		return "unknown"
	}
}

// ParsePolarity maps the categorical values used by upstream sources.
func ParsePolarity(raw string) Polarity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive", "pos", "+", "increase", "up", "hyper":
		return PolarityPositive
	case "negative", "neg", "-", "decrease", "down", "hypo":
		return PolarityNegative
	default:
		return PolarityUnknown
	}
}

// Reference points at the publication or record behind an item.
type Reference struct {
	// PMID is set when the reference is a PubMed ID.
	PMID string
	// Value is a non-PMID reference value, if any.
	Value string
	// Source and Type describe a non-PMID reference (e.g. "CTD_human", "Biomarker").
	Source string
	Type   string
}

// PMIDRef returns a PubMed reference.
func PMIDRef(pmid string) Reference {
	return Reference{PMID: strings.TrimSpace(pmid)}
}

// String renders the reference. A non-PMID reference renders as
// value(source, type) with NA standing in for a missing value.
func (r Reference) String() string {
	if r.PMID != "" {
		return r.PMID
	}
	v := r.Value
	if v == "" {
		v = constants.MissingValue
	}
	if r.Source == "" && r.Type == "" {
		return v
	}
	return fmt.Sprintf("%s(%s, %s)", v, orNA(r.Source), orNA(r.Type))
}

// IsZero reports whether the reference carries no information.
func (r Reference) IsZero() bool {
	return r == Reference{}
}

// Item is one observation from one source for one entity.
type Item struct {
	Label       string
	Strength    *float64
	Kind        Kind
	Polarity    Polarity
	PolarityRaw string
	Year        *int
	Reference   Reference
	// Tag is the source-of-record tag; items dedupe on (label, tag).
	Tag  string
	Note string
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}

func orNA(s string) string {
	if s == "" {
		return constants.MissingValue
	}
	return s
}
