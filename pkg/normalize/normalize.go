// Package normalize turns raw identifiers and labels into canonical join keys.
//
// Every source spells gene symbols and CpG IDs a little differently
// ("gene:bcr", " BCR ", "Symbol: BCR"). Key maps all of those onto the same
// string so that joins are exact comparisons. The functions are total and
// deterministic: they never fail and never consult external state.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// DefaultPrefixes are stripped from keys before comparison.
var DefaultPrefixes = []string{"GENE:", "SYMBOL:", "LOCUS:"}

// Normalizer produces canonical keys. The zero value strips no prefixes.
type Normalizer struct {
	prefixes []string
}

// New returns a Normalizer stripping the given prefixes (matched after uppercasing).
func New(prefixes ...string) *Normalizer {
	n := &Normalizer{}
	for _, p := range prefixes {
		p = n.clean(p)
		if p != "" {
			n.prefixes = append(n.prefixes, p)
		}
	}
	return n
}

var std = New(DefaultPrefixes...)

// Default returns the shared Normalizer using DefaultPrefixes.
func Default() *Normalizer {
	return std
}

// Key returns the canonical join key of raw.
func (n *Normalizer) Key(raw string) string {
	k := n.clean(raw)
	for stripped := true; stripped; {
		stripped = false
		for _, p := range n.prefixes {
			if strings.HasPrefix(k, p) {
				k = strings.TrimSpace(k[len(p):])
				stripped = true
			}
		}
	}
	return k
}

// Label returns the comparison form of a free-text label: case folded with
// whitespace collapsed. Display text is never replaced by this form.
func (n *Normalizer) Label(raw string) string {
	return Label(raw)
}

func (n *Normalizer) clean(raw string) string {
	// Casers carry state and are not safe for concurrent use.
	return cases.Upper(language.Und).String(collapse(norm.NFKC.String(raw)))
}

// Key normalizes raw with the default Normalizer.
func Key(raw string) string {
	return std.Key(raw)
}

// Label normalizes a free-text label with the default Normalizer.
func Label(raw string) string {
	return cases.Fold().String(collapse(norm.NFKC.String(raw)))
}

// collapse trims and replaces inner whitespace runs with one space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Split breaks a multi-valued cell on any of the runes in seps, trimming
// parts and dropping empty ones. Order and duplicates are preserved.
func Split(raw, seps string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return strings.ContainsRune(seps, r)
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsDotted reports whether label ends in a dotted numeric version suffix,
// as unestablished loci such as AP003039.3 do.
func IsDotted(label string) bool {
	label = strings.TrimSpace(label)
	i := strings.LastIndexByte(label, '.')
	if i <= 0 || i == len(label)-1 {
		return false
	}
	for _, r := range label[i+1:] {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// IsMissing reports whether a raw cell holds one of the null spellings
// produced by upstream exports.
func IsMissing(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "na", "nan", "none", "null", "n/a":
		return true
	}
	return false
}
