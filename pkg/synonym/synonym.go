// Package synonym decides whether an observed symbol names a known entity
// directly, through a curated alias, or not at all.
//
// Matching is exact equality after key normalization; there is no fuzzy
// matching. The alias sets are read-only input and never learned.
package synonym

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/agentstation/genemap/pkg/constants"
	"github.com/agentstation/genemap/pkg/normalize"
	"github.com/agentstation/genemap/pkg/tables"
)

// Status classifies an observed symbol against an entity.
type Status int

const (
	// Unknown means the symbol is neither the entity's key nor one of its aliases.
	Unknown Status = iota
	// Canonical means the symbol normalizes to the entity's key.
	Canonical
	// Synonym means the symbol normalizes to one of the entity's aliases.
	Synonym
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Canonical:
		return "canonical"
	case Synonym:
		return "synonym"
	default:
		return "unknown"
	}
}

// Match is the result of looking an observed symbol up in an Index.
type Match struct {
	Status Status
	// Key is the canonical key the symbol resolves to. It is empty for
	// Unknown and for ambiguous aliases.
	Key string
	// Candidates lists every canonical key owning the alias, sorted.
	Candidates []string
}

// Ambiguous reports whether the symbol is an alias of several entities.
func (m Match) Ambiguous() bool {
	return m.Status == Synonym && len(m.Candidates) > 1
}

// Resolved reports whether evidence for the symbol may be attached to Key.
func (m Match) Resolved() bool {
	return m.Key != ""
}

// Index maps canonical keys and aliases of a set of entities.
type Index struct {
	norm      *normalize.Normalizer
	symbols   map[string]string              // canonical key -> display symbol
	aliasOf   map[string][]string            // alias key -> canonical keys
	aliases   map[string]map[string]struct{} // canonical key -> alias keys
	keysOrder []string
}

// NewIndex creates an empty Index. A nil normalizer uses normalize.Default.
func NewIndex(n *normalize.Normalizer) *Index {
	if n == nil {
		n = normalize.Default()
	}
	return &Index{
		norm:    n,
		symbols: make(map[string]string),
		aliasOf: make(map[string][]string),
		aliases: make(map[string]map[string]struct{}),
	}
}

// Normalizer returns the normalizer the index compares with.
func (ix *Index) Normalizer() *normalize.Normalizer {
	return ix.norm
}

// Add registers an entity and its aliases. Adding the same symbol again
// merges aliases. An alias equal to the entity's own key is ignored.
func (ix *Index) Add(symbol string, aliases ...string) {
	key := ix.norm.Key(symbol)
	if key == "" {
		return
	}
	if _, ok := ix.symbols[key]; !ok {
		ix.symbols[key] = strings.TrimSpace(symbol)
		ix.aliases[key] = make(map[string]struct{})
		ix.keysOrder = append(ix.keysOrder, key)
	}
	for _, a := range aliases {
		ak := ix.norm.Key(a)
		if ak == "" || ak == key {
			continue
		}
		if _, seen := ix.aliases[key][ak]; seen {
			continue
		}
		ix.aliases[key][ak] = struct{}{}
		owners := append(ix.aliasOf[ak], key)
		slices.Sort(owners)
		ix.aliasOf[ak] = owners
	}
}

// Len returns the number of canonical entities.
func (ix *Index) Len() int {
	return len(ix.keysOrder)
}

// Keys returns canonical keys in insertion order.
func (ix *Index) Keys() []string {
	return slices.Clone(ix.keysOrder)
}

// Symbol returns the display symbol of a canonical key.
func (ix *Index) Symbol(key string) (string, bool) {
	s, ok := ix.symbols[key]
	return s, ok
}

// IsCanonical reports whether observed normalizes to a canonical key.
func (ix *Index) IsCanonical(observed string) bool {
	_, ok := ix.symbols[ix.norm.Key(observed)]
	return ok
}

// Lookup classifies observed against the whole index. A canonical key
// takes precedence over an alias with the same spelling.
func (ix *Index) Lookup(observed string) Match {
	k := ix.norm.Key(observed)
	if _, ok := ix.symbols[k]; ok {
		return Match{Status: Canonical, Key: k, Candidates: []string{k}}
	}
	owners := ix.aliasOf[k]
	switch len(owners) {
	case 0:
		return Match{Status: Unknown}
	case 1:
		return Match{Status: Synonym, Key: owners[0], Candidates: slices.Clone(owners)}
	default:
		return Match{Status: Synonym, Candidates: slices.Clone(owners)}
	}
}

// Resolve classifies observed against one entity.
func (ix *Index) Resolve(observed, entity string) Status {
	ok := ix.norm.Key(observed)
	ek := ix.norm.Key(entity)
	if ok == ek && ok != "" {
		return Canonical
	}
	if _, found := ix.aliases[ek][ok]; found {
		return Synonym
	}
	return Unknown
}

// ParseAliases reads an alias cell. Both a JSON list string
// (["A", "B"], also with single quotes) and a ';' or ',' separated list
// are accepted.
func ParseAliases(cell string) []string {
	cell = strings.TrimSpace(cell)
	if normalize.IsMissing(cell) || cell == "[]" {
		return nil
	}
	if strings.HasPrefix(cell, "[") {
		var list []string
		if err := json.Unmarshal([]byte(cell), &list); err == nil {
			return compact(list)
		}
		cell = strings.Trim(cell, "[]")
		var out []string
		for _, p := range normalize.Split(cell, ",") {
			out = append(out, strings.Trim(p, `'" `))
		}
		return compact(out)
	}
	return compact(normalize.Split(cell, ";,|"))
}

func compact(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// FromTable builds an Index from a gene table. An empty synonymsColumn
// indexes symbols only.
func FromTable(t *tables.Table, symbolColumn, synonymsColumn string, n *normalize.Normalizer) (*Index, error) {
	if symbolColumn == "" {
		symbolColumn = constants.ColumnSymbol
	}
	if err := t.Require(symbolColumn); err != nil {
		return nil, err
	}
	if synonymsColumn != "" && !t.Has(synonymsColumn) {
		synonymsColumn = ""
	}

	ix := NewIndex(n)
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		symbol, ok := row.Get(symbolColumn)
		if !ok {
			continue
		}
		var aliases []string
		if synonymsColumn != "" {
			aliases = ParseAliases(row.String(synonymsColumn))
		}
		ix.Add(symbol, aliases...)
	}
	return ix, nil
}
