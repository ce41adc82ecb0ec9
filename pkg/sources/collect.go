package sources

import (
	"context"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentstation/genemap/pkg/constants"
	"github.com/agentstation/genemap/pkg/errors"
	"github.com/agentstation/genemap/pkg/evidence"
	"github.com/agentstation/genemap/pkg/logging"
	"github.com/agentstation/genemap/pkg/normalize"
	"github.com/agentstation/genemap/pkg/synonym"
	"github.com/agentstation/genemap/pkg/tables"
	"github.com/agentstation/genemap/pkg/types"
)

// collector resolves row labels to entity keys and remembers which
// entities a source mentions at all.
type collector struct {
	source  types.SourceID
	ix      *synonym.Index
	log     *zerolog.Logger
	present map[string]struct{}
	order   []string
	seen    map[string]struct{}
	issues  []error
	refs    []Reference
	stats   Stats
}

func newCollector(ctx context.Context, source types.SourceID, ix *synonym.Index) *collector {
	return &collector{
		source:  source,
		ix:      ix,
		log:     logging.FromContext(logging.WithSource(ctx, string(source))),
		present: make(map[string]struct{}),
		seen:    make(map[string]struct{}),
	}
}

// resolve maps a label to a canonical key. Unknown and ambiguous labels
// are reported once each and yield false. Without an index every label is
// unknown.
func (c *collector) resolve(label string) (string, bool) {
	var (
		m synonym.Match
		k string
	)
	if c.ix != nil {
		if m = c.ix.Lookup(label); m.Resolved() {
			return m.Key, true
		}
		k = c.ix.Normalizer().Key(label)
	} else {
		k = normalize.Key(label)
	}
	if _, dup := c.seen[k]; dup || k == "" {
		return "", false
	}
	c.seen[k] = struct{}{}

	if m.Ambiguous() {
		c.stats.Ambiguous++
		c.issues = append(c.issues, errors.NewUnresolvedKeyError(string(c.source), label, m.Candidates))
		c.log.Debug().Str("label", label).Strs("candidates", m.Candidates).Msg("Ambiguous alias not attached")
	} else {
		c.stats.Unresolved++
		c.issues = append(c.issues, errors.NewUnresolvedKeyError(string(c.source), label, nil))
	}
	return "", false
}

// touch records that key occurs in the source.
func (c *collector) touch(key string) {
	if _, ok := c.present[key]; !ok {
		c.present[key] = struct{}{}
		c.order = append(c.order, key)
	}
}

// reference keeps a label list for gap analysis when any label is not a
// canonical key. Without an index nothing is kept.
func (c *collector) reference(entity string, labels []string) {
	if c.ix == nil {
		return
	}
	for _, l := range labels {
		if !c.ix.IsCanonical(l) {
			c.refs = append(c.refs, Reference{Source: c.source, Entity: entity, Labels: slices.Clone(labels)})
			return
		}
	}
}

// conflicts records a DataConflict issue per conflicting group.
func (c *collector) conflicts(entity string, f evidence.Formatted) int {
	groups := f.Conflicts()
	for _, g := range groups {
		values := make([]string, len(g.Values))
		for i, v := range g.Values {
			values[i] = evidence.FormatStrength(evidence.Float(v), g.Kind)
		}
		c.issues = append(c.issues, errors.NewConflictError(string(c.source), entity, g.Label, values))
	}
	c.stats.Conflicts += len(groups)
	return len(groups)
}

// output assembles the merge result of the named merger. build is called
// once per present key in first-seen order.
func (c *collector) output(name string, kind types.EntityKind, columns []string, build func(key string) evidence.Bundle) *Output {
	out := &Output{
		Name:    name,
		Source:  c.source,
		Kind:    kind,
		Columns: slices.Clone(columns),
		Bundles: make(map[string]evidence.Bundle, len(c.order)),
	}
	for _, key := range c.order {
		b := build(key)
		switch b.State {
		case evidence.StatePopulated:
			c.stats.Populated++
		case evidence.StateEmpty:
			c.stats.Empty++
		}
		out.Bundles[key] = b
	}
	out.References = c.refs
	out.Issues = c.issues
	out.Stats = c.stats

	c.log.Info().
		Int("rows", c.stats.Rows).
		Int("relevant", c.stats.Relevant).
		Int("populated", c.stats.Populated).
		Int("empty", c.stats.Empty).
		Int("unresolved", c.stats.Unresolved).
		Int("conflicts", c.stats.Conflicts).
		Msg("Merged source")
	return out
}

// valueSet aggregates distinct non-null strings.
type valueSet map[string]struct{}

func (s valueSet) add(values ...string) {
	for _, v := range values {
		if v = strings.TrimSpace(v); !normalize.IsMissing(v) {
			s[v] = struct{}{}
		}
	}
}

// cell renders the set sorted and joined with "; ", null when empty.
func (s valueSet) cell() tables.Cell {
	if len(s) == 0 {
		return tables.Null()
	}
	vals := make([]string, 0, len(s))
	for v := range s {
		vals = append(vals, v)
	}
	slices.Sort(vals)
	return tables.String(strings.Join(vals, constants.ListSeparator))
}

// textCell converts a formatted cell to a table cell.
func textCell(f evidence.Formatted) tables.Cell {
	if !f.Valid {
		return tables.Null()
	}
	return tables.String(f.Text)
}

func intCell(n int) tables.Cell {
	return tables.String(strconv.Itoa(n))
}

// parseFloat reads a numeric cell; null and garbage yield nil.
func parseFloat(raw string, ok bool) *float64 {
	if !ok {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// parseYear reads a year written as "2004" or "2004.0".
func parseYear(raw string, ok bool) *int {
	f := parseFloat(raw, ok)
	if f == nil {
		return nil
	}
	return evidence.Int(int(*f))
}

// cleanID strips the ".0" that spreadsheet exports add to integer IDs.
func cleanID(raw string) string {
	raw = strings.TrimSpace(raw)
	if normalize.IsMissing(raw) {
		return ""
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && f == math.Trunc(f) && !strings.ContainsAny(raw, "eE") {
		return strconv.FormatInt(int64(f), 10)
	}
	return raw
}

// requireColumns is Table.Require with the source named in the error.
func requireColumns(source types.SourceID, t *tables.Table, columns ...string) error {
	if t == nil {
		return errors.NewValidationError(string(source), nil, "no table")
	}
	if err := t.Require(columns...); err != nil {
		return errors.NewConfigError(string(source), "input table is missing a required column", err)
	}
	return nil
}
