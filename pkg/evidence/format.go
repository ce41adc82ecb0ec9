package evidence

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/agentstation/genemap/pkg/constants"
	"github.com/agentstation/genemap/pkg/normalize"
)

// Field selects one rendered column of an evidence line.
type Field int

const (
	FieldLabel Field = iota
	FieldStrength
	FieldPolarity
	FieldYear
	FieldReference
	FieldNote
)

// Layout controls how groups become text.
type Layout struct {
	Fields []Field
	// Detail renders every member of a group on its own line instead of
	// one line per group.
	Detail bool
	// Polarity maps lower-cased raw polarity values to display values at
	// render time. The key "" is used for a missing value. Values without
	// an entry render as-is.
	Polarity map[string]string
}

// Group is a deduplicated (label, tag) set of items.
type Group struct {
	Label    string
	Tag      string
	Members  []Item
	Kind     Kind
	Strength *float64
	Values   []float64
	Conflict bool

	seq int
}

// Lead returns the first member in member order.
func (g Group) Lead() Item {
	return g.Members[0]
}

// Formatted is the outcome of Format.
type Formatted struct {
	Groups []Group
	Lines  []string
	// Text is the rendered cell; Valid is false when there were no items.
	Text  string
	Valid bool
}

// Conflicts returns the groups whose members disagree on strength.
func (f Formatted) Conflicts() []Group {
	var out []Group
	for _, g := range f.Groups {
		if g.Conflict {
			out = append(out, g)
		}
	}
	return out
}

// Labels returns group labels in output order.
func (f Formatted) Labels() []string {
	out := make([]string, len(f.Groups))
	for i, g := range f.Groups {
		out[i] = g.Label
	}
	return out
}

// Format deduplicates, orders and renders items.
func Format(items []Item, layout Layout) Formatted {
	groups := Dedup(items)
	Sort(groups)
	lines := Render(groups, layout)
	f := Formatted{Groups: groups, Lines: lines}
	if len(lines) > 0 {
		f.Text = strings.Join(lines, constants.ItemSeparator)
		f.Valid = true
	}
	return f
}

// Dedup groups items on (normalized label, tag) in first-seen order.
// Disagreeing strengths mark the group as a conflict and its sort strength
// becomes the strongest member value.
func Dedup(items []Item) []Group {
	var groups []Group
	index := make(map[[2]string]int)

	for seq, it := range items {
		key := [2]string{normalize.Label(it.Label), it.Tag}
		gi, ok := index[key]
		if !ok {
			gi = len(groups)
			index[key] = gi
			groups = append(groups, Group{Label: strings.TrimSpace(it.Label), Tag: it.Tag, Kind: it.Kind, seq: seq})
		}
		g := &groups[gi]
		g.Members = append(g.Members, it)
		if it.Kind != KindNone && g.Kind == KindNone {
			g.Kind = it.Kind
		}
		if it.Strength != nil && !slices.Contains(g.Values, *it.Strength) {
			g.Values = append(g.Values, *it.Strength)
		}
	}

	for i := range groups {
		g := &groups[i]
		g.Conflict = len(g.Values) > 1
		for _, v := range g.Values {
			if g.Strength == nil || g.Kind.stronger(v, *g.Strength) {
				g.Strength = Float(v)
			}
		}
		sortMembers(g)
	}
	return groups
}

// sortMembers orders members by polarity, year, reference, then input order.
func sortMembers(g *Group) {
	slices.SortStableFunc(g.Members, compareDetail)
}

func compareDetail(a, b Item) int {
	if c := cmp.Compare(a.Polarity.rank(), b.Polarity.rank()); c != 0 {
		return c
	}
	if c := compareYear(a.Year, b.Year); c != 0 {
		return c
	}
	return cmp.Compare(a.Reference.String(), b.Reference.String())
}

// Sort orders groups by strength (nulls last), polarity, year, label
// (case-insensitive), reference and finally input order.
func Sort(groups []Group) {
	slices.SortStableFunc(groups, func(a, b Group) int {
		if c := compareStrength(a, b); c != 0 {
			return c
		}
		la, lb := a.Lead(), b.Lead()
		if c := cmp.Compare(la.Polarity.rank(), lb.Polarity.rank()); c != 0 {
			return c
		}
		if c := compareYear(la.Year, lb.Year); c != 0 {
			return c
		}
		if c := cmp.Compare(normalize.Label(a.Label), normalize.Label(b.Label)); c != 0 {
			return c
		}
		if c := cmp.Compare(la.Reference.String(), lb.Reference.String()); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
}

func compareStrength(a, b Group) int {
	switch {
	case a.Strength == nil && b.Strength == nil:
		return 0
	case a.Strength == nil:
		return 1
	case b.Strength == nil:
		return -1
	}
	x, y := *a.Strength, *b.Strength
	if x == y {
		return 0
	}
	kind := a.Kind
	if kind == KindNone {
		kind = b.Kind
	}
	if kind.stronger(x, y) {
		return -1
	}
	return 1
}

func compareYear(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmp.Compare(*a, *b)
}

// Render turns ordered groups into lines.
func Render(groups []Group, layout Layout) []string {
	var lines []string
	for _, g := range groups {
		members := g.Members[:1]
		if layout.Detail {
			members = g.Members
		}
		for _, m := range members {
			lines = append(lines, renderLine(g, m, layout))
		}
	}
	return lines
}

func renderLine(g Group, m Item, layout Layout) string {
	fields := make([]string, 0, len(layout.Fields))
	for _, f := range layout.Fields {
		switch f {
		case FieldLabel:
			fields = append(fields, g.Label)
		case FieldStrength:
			fields = append(fields, groupStrength(g))
		case FieldPolarity:
			fields = append(fields, renderPolarity(m, layout.Polarity))
		case FieldYear:
			fields = append(fields, renderYear(m.Year))
		case FieldReference:
			fields = append(fields, m.Reference.String())
		case FieldNote:
			fields = append(fields, orNA(m.Note))
		}
	}
	return strings.Join(fields, constants.FieldSeparator)
}

func groupStrength(g Group) string {
	if g.Conflict {
		return constants.ConflictMarker
	}
	return FormatStrength(g.Strength, g.Kind)
}

// FormatStrength renders a strength. Rank strengths always carry three
// decimals and a missing rank renders 0.000.
func FormatStrength(v *float64, kind Kind) string {
	if kind == KindRank {
		d := decimal.Zero
		if v != nil {
			d = decimal.NewFromFloat(*v)
		}
		return d.StringFixed(constants.RankDecimals)
	}
	if v == nil {
		return constants.MissingValue
	}
	if kind == KindPValue {
		return strconv.FormatFloat(*v, 'g', -1, 64)
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func renderPolarity(m Item, vocab map[string]string) string {
	raw := strings.TrimSpace(m.PolarityRaw)
	if v, ok := vocab[strings.ToLower(raw)]; ok {
		return v
	}
	if normalize.IsMissing(raw) {
		if v, ok := vocab[""]; ok {
			return v
		}
		return constants.MissingValue
	}
	return raw
}

func renderYear(y *int) string {
	if y == nil {
		return constants.MissingValue
	}
	return strconv.Itoa(*y)
}
