package evidence

import (
	"strconv"

	"github.com/agentstation/genemap/pkg/provenance"
	"github.com/agentstation/genemap/pkg/tables"
	"github.com/agentstation/genemap/pkg/types"
)

// State distinguishes an entity missing from a source from one present
// with nothing to report.
type State int

const (
	// StateAbsent means the entity does not occur in the source at all.
	StateAbsent State = iota
	// StateEmpty means the entity occurs but no hit passed the filters.
	StateEmpty
	// StatePopulated means at least one hit was rendered.
	StatePopulated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePopulated:
		return "populated"
	default:
		return "absent"
	}
}

// Bundle is the immutable evidence of one source for one entity.
type Bundle struct {
	Source    types.SourceID
	Entity    string
	State     State
	Count     int
	Labels    []string
	Conflicts int
	Stamp     provenance.Stamp

	cells map[string]tables.Cell
}

// NewBundle creates a bundle from rendered column values.
func NewBundle(source types.SourceID, entity string, state State, count int, labels []string, cells map[string]tables.Cell) Bundle {
	c := make(map[string]tables.Cell, len(cells))
	for k, v := range cells {
		c[k] = v
	}
	return Bundle{
		Source: source,
		Entity: entity,
		State:  state,
		Count:  count,
		Labels: append([]string(nil), labels...),
		cells:  c,
	}
}

// Absent returns the bundle of an entity the source never mentions. Every
// column renders null.
func Absent(source types.SourceID, entity string) Bundle {
	return Bundle{Source: source, Entity: entity, State: StateAbsent}
}

// Cell returns the value of one output column. Unknown columns are null.
func (b Bundle) Cell(column string) tables.Cell {
	return b.cells[column]
}

// WithStamp returns a copy carrying the source stamp.
func (b Bundle) WithStamp(s provenance.Stamp) Bundle {
	b.Stamp = s
	return b
}

// WithConflicts returns a copy recording n conflicting label groups.
func (b Bundle) WithConflicts(n int) Bundle {
	b.Conflicts = n
	return b
}

// CountCell renders Count, null for an absent entity.
func (b Bundle) CountCell() tables.Cell {
	if b.State == StateAbsent {
		return tables.Null()
	}
	return tables.String(strconv.Itoa(b.Count))
}
