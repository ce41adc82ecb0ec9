// Package tables is the in-memory tabular model the engine consumes and
// produces: named columns of string cells, where a null cell is distinct
// from an empty string.
package tables

import (
	"fmt"
	"slices"

	"github.com/agentstation/genemap/pkg/errors"
	"github.com/agentstation/genemap/pkg/normalize"
)

// Cell is one table value. Valid is false for null.
type Cell struct {
	Value string
	Valid bool
}

// String returns a non-null cell.
func String(v string) Cell {
	return Cell{Value: v, Valid: true}
}

// Null returns a null cell.
func Null() Cell {
	return Cell{}
}

// Parse returns Null for the upstream null spellings (NaN, NA, empty) and a
// valid cell otherwise.
func Parse(raw string) Cell {
	if normalize.IsMissing(raw) {
		return Null()
	}
	return String(raw)
}

// Table is an ordered set of rows over named columns.
type Table struct {
	Name    string
	columns []string
	index   map[string]int
	rows    [][]Cell
}

// New creates an empty table.
func New(name string, columns ...string) *Table {
	t := &Table{Name: name, index: make(map[string]int, len(columns))}
	for _, c := range columns {
		t.AddColumn(c)
	}
	return t
}

// AddColumn appends a column, filling existing rows with nulls. Adding an
// existing column is a no-op.
func (t *Table) AddColumn(name string) {
	if _, ok := t.index[name]; ok {
		return
	}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, name)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], Null())
	}
}

// Columns returns a copy of the column names.
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// Has reports whether the column exists.
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Require returns a validation error naming the first missing column.
func (t *Table) Require(columns ...string) error {
	for _, c := range columns {
		if !t.Has(c) {
			return errors.NewValidationError(c, t.Name, fmt.Sprintf("table %s has no column %q", t.Name, c))
		}
	}
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Append adds a row. Cells are matched to columns by position; short rows
// are padded with nulls and extra cells are dropped.
func (t *Table) Append(cells ...Cell) {
	row := make([]Cell, len(t.columns))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// AppendRaw adds a row of raw strings, mapping null spellings to nulls.
func (t *Table) AppendRaw(values ...string) {
	cells := make([]Cell, len(values))
	for i, v := range values {
		cells[i] = Parse(v)
	}
	t.Append(cells...)
}

// AppendMap adds a row from a column-to-cell map. Unknown columns are ignored.
func (t *Table) AppendMap(values map[string]Cell) {
	row := make([]Cell, len(t.columns))
	for c, v := range values {
		if i, ok := t.index[c]; ok {
			row[i] = v
		}
	}
	t.rows = append(t.rows, row)
}

// Row returns a view of row i.
func (t *Table) Row(i int) Row {
	return Row{t: t, i: i}
}

// Set replaces one cell. It panics on an unknown column.
func (t *Table) Set(i int, column string, c Cell) {
	j, ok := t.index[column]
	if !ok {
		panic(fmt.Sprintf("tables: unknown column %q", column))
	}
	t.rows[i][j] = c
}

// Cells returns a copy of row i in column order.
func (t *Table) Cells(i int) []Cell {
	return slices.Clone(t.rows[i])
}

// Row is a read-only view of one table row.
type Row struct {
	t *Table
	i int
}

// Index returns the row's position in its table.
func (r Row) Index() int {
	return r.i
}

// Cell returns the cell of column, or null when the column does not exist.
func (r Row) Cell(column string) Cell {
	j, ok := r.t.index[column]
	if !ok {
		return Null()
	}
	return r.t.rows[r.i][j]
}

// Get returns the value of column and whether it is non-null.
func (r Row) Get(column string) (string, bool) {
	c := r.Cell(column)
	return c.Value, c.Valid
}

// String returns the value of column, or "" for null.
func (r Row) String(column string) string {
	return r.Cell(column).Value
}
