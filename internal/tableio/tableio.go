// Package tableio reads and writes tables as TSV, CSV and XLSX files.
//
// The format is chosen by file extension. Upstream null spellings (empty,
// NA, NaN) read as null cells; null cells are written as empty text.
package tableio

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/agentstation/genemap/pkg/constants"
	"github.com/agentstation/genemap/pkg/errors"
	"github.com/agentstation/genemap/pkg/logging"
	"github.com/agentstation/genemap/pkg/tables"
)

// Format is a table file format.
type Format string

// Supported formats.
const (
	FormatTSV  Format = "tsv"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatOf returns the format implied by a file extension. Unknown
// extensions read as TSV, the format of the upstream exports.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatTSV
	}
}

func (f Format) comma() rune {
	if f == FormatCSV {
		return ','
	}
	return '\t'
}

// Read loads a table from path. For XLSX files the first sheet is read.
func Read(path string) (*tables.Table, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	format := FormatOf(path)
	if format == FormatXLSX {
		return ReadXLSX(path, "")
	}

	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	t, err := ReadDelimited(f, name, format.comma())
	if err != nil {
		return nil, errors.WrapParse(string(format), path, err)
	}
	return t, nil
}

// ReadDelimited parses a delimited stream whose first record is the header.
// Ragged rows are accepted: short rows are padded with nulls.
func ReadDelimited(r io.Reader, name string, comma rune) (*tables.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	// PubMed titles carry stray quotes
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.NewValidationError("header", name, "table is empty")
	}
	if err != nil {
		return nil, err
	}
	t := tables.New(name, cleanHeader(header)...)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return t, nil
		}
		if err != nil {
			return nil, err
		}
		t.AppendRaw(rec...)
	}
}

// ReadXLSX loads one sheet of a workbook. An empty sheet name selects the
// first sheet.
func ReadXLSX(path, sheet string) (*tables.Table, error) {
	f, err := excelize.OpenFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.NewValidationError("sheet", path, "workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.WrapParse("xlsx", path, err)
	}
	if len(rows) == 0 {
		return nil, errors.NewValidationError("header", path, "sheet "+sheet+" is empty")
	}

	t := tables.New(sheet, cleanHeader(rows[0])...)
	for _, row := range rows[1:] {
		t.AppendRaw(row...)
	}
	return t, nil
}

// Write saves tables to path. Delimited formats hold exactly one table;
// XLSX writes one sheet per table.
func Write(path string, ts ...*tables.Table) error {
	if len(ts) == 0 {
		return errors.NewValidationError("tables", nil, "nothing to write")
	}
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return errors.WrapIO("mkdir", filepath.Dir(path), err)
	}

	format := FormatOf(path)
	if format == FormatXLSX {
		return WriteXLSX(path, ts...)
	}
	if len(ts) > 1 {
		return errors.NewValidationError("tables", len(ts), "a delimited file holds one table")
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.FilePermissions) //nolint:gosec
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	if err := WriteDelimited(f, ts[0], format.comma()); err != nil {
		_ = f.Close()
		return errors.WrapIO("write", path, err)
	}
	if err := f.Close(); err != nil {
		return errors.WrapIO("close", path, err)
	}
	return nil
}

// WriteDelimited writes the header and rows of t.
func WriteDelimited(w io.Writer, t *tables.Table, comma rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	if err := cw.Write(t.Columns()); err != nil {
		return err
	}
	for i := 0; i < t.Len(); i++ {
		if err := cw.Write(values(t.Cells(i))); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes each table to its own sheet. Evidence cells hold
// line-separated items, so every column wraps text.
func WriteXLSX(path string, ts ...*tables.Table) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	style, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return errors.WrapIO("style", path, err)
	}

	first := f.GetSheetName(0)
	used := make(map[string]bool, len(ts))
	for i, t := range ts {
		sheet := sheetName(t.Name, i, used)
		if i == 0 {
			if err := f.SetSheetName(first, sheet); err != nil {
				return errors.WrapIO("rename sheet", path, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return errors.WrapIO("add sheet", path, err)
		}
		if err := writeSheet(f, sheet, t, style); err != nil {
			return errors.WrapIO("write sheet "+sheet, path, err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.SaveAs(path); err != nil {
		return errors.WrapIO("save", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, t *tables.Table, style int) error {
	columns := t.Columns()
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i := 0; i < t.Len(); i++ {
		cells := t.Cells(i)
		row := make([]any, len(cells))
		for j, c := range cells {
			if !c.Valid {
				continue
			}
			v, dropped := truncate(c.Value)
			if v != c.Value {
				logging.Warn().
					Str("table", t.Name).
					Int("row", i+1).
					Str("column", columns[j]).
					Int("dropped_items", dropped).
					Msg("Cell exceeds the XLSX limit, truncated")
			}
			row[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	if len(columns) == 0 {
		return nil
	}
	last, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		return err
	}
	return f.SetColStyle(sheet, "A:"+last, style)
}

// sheetName makes a valid, unique sheet name from a table name.
func sheetName(name string, i int, used map[string]bool) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = "Sheet"
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	unique := name
	for n := i + 1; used[unique]; n++ {
		suffix := "_" + strconv.Itoa(n)
		base := name
		if len(base)+len(suffix) > maxSheetName {
			base = base[:maxSheetName-len(suffix)]
		}
		unique = base + suffix
	}
	used[unique] = true
	return unique
}

const maxSheetName = 31

// truncate keeps a value within the Excel cell limit, counted in
// characters. Evidence cells are cut between items and end with a marker
// naming how many items were left out; a single item longer than the limit
// is cut and ends with an ellipsis. The number of dropped items is returned.
func truncate(v string) (string, int) {
	if utf8.RuneCountInString(v) <= constants.MaxCellLength {
		return v, 0
	}
	items := strings.Split(v, constants.ItemSeparator)
	sep := utf8.RuneCountInString(constants.ItemSeparator)
	budget := constants.MaxCellLength - utf8.RuneCountInString(moreMarker(len(items)))

	kept, n := 0, 0
	for ; n < len(items); n++ {
		size := utf8.RuneCountInString(items[n])
		if n > 0 {
			size += sep
		}
		if kept+size > budget {
			break
		}
		kept += size
	}

	if n == 0 {
		head := string([]rune(items[0])[:budget-1]) + ellipsis
		if len(items) > 1 {
			head += moreMarker(len(items) - 1)
		}
		return head, len(items) - 1
	}
	return strings.Join(items[:n], constants.ItemSeparator) + moreMarker(len(items)-n), len(items) - n
}

const ellipsis = "\u2026"

func moreMarker(dropped int) string {
	return constants.ItemSeparator + ellipsis + " " + strconv.Itoa(dropped) + " more"
}

func values(cells []tables.Cell) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if c.Valid {
			out[i] = c.Value
		}
	}
	return out
}

// cleanHeader trims header names, drops a UTF-8 byte order mark and
// suffixes repeated names with ".1", ".2" so that positions stay aligned.
func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.TrimSpace(h)
		if n, dup := seen[h]; dup {
			seen[h] = n + 1
			h += "." + strconv.Itoa(n+1)
		} else {
			seen[h] = 0
		}
		out[i] = h
	}
	return out
}
