// Package dataset reads the uploaded paper spreadsheet and writes the
// classified copy back out.
package dataset

import (
	"fmt"
	"io"
	"slices"

	"github.com/Lllllllleong/iramuteqtagger/internal/tagging"
	"github.com/xuri/excelize/v2"
)

// HeadingColumn is the column appended after the tag columns.
const HeadingColumn = "final_heading"

// OutputSheet is the sheet name of the classified workbook.
const OutputSheet = "Classified Abstracts"

// Table is a header row plus data rows. Rows are padded to the header width.
type Table struct {
	Header []string
	Rows   [][]string

	// types holds the cell type of each data cell as read from the workbook.
	types [][]excelize.CellType
}

// ReadXLSX loads the first sheet of a workbook. The first row is the header.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}

	t := &Table{Header: header(rows)}
	for i, row := range rows[1:] {
		types := make([]excelize.CellType, len(t.Header))
		for j, v := range row {
			if v == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return nil, err
			}
			if types[j], err = f.GetCellType(sheets[0], cell); err != nil {
				return nil, fmt.Errorf("failed to read cell %s: %w", cell, err)
			}
		}
		t.Rows = append(t.Rows, t.pad(row))
		t.types = append(t.types, types)
	}
	return t, nil
}

// header returns the first row widened to the widest row. Blank or missing
// names become "Unnamed: <index>".
func header(rows [][]string) []string {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	out := make([]string, width)
	copy(out, rows[0])
	for i, name := range out {
		if name == "" {
			out[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}
	return out
}

// WriteXLSX writes the table to a single-sheet workbook.
func WriteXLSX(w io.Writer, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), OutputSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(OutputSheet)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	write := func(rowNum int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(values))
		for i, v := range values {
			row[i] = v
		}
		return sw.SetRow(cell, row)
	}

	if err := write(1, t.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, r := range t.Rows {
		if err := write(i+2, r); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Index returns the position of column name, or -1.
func (t *Table) Index(name string) int {
	return slices.Index(t.Header, name)
}

// Column returns the values of column name, one per row.
func (t *Table) Column(name string) []string {
	idx := t.Index(name)
	out := make([]string, len(t.Rows))
	if idx < 0 {
		return out
	}
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out
}

// SetColumn overwrites column name if it exists, else appends it.
func (t *Table) SetColumn(name string, values []string) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("column %q has %d values for %d rows", name, len(values), len(t.Rows))
	}
	idx := t.Index(name)
	if idx < 0 {
		t.Header = append(t.Header, name)
		for i := range t.Rows {
			t.Rows[i] = append(t.Rows[i], values[i])
		}
		return nil
	}
	for i := range t.Rows {
		t.Rows[i][idx] = values[i]
	}
	return nil
}

// Papers validates the required columns and extracts one Paper per row.
// Journal and abstract cells that are empty or not text become nil.
func (t *Table) Papers() ([]tagging.Paper, error) {
	if err := tagging.ValidateColumns(t.Header); err != nil {
		return nil, err
	}
	title, year := t.Index(tagging.ColumnTitle), t.Index(tagging.ColumnYear)
	journal, abstract := t.Index(tagging.ColumnJournal), t.Index(tagging.ColumnAbstract)

	papers := make([]tagging.Paper, len(t.Rows))
	for i, r := range t.Rows {
		papers[i] = tagging.Paper{
			Title:    r[title],
			Year:     r[year],
			Journal:  t.text(i, journal),
			Abstract: t.text(i, abstract),
		}
	}
	return papers, nil
}

// Augment appends one column per spec, in configured order, followed by the
// heading column.
func (t *Table) Augment(specs []tagging.TagSpec, res *tagging.BatchResult) error {
	for i, spec := range specs {
		if err := t.SetColumn(spec.Tag(), res.Values(i)); err != nil {
			return fmt.Errorf("%w: %v", tagging.ErrOutputGeneration, err)
		}
	}
	if err := t.SetColumn(HeadingColumn, res.Headings); err != nil {
		return fmt.Errorf("%w: %v", tagging.ErrOutputGeneration, err)
	}
	return nil
}

func (t *Table) pad(row []string) []string {
	out := make([]string, len(t.Header))
	copy(out, row)
	return out
}

// text returns the cell value when it holds non-empty text. Tables built in
// memory carry no cell types and are treated as text.
func (t *Table) text(row, col int) *string {
	s := t.Rows[row][col]
	if s == "" {
		return nil
	}
	if row < len(t.types) && col < len(t.types[row]) {
		switch t.types[row][col] {
		case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		default:
			return nil
		}
	}
	return &s
}
