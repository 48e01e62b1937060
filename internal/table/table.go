package table

import (
	"encoding/csv"
	"io"
	"os"
)

// Table is an immutable-by-convention tabular value: an ordered list of
// column names plus string rows. A null cell is the empty string. Pipeline
// stages never mutate a Table they were handed; transforms build new ones.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New builds a Table from columns and rows. The slices are used as-is.
func New(columns []string, rows [][]string) *Table {
	return &Table{Columns: columns, Rows: rows}
}

// ColumnIndex returns the position of the first column with the given name.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, c := range t.Columns {
		if c == name {
			return i, true
		}
	}
	return 0, false
}

// Cell returns the value of the named column in row i, or "" when the row
// is ragged or the column is absent.
func (t *Table) Cell(i int, name string) string {
	idx, ok := t.ColumnIndex(name)
	if !ok || i < 0 || i >= len(t.Rows) || idx >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][idx]
}

// Clone returns a deep copy, so callers can mutate freely without touching
// the source table.
func (t *Table) Clone() *Table {
	cols := make([]string, len(t.Columns))
	copy(cols, t.Columns)
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = make([]string, len(r))
		copy(rows[i], r)
	}
	return &Table{Columns: cols, Rows: rows}
}

// Write emits the table as delimited text with the given separator.
func (t *Table) Write(w io.Writer, sep rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = sep
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the table to a file, creating or truncating it.
func (t *Table) WriteFile(path string, sep rune) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.Write(f, sep); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
