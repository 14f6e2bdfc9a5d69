// Package dataset loads the per-round tabular datasets and implements the
// change detection that decides whether a freshly downloaded dataset is
// actually new data.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
)

// Well-known column names in the training and tournament tables.
const (
	ColumnID       = "id"
	ColumnEra      = "era"
	ColumnDataType = "data_type"
)

// Data type labels used by the live/validation subsets.
const (
	DataTypeLive       = "live"
	DataTypeValidation = "validation"
	DataTypeTrain      = "train"
)

// Table is an in-memory tabular dataset: a header plus string-valued rows.
// Cell values are compared as text; no numeric parsing is needed for change
// detection.
type Table struct {
	Columns []string
	Rows    [][]string

	idIdx   int
	typeIdx int
}

// LoadTable reads a CSV file into a Table. The file must have a header row
// containing at least the id column.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = false

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read %s: empty table", path)
	}

	t := &Table{Columns: records[0], Rows: records[1:], idIdx: -1, typeIdx: -1}
	for i, col := range t.Columns {
		switch col {
		case ColumnID:
			t.idIdx = i
		case ColumnDataType:
			t.typeIdx = i
		}
	}
	if t.idIdx < 0 {
		return nil, fmt.Errorf("read %s: missing %q column", path, ColumnID)
	}
	return t, nil
}

// FilterDataType returns a new Table containing only rows whose data_type
// column equals value. A table without a data_type column filters to empty.
func (t *Table) FilterDataType(value string) *Table {
	out := &Table{Columns: t.Columns, idIdx: t.idIdx, typeIdx: t.typeIdx}
	if t.typeIdx < 0 {
		return out
	}
	for _, row := range t.Rows {
		if row[t.typeIdx] == value {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// SortByID sorts rows by the row identifier in place and returns the table.
func (t *Table) SortByID() *Table {
	sort.Slice(t.Rows, func(i, j int) bool {
		return t.Rows[i][t.idIdx] < t.Rows[j][t.idIdx]
	})
	return t
}

// Equal reports whether two tables have identical shape and cell content.
// Row order matters; callers sort by id first for order-insensitive
// comparison.
func (t *Table) Equal(other *Table) bool {
	if len(t.Columns) != len(other.Columns) || len(t.Rows) != len(other.Rows) {
		return false
	}
	for i, col := range t.Columns {
		if col != other.Columns[i] {
			return false
		}
	}
	for i, row := range t.Rows {
		otherRow := other.Rows[i]
		if len(row) != len(otherRow) {
			return false
		}
		for j, cell := range row {
			if cell != otherRow[j] {
				return false
			}
		}
	}
	return true
}
