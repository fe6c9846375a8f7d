// Package sheet is the in-memory workbook exchanged at the upload and
// export boundary, plus the canonical layouts the reconciler understands.
package sheet

import (
	"fmt"
	"strconv"
	"strings"
)

// Row is one spreadsheet row. Cells read from a file are strings; rows
// built for export may carry numbers. Trailing blank cells may be absent.
type Row []any

// Cell returns the value at col, or nil when the row is shorter.
func (r Row) Cell(col int) any {
	if col < 0 || col >= len(r) {
		return nil
	}
	return r[col]
}

// Blank reports whether every cell in the row is empty.
func (r Row) Blank() bool {
	for _, v := range r {
		if Text(v) != "" {
			return false
		}
	}
	return true
}

// Sheet is a named grid of rows. The first row is the header.
type Sheet struct {
	Name string
	Rows []Row
}

// Header returns the first row, or nil for an empty sheet.
func (s *Sheet) Header() Row {
	if len(s.Rows) == 0 {
		return nil
	}
	return s.Rows[0]
}

// Data returns every row after the header.
func (s *Sheet) Data() []Row {
	if len(s.Rows) < 2 {
		return nil
	}
	return s.Rows[1:]
}

// Append adds a row.
func (s *Sheet) Append(cells ...any) {
	s.Rows = append(s.Rows, Row(cells))
}

// Workbook is an ordered set of sheets with unique names.
type Workbook struct {
	sheets []*Sheet
}

// NewWorkbook returns an empty workbook.
func NewWorkbook() *Workbook {
	return &Workbook{}
}

// Add appends a sheet, replacing any existing sheet with the same name.
func (w *Workbook) Add(s *Sheet) {
	for i, existing := range w.sheets {
		if existing.Name == s.Name {
			w.sheets[i] = s
			return
		}
	}
	w.sheets = append(w.sheets, s)
}

// Sheet looks a sheet up by exact name.
func (w *Workbook) Sheet(name string) (*Sheet, bool) {
	if w == nil {
		return nil, false
	}
	for _, s := range w.sheets {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Sheets returns the sheets in order.
func (w *Workbook) Sheets() []*Sheet {
	if w == nil {
		return nil
	}
	return w.sheets
}

// Names returns the sheet names in order.
func (w *Workbook) Names() []string {
	names := make([]string, 0, len(w.Sheets()))
	for _, s := range w.Sheets() {
		names = append(names, s.Name)
	}
	return names
}

// Text renders a cell as trimmed text. Whole floats print without a
// fraction so a SKU typed as 1001 does not come back as "1001.0".
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
