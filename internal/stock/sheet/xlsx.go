package sheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// priceFormat is the built-in "0.00" number format.
const priceFormat = 2

// Read parses an .xlsx stream. Cells are read raw so number formats never
// leak currency glyphs or rounding into values.
func Read(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	wb := NewWorkbook()
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}

		s := &Sheet{Name: name, Rows: make([]Row, 0, len(rows))}
		for _, cells := range rows {
			row := make(Row, len(cells))
			for i, c := range cells {
				row[i] = c
			}
			s.Rows = append(s.Rows, row)
		}
		wb.Add(s)
	}
	return wb, nil
}

// Write encodes the workbook as .xlsx. Header rows are bold and any
// "Retail Price" column is shown with two decimals.
func (w *Workbook) Write(out io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: priceFormat})
	if err != nil {
		return err
	}

	for i, s := range w.Sheets() {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.Name); err != nil {
				return fmt.Errorf("name sheet %q: %w", s.Name, err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return fmt.Errorf("add sheet %q: %w", s.Name, err)
		}

		for r, row := range s.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			values := []any(row)
			if err := f.SetSheetRow(s.Name, cell, &values); err != nil {
				return fmt.Errorf("write %s!%s: %w", s.Name, cell, err)
			}
		}

		if len(s.Rows) == 0 {
			continue
		}
		if err := f.SetRowStyle(s.Name, 1, 1, bold); err != nil {
			return err
		}
		for c, h := range s.Header() {
			if normalizeHeader(Text(h)) != "retail price" {
				continue
			}
			col, err := excelize.ColumnNumberToName(c + 1)
			if err != nil {
				return err
			}
			if err := f.SetColStyle(s.Name, col, money); err != nil {
				return err
			}
		}
	}

	return f.Write(out)
}
