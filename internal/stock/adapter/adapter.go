// Package adapter converts deployment specific spreadsheet layouts into
// the canonical Warehouse Stock and Shop Stock sheets.
package adapter

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopstock/stock-backend/internal/stock/numeric"
	"github.com/shopstock/stock-backend/internal/stock/sheet"
	"github.com/shopstock/stock-backend/pkg/config"
	"github.com/shopstock/stock-backend/pkg/errors"
)

// Adapter turns an arbitrary workbook into one holding zero, one or two
// canonical sheets. Failures should wrap errors.ErrConversionFailed.
type Adapter interface {
	Convert(ctx context.Context, wb *sheet.Workbook) (*sheet.Workbook, error)
}

// Func adapts a plain function to Adapter.
type Func func(ctx context.Context, wb *sheet.Workbook) (*sheet.Workbook, error)

// Convert calls f.
func (f Func) Convert(ctx context.Context, wb *sheet.Workbook) (*sheet.Workbook, error) {
	return f(ctx, wb)
}

// ColumnMapper reads one wide sheet where each row is a SKU and stock
// held at each location sits in its own column.
type ColumnMapper struct {
	cfg config.AdapterConfig
}

// FromConfig returns a ColumnMapper, or nil when no source sheet is
// configured.
func FromConfig(cfg config.AdapterConfig) Adapter {
	if strings.TrimSpace(cfg.SourceSheet) == "" {
		return nil
	}
	return &ColumnMapper{cfg: cfg}
}

type warehouseLine struct {
	sku         string
	description string
	price       any
	quantity    int
}

type shopColumn struct {
	col  int
	user string
}

type shopKey struct {
	user string
	sku  string
}

// Convert implements Adapter.
func (m *ColumnMapper) Convert(ctx context.Context, wb *sheet.Workbook) (*sheet.Workbook, error) {
	src, ok := wb.Sheet(m.cfg.SourceSheet)
	if !ok {
		return nil, errors.ConversionFailed(fmt.Sprintf("sheet %q not found", m.cfg.SourceSheet))
	}

	idx := headerIndex(src.Header())
	skuCol, err := idx.require(m.cfg.SKUColumn)
	if err != nil {
		return nil, err
	}
	descCol, err := idx.optional(m.cfg.DescriptionColumn)
	if err != nil {
		return nil, err
	}
	priceCol, err := idx.optional(m.cfg.PriceColumn)
	if err != nil {
		return nil, err
	}

	warehouseCols := make([]int, 0, len(m.cfg.WarehouseColumns))
	for _, name := range m.cfg.WarehouseColumns {
		c, err := idx.require(name)
		if err != nil {
			return nil, err
		}
		warehouseCols = append(warehouseCols, c)
	}

	// Sorted so output order does not depend on map iteration.
	shopNames := make([]string, 0, len(m.cfg.ShopColumns))
	for name := range m.cfg.ShopColumns {
		shopNames = append(shopNames, name)
	}
	sort.Strings(shopNames)
	shopCols := make([]shopColumn, 0, len(shopNames))
	for _, name := range shopNames {
		c, err := idx.require(name)
		if err != nil {
			return nil, err
		}
		shopCols = append(shopCols, shopColumn{col: c, user: m.cfg.ShopColumns[name]})
	}

	var (
		lines     []*warehouseLine
		bySKU     = make(map[string]*warehouseLine)
		shopOrder []shopKey
		shopQty   = make(map[shopKey]int)
	)

	header := src.Header()
	for i, row := range src.Data() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rowNum := i + 2

		sku := numeric.CleanCell(sheet.Text(row.Cell(skuCol)))
		if sku == "" {
			continue
		}

		line, seen := bySKU[sku]
		if !seen {
			line = &warehouseLine{sku: sku}
			bySKU[sku] = line
			lines = append(lines, line)
		}
		if line.description == "" && descCol >= 0 {
			line.description = sheet.Text(row.Cell(descCol))
		}
		if line.price == nil && priceCol >= 0 && !numeric.IsBlank(row.Cell(priceCol)) {
			line.price = convertPrice(row.Cell(priceCol))
		}

		for _, c := range warehouseCols {
			qty, err := quantityAt(row, c, rowNum, header)
			if err != nil {
				return nil, err
			}
			line.quantity += qty
		}

		for _, sc := range shopCols {
			qty, err := quantityAt(row, sc.col, rowNum, header)
			if err != nil {
				return nil, err
			}
			key := shopKey{user: sc.user, sku: sku}
			if _, ok := shopQty[key]; !ok {
				shopOrder = append(shopOrder, key)
			}
			shopQty[key] += qty
		}
	}

	out := sheet.NewWorkbook()
	if len(warehouseCols) > 0 {
		ws := sheet.Warehouse.NewSheet()
		for _, l := range lines {
			ws.Append(l.sku, l.description, priceOrZero(l.price), l.quantity)
		}
		out.Add(ws)
	}

	if len(shopCols) > 0 {
		ss := sheet.Shop.NewSheet()
		for _, key := range shopOrder {
			qty := shopQty[key]
			if qty == 0 {
				continue
			}
			l := bySKU[key.sku]
			ss.Append(key.user, key.sku, l.description, priceOrZero(l.price), qty)
		}
		out.Add(ss)
	}

	return out, nil
}

// convertPrice rounds parsable prices and passes anything else through so
// the reconciler can record the SKU as skipped.
func convertPrice(raw any) any {
	p, err := numeric.SanitizePrice(raw)
	if err != nil {
		return sheet.Text(raw)
	}
	return numeric.FormatPrice(p)
}

func priceOrZero(p any) any {
	if p == nil {
		return numeric.FormatPrice(numeric.ZeroPrice)
	}
	return p
}

func quantityAt(row sheet.Row, col, rowNum int, header sheet.Row) (int, error) {
	qty, err := numeric.SanitizeQuantity(row.Cell(col))
	if err != nil {
		return 0, errors.ConversionFailed(fmt.Sprintf(
			"row %d column %q: %q is not a whole number",
			rowNum, sheet.Text(header.Cell(col)), sheet.Text(row.Cell(col)),
		))
	}
	return qty, nil
}

type index map[string]int

func headerIndex(header sheet.Row) index {
	idx := make(index, len(header))
	for i, h := range header {
		key := strings.ToLower(numeric.CleanCell(sheet.Text(h)))
		if _, dup := idx[key]; key != "" && !dup {
			idx[key] = i
		}
	}
	return idx
}

func (idx index) require(name string) (int, error) {
	if strings.TrimSpace(name) == "" {
		return -1, errors.ConversionFailed("adapter column name is empty")
	}
	c, ok := idx[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return -1, errors.ConversionFailed(fmt.Sprintf("column %q not found", name))
	}
	return c, nil
}

// optional returns -1 for an unconfigured column.
func (idx index) optional(name string) (int, error) {
	if strings.TrimSpace(name) == "" {
		return -1, nil
	}
	return idx.require(name)
}
