package sheet

import (
	"fmt"
	"strings"

	"github.com/shopstock/stock-backend/internal/stock/numeric"
)

// Sheet names the reconciler and the exporter agree on.
const (
	WarehouseSheet = "Warehouse Stock"
	ShopSheet      = "Shop Stock"
)

// Entity is the record a column writes to.
type Entity int

const (
	TargetItem Entity = iota + 1
	TargetShopItem
	TargetShopUser
)

func (e Entity) String() string {
	switch e {
	case TargetItem:
		return "item"
	case TargetShopItem:
		return "shop_item"
	case TargetShopUser:
		return "shop_user"
	default:
		return "unknown"
	}
}

// Field is a column of the target record.
type Field string

const (
	FieldSKU         Field = "sku"
	FieldDescription Field = "description"
	FieldRetailPrice Field = "retail_price"
	FieldQuantity    Field = "quantity"
	FieldUsername    Field = "username"
)

// FieldTarget says which record and field a spreadsheet column feeds. A
// Shop Stock "Description" column targets the Item, not the ShopItem.
type FieldTarget struct {
	Entity Entity
	Field  Field
}

func (t FieldTarget) String() string {
	return t.Entity.String() + "." + string(t.Field)
}

// Well known targets.
var (
	ItemSKU          = FieldTarget{TargetItem, FieldSKU}
	ItemDescription  = FieldTarget{TargetItem, FieldDescription}
	ItemRetailPrice  = FieldTarget{TargetItem, FieldRetailPrice}
	ItemQuantity     = FieldTarget{TargetItem, FieldQuantity}
	ShopItemQuantity = FieldTarget{TargetShopItem, FieldQuantity}
	ShopUserName     = FieldTarget{TargetShopUser, FieldUsername}
)

// Column binds a canonical header to its target.
type Column struct {
	Header string
	Target FieldTarget
}

// Layout is a canonical sheet schema.
type Layout struct {
	Sheet   string
	Columns []Column
}

// Warehouse is the "Warehouse Stock" schema.
var Warehouse = Layout{
	Sheet: WarehouseSheet,
	Columns: []Column{
		{"SKU", ItemSKU},
		{"Description", ItemDescription},
		{"Retail Price", ItemRetailPrice},
		{"Quantity", ItemQuantity},
	},
}

// Shop is the "Shop Stock" schema.
var Shop = Layout{
	Sheet: ShopSheet,
	Columns: []Column{
		{"Shop User", ShopUserName},
		{"SKU", ItemSKU},
		{"Description", ItemDescription},
		{"Retail Price", ItemRetailPrice},
		{"Quantity", ShopItemQuantity},
	},
}

// Header returns the canonical header row.
func (l Layout) Header() Row {
	row := make(Row, len(l.Columns))
	for i, c := range l.Columns {
		row[i] = c.Header
	}
	return row
}

// NewSheet returns an empty sheet holding only the canonical header.
func (l Layout) NewSheet() *Sheet {
	return &Sheet{Name: l.Sheet, Rows: []Row{l.Header()}}
}

// MissingColumnsError lists canonical headers absent from a sheet.
type MissingColumnsError struct {
	Sheet   string
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("sheet %q is missing columns: %s", e.Sheet, strings.Join(e.Missing, ", "))
}

// Columns is a header resolved against a layout. Each column index maps
// to at most one target; extra columns are ignored.
type Columns struct {
	targets map[int]FieldTarget
	index   map[FieldTarget]int
}

// Resolve maps header cells to targets. Matching ignores case and
// surrounding spreadsheet artifacts. Every canonical column must be
// present; the first occurrence of a duplicated header wins.
func (l Layout) Resolve(header Row) (*Columns, error) {
	byName := make(map[string]int, len(header))
	for i, cell := range header {
		key := normalizeHeader(Text(cell))
		if _, dup := byName[key]; key != "" && !dup {
			byName[key] = i
		}
	}

	cols := &Columns{
		targets: make(map[int]FieldTarget, len(l.Columns)),
		index:   make(map[FieldTarget]int, len(l.Columns)),
	}
	var missing []string
	for _, c := range l.Columns {
		i, ok := byName[normalizeHeader(c.Header)]
		if !ok {
			missing = append(missing, c.Header)
			continue
		}
		cols.targets[i] = c.Target
		cols.index[c.Target] = i
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Sheet: l.Sheet, Missing: missing}
	}
	return cols, nil
}

// Conforms reports whether wb holds this layout's sheet with every
// canonical column.
func (l Layout) Conforms(wb *Workbook) bool {
	s, ok := wb.Sheet(l.Sheet)
	if !ok {
		return false
	}
	_, err := l.Resolve(s.Header())
	return err == nil
}

// Target returns the target of column col.
func (c *Columns) Target(col int) (FieldTarget, bool) {
	t, ok := c.targets[col]
	return t, ok
}

// Cell returns the row's value for target, nil when absent.
func (c *Columns) Cell(row Row, target FieldTarget) any {
	i, ok := c.index[target]
	if !ok {
		return nil
	}
	return row.Cell(i)
}

// Text returns the row's value for target as trimmed text.
func (c *Columns) Text(row Row, target FieldTarget) string {
	return Text(c.Cell(row, target))
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(numeric.CleanCell(h)), " "))
}
