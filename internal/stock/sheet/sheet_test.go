package sheet_test

import (
	"bytes"
	"testing"

	"github.com/shopstock/stock-backend/internal/stock/sheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutResolve(t *testing.T) {
	header := sheet.Row{"  shop user ", "Notes", "sku", "DESCRIPTION", "Retail  Price", "Quantity"}

	cols, err := sheet.Shop.Resolve(header)
	require.NoError(t, err)

	target, ok := cols.Target(0)
	require.True(t, ok)
	assert.Equal(t, sheet.ShopUserName, target)

	_, ok = cols.Target(1)
	assert.False(t, ok, "unknown columns are ignored")

	target, ok = cols.Target(5)
	require.True(t, ok)
	assert.Equal(t, sheet.ShopItemQuantity, target, "shop quantity belongs to the shop item")

	target, ok = cols.Target(3)
	require.True(t, ok)
	assert.Equal(t, sheet.TargetItem, target.Entity, "description belongs to the item")

	row := sheet.Row{"alice", "ignored", " A1 ", "Widget", "1.50"}
	assert.Equal(t, "A1", cols.Text(row, sheet.ItemSKU))
	assert.Equal(t, "1.50", cols.Cell(row, sheet.ItemRetailPrice))
	assert.Nil(t, cols.Cell(row, sheet.ShopItemQuantity), "short rows read as blank")
}

func TestLayoutResolve_MissingColumns(t *testing.T) {
	_, err := sheet.Warehouse.Resolve(sheet.Row{"SKU", "Price"})
	require.Error(t, err)

	var missing *sheet.MissingColumnsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"Description", "Retail Price", "Quantity"}, missing.Missing)
}

func TestLayoutConforms(t *testing.T) {
	wb := sheet.NewWorkbook()
	assert.False(t, sheet.Warehouse.Conforms(wb))

	wb.Add(&sheet.Sheet{Name: sheet.WarehouseSheet, Rows: []sheet.Row{{"SKU", "Quantity"}}})
	assert.False(t, sheet.Warehouse.Conforms(wb))

	wb.Add(sheet.Warehouse.NewSheet())
	assert.True(t, sheet.Warehouse.Conforms(wb))
	assert.Equal(t, []string{sheet.WarehouseSheet}, wb.Names(), "adding a sheet with the same name replaces it")
}

func TestText(t *testing.T) {
	assert.Equal(t, "", sheet.Text(nil))
	assert.Equal(t, "abc", sheet.Text("  abc "))
	assert.Equal(t, "1001", sheet.Text(float64(1001)))
	assert.Equal(t, "2.5", sheet.Text(2.5))
	assert.Equal(t, "7", sheet.Text(7))
}

func TestRowBlank(t *testing.T) {
	assert.True(t, sheet.Row{}.Blank())
	assert.True(t, sheet.Row{"", " ", nil}.Blank())
	assert.False(t, sheet.Row{"", "x"}.Blank())
}

func TestWriteRead(t *testing.T) {
	wb := sheet.NewWorkbook()
	warehouse := sheet.Warehouse.NewSheet()
	warehouse.Append("A1", "Widget", 12.35, 10)
	warehouse.Append("B2", "", 0.5, 0)
	wb.Add(warehouse)

	shop := sheet.Shop.NewSheet()
	shop.Append("alice", "A1", "Widget", 12.35, 3)
	wb.Add(shop)

	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))

	got, err := sheet.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{sheet.WarehouseSheet, sheet.ShopSheet}, got.Names())

	ws, ok := got.Sheet(sheet.WarehouseSheet)
	require.True(t, ok)
	require.Len(t, ws.Rows, 3)
	assert.Equal(t, sheet.Row{"SKU", "Description", "Retail Price", "Quantity"}, ws.Header())
	assert.Equal(t, sheet.Row{"A1", "Widget", "12.35", "10"}, ws.Rows[1])
	// Trailing and interior blanks survive as empty strings.
	assert.Equal(t, "", ws.Rows[2][1])

	ss, ok := got.Sheet(sheet.ShopSheet)
	require.True(t, ok)
	assert.Equal(t, sheet.Row{"alice", "A1", "Widget", "12.35", "3"}, ss.Rows[1])
}

func TestReadRejectsGarbage(t *testing.T) {
	_, err := sheet.Read(bytes.NewReader([]byte("not a zip")))
	assert.Error(t, err)
}
