package service_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopstock/stock-backend/internal/stock/domain"
	"github.com/shopstock/stock-backend/internal/stock/service"
	"github.com/shopstock/stock-backend/internal/stock/sheet"
	"github.com/shopstock/stock-backend/pkg/actor"
	"github.com/shopstock/stock-backend/pkg/errors"
	"github.com/shopstock/stock-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedExport(e *env) {
	e.item(testutil.WithSKU("A1"), testutil.WithPrice("12.35"), testutil.WithQuantity(4))
	e.item(testutil.WithSKU("B2"), testutil.Inactive())
	other := e.fixtures.User(testutil.WithUsername("shop2"))
	e.store.PutUser(other)
	a1 := "A1"
	e.store.PutShopItem(domain.ShopItem{ShopUserID: e.shop.UserID, SKU: &a1, Quantity: 2})
	e.store.PutShopItem(domain.ShopItem{ShopUserID: other.UserID, SKU: &a1, Quantity: 5})
}

func TestExport_ManagerSeesEveryShop(t *testing.T) {
	e := newEnv()
	seedExport(e)
	exp := service.NewExporter(e.store, "Europe/London", e.log)

	wb, name, err := exp.Export(context.Background(), e.managerActor())
	require.NoError(t, err)
	assert.Regexp(t, `^SSM_DATA_\d{2}[A-Z][a-z]{2}\d{4}_\d{6}[A-Z]+\.xlsx$`, name)

	assert.Equal(t, []string{sheet.WarehouseSheet, sheet.ShopSheet}, wb.Names())

	warehouse, _ := wb.Sheet(sheet.WarehouseSheet)
	assert.Equal(t, sheet.Warehouse.Header(), warehouse.Header())
	require.Len(t, warehouse.Data(), 1)
	assert.Equal(t, sheet.Row{"A1", "Test item 3", 12.35, 4}, warehouse.Data()[0])

	shop, _ := wb.Sheet(sheet.ShopSheet)
	require.Len(t, shop.Data(), 2)
	assert.Equal(t, "shop1", shop.Data()[0][0])
	assert.Equal(t, "shop2", shop.Data()[1][0])
}

func TestExport_ShopSeesOwnRows(t *testing.T) {
	e := newEnv()
	seedExport(e)

	wb, _, err := service.NewExporter(e.store, "UTC", e.log).Export(context.Background(), e.shopActor())
	require.NoError(t, err)

	shop, _ := wb.Sheet(sheet.ShopSheet)
	require.Len(t, shop.Data(), 1)
	assert.Equal(t, sheet.Row{"shop1", "A1", "Test item 3", 12.35, 2}, shop.Data()[0])
}

func TestExport_RequiresStockGroup(t *testing.T) {
	e := newEnv()
	outsider := &actor.Actor{ID: "x", Username: "outsider"}
	_, _, err := service.NewExporter(e.store, "UTC", e.log).Export(context.Background(), outsider)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}

func TestExport_Filename(t *testing.T) {
	e := newEnv()
	at := time.Date(2024, time.July, 3, 13, 4, 5, 0, time.UTC)

	assert.Equal(t, "SSM_DATA_03Jul2024_140405BST.xlsx", service.NewExporter(e.store, "Europe/London", e.log).Filename(at))
	assert.Equal(t, "SSM_DATA_03Jul2024_130405UTC.xlsx", service.NewExporter(e.store, "Not/AZone", e.log).Filename(at))
}

func TestExport_RoundTripsThroughReconcile(t *testing.T) {
	e := newEnv()
	seedExport(e)

	wb, _, err := service.NewExporter(e.store, "UTC", e.log).Export(context.Background(), e.managerActor())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))
	read, err := sheet.Read(&buf)
	require.NoError(t, err)

	res, err := e.reconciler().Reconcile(context.Background(), read, domain.DefaultAdminConfig(), service.ReconcileOptions{})
	require.NoError(t, err)
	assert.Zero(t, res.ItemsCreated)
	assert.Zero(t, res.ItemsUpdated)
	assert.Zero(t, res.ShopItemsUpdated)
	assert.Empty(t, res.SkippedSKUs)
}

func TestExport_ReimportWithDeletionsKeepsInactiveHoldings(t *testing.T) {
	e := newEnv()
	seedExport(e)
	e.item(testutil.WithSKU("Z9"), testutil.Inactive(), testutil.WithQuantity(0))
	z9 := "Z9"
	e.store.PutShopItem(domain.ShopItem{ShopUserID: e.shop.UserID, SKU: &z9, Quantity: 6})

	wb, _, err := service.NewExporter(e.store, "UTC", e.log).Export(context.Background(), e.managerActor())
	require.NoError(t, err)

	shop, _ := wb.Sheet(sheet.ShopSheet)
	require.Len(t, shop.Data(), 3)

	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))
	read, err := sheet.Read(&buf)
	require.NoError(t, err)

	cfg := domain.DefaultAdminConfig()
	cfg.AllowUploadDeletions = true
	res, err := e.reconciler().Reconcile(context.Background(), read, cfg, service.ReconcileOptions{})
	require.NoError(t, err)
	assert.Zero(t, res.ShopItemsDeleted)
	assert.Zero(t, res.ItemsDeactivated)
	assert.Zero(t, res.ItemsUpdated)

	held := e.store.ShopItems()
	require.Len(t, held, 3)
	var z9Held *domain.ShopItem
	for i := range held {
		if *held[i].SKU == "Z9" {
			z9Held = &held[i]
		}
	}
	require.NotNil(t, z9Held)
	assert.Equal(t, 6, z9Held.Quantity)

	item, _ := e.store.Item("Z9")
	assert.False(t, item.IsActive)
}
