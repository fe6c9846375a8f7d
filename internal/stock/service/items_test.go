package service_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/shopstock/stock-backend/internal/stock/service"
	"github.com/shopstock/stock-backend/pkg/errors"
	"github.com/shopstock/stock-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("new item with defaults", func(t *testing.T) {
		e := newEnv()
		svc := service.NewItemService(e.store, e.log)

		item, reactivated, err := svc.Create(ctx, e.managerActor(), service.ItemInput{SKU: "  N1 "})
		require.NoError(t, err)
		assert.False(t, reactivated)
		assert.Equal(t, "N1", item.SKU)
		assert.True(t, item.IsActive)
		assert.Zero(t, item.Quantity)
		assertPrice(t, "0.00", item.RetailPrice)
	})

	t.Run("price rounded to two places", func(t *testing.T) {
		e := newEnv()
		svc := service.NewItemService(e.store, e.log)
		price := decimal.RequireFromString("3.456")

		item, _, err := svc.Create(ctx, e.managerActor(), service.ItemInput{SKU: "N1", RetailPrice: &price})
		require.NoError(t, err)
		assertPrice(t, "3.46", item.RetailPrice)
	})

	t.Run("active duplicate conflicts", func(t *testing.T) {
		e := newEnv()
		e.item(testutil.WithSKU("A1"))

		_, _, err := service.NewItemService(e.store, e.log).Create(ctx, e.managerActor(), service.ItemInput{SKU: "A1"})
		assert.True(t, errors.Is(err, errors.ErrConflict))
		assert.Contains(t, err.Error(), "Item with this SKU already exists.")
	})

	t.Run("inactive duplicate is reactivated", func(t *testing.T) {
		e := newEnv()
		e.item(testutil.WithSKU("A1"), testutil.Inactive(), testutil.WithQuantity(3))
		qty := 8

		item, reactivated, err := service.NewItemService(e.store, e.log).
			Create(ctx, e.managerActor(), service.ItemInput{SKU: "A1", Quantity: &qty})
		require.NoError(t, err)
		assert.True(t, reactivated)
		assert.True(t, item.IsActive)
		assert.Equal(t, 8, item.Quantity)
	})

	t.Run("validation and permissions", func(t *testing.T) {
		e := newEnv()
		svc := service.NewItemService(e.store, e.log)
		neg := -1

		_, _, err := svc.Create(ctx, e.managerActor(), service.ItemInput{SKU: " "})
		assert.True(t, errors.Is(err, errors.ErrValidation))

		_, _, err = svc.Create(ctx, e.managerActor(), service.ItemInput{SKU: "N1", Quantity: &neg})
		assert.True(t, errors.Is(err, errors.ErrValidation))

		_, _, err = svc.Create(ctx, e.shopActor(), service.ItemInput{SKU: "N1"})
		assert.True(t, errors.Is(err, errors.ErrForbidden))
		assert.Empty(t, e.store.Items())
	})
}

func TestItemService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.item(testutil.WithSKU("A1"), testutil.WithQuantity(5))
	svc := service.NewItemService(e.store, e.log)

	desc := " Blue mug "
	item, err := svc.Update(ctx, e.managerActor(), "A1", service.ItemInput{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Blue mug", item.Description)
	assert.Equal(t, 5, item.Quantity)

	require.NoError(t, svc.Delete(ctx, e.managerActor(), "A1"))
	stored, ok := e.store.Item("A1")
	require.True(t, ok)
	assert.False(t, stored.IsActive)

	_, err = svc.Get(ctx, e.shopActor(), "A1")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	got, err := svc.Get(ctx, e.managerActor(), "A1")
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	item, err = svc.Update(ctx, e.managerActor(), "A1", service.ItemInput{})
	require.NoError(t, err)
	assert.True(t, item.IsActive)

	err = svc.Delete(ctx, e.managerActor(), "MISSING")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestItemService_List(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.item(testutil.WithSKU("A1"))
	e.item(testutil.WithSKU("B2"), testutil.Inactive())
	svc := service.NewItemService(e.store, e.log)

	items, err := svc.List(ctx, e.shopActor(), service.ItemQuery{IncludeInactive: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A1", items[0].SKU)

	items, err = svc.List(ctx, e.managerActor(), service.ItemQuery{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = svc.List(ctx, e.managerActor(), service.ItemQuery{Search: "b2", IncludeInactive: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "B2", items[0].SKU)
}
