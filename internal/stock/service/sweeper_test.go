package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopstock/stock-backend/internal/stock/domain"
	"github.com/shopstock/stock-backend/internal/stock/service"
	"github.com/shopstock/stock-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep_RemovesOrphansAndIsIdempotent(t *testing.T) {
	e := newEnv()
	e.item(testutil.WithSKU("A1"))
	a1, gone := "A1", "GONE"
	kept := e.store.PutShopItem(domain.ShopItem{ShopUserID: e.shop.UserID, SKU: &a1, Quantity: 1})
	e.store.PutShopItem(domain.ShopItem{ShopUserID: e.shop.UserID, Quantity: 2})
	e.store.PutShopItem(domain.ShopItem{ShopUserID: e.shop.UserID, SKU: &gone, Quantity: 3})

	sweeper := service.NewSweeper(e.store, e.log)

	res, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, service.SweepResult{Unreferenced: 1, Dangling: 1}, res)
	assert.EqualValues(t, 2, res.Total())

	held := e.store.ShopItems()
	require.Len(t, held, 1)
	assert.Equal(t, kept.ID, held[0].ID)

	res, err = sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Total())
}

func TestSweep_AfterItemRemoval(t *testing.T) {
	e := newEnv()
	e.item(testutil.WithSKU("A1"))
	a1 := "A1"
	e.store.PutShopItem(domain.ShopItem{ShopUserID: e.shop.UserID, SKU: &a1, Quantity: 1})
	e.store.RemoveItem("A1")

	res, err := service.NewSweeper(e.store, e.log).Sweep(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Unreferenced)
	assert.Empty(t, e.store.ShopItems())
}

func TestSweepScheduler(t *testing.T) {
	e := newEnv()
	sched := service.NewSweepScheduler(service.NewSweeper(e.store, e.log), 10*time.Millisecond, e.log)
	sched.Start(context.Background())
	defer sched.Stop()

	e.store.PutShopItem(domain.ShopItem{ShopUserID: e.shop.UserID, Quantity: 1})
	testutil.RequireEventually(t, func() bool {
		return len(e.store.ShopItems()) == 0
	}, 2*time.Second, 10*time.Millisecond, "scheduled sweep never removed the orphan")
}

func TestSweepScheduler_DisabledStopIsSafe(t *testing.T) {
	e := newEnv()
	sched := service.NewSweepScheduler(service.NewSweeper(e.store, e.log), 0, e.log)
	sched.Start(context.Background())
	sched.Stop()

	e.store.PutShopItem(domain.ShopItem{ShopUserID: e.shop.UserID, Quantity: 1})
	assert.Len(t, e.store.ShopItems(), 1)
}
