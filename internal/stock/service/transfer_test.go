package service_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/shopstock/stock-backend/internal/stock/domain"
	"github.com/shopstock/stock-backend/internal/stock/service"
	"github.com/shopstock/stock-backend/pkg/errors"
	"github.com/shopstock/stock-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lockEdits(e *env) {
	cfg := e.store.Config()
	cfg.EditLock = true
	e.store.SetConfig(cfg)
}

func totalUnits(e *env, sku string) int {
	item, _ := e.store.Item(sku)
	total := item.Quantity
	for _, si := range e.store.ShopItems() {
		if si.SKU != nil && *si.SKU == sku {
			total += si.Quantity
		}
	}
	return total
}

func TestTransfer_ReserveSubmitCompleteConservesStock(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.item(testutil.WithSKU("A1"), testutil.WithQuantity(10))
	svc := e.transfers()

	tr, err := svc.Reserve(ctx, e.shopActor(), service.ReserveRequest{SKU: "A1", Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, domain.TransferReserved, tr.State())

	lines, err := svc.Submit(ctx, e.shopActor())
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].Ordered)

	err = svc.Complete(ctx, e.managerActor(), service.CompleteRequest{SKU: "A1", Username: "shop1", Quantity: 4})
	require.NoError(t, err)

	item, _ := e.store.Item("A1")
	assert.Equal(t, 6, item.Quantity)
	held := e.store.ShopItems()
	require.Len(t, held, 1)
	assert.Equal(t, 4, held[0].Quantity)
	assert.Empty(t, e.store.Transfers())
	assert.Equal(t, 10, totalUnits(e, "A1"))
}

func TestTransfer_CompleteAddsToExistingHolding(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.item(testutil.WithSKU("A1"), testutil.WithQuantity(10))
	sku := "A1"
	e.store.PutShopItem(domain.ShopItem{ShopUserID: e.shop.UserID, SKU: &sku, Quantity: 2})
	e.store.PutTransfer(domain.TransferItem{ShopUserID: e.shop.UserID, SKU: "A1", Quantity: 3, Ordered: true})

	err := e.transfers().Complete(ctx, e.managerActor(), service.CompleteRequest{SKU: "A1", Username: "shop1", Quantity: 3})
	require.NoError(t, err)

	held := e.store.ShopItems()
	require.Len(t, held, 1)
	assert.Equal(t, 5, held[0].Quantity)
	assert.Equal(t, 12, totalUnits(e, "A1"))
}

func TestTransfer_ReserveThenCancelChangesNothing(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.item(testutil.WithSKU("A1"), testutil.WithQuantity(10))
	svc := e.transfers()

	_, err := svc.Reserve(ctx, e.shopActor(), service.ReserveRequest{SKU: "A1", Quantity: 4})
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(ctx, e.shopActor(), service.CancelRequest{SKU: "A1"}))

	item, _ := e.store.Item("A1")
	assert.Equal(t, 10, item.Quantity)
	assert.Empty(t, e.store.Transfers())
	assert.Empty(t, e.store.ShopItems())
}

func TestTransfer_ReserveReplacesQuantity(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.item(testutil.WithSKU("A1"), testutil.WithQuantity(10))
	svc := e.transfers()

	_, err := svc.Reserve(ctx, e.shopActor(), service.ReserveRequest{SKU: "A1", Quantity: 4})
	require.NoError(t, err)
	tr, err := svc.Reserve(ctx, e.shopActor(), service.ReserveRequest{SKU: "A1", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, tr.Quantity)

	transfers := e.store.Transfers()
	require.Len(t, transfers, 1)
	assert.Equal(t, 2, transfers[0].Quantity)
}

func TestTransfer_ReserveFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(e *env)
		req   func(e *env) service.ReserveRequest
		want  error
	}{
		{
			name:  "over reservation",
			req:   func(e *env) service.ReserveRequest { return service.ReserveRequest{SKU: "A1", Quantity: 11} },
			want:  errors.ErrInsufficientStock,
		},
		{
			name:  "edit lock",
			setup: lockEdits,
			req:   func(e *env) service.ReserveRequest { return service.ReserveRequest{SKU: "A1", Quantity: 1} },
			want:  errors.ErrEditLocked,
		},
		{
			name: "already ordered",
			setup: func(e *env) {
				e.store.PutTransfer(domain.TransferItem{ShopUserID: e.shop.UserID, SKU: "A1", Quantity: 1, Ordered: true})
			},
			req:   func(e *env) service.ReserveRequest { return service.ReserveRequest{SKU: "A1", Quantity: 2} },
			want:  errors.ErrAlreadyOrdered,
		},
		{
			name:  "unknown item",
			req:   func(e *env) service.ReserveRequest { return service.ReserveRequest{SKU: "NOPE", Quantity: 1} },
			want:  errors.ErrNotFound,
		},
		{
			name:  "inactive item",
			setup: func(e *env) { e.item(testutil.WithSKU("OFF"), testutil.Inactive()) },
			req:   func(e *env) service.ReserveRequest { return service.ReserveRequest{SKU: "OFF", Quantity: 1} },
			want:  errors.ErrNotFound,
		},
		{
			name:  "zero quantity",
			req:   func(e *env) service.ReserveRequest { return service.ReserveRequest{SKU: "A1", Quantity: 0} },
			want:  errors.ErrValidation,
		},
		{
			name:  "other shop",
			req:   func(e *env) service.ReserveRequest { return service.ReserveRequest{SKU: "A1", Quantity: 1, Username: "boss"} },
			want:  errors.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			e.item(testutil.WithSKU("A1"), testutil.WithQuantity(10))
			if tt.setup != nil {
				tt.setup(e)
			}
			before := e.store.Transfers()

			_, err := e.transfers().Reserve(context.Background(), e.shopActor(), tt.req(e))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			assert.Equal(t, before, e.store.Transfers())
			item, _ := e.store.Item("A1")
			assert.Equal(t, 10, item.Quantity)
		})
	}
}

func TestTransfer_ManagerReservesForShopDuringMaintenance(t *testing.T) {
	e := newEnv()
	e.item(testutil.WithSKU("A1"), testutil.WithQuantity(10))
	lockEdits(e)

	tr, err := e.transfers().Reserve(context.Background(), e.managerActor(), service.ReserveRequest{SKU: "A1", Quantity: 1, Username: "shop1"})
	require.NoError(t, err)
	assert.Equal(t, e.shop.UserID, tr.ShopUserID)
}

func TestTransfer_Submit(t *testing.T) {
	t.Run("nothing pending", func(t *testing.T) {
		e := newEnv()
		_, err := e.transfers().Submit(context.Background(), e.shopActor())
		assert.True(t, errors.Is(err, errors.ErrNothingToSubmit))
		assert.Empty(t, e.events.requests)
	})

	t.Run("only ordered pending", func(t *testing.T) {
		e := newEnv()
		e.item(testutil.WithSKU("A1"))
		e.store.PutTransfer(domain.TransferItem{ShopUserID: e.shop.UserID, SKU: "A1", Quantity: 1, Ordered: true})

		_, err := e.transfers().Submit(context.Background(), e.shopActor())
		assert.True(t, errors.Is(err, errors.ErrNothingToSubmit))
		assert.Empty(t, e.events.requests)
	})

	t.Run("edit lock", func(t *testing.T) {
		e := newEnv()
		e.item(testutil.WithSKU("A1"))
		e.store.PutTransfer(domain.TransferItem{ShopUserID: e.shop.UserID, SKU: "A1", Quantity: 1})
		lockEdits(e)

		_, err := e.transfers().Submit(context.Background(), e.shopActor())
		assert.True(t, errors.Is(err, errors.ErrEditLocked))
		assert.False(t, e.store.Transfers()[0].Ordered)
	})

	t.Run("notifies with records", func(t *testing.T) {
		e := newEnv()
		e.item(testutil.WithSKU("A1"), testutil.WithPrice("2.50"))
		e.item(testutil.WithSKU("B2"))
		e.store.PutTransfer(domain.TransferItem{ShopUserID: e.shop.UserID, SKU: "A1", Quantity: 3})
		e.store.PutTransfer(domain.TransferItem{ShopUserID: e.shop.UserID, SKU: "B2", Quantity: 1})
		e.store.PutTransfer(domain.TransferItem{ShopUserID: e.manager.UserID, SKU: "A1", Quantity: 1})

		lines, err := e.transfers().Submit(context.Background(), e.shopActor())
		require.NoError(t, err)
		assert.Len(t, lines, 2)

		require.Len(t, e.events.requests, 1)
		req := e.events.requests[0]
		assert.Equal(t, "shop1", req.Username)
		assert.True(t, req.Deliver)
		require.Len(t, req.Records, 2)
		assert.Equal(t, "A1", req.Records[0].SKU)
		assert.Equal(t, 3, req.Records[0].Quantity)
		assertPrice(t, "2.50", req.Records[0].RetailPrice)

		for _, tr := range e.store.Transfers() {
			assert.Equal(t, tr.ShopUserID == e.shop.UserID, tr.Ordered)
		}
	})

	t.Run("notifications disabled", func(t *testing.T) {
		e := newEnv()
		e.item(testutil.WithSKU("A1"))
		e.store.PutTransfer(domain.TransferItem{ShopUserID: e.shop.UserID, SKU: "A1", Quantity: 1})
		cfg := e.store.Config()
		cfg.AllowEmailNotifications = false
		e.store.SetConfig(cfg)

		_, err := e.transfers().Submit(context.Background(), e.shopActor())
		require.NoError(t, err)
		require.Len(t, e.events.requests, 1)
		assert.False(t, e.events.requests[0].Deliver)
	})
}

func TestTransfer_CompleteFailures(t *testing.T) {
	ordered := func(e *env) {
		e.store.PutTransfer(domain.TransferItem{ShopUserID: e.shop.UserID, SKU: "A1", Quantity: 4, Ordered: true})
	}

	tests := []struct {
		name   string
		setup func(e *env)
		req   service.CompleteRequest
		shop  bool
		want  error
	}{
		{name: "not a manager", setup: ordered, shop: true, req: service.CompleteRequest{SKU: "A1", Username: "shop1", Quantity: 4}, want: errors.ErrForbidden},
		{name: "not ordered", setup: func(e *env) {
			e.store.PutTransfer(domain.TransferItem{ShopUserID: e.shop.UserID, SKU: "A1", Quantity: 4})
		}, req: service.CompleteRequest{SKU: "A1", Username: "shop1", Quantity: 4}, want: errors.ErrNotOrdered},
		{name: "no transfer", req: service.CompleteRequest{SKU: "A1", Username: "shop1", Quantity: 4}, want: errors.ErrNotFound},
		{name: "unknown shop", setup: ordered, req: service.CompleteRequest{SKU: "A1", Username: "ghost", Quantity: 4}, want: errors.ErrNotFound},
		{name: "insufficient stock", setup: ordered, req: service.CompleteRequest{SKU: "A1", Username: "shop1", Quantity: 11}, want: errors.ErrInsufficientStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			e.item(testutil.WithSKU("A1"), testutil.WithQuantity(10))
			if tt.setup != nil {
				tt.setup(e)
			}
			caller := e.managerActor()
			if tt.shop {
				caller = e.shopActor()
			}
			before := e.store.Transfers()

			err := e.transfers().Complete(context.Background(), caller, tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			item, _ := e.store.Item("A1")
			assert.Equal(t, 10, item.Quantity)
			assert.Empty(t, e.store.ShopItems())
			assert.Equal(t, before, e.store.Transfers())
		})
	}
}

func TestTransfer_CompleteIsAtomic(t *testing.T) {
	e := newEnv()
	e.item(testutil.WithSKU("A1"), testutil.WithQuantity(10))
	e.store.PutTransfer(domain.TransferItem{ShopUserID: e.shop.UserID, SKU: "A1", Quantity: 4, Ordered: true})
	boom := stderrors.New("connection reset")
	e.store.FailOn("DeleteTransfer", boom)

	err := e.transfers().Complete(context.Background(), e.managerActor(), service.CompleteRequest{SKU: "A1", Username: "shop1", Quantity: 4})
	require.ErrorIs(t, err, boom)

	item, _ := e.store.Item("A1")
	assert.Equal(t, 10, item.Quantity)
	assert.Empty(t, e.store.ShopItems())
	assert.Len(t, e.store.Transfers(), 1)
}

func TestTransfer_Cancel(t *testing.T) {
	t.Run("ignores edit lock", func(t *testing.T) {
		e := newEnv()
		e.item(testutil.WithSKU("A1"))
		e.store.PutTransfer(domain.TransferItem{ShopUserID: e.shop.UserID, SKU: "A1", Quantity: 1, Ordered: true})
		lockEdits(e)

		require.NoError(t, e.transfers().Cancel(context.Background(), e.shopActor(), service.CancelRequest{SKU: "A1"}))
		assert.Empty(t, e.store.Transfers())
	})

	t.Run("someone else's", func(t *testing.T) {
		e := newEnv()
		e.item(testutil.WithSKU("A1"))
		e.store.PutTransfer(domain.TransferItem{ShopUserID: e.manager.UserID, SKU: "A1", Quantity: 1})

		err := e.transfers().Cancel(context.Background(), e.shopActor(), service.CancelRequest{SKU: "A1", Username: "boss"})
		assert.True(t, errors.Is(err, errors.ErrForbidden))
		assert.Len(t, e.store.Transfers(), 1)
	})

	t.Run("manager for a shop", func(t *testing.T) {
		e := newEnv()
		e.item(testutil.WithSKU("A1"))
		e.store.PutTransfer(domain.TransferItem{ShopUserID: e.shop.UserID, SKU: "A1", Quantity: 1})

		require.NoError(t, e.transfers().Cancel(context.Background(), e.managerActor(), service.CancelRequest{SKU: "A1", Username: "shop1"}))
		assert.Empty(t, e.store.Transfers())
	})

	t.Run("nothing pending", func(t *testing.T) {
		e := newEnv()
		err := e.transfers().Cancel(context.Background(), e.shopActor(), service.CancelRequest{SKU: "A1"})
		assert.True(t, errors.Is(err, errors.ErrNotFound))
	})
}

func TestTransfer_List(t *testing.T) {
	e := newEnv()
	e.item(testutil.WithSKU("A1"))
	e.item(testutil.WithSKU("B2"))
	e.store.PutTransfer(domain.TransferItem{ShopUserID: e.shop.UserID, SKU: "A1", Quantity: 1})
	e.store.PutTransfer(domain.TransferItem{ShopUserID: e.shop.UserID, SKU: "B2", Quantity: 2, Ordered: true})

	mine, err := e.transfers().List(context.Background(), e.shopActor())
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	ordered, err := e.transfers().List(context.Background(), e.managerActor())
	require.NoError(t, err)
	require.Len(t, ordered, 1)
	assert.Equal(t, "B2", ordered[0].SKU)
	assert.Equal(t, "shop1", ordered[0].Username)
}
