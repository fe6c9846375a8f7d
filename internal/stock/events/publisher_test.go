package events_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/shopstock/stock-backend/internal/stock/events"
	"github.com/shopstock/stock-backend/internal/stock/service"
	"github.com/shopstock/stock-backend/pkg/actor"
	"github.com/shopstock/stock-backend/pkg/logger"
	"github.com/shopstock/stock-backend/pkg/messaging"
	"github.com/shopstock/stock-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyTransferRequest(t *testing.T) {
	mock := testutil.NewMockPublisher()
	pub := events.NewWithPublisher(mock, logger.NewNop())
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	pub.NotifyTransferRequest(context.Background(), service.TransferRequest{
		UserID:   "u1",
		Username: "shop1",
		Email:    "shop1@example.com",
		Deliver:  true,
		Records: []service.TransferRecord{
			{TransferID: 7, SKU: "A1", Description: "Mug", RetailPrice: decimal.RequireFromString("4.5"), Quantity: 3},
		},
		RequestedAt: at,
	})

	published := mock.Events()
	require.Len(t, published, 1)
	assert.Equal(t, messaging.EventTransferRequested, published[0].Type)

	data, ok := published[0].Payload.(messaging.TransferRequestedEvent)
	require.True(t, ok)
	assert.Equal(t, "shop1", data.Username)
	assert.True(t, data.Deliver)
	assert.Equal(t, at, data.RequestedAt)
	require.Len(t, data.Records, 1)
	assert.Equal(t, messaging.TransferRecord{
		TransferID: 7, SKU: "A1", Description: "Mug", RetailPrice: "4.50", Quantity: 3,
	}, data.Records[0])
}

func TestStockReconciled(t *testing.T) {
	mock := testutil.NewMockPublisher()
	pub := events.NewWithPublisher(mock, logger.NewNop())

	pub.StockReconciled(context.Background(), &actor.Actor{Username: "boss"}, &service.ReconcileResult{
		ProcessedSKUs: []string{"A1", "B2"},
		SkippedSKUs:   []string{"B2"},
		ItemsCreated:  1,
	})
	pub.StockReconciled(context.Background(), nil, nil)

	published := mock.Events()
	require.Len(t, published, 1)
	data := published[0].Payload.(messaging.StockReconciledEvent)
	assert.Equal(t, "boss", data.Username)
	assert.Equal(t, 2, data.ProcessedCount)
	assert.Equal(t, []string{"B2"}, data.SkippedSKUs)
	assert.Equal(t, 1, data.ItemsCreated)
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	mock := testutil.NewMockPublisher()
	mock.Err = stderrors.New("broker down")
	pub := events.NewWithPublisher(mock, logger.NewNop())

	assert.NotPanics(t, func() {
		pub.NotifyTransferRequest(context.Background(), service.TransferRequest{Username: "shop1"})
	})
	mock.AssertEventPublished(t, messaging.EventTransferRequested)
}
