package events

import (
	"context"

	"github.com/shopstock/stock-backend/internal/stock/numeric"
	"github.com/shopstock/stock-backend/internal/stock/service"
	"github.com/shopstock/stock-backend/pkg/actor"
	"github.com/shopstock/stock-backend/pkg/logger"
	"github.com/shopstock/stock-backend/pkg/messaging"
)

// Source names this service on published events.
const Source = "stock-service"

// StockEventPublisher publishes stock events. It is the service layer's
// NotificationSender and ReconcileListener; publish failures are logged,
// never returned, so a committed operation is not reported as failed.
type StockEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

var (
	_ service.NotificationSender = (*StockEventPublisher)(nil)
	_ service.ReconcileListener  = (*StockEventPublisher)(nil)
)

// NewStockEventPublisher declares the stock exchange and returns a publisher on it.
func NewStockEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*StockEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeStockEvents, Source, log)
	if err != nil {
		return nil, err
	}
	return NewWithPublisher(publisher, log), nil
}

// NewWithPublisher wraps an existing publisher.
func NewWithPublisher(p messaging.EventPublisher, log *logger.Logger) *StockEventPublisher {
	return &StockEventPublisher{
		publisher: p,
		logger:    log.WithComponent("stock-events"),
	}
}

// NotifyTransferRequest publishes a submitted transfer request.
func (p *StockEventPublisher) NotifyTransferRequest(ctx context.Context, req service.TransferRequest) {
	data := messaging.TransferRequestedEvent{
		UserID:      req.UserID,
		Username:    req.Username,
		Email:       req.Email,
		Records:     make([]messaging.TransferRecord, 0, len(req.Records)),
		Deliver:     req.Deliver,
		RequestedAt: req.RequestedAt,
	}
	for _, r := range req.Records {
		data.Records = append(data.Records, messaging.TransferRecord{
			TransferID:  r.TransferID,
			SKU:         r.SKU,
			Description: r.Description,
			RetailPrice: numeric.FormatPrice(r.RetailPrice),
			Quantity:    r.Quantity,
		})
	}

	if err := p.publisher.Publish(ctx, messaging.EventTransferRequested, data); err != nil {
		p.logger.Error().Err(err).
			Str("username", req.Username).
			Int("records", len(req.Records)).
			Msg("failed to publish transfer requested event")
	}
}

// StockReconciled publishes the outcome of a committed upload.
func (p *StockEventPublisher) StockReconciled(ctx context.Context, by *actor.Actor, res *service.ReconcileResult) {
	if res == nil {
		return
	}
	data := messaging.StockReconciledEvent{
		ProcessedCount:   len(res.ProcessedSKUs),
		SkippedSKUs:      res.SkippedSKUs,
		ItemsCreated:     res.ItemsCreated,
		ItemsUpdated:     res.ItemsUpdated,
		ItemsDeactivated: res.ItemsDeactivated,
		ShopItemsDeleted: res.ShopItemsDeleted,
	}
	if by != nil {
		data.Username = by.Username
	}

	if err := p.publisher.Publish(ctx, messaging.EventStockReconciled, data); err != nil {
		p.logger.Error().Err(err).Msg("failed to publish stock reconciled event")
	}
}
