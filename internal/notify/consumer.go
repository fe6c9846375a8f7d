package notify

import (
	"context"

	"github.com/shopstock/stock-backend/pkg/logger"
	"github.com/shopstock/stock-backend/pkg/messaging"
)

// QueueTransferRequests is the notifier's durable queue.
const QueueTransferRequests = "notifier.transfer-requests"

// TransferConsumer feeds transfer requested events to a Notifier.
type TransferConsumer struct {
	consumer *messaging.Consumer
}

// NewTransferConsumer creates a new transfer consumer
func NewTransferConsumer(rmq *messaging.RabbitMQ, n *Notifier, log *logger.Logger) (*TransferConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, QueueTransferRequests, log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeStockEvents, messaging.EventTransferRequested); err != nil {
		return nil, err
	}

	consumer.RegisterHandler(messaging.EventTransferRequested, n.HandleTransferRequested)
	return &TransferConsumer{consumer: consumer}, nil
}

// Start starts consuming messages
func (c *TransferConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}
