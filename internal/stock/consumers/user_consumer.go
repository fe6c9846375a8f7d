package consumers

import (
	"context"
	"fmt"

	"github.com/shopstock/stock-backend/internal/stock/domain"
	"github.com/shopstock/stock-backend/internal/stock/store"
	"github.com/shopstock/stock-backend/pkg/logger"
	"github.com/shopstock/stock-backend/pkg/messaging"
)

// QueueUserEvents is the durable queue bound to the identity exchange.
const QueueUserEvents = "stock.user-events"

// UserSync mirrors identity-service users into the stock store.
type UserSync struct {
	store  store.Store
	logger *logger.Logger
}

// NewUserSync creates a new user sync
func NewUserSync(st store.Store, log *logger.Logger) *UserSync {
	return &UserSync{store: st, logger: log.WithComponent("user-sync")}
}

// HandleUpsert stores the user snapshot carried by created and updated events.
func (s *UserSync) HandleUpsert(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}
	if data.UserID == "" || data.Username == "" {
		return fmt.Errorf("user event %s: user_id and username are required", event.ID)
	}

	s.logger.Info().
		Str("user_id", data.UserID).
		Str("username", data.Username).
		Str("event_type", event.Type).
		Msg("received user event")

	u := &domain.StockUser{
		UserID:   data.UserID,
		Username: data.Username,
		Email:    data.Email,
		Groups:   data.Groups,
		IsActive: data.IsActive == nil || *data.IsActive,
	}
	return s.store.InTx(ctx, func(tx store.Tx) error {
		return tx.UpsertUser(ctx, u)
	})
}

// HandleDeleted deactivates the user. Their holdings and transfers stay
// until a manager clears them.
func (s *UserSync) HandleDeleted(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserDeletedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	s.logger.Info().Str("user_id", data.UserID).Msg("received user deleted event")

	return s.store.InTx(ctx, func(tx store.Tx) error {
		return tx.DeactivateUser(ctx, data.UserID)
	})
}

// UserEventConsumer consumes user events
type UserEventConsumer struct {
	consumer *messaging.Consumer
}

// NewUserEventConsumer creates a new user event consumer
func NewUserEventConsumer(rmq *messaging.RabbitMQ, sync *UserSync, log *logger.Logger) (*UserEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, QueueUserEvents, log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeUserEvents, "user.#"); err != nil {
		return nil, err
	}

	consumer.RegisterHandler(messaging.EventUserCreated, sync.HandleUpsert)
	consumer.RegisterHandler(messaging.EventUserUpdated, sync.HandleUpsert)
	consumer.RegisterHandler(messaging.EventUserDeleted, sync.HandleDeleted)

	return &UserEventConsumer{consumer: consumer}, nil
}

// Start starts consuming messages
func (c *UserEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}
