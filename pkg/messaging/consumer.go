package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopstock/stock-backend/pkg/logger"
)

// maxDeliveries caps messages that were shovelled back from the DLQ.
const maxDeliveries = 3

// MessageHandler is a function that handles a message
type MessageHandler func(ctx context.Context, event *Event) error

// Consumer handles consuming events from RabbitMQ
type Consumer struct {
	rmq       *RabbitMQ
	queueName string
	handlers  map[string]MessageHandler
	bindings  []binding
	logger    *logger.Logger
}

type binding struct {
	exchange   string
	routingKey string
}

// NewConsumer creates a new consumer for the given queue and its dead letter queue
func NewConsumer(rmq *RabbitMQ, queueName string, log *logger.Logger) (*Consumer, error) {
	c := &Consumer{
		rmq:       rmq,
		queueName: queueName,
		handlers:  make(map[string]MessageHandler),
		logger:    log,
	}

	if err := c.declare(); err != nil {
		return nil, err
	}

	return c, nil
}

// declare (re)creates the dead letter queue, the queue and its bindings.
func (c *Consumer) declare() error {
	if err := c.rmq.DeclareDeadLetterQueue(c.queueName); err != nil {
		return fmt.Errorf("failed to declare dead letter queue for %s: %w", c.queueName, err)
	}

	if _, err := c.rmq.DeclareQueue(c.queueName); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", c.queueName, err)
	}

	for _, b := range c.bindings {
		if err := c.bind(b); err != nil {
			return err
		}
	}

	return nil
}

// Subscribe subscribes to an exchange with a routing key pattern
func (c *Consumer) Subscribe(exchange, routingKeyPattern string) error {
	b := binding{exchange: exchange, routingKey: routingKeyPattern}
	if err := c.bind(b); err != nil {
		return err
	}
	c.bindings = append(c.bindings, b)

	c.logger.Info().
		Str("queue", c.queueName).
		Str("exchange", exchange).
		Str("routing_key", routingKeyPattern).
		Msg("subscribed to exchange")

	return nil
}

func (c *Consumer) bind(b binding) error {
	if err := c.rmq.DeclareExchange(b.exchange); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := c.rmq.BindQueue(c.queueName, b.exchange, b.routingKey); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	return nil
}

// RegisterHandler registers a handler for a specific event type
func (c *Consumer) RegisterHandler(eventType string, handler MessageHandler) {
	c.handlers[eventType] = handler
}

// Start starts consuming messages from the queue. If the broker drops the
// connection the consumer reconnects, redeclares its topology and carries on.
func (c *Consumer) Start(ctx context.Context) error {
	msgs, err := c.consume()
	if err != nil {
		return err
	}

	c.logger.Info().Str("queue", c.queueName).Msg("consumer started")

	go c.run(ctx, msgs)

	return nil
}

func (c *Consumer) consume() (<-chan amqp.Delivery, error) {
	msgs, err := c.rmq.Channel().Consume(
		c.queueName, // queue
		"",          // consumer tag (auto-generated)
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}
	return msgs, nil
}

func (c *Consumer) run(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Str("queue", c.queueName).Msg("consumer stopped")
			return
		case msg, ok := <-msgs:
			if ok {
				c.handleMessage(ctx, msg)
				continue
			}
			if ctx.Err() != nil {
				return
			}

			c.logger.Warn().Str("queue", c.queueName).Msg("message channel closed, reconnecting")
			var err error
			msgs, err = c.resume(ctx)
			if errors.Is(err, ErrConnectionClosed) || errors.Is(err, context.Canceled) {
				c.logger.Info().Str("queue", c.queueName).Msg("consumer stopped")
				return
			}
			if err != nil {
				c.logger.Error().Err(err).Str("queue", c.queueName).Msg("consumer could not resume")
				return
			}
			c.logger.Info().Str("queue", c.queueName).Msg("consumer resumed")
		}
	}
}

func (c *Consumer) resume(ctx context.Context) (<-chan amqp.Delivery, error) {
	if err := c.rmq.Reconnect(ctx); err != nil {
		return nil, err
	}
	if err := c.declare(); err != nil {
		return nil, err
	}
	return c.consume()
}

func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	var event Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Error().Err(err).Msg("failed to unmarshal event")
		msg.Reject(false)
		return
	}

	ctx = WithCorrelationID(ctx, event.CorrelationID)
	log := c.logger.WithCorrelationID(event.CorrelationID)

	handler, ok := c.handlers[event.Type]
	if !ok {
		log.Debug().
			Str("event_type", event.Type).
			Msg("no handler registered for event type")
		msg.Ack(false)
		return
	}

	if err := handler(ctx, &event); err != nil {
		retryCount := getRetryCount(msg)
		log.Error().
			Err(err).
			Str("event_type", event.Type).
			Str("event_id", event.ID).
			Int("retry_count", retryCount).
			Msg("failed to process event")

		// One in-place redelivery, then the DLQ.
		if msg.Redelivered || retryCount >= maxDeliveries {
			msg.Reject(false)
			return
		}

		msg.Nack(false, true)
		return
	}

	msg.Ack(false)
}

func getRetryCount(msg amqp.Delivery) int {
	if msg.Headers == nil {
		return 0
	}

	if deaths, ok := msg.Headers["x-death"].([]interface{}); ok {
		for _, death := range deaths {
			if d, ok := death.(amqp.Table); ok {
				if count, ok := d["count"].(int64); ok {
					return int(count)
				}
			}
		}
	}

	return 0
}
