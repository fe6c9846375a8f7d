package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopstock/stock-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAck struct {
	acked    bool
	nacked   bool
	requeue  bool
	rejected bool
}

func (a *recordingAck) Ack(tag uint64, multiple bool) error {
	a.acked = true
	return nil
}

func (a *recordingAck) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

func (a *recordingAck) Reject(tag uint64, requeue bool) error {
	a.rejected = true
	a.requeue = requeue
	return nil
}

func newTestConsumer() *Consumer {
	return &Consumer{
		queueName: "test",
		handlers:  make(map[string]MessageHandler),
		logger:    logger.NewNop(),
	}
}

func delivery(t *testing.T, ack *recordingAck, eventType string, headers amqp.Table) amqp.Delivery {
	t.Helper()
	event, err := NewEvent(eventType, "test", "corr-1", UserDeletedEvent{UserID: "u-1"})
	require.NoError(t, err)
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, Body: body, Headers: headers}
}

func TestHandleMessage_AcksOnSuccess(t *testing.T) {
	c := newTestConsumer()
	var gotCorrelation string
	c.RegisterHandler(EventUserDeleted, func(ctx context.Context, e *Event) error {
		gotCorrelation = getCorrelationID(ctx)
		var data UserDeletedEvent
		require.NoError(t, e.UnmarshalData(&data))
		assert.Equal(t, "u-1", data.UserID)
		return nil
	})

	ack := &recordingAck{}
	c.handleMessage(context.Background(), delivery(t, ack, EventUserDeleted, nil))

	assert.True(t, ack.acked)
	assert.Equal(t, "corr-1", gotCorrelation)
}

func TestHandleMessage_UnknownTypeIsAcked(t *testing.T) {
	c := newTestConsumer()
	ack := &recordingAck{}
	c.handleMessage(context.Background(), delivery(t, ack, "something.else", nil))
	assert.True(t, ack.acked)
}

func TestHandleMessage_MalformedIsRejected(t *testing.T) {
	c := newTestConsumer()
	ack := &recordingAck{}
	c.handleMessage(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("{nope")})
	assert.True(t, ack.rejected)
	assert.False(t, ack.requeue)
}

func TestHandleMessage_RetriesThenDeadLetters(t *testing.T) {
	c := newTestConsumer()
	c.RegisterHandler(EventUserDeleted, func(ctx context.Context, e *Event) error {
		return errors.New("db down")
	})

	ack := &recordingAck{}
	c.handleMessage(context.Background(), delivery(t, ack, EventUserDeleted, nil))
	assert.True(t, ack.nacked)
	assert.True(t, ack.requeue)

	ack = &recordingAck{}
	redelivered := delivery(t, ack, EventUserDeleted, nil)
	redelivered.Redelivered = true
	c.handleMessage(context.Background(), redelivered)
	assert.True(t, ack.rejected)

	ack = &recordingAck{}
	headers := amqp.Table{"x-death": []interface{}{amqp.Table{"count": int64(3)}}}
	c.handleMessage(context.Background(), delivery(t, ack, EventUserDeleted, headers))
	assert.True(t, ack.rejected)
	assert.False(t, ack.requeue)
}
