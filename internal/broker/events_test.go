package broker

import (
	"context"
	"encoding/json"
	"testing"

	"checkout-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: raw}
}

func TestHandleMessageDispatchesOrderPlaced(t *testing.T) {
	eh := NewEventHandler()

	var got *models.OrderPlacedEvent
	eh.OnOrderPlaced(func(ctx context.Context, e *models.OrderPlacedEvent) error {
		got = e
		return nil
	})

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeOrderPlaced},
		OrderID:   "ord-1",
		Total:     1060,
	}

	require.NoError(t, eh.HandleMessage(context.Background(), message(t, event)))
	require.NotNil(t, got)
	assert.Equal(t, "ord-1", got.OrderID)
	assert.Equal(t, int64(1060), got.Total)
}

func TestHandleMessageDispatchesOrderStatusChanged(t *testing.T) {
	eh := NewEventHandler()

	var got *models.OrderStatusChangedEvent
	eh.OnOrderStatusChanged(func(ctx context.Context, e *models.OrderStatusChangedEvent) error {
		got = e
		return nil
	})

	event := &models.OrderStatusChangedEvent{
		BaseEvent:     models.BaseEvent{EventType: models.EventTypeOrderStatusChanged},
		OrderID:       "ord-1",
		FromStatus:    models.OrderStatusPending,
		ToStatus:      models.OrderStatusShipped,
		CustomerEmail: "rahim@example.com",
	}

	require.NoError(t, eh.HandleMessage(context.Background(), message(t, event)))
	require.NotNil(t, got)
	assert.Equal(t, models.OrderStatusShipped, got.ToStatus)
	assert.Equal(t, "rahim@example.com", got.CustomerEmail)
}

func TestHandleMessageIgnoresUnknownEventTypes(t *testing.T) {
	eh := NewEventHandler()
	eh.OnOrderPlaced(func(ctx context.Context, e *models.OrderPlacedEvent) error {
		t.Fatal("should not be called")
		return nil
	})

	msg := message(t, models.BaseEvent{EventType: "SOMETHING_ELSE"})
	assert.NoError(t, eh.HandleMessage(context.Background(), msg))
}
