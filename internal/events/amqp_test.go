package events

import (
	"encoding/json"
	"testing"
	"time"

	"ordercore-api-io/api/pkg/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderPriority(t *testing.T) {
	assert.Equal(t, uint8(5), OrderPriority(decimal.NewFromInt(1000)))
	assert.Equal(t, uint8(9), OrderPriority(decimal.RequireFromString("1000.01")))
	assert.Equal(t, uint8(5), OrderPriority(decimal.Zero))
}

func TestOrderPublishing(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := models.OrderEvent{
		OrderId:   "ord-7",
		SessionId: "s-1",
		Type:      OrderCreatedEvent,
		Total:     decimal.RequireFromString("1500.00"),
		Occurred:  at,
	}

	msg, err := orderPublishing(event)

	require.NoError(t, err)
	assert.Equal(t, uint8(amqp.Persistent), msg.DeliveryMode)
	assert.Equal(t, uint8(9), msg.Priority)
	assert.Equal(t, "ord-7", msg.MessageId)
	assert.Equal(t, "application/json", msg.ContentType)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, "ord-7", decoded["order_id"])
	assert.Equal(t, OrderCreatedEvent, decoded["type"])
}
