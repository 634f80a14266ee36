package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"ordercore-api-io/api/pkg/models"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
)

const (
	OrderCreatedEvent = "order.created"

	highPriority   = 9
	normalPriority = 5
)

var highPriorityTotal = decimal.NewFromInt(1000)

// OrderPriority is the queue priority of an order event: large orders jump
// the queue.
func OrderPriority(total decimal.Decimal) uint8 {
	if total.GreaterThan(highPriorityTotal) {
		return highPriority
	}
	return normalPriority
}

type RabbitMQ struct {
	Conn     *amqp.Connection
	Channel  *amqp.Channel
	Exchange string

	mu sync.Mutex
}

func NewRabbitMQ(url, exchange string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial rabbitmq")
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"fanout",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, errors.Wrap(err, "declare exchange")
	}

	return &RabbitMQ{Conn: conn, Channel: ch, Exchange: exchange}, nil
}

func orderPublishing(event models.OrderEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, errors.Wrap(err, "marshal order event")
	}
	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.Occurred,
		ContentType:  "application/json",
		Type:         event.Type,
		MessageId:    event.OrderId,
		Body:         body,
		Priority:     OrderPriority(event.Total),
	}, nil
}

func (r *RabbitMQ) PublishOrderCreated(ctx context.Context, event models.OrderEvent) error {
	if event.Type == "" {
		event.Type = OrderCreatedEvent
	}
	if event.Occurred.IsZero() {
		event.Occurred = time.Now()
	}
	msg, err := orderPublishing(event)
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishing
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Channel.PublishWithContext(ctx,
		r.Exchange,
		"",
		false, // mandatory
		false, // immediate
		msg,
	)
}

func (r *RabbitMQ) Close() {
	if r.Channel != nil {
		r.Channel.Close()
	}
	if r.Conn != nil {
		r.Conn.Close()
	}
}
