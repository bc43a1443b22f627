package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const RoutingBookingConfirmed = "booking.confirmed"

type BookingConfirmedEvent struct {
	BookingID  uuid.UUID  `json:"booking_id"`
	SessionID  uuid.UUID  `json:"session_id"`
	CustomerID uuid.UUID  `json:"customer_id"`
	Method     string     `json:"method"`
	Reference  string     `json:"reference"`
	Amount     string     `json:"amount"`
	Currency   string     `json:"currency"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
	Close() error
}

type RabbitPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewPublisher dials RabbitMQ, or returns a no-op publisher when url is empty.
func NewPublisher(url, exchange string, log logrus.FieldLogger) (Publisher, error) {
	if url == "" {
		log.Warn("⚠️ RABBITMQ_URL not set, booking events will not be published")
		return NopPublisher{}, nil
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &RabbitPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *RabbitPublisher) PublishJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         b,
	})
}

func (p *RabbitPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

type NopPublisher struct{}

func (NopPublisher) PublishJSON(ctx context.Context, key string, v any) error { return nil }
func (NopPublisher) Close() error                                             { return nil }
