// Package events publishes flow lifecycle events (order created, cart
// stage changes) to RabbitMQ for the remarketing and fulfillment consumers.
// Publishing is strictly best-effort: a broker outage never blocks a
// conversation turn.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tekkistudio/viensonsconnait-sub001/entity"
	"github.com/tekkistudio/viensonsconnait-sub001/flow"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/config"
	"github.com/tekkistudio/viensonsconnait-sub001/internal/lib/sl"
)

const (
	routingOrderCreated = "order.created"
	routingCartStage    = "cart.abandoned"
)

type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      *slog.Logger
}

func NewPublisher(conf *config.Config, logger *slog.Logger) (*Publisher, error) {
	if !conf.Rabbit.Enabled {
		return nil, nil
	}
	conn, err := amqp.Dial(conf.Rabbit.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := channel.ExchangeDeclare(conf.Rabbit.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}
	return &Publisher{
		conn:     conn,
		channel:  channel,
		exchange: conf.Rabbit.Exchange,
		log:      logger.With(sl.Module("events")),
	}, nil
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	_ = p.channel.Close()
	_ = p.conn.Close()
}

type orderCreatedEvent struct {
	OrderID     string    `json:"order_id"`
	SessionID   string    `json:"session_id"`
	TotalAmount int64     `json:"total_amount"`
	City        string    `json:"city"`
	Timestamp   time.Time `json:"timestamp"`
}

// PublishOrderCreated emits the order-created event.
func (p *Publisher) PublishOrderCreated(ctx context.Context, order *entity.Order) {
	p.publish(ctx, routingOrderCreated, orderCreatedEvent{
		OrderID:     order.ID,
		SessionID:   order.SessionID,
		TotalAmount: order.TotalAmount,
		City:        order.Customer.City,
		Timestamp:   time.Now(),
	})
}

type cartStageEvent struct {
	SessionID string    `json:"session_id"`
	Stage     string    `json:"stage"`
	Timestamp time.Time `json:"timestamp"`
}

// PublishCartStage emits a cart stage-change event for remarketing.
func (p *Publisher) PublishCartStage(ctx context.Context, sessionID string, step flow.Step) {
	p.publish(ctx, routingCartStage, cartStageEvent{
		SessionID: sessionID,
		Stage:     string(step),
		Timestamp: time.Now(),
	})
}

func (p *Publisher) publish(ctx context.Context, routingKey string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		p.log.With(slog.String("routing_key", routingKey), sl.Err(err)).Error("marshalling event")
		return
	}
	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		p.log.With(slog.String("routing_key", routingKey), sl.Err(err)).Error("publishing event")
	}
}
