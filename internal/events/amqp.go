package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

// AMQPPublisher sends events to a durable topic exchange, routed by event type
// (booking.created, booking.confirmed, ...).
type AMQPPublisher struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	channel  *amqp.Channel
	exchange string
	logger   *logger.Logger
}

func DialAMQP(url, exchange string, log *logger.Logger) (*AMQPPublisher, error) {
	if log == nil {
		log = logger.NewNop()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq declare exchange %s: %w", exchange, err)
	}
	log.Info("EVENTS", fmt.Sprintf("Publishing booking events to RabbitMQ exchange %s", exchange))
	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange, logger: log}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev models.BookingEvent) error {
	msg, err := publishing(ev)
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishes.
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.channel.PublishWithContext(ctx, p.exchange, string(ev.Type), false, false, msg); err != nil {
		return fmt.Errorf("rabbitmq publish %s: %w", ev.Type, err)
	}
	p.logger.Debug("EVENTS", fmt.Sprintf("Published %s for %s", ev.Type, ev.BookingNumber))
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channel.Close()
	return p.conn.Close()
}

func publishing(ev models.BookingEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal %s: %w", ev.Type, err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Type:         string(ev.Type),
		Timestamp:    ev.OccurredAt,
		Body:         body,
	}, nil
}
