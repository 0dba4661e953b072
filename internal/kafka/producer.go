package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

const eventTypeHeader = "event-type"

type Producer struct {
	Writer *kafka.Writer
	logger *logger.Logger
}

// NewProducer writes to one topic. Messages are keyed by booking number, so all
// events of a booking land on the same partition in order.
func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	if log == nil {
		log = logger.NewNop()
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &Producer{Writer: writer, logger: log}
}

// Publish streams a booking domain event.
func (p *Producer) Publish(ctx context.Context, ev models.BookingEvent) error {
	msg, err := bookingMessage(ev)
	if err != nil {
		return err
	}

	if err := p.Writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s: %w", ev.Type, err)
	}
	p.logger.LogKafka("PUBLISH", p.Writer.Topic, fmt.Sprintf("%s %s", ev.Type, ev.BookingNumber))
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

func bookingMessage(ev models.BookingEvent) (kafka.Message, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s: %w", ev.Type, err)
	}
	return kafka.Message{
		Key:   []byte(ev.BookingNumber),
		Value: body,
		Headers: []kafka.Header{
			{Key: eventTypeHeader, Value: []byte(ev.Type)},
		},
		Time: ev.OccurredAt,
	}, nil
}
