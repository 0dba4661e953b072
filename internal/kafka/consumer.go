package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

// Consumer reads booking events back from the topic as a consumer group.
type Consumer struct {
	reader *kafka.Reader
	logger *logger.Logger
}

func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	if log == nil {
		log = logger.NewNop()
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader, logger: log}
}

// Run hands every decodable event to handle until ctx is done. Malformed
// messages are logged and skipped.
func (c *Consumer) Run(ctx context.Context, handle func(models.BookingEvent)) error {
	c.logger.LogKafka("CONSUME", c.reader.Config().Topic, "consumer started")
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}

		ev, err := decodeBookingEvent(msg)
		if err != nil {
			c.logger.Warn("KAFKA", fmt.Sprintf("Skipping message at offset %d: %v", msg.Offset, err))
			continue
		}
		handle(ev)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func decodeBookingEvent(msg kafka.Message) (models.BookingEvent, error) {
	var ev models.BookingEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return ev, fmt.Errorf("unmarshal booking event: %w", err)
	}
	if ev.Type == "" {
		for _, h := range msg.Headers {
			if h.Key == eventTypeHeader {
				ev.Type = models.BookingEventType(h.Value)
			}
		}
	}
	return ev, nil
}
