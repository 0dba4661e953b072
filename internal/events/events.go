// Package events publishes booking domain events to the configured broker
// after the owning transaction commits.
package events

import (
	"context"
	"fmt"
	"io"

	"ms-booking/internal/config"
	"ms-booking/internal/kafka"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

type Publisher interface {
	Publish(ctx context.Context, ev models.BookingEvent) error
}

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, models.BookingEvent) error { return nil }

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the publisher selected by cfg.Kind. The returned closer releases
// the broker connection.
func New(cfg config.BrokerConfig, log *logger.Logger) (Publisher, io.Closer, error) {
	switch cfg.Kind {
	case "kafka":
		if err := kafka.EnsureTopicsExist(cfg.KafkaBrokers, []string{cfg.BookingsTopic}, log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic bootstrap failed, relying on auto-create: %v", err))
		}
		p := kafka.NewProducer(cfg.KafkaBrokers, cfg.BookingsTopic, log)
		return p, p, nil
	case "rabbitmq", "amqp":
		p, err := DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, log)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	case "", "none":
		log.Info("EVENTS", "No event broker configured, booking events are dropped")
		return Noop{}, nopCloser{}, nil
	}
	return nil, nil, fmt.Errorf("unknown event broker %q", cfg.Kind)
}
