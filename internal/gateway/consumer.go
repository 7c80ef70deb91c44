package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/printdesk/internal/workflow"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DeliverySource is the broker side of the consumer
type DeliverySource interface {
	Qos(prefetchCount int) error
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Logger        *slog.Logger
	Source        DeliverySource
	Dispatcher    *Dispatcher
	ConsumerTag   string
	PrefetchCount int
}

// Consumer feeds inbound chat events from RabbitMQ into the dispatcher
type Consumer struct {
	logger        *slog.Logger
	source        DeliverySource
	dispatcher    *Dispatcher
	consumerTag   string
	prefetchCount int
}

// NewConsumer creates a consumer
func NewConsumer(cfg *ConsumerConfig) *Consumer {
	c := &Consumer{
		logger:        cfg.Logger,
		source:        cfg.Source,
		dispatcher:    cfg.Dispatcher,
		consumerTag:   cfg.ConsumerTag,
		prefetchCount: cfg.PrefetchCount,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Run consumes deliveries until ctx is canceled or the broker closes the channel
func (c *Consumer) Run(ctx context.Context) error {
	if c.prefetchCount > 0 {
		if err := c.source.Qos(c.prefetchCount); err != nil {
			return err
		}
		c.logger.Info("RabbitMQ QoS configured", slog.Int("prefetch_count", c.prefetchCount))
	}

	deliveries, err := c.source.Consume(c.consumerTag)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("Event consumer started", slog.String("consumer_tag", c.consumerTag))
	return c.consume(ctx, deliveries)
}

func (c *Consumer) consume(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Event consumer stopped - context canceled")
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				c.logger.Warn("RabbitMQ delivery channel closed")
				return errors.New("delivery channel closed")
			}
			c.handleDelivery(ctx, delivery)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	ev, err := DecodeEvent(delivery.Body)
	if err != nil {
		c.logger.Error("Dropping malformed event",
			slog.String("error", err.Error()),
			slog.Uint64("delivery_tag", delivery.DeliveryTag),
		)
		// NACK without requeue - malformed events go to the DLQ if one is configured
		if nackErr := delivery.Nack(false, false); nackErr != nil {
			c.logger.Error("Failed to NACK malformed event", slog.String("error", nackErr.Error()))
		}
		return
	}

	// Handler errors were already turned into chat replies, so every handled event is ACKed
	done := func(workflow.Result) {
		if ackErr := delivery.Ack(false); ackErr != nil {
			c.logger.Error("Failed to ACK event",
				slog.String("event_id", ev.EventID),
				slog.String("error", ackErr.Error()),
			)
		}
	}

	if err := c.dispatcher.Submit(ctx, ev, done); err != nil {
		c.logger.Warn("Requeueing event on shutdown",
			slog.String("event_id", ev.EventID),
			slog.String("error", err.Error()),
		)
		if nackErr := delivery.Nack(false, true); nackErr != nil {
			c.logger.Error("Failed to NACK event on shutdown", slog.String("error", nackErr.Error()))
		}
	}
}
