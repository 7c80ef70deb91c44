package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/printdesk/internal/domain"
	"github.com/google/uuid"
)

// MessagePublisher is the broker side of the publisher
type MessagePublisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// OutboundMessage is one chat reply handed back to the transport
type OutboundMessage struct {
	MessageID  string    `json:"message_id"`
	CustomerID string    `json:"customer_id"`
	Text       string    `json:"text"`
	SentAt     time.Time `json:"sent_at"`
}

// Publisher sends chat replies through RabbitMQ
type Publisher struct {
	logger    *slog.Logger
	publisher MessagePublisher
	now       func() time.Time
}

// NewPublisher creates a publisher
func NewPublisher(publisher MessagePublisher, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		logger:    logger,
		publisher: publisher,
		now:       time.Now,
	}
}

// SendText publishes a reply; failures wrap domain.ErrDelivery
func (p *Publisher) SendText(ctx context.Context, customerID, text string) error {
	msg := OutboundMessage{
		MessageID:  uuid.NewString(),
		CustomerID: customerID,
		Text:       text,
		SentAt:     p.now().UTC(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: marshal message: %v", domain.ErrDelivery, err)
	}

	if err := p.publisher.PublishWithRetry(ctx, body, "application/json"); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDelivery, err)
	}

	p.logger.Debug("Reply published",
		slog.String("message_id", msg.MessageID),
		slog.String("customer_id", customerID),
	)
	return nil
}
