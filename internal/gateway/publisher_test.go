package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cuongbtq/printdesk/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	body        []byte
	contentType string
	err         error
}

func (f *fakePublisher) PublishWithRetry(_ context.Context, body []byte, contentType string) error {
	f.body = body
	f.contentType = contentType
	return f.err
}

func TestPublisher_SendText(t *testing.T) {
	fake := &fakePublisher{}
	p := NewPublisher(fake, discardLogger())
	p.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	require.NoError(t, p.SendText(context.Background(), "628111", "Reply YES to confirm printing"))

	assert.Equal(t, "application/json", fake.contentType)

	var msg OutboundMessage
	require.NoError(t, json.Unmarshal(fake.body, &msg))
	assert.Equal(t, "628111", msg.CustomerID)
	assert.Equal(t, "Reply YES to confirm printing", msg.Text)
	assert.True(t, msg.SentAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
	_, err := uuid.Parse(msg.MessageID)
	assert.NoError(t, err)
}

func TestPublisher_WrapsDeliveryError(t *testing.T) {
	p := NewPublisher(&fakePublisher{err: errors.New("connection reset")}, discardLogger())

	err := p.SendText(context.Background(), "628111", "hi")

	assert.ErrorIs(t, err, domain.ErrDelivery)
	assert.Contains(t, err.Error(), "connection reset")
}
