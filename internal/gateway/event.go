package gateway

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Event types carried by inbound chat events
const (
	EventTypeText = "text"
	EventTypeFile = "file"
)

// ErrInvalidEvent is returned for inbound payloads that can never be processed
var ErrInvalidEvent = errors.New("invalid event")

// Event is one inbound chat event
type Event struct {
	EventID    string `json:"event_id"`
	Type       string `json:"type"`
	CustomerID string `json:"customer_id"`
	Text       string `json:"text,omitempty"`
	FileName   string `json:"file_name,omitempty"`
	MimeType   string `json:"mime_type,omitempty"`
	Content    string `json:"content,omitempty"` // base64

	Data []byte `json:"-"` // decoded Content
}

// DecodeEvent parses and validates an inbound event body
func DecodeEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Validate checks required fields and decodes file content
func (e *Event) Validate() error {
	if _, err := uuid.Parse(e.EventID); err != nil {
		return fmt.Errorf("%w: event_id is not a UUID: %v", ErrInvalidEvent, err)
	}

	e.CustomerID = strings.TrimSpace(e.CustomerID)
	if e.CustomerID == "" {
		return fmt.Errorf("%w: customer_id is required", ErrInvalidEvent)
	}

	switch e.Type {
	case EventTypeText:
		return nil

	case EventTypeFile:
		if strings.TrimSpace(e.FileName) == "" {
			return fmt.Errorf("%w: file_name is required", ErrInvalidEvent)
		}
		if e.Data == nil {
			data, err := base64.StdEncoding.DecodeString(e.Content)
			if err != nil {
				return fmt.Errorf("%w: content is not base64: %v", ErrInvalidEvent, err)
			}
			e.Data = data
		}
		if len(e.Data) == 0 {
			return fmt.Errorf("%w: file content is empty", ErrInvalidEvent)
		}
		return nil

	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
}
