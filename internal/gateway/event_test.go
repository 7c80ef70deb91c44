package gateway

import (
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEventID = "3f2b8c1e-6d4a-4c8e-9b7f-2a1d5e6f7a8b"

func TestDecodeEvent(t *testing.T) {
	pdf := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4"))

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{
			name: "text",
			body: fmt.Sprintf(`{"event_id":%q,"type":"text","customer_id":"628111","text":"YES"}`, testEventID),
		},
		{
			name: "file",
			body: fmt.Sprintf(`{"event_id":%q,"type":"file","customer_id":"628111","file_name":"doc.pdf","mime_type":"application/pdf","content":%q}`, testEventID, pdf),
		},
		{name: "not json", body: `{"event_id":`, wantErr: true},
		{
			name:    "event id not uuid",
			body:    `{"event_id":"42","type":"text","customer_id":"628111","text":"hi"}`,
			wantErr: true,
		},
		{
			name:    "missing customer",
			body:    fmt.Sprintf(`{"event_id":%q,"type":"text","customer_id":"  ","text":"hi"}`, testEventID),
			wantErr: true,
		},
		{
			name:    "unknown type",
			body:    fmt.Sprintf(`{"event_id":%q,"type":"sticker","customer_id":"628111"}`, testEventID),
			wantErr: true,
		},
		{
			name:    "file without name",
			body:    fmt.Sprintf(`{"event_id":%q,"type":"file","customer_id":"628111","content":%q}`, testEventID, pdf),
			wantErr: true,
		},
		{
			name:    "file with bad base64",
			body:    fmt.Sprintf(`{"event_id":%q,"type":"file","customer_id":"628111","file_name":"doc.pdf","content":"@@@"}`, testEventID),
			wantErr: true,
		},
		{
			name:    "file without content",
			body:    fmt.Sprintf(`{"event_id":%q,"type":"file","customer_id":"628111","file_name":"doc.pdf"}`, testEventID),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeEvent([]byte(tt.body))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidEvent)
				assert.Nil(t, ev)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "628111", ev.CustomerID)
		})
	}
}

func TestDecodeEvent_DecodesFileContent(t *testing.T) {
	body := fmt.Sprintf(`{"event_id":%q,"type":"file","customer_id":"628111","file_name":"doc.pdf","content":%q}`,
		testEventID, base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")))

	ev, err := DecodeEvent([]byte(body))

	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), ev.Data)
}
