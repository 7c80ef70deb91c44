package handler

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobCursor_RoundTrip(t *testing.T) {
	cursor := EncodeJobCursor("628123|x")

	customerID, err := DecodeJobCursor(cursor)

	require.NoError(t, err)
	assert.Equal(t, "628123|x", customerID)
}

func TestDecodeJobCursor(t *testing.T) {
	tests := []struct {
		name    string
		cursor  string
		want    string
		wantErr bool
	}{
		{"empty", "", "", false},
		{"not base64", "!!", "", true},
		{"wrong prefix", base64.URLEncoding.EncodeToString([]byte("job|1")), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeJobCursor(tt.cursor)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
