package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const cursorPrefix = "customer|"

// DecodeJobCursor returns the customer id after which the next page starts
func DecodeJobCursor(cursorStr string) (string, error) {
	if cursorStr == "" {
		return "", nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursorStr)
	if err != nil {
		return "", err
	}

	if !strings.HasPrefix(string(decoded), cursorPrefix) {
		return "", fmt.Errorf("invalid cursor format")
	}

	return strings.TrimPrefix(string(decoded), cursorPrefix), nil
}

func EncodeJobCursor(customerID string) string {
	return base64.URLEncoding.EncodeToString([]byte(cursorPrefix + customerID))
}
