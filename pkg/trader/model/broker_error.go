package model

import (
	"fmt"
	"strings"
)

type BrokerErrorCode string

const (
	BrokerErrorNotFound    BrokerErrorCode = "not_found"
	BrokerErrorForbidden   BrokerErrorCode = "forbidden"
	BrokerErrorRateLimited BrokerErrorCode = "rate_limited"
	BrokerErrorUnknown     BrokerErrorCode = "unknown"
)

// BrokerError is a failure reported by the broker gateway.
type BrokerError struct {
	Code       BrokerErrorCode `json:"-"`
	StatusCode int             `json:"status,omitempty"`
	BrokerCode int             `json:"code,omitempty"`
	Message    string          `json:"message"`
}

func (e *BrokerError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("broker error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("broker error (%s): %s", e.Code, e.Message)
}

// BrokerErrorCodeFromMessage classifies a broker message when no structured
// status is available.
func BrokerErrorCodeFromMessage(msg string) BrokerErrorCode {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "not found"), strings.Contains(msg, "not find"):
		return BrokerErrorNotFound
	case strings.Contains(msg, "forbidden"):
		return BrokerErrorForbidden
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"):
		return BrokerErrorRateLimited
	}
	return BrokerErrorUnknown
}
