package alpaca

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/joripage/signal-trader/pkg/trader/model"
)

// newBrokerError translates a non-2xx Alpaca response. It is the only place
// where HTTP statuses and broker messages become BrokerError codes.
func newBrokerError(statusCode int, body []byte) *model.BrokerError {
	brokerErr := &model.BrokerError{StatusCode: statusCode}

	var payload struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		brokerErr.BrokerCode = payload.Code
		brokerErr.Message = payload.Message
	}
	if brokerErr.Message == "" {
		brokerErr.Message = strings.TrimSpace(string(body))
	}
	if brokerErr.Message == "" {
		brokerErr.Message = http.StatusText(statusCode)
	}

	switch statusCode {
	case http.StatusNotFound:
		brokerErr.Code = model.BrokerErrorNotFound
	case http.StatusForbidden:
		brokerErr.Code = model.BrokerErrorForbidden
	case http.StatusTooManyRequests:
		brokerErr.Code = model.BrokerErrorRateLimited
	default:
		brokerErr.Code = model.BrokerErrorCodeFromMessage(brokerErr.Message)
	}

	return brokerErr
}
