package model

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

type SignalAction string

const (
	SignalActionBuy  SignalAction = "buy"
	SignalActionSell SignalAction = "sell"
)

// TradeSignal is the webhook payload sent by the alerting source. The action
// must be exactly "buy" or "sell".
//
//	{ "ticker": "AAPL", "action": "buy", "price": "187.42", "trailingStopPercent": 2.5 }
//
// price and trailingStopPercent accept both JSON strings and numbers.
type TradeSignal struct {
	Ticker              string              `json:"ticker"`
	Action              SignalAction        `json:"action"`
	Price               decimal.NullDecimal `json:"price"`
	TrailingStopPercent decimal.NullDecimal `json:"trailingStopPercent"`
}

// ParseSignal decodes a webhook body into a TradeSignal.
func ParseSignal(body []byte) (*TradeSignal, error) {
	if len(body) == 0 {
		return nil, ErrEmptySignal
	}

	signal := &TradeSignal{}
	if err := json.Unmarshal(body, signal); err != nil {
		return nil, err
	}

	signal.Ticker = strings.TrimSpace(signal.Ticker)
	if signal.Ticker == "" {
		return nil, ErrMissingTicker
	}

	return signal, nil
}

func (s *TradeSignal) IsBuy() bool {
	return s.Action == SignalActionBuy
}

func (s *TradeSignal) IsSell() bool {
	return s.Action == SignalActionSell
}

// HasPrice reports whether the signal carries a usable (positive) price.
func (s *TradeSignal) HasPrice() bool {
	return s.Price.Valid && s.Price.Decimal.IsPositive()
}
