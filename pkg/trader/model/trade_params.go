package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// LegStrategy is the single protective-leg strategy a TradeParams may enable.
type LegStrategy string

const (
	LegStrategyNone         LegStrategy = "none"
	LegStrategyLimit        LegStrategy = "limit"
	LegStrategyLimitBracket LegStrategy = "limit_bracket"
	LegStrategyTrailingStop LegStrategy = "trailing_stop"
)

// LimitConfig attaches a stop-loss leg only.
type LimitConfig struct {
	Enabled   bool            `yaml:"enabled" json:"enabled"`
	StopPrice decimal.Decimal `yaml:"stop_price" json:"stopPrice"` // % below ask price
}

// LimitBracketConfig attaches stop-loss and take-profit legs as one bracket order.
type LimitBracketConfig struct {
	Enabled    bool            `yaml:"enabled" json:"enabled"`
	StopPrice  decimal.Decimal `yaml:"stop_price" json:"stopPrice"`   // % below ask price
	TakeProfit decimal.Decimal `yaml:"take_profit" json:"takeProfit"` // % above ask price
}

// TrailingStopConfig places a trailing-stop sell once the buy has filled.
type TrailingStopConfig struct {
	Enabled      bool            `yaml:"enabled" json:"enabled"`
	TrailPercent decimal.Decimal `yaml:"trail_percent" json:"trailPercent"`
}

// TradeParams is the order configuration for one trade direction.
type TradeParams struct {
	OrderSize                decimal.Decimal `yaml:"order_size" json:"orderSize"` // % of buying power
	OrderType                OrderType       `yaml:"order_type" json:"orderType"`
	TimeInForce              TimeInForce     `yaml:"time_in_force" json:"timeInForce"`
	ExtendedHours            bool            `yaml:"extended_hours" json:"extendedHours"`
	Notional                 bool            `yaml:"notional" json:"notional"`
	CancelPendingOrderPeriod int             `yaml:"cancel_pending_order_period" json:"cancelPendingOrderPeriod"` // seconds
	LimitBuyBufferPercent    decimal.Decimal `yaml:"limit_buy_buffer_percent" json:"limitBuyBufferPercent"`
	QuantityPrecision        int32           `yaml:"quantity_precision" json:"quantityPrecision"`

	Limit        *LimitConfig        `yaml:"limit" json:"limit,omitempty"`
	LimitBracket *LimitBracketConfig `yaml:"limit_bracket" json:"limitBracket,omitempty"`
	TrailingStop *TrailingStopConfig `yaml:"trailing_stop" json:"trailingStop,omitempty"`
}

// TradeConfig holds the per-direction params of one market.
type TradeConfig struct {
	Long  TradeParams  `yaml:"long" json:"long"`
	Short *TradeParams `yaml:"short" json:"short,omitempty"`
}

var hundred = decimal.NewFromInt(100)

func (p *TradeParams) LimitEnabled() bool {
	return p.Limit != nil && p.Limit.Enabled
}

func (p *TradeParams) LimitBracketEnabled() bool {
	return p.LimitBracket != nil && p.LimitBracket.Enabled
}

func (p *TradeParams) TrailingStopEnabled() bool {
	return p.TrailingStop != nil && p.TrailingStop.Enabled
}

// ActiveLeg returns the enabled leg strategy, or ErrConfiguration when more than
// one is enabled.
func (p *TradeParams) ActiveLeg() (LegStrategy, error) {
	var enabled []LegStrategy
	if p.LimitEnabled() {
		enabled = append(enabled, LegStrategyLimit)
	}
	if p.LimitBracketEnabled() {
		enabled = append(enabled, LegStrategyLimitBracket)
	}
	if p.TrailingStopEnabled() {
		enabled = append(enabled, LegStrategyTrailingStop)
	}

	switch len(enabled) {
	case 0:
		return LegStrategyNone, nil
	case 1:
		return enabled[0], nil
	}

	names := make([]string, 0, len(enabled))
	for _, leg := range enabled {
		names = append(names, string(leg))
	}
	return "", fmt.Errorf("%w: only one of limit, limit_bracket, trailing_stop may be enabled, got %s",
		ErrConfiguration, strings.Join(names, ", "))
}

// Validate checks the params before any signal is processed.
func (p *TradeParams) Validate() error {
	if _, err := p.ActiveLeg(); err != nil {
		return err
	}
	if p.OrderSize.IsNegative() || p.OrderSize.GreaterThan(hundred) {
		return fmt.Errorf("%w: order_size must be within 0..100, got %s", ErrConfiguration, p.OrderSize)
	}
	if !p.TimeInForce.IsValid() {
		return fmt.Errorf("%w: time_in_force must be one of day, gtc, opg, cls, ioc, fok, got %q", ErrConfiguration, p.TimeInForce)
	}
	if p.CancelPendingOrderPeriod < 0 {
		return fmt.Errorf("%w: cancel_pending_order_period must not be negative", ErrConfiguration)
	}
	if p.QuantityPrecision < 0 {
		return fmt.Errorf("%w: quantity_precision must not be negative", ErrConfiguration)
	}
	return nil
}

func (c *TradeConfig) Validate() error {
	if err := c.Long.Validate(); err != nil {
		return fmt.Errorf("long: %w", err)
	}
	if c.Short != nil {
		if err := c.Short.Validate(); err != nil {
			return fmt.Errorf("short: %w", err)
		}
	}
	return nil
}
