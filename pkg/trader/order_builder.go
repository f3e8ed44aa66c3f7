package trader

import (
	"fmt"

	"github.com/joripage/signal-trader/pkg/trader/model"
	"github.com/shopspring/decimal"
)

const pricePrecision = 2

var (
	hundred             = decimal.NewFromInt(100)
	defaultTrailPercent = decimal.NewFromInt(3)
)

// BuildLongBuyOrder builds the opening buy order for a signal. askPrice is the
// signal price whenever the signal carries one.
func BuildLongBuyOrder(signal *model.TradeSignal, params *model.TradeParams, buyingPower, askPrice decimal.Decimal) (*model.PlaceOrder, error) {
	leg, err := params.ActiveLeg()
	if err != nil {
		return nil, err
	}

	if params.OrderType != model.OrderTypeMarket && params.OrderType != model.OrderTypeLimit {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedOrderType, params.OrderType)
	}

	if !buyingPower.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrNonPositiveBuyingPower, buyingPower)
	}

	needsPrice := !params.Notional ||
		params.OrderType == model.OrderTypeLimit ||
		leg == model.LegStrategyLimit ||
		leg == model.LegStrategyLimitBracket
	if needsPrice && !askPrice.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAskPrice, askPrice)
	}

	order := &model.PlaceOrder{
		Symbol:        signal.Ticker,
		Side:          model.OrderSideBuy,
		Type:          params.OrderType,
		TimeInForce:   params.TimeInForce,
		ExtendedHours: params.ExtendedHours,
	}

	orderMoney := buyingPower.Mul(params.OrderSize).Div(hundred)
	if params.Notional {
		notional := orderMoney.Round(pricePrecision)
		order.Notional = &notional
	} else {
		qty := orderMoney.Div(askPrice).Round(params.QuantityPrecision)
		order.Qty = &qty
	}

	if params.OrderType == model.OrderTypeLimit {
		limitPrice := percentAbove(askPrice, params.LimitBuyBufferPercent)
		order.LimitPrice = &limitPrice
	}

	switch leg {
	case model.LegStrategyLimitBracket:
		order.StopLoss = &model.StopLoss{
			StopPrice: percentBelow(askPrice, params.LimitBracket.StopPrice),
		}
		order.TakeProfit = &model.TakeProfit{
			LimitPrice: percentAbove(askPrice, params.LimitBracket.TakeProfit),
		}
		order.OrderClass = model.OrderClassBracket
	case model.LegStrategyLimit:
		order.StopLoss = &model.StopLoss{
			StopPrice: percentBelow(askPrice, params.Limit.StopPrice),
		}
	}

	return order, nil
}

// BuildLongSellTrailingStopOrder builds the protective trailing-stop sell for a
// filled buy of qty.
func BuildLongSellTrailingStopOrder(signal *model.TradeSignal, params *model.TradeParams, qty decimal.Decimal) *model.PlaceOrder {
	trailPercent := defaultTrailPercent
	switch {
	case signal.TrailingStopPercent.Valid && signal.TrailingStopPercent.Decimal.IsPositive():
		trailPercent = signal.TrailingStopPercent.Decimal
	case params.TrailingStop != nil && params.TrailingStop.TrailPercent.IsPositive():
		trailPercent = params.TrailingStop.TrailPercent
	}

	return &model.PlaceOrder{
		Symbol:        signal.Ticker,
		Qty:           &qty,
		Side:          model.OrderSideSell,
		Type:          model.OrderTypeTrailingStop,
		TimeInForce:   model.TimeInForceGTC,
		TrailPercent:  &trailPercent,
		ExtendedHours: params.ExtendedHours,
	}
}

// IsTrailingOrderAllowed reports whether a trailing-stop sell may follow order.
// Callers still have to check that order actually filled.
func IsTrailingOrderAllowed(order *model.Order, signal *model.TradeSignal, params *model.TradeParams) bool {
	return order != nil && signal.IsBuy() && params.TrailingStopEnabled()
}

func percentAbove(price, percent decimal.Decimal) decimal.Decimal {
	return price.Mul(hundred.Add(percent)).Div(hundred).Round(pricePrecision)
}

func percentBelow(price, percent decimal.Decimal) decimal.Decimal {
	return price.Mul(hundred.Sub(percent)).Div(hundred).Round(pricePrecision)
}
