package trader

import (
	"context"

	"github.com/joripage/signal-trader/pkg/trader/model"
	"github.com/shopspring/decimal"
)

// BrokerGateway is the brokerage surface the signal processor needs.
type BrokerGateway interface {
	GetAccount(ctx context.Context) (*model.Account, error)
	// GetCurrentPrice returns the latest traded price for ticker.
	GetCurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error)

	PlaceOrder(ctx context.Context, req *model.PlaceOrder) (*model.Order, error)
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
	GetOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)
	CancelOrder(ctx context.Context, orderID string) error
	ClosePosition(ctx context.Context, symbol string) (*model.Order, error)
}
