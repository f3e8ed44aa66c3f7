package alpaca

import (
	"context"
	"fmt"

	"github.com/joripage/signal-trader/pkg/logging"
	"github.com/joripage/signal-trader/pkg/trader/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Market string

const (
	MarketStock  Market = "stock"
	MarketCrypto Market = "crypto"
)

// Gateway adapts Client to trader.BrokerGateway for one market.
type Gateway struct {
	client *Client
	market Market
}

func NewGateway(client *Client, market Market) (*Gateway, error) {
	if market != MarketStock && market != MarketCrypto {
		return nil, fmt.Errorf("%w: unknown market %q", model.ErrConfiguration, market)
	}
	return &Gateway{
		client: client,
		market: market,
	}, nil
}

func (g *Gateway) GetAccount(ctx context.Context) (*model.Account, error) {
	return g.client.GetAccount(ctx)
}

// GetCurrentPrice reads the latest trade price. For crypto any failure other
// than a canceled context yields a zero price, which the order builder rejects
// when it needs a price.
func (g *Gateway) GetCurrentPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	if g.market == MarketStock {
		snapshot, err := g.client.GetSnapshot(ctx, ticker)
		if err != nil {
			return decimal.Zero, err
		}
		if snapshot.LatestTrade == nil {
			return decimal.Zero, nil
		}
		return snapshot.LatestTrade.Price, nil
	}

	trade, err := g.client.GetLatestCryptoTrade(ctx, ticker, g.client.cfg.CryptoExchange)
	if err != nil {
		if ctx.Err() != nil {
			return decimal.Zero, ctx.Err()
		}
		logger, ctx := logging.GetLogger(ctx)
		logger.Warn(ctx, "failed to get latest crypto trade, using zero price",
			zap.String("ticker", ticker), zap.Error(err))
		return decimal.Zero, nil
	}
	if trade == nil {
		return decimal.Zero, nil
	}
	return trade.Price, nil
}

func (g *Gateway) PlaceOrder(ctx context.Context, req *model.PlaceOrder) (*model.Order, error) {
	return g.client.PlaceOrder(ctx, req)
}

func (g *Gateway) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	return g.client.GetOrder(ctx, orderID)
}

func (g *Gateway) GetOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	return g.client.ListOrders(ctx, filter)
}

func (g *Gateway) CancelOrder(ctx context.Context, orderID string) error {
	return g.client.CancelOrder(ctx, orderID)
}

func (g *Gateway) ClosePosition(ctx context.Context, symbol string) (*model.Order, error) {
	return g.client.ClosePosition(ctx, symbol)
}
