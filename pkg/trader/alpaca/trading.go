package alpaca

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/joripage/signal-trader/pkg/trader/model"
)

func (c *Client) GetAccount(ctx context.Context) (*model.Account, error) {
	account := &model.Account{}
	if err := c.do(ctx, http.MethodGet, c.tradingURL("/v2/account", nil), nil, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (c *Client) PlaceOrder(ctx context.Context, req *model.PlaceOrder) (*model.Order, error) {
	order := &model.Order{}
	if err := c.do(ctx, http.MethodPost, c.tradingURL("/v2/orders", nil), req, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	order := &model.Order{}
	path := "/v2/orders/" + url.PathEscape(orderID)
	if err := c.do(ctx, http.MethodGet, c.tradingURL(path, nil), nil, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (c *Client) ListOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	if len(filter.Symbols) > 0 {
		q.Set("symbols", strings.Join(filter.Symbols, ","))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}

	var orders []model.Order
	if err := c.do(ctx, http.MethodGet, c.tradingURL("/v2/orders", q), nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	path := "/v2/orders/" + url.PathEscape(orderID)
	return c.do(ctx, http.MethodDelete, c.tradingURL(path, nil), nil, nil)
}

// ClosePosition liquidates the whole position in symbol with a market order.
func (c *Client) ClosePosition(ctx context.Context, symbol string) (*model.Order, error) {
	order := &model.Order{}
	path := "/v2/positions/" + url.PathEscape(symbol)
	if err := c.do(ctx, http.MethodDelete, c.tradingURL(path, nil), nil, order); err != nil {
		return nil, err
	}
	return order, nil
}
