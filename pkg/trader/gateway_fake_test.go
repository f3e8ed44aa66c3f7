package trader

import (
	"context"
	"fmt"
	"sync"

	"github.com/joripage/signal-trader/pkg/trader/model"
	"github.com/shopspring/decimal"
)

// fakeGateway is an in-memory BrokerGateway. GetOrder walks through statuses,
// repeating the last one, and switches to statusAfterCancel once the order
// has been canceled.
type fakeGateway struct {
	mu sync.Mutex

	account    *model.Account
	accountErr error

	price      decimal.Decimal
	priceErr   error
	priceCalls int

	placeErr error
	placed   []*model.PlaceOrder

	statuses          []model.OrderStatus
	statusAfterCancel model.OrderStatus
	getOrderErr       error
	getOrderCalls     int

	openOrders   []model.Order
	getOrdersErr error
	ordersFilter model.OrderFilter

	cancelErrs map[string]error
	canceled   []string

	closeErr error
	closed   []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		account: &model.Account{
			ID:          "acc-1",
			Status:      "ACTIVE",
			Currency:    "USD",
			BuyingPower: decimal.NewFromInt(10000),
		},
		statuses:   []model.OrderStatus{model.OrderStatusFilled},
		cancelErrs: map[string]error{},
	}
}

func (g *fakeGateway) GetAccount(context.Context) (*model.Account, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.accountErr != nil {
		return nil, g.accountErr
	}
	account := *g.account
	return &account, nil
}

func (g *fakeGateway) GetCurrentPrice(context.Context, string) (decimal.Decimal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.priceCalls++
	return g.price, g.priceErr
}

func (g *fakeGateway) PlaceOrder(_ context.Context, req *model.PlaceOrder) (*model.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.placeErr != nil {
		return nil, g.placeErr
	}
	g.placed = append(g.placed, req)

	order := &model.Order{
		ID:            fmt.Sprintf("order-%d", len(g.placed)),
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		TimeInForce:   req.TimeInForce,
		Status:        model.OrderStatusNew,
	}
	if req.Qty != nil {
		order.Qty = decimal.NewNullDecimal(*req.Qty)
	}
	if req.TrailPercent != nil {
		order.TrailPercent = decimal.NewNullDecimal(*req.TrailPercent)
	}
	return order, nil
}

func (g *fakeGateway) GetOrder(_ context.Context, orderID string) (*model.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.getOrderErr != nil {
		return nil, g.getOrderErr
	}

	idx := min(g.getOrderCalls, len(g.statuses)-1)
	g.getOrderCalls++
	status := g.statuses[idx]
	if g.statusAfterCancel != "" && g.isCanceled(orderID) {
		status = g.statusAfterCancel
	}

	order := &model.Order{
		ID:     orderID,
		Side:   model.OrderSideBuy,
		Type:   model.OrderTypeMarket,
		Status: status,
	}
	if req := g.placedByID(orderID); req != nil && req.Qty != nil {
		order.Symbol = req.Symbol
		order.Qty = decimal.NewNullDecimal(*req.Qty)
		if status == model.OrderStatusFilled {
			order.FilledQty = *req.Qty
		}
	}
	return order, nil
}

func (g *fakeGateway) GetOrders(_ context.Context, filter model.OrderFilter) ([]model.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ordersFilter = filter
	if g.getOrdersErr != nil {
		return nil, g.getOrdersErr
	}
	return append([]model.Order(nil), g.openOrders...), nil
}

func (g *fakeGateway) CancelOrder(_ context.Context, orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.canceled = append(g.canceled, orderID)
	return g.cancelErrs[orderID]
}

func (g *fakeGateway) ClosePosition(_ context.Context, symbol string) (*model.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closeErr != nil {
		return nil, g.closeErr
	}
	g.closed = append(g.closed, symbol)
	return &model.Order{
		ID:     "close-" + symbol,
		Symbol: symbol,
		Side:   model.OrderSideSell,
		Type:   model.OrderTypeMarket,
		Status: model.OrderStatusAccepted,
	}, nil
}

func (g *fakeGateway) isCanceled(orderID string) bool {
	for _, id := range g.canceled {
		if id == orderID {
			return true
		}
	}
	return false
}

func (g *fakeGateway) placedByID(orderID string) *model.PlaceOrder {
	var n int
	if _, err := fmt.Sscanf(orderID, "order-%d", &n); err != nil || n < 1 || n > len(g.placed) {
		return nil
	}
	return g.placed[n-1]
}
