package alpaca

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

type Trade struct {
	Timestamp time.Time       `json:"t"`
	Exchange  string          `json:"x"`
	Price     decimal.Decimal `json:"p"`
	Size      decimal.Decimal `json:"s"`
	ID        int64           `json:"i"`
}

type Snapshot struct {
	Symbol      string `json:"symbol"`
	LatestTrade *Trade `json:"latestTrade"`
}

// GetSnapshot returns the equity snapshot for symbol.
func (c *Client) GetSnapshot(ctx context.Context, symbol string) (*Snapshot, error) {
	snapshot := &Snapshot{}
	path := "/v2/stocks/" + url.PathEscape(symbol) + "/snapshot"
	if err := c.do(ctx, http.MethodGet, c.dataURL(path, nil), nil, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// GetLatestCryptoTrade returns the latest trade for symbol on exchange. The
// result is nil when the exchange has no trade for symbol.
func (c *Client) GetLatestCryptoTrade(ctx context.Context, symbol, exchange string) (*Trade, error) {
	var resp struct {
		Symbol string `json:"symbol"`
		Trade  *Trade `json:"trade"`
	}
	q := url.Values{}
	q.Set("exchange", exchange)
	path := "/v1beta1/crypto/" + url.PathEscape(symbol) + "/trades/latest"
	if err := c.do(ctx, http.MethodGet, c.dataURL(path, q), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Trade, nil
}
