package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/joripage/signal-trader/pkg/logging"
	"go.uber.org/zap"
)

// Client is a minimal Alpaca REST client for the trading and market data APIs.
type Client struct {
	cfg        Config
	hc         *http.Client
	newBackOff func() backoff.BackOff
}

func NewClient(cfg Config) *Client {
	c := &Client{
		cfg: cfg,
		hc:  &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}
	c.newBackOff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.MaxElapsedTime = time.Duration(c.cfg.MaxRetryElapsedSeconds) * time.Second
		return b
	}
	return c
}

func (c *Client) tradingURL(path string, q url.Values) string {
	return buildURL(c.cfg.TradingURL, path, q)
}

func (c *Client) dataURL(path string, q url.Values) string {
	return buildURL(c.cfg.DataURL, path, q)
}

func buildURL(base, path string, q url.Values) string {
	u := base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// do sends one request and decodes a 2xx JSON body into out. Non-2xx responses
// come back as *model.BrokerError. HTTP 429 is retried when rate limiting is
// enabled; everything else fails on the first attempt.
func (c *Client) do(ctx context.Context, method, u string, body any, out any) error {
	logger, ctx := logging.GetLogger(ctx)

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}

	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("APCA-API-KEY-ID", c.cfg.KeyID)
		req.Header.Set("APCA-API-SECRET-KEY", c.cfg.SecretKey)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		res, err := c.hc.Do(req)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("alpaca %s %s: %w", method, req.URL.Path, err))
		}
		defer res.Body.Close()
		bs, err := io.ReadAll(res.Body)
		if err != nil {
			return backoff.Permanent(err)
		}

		if res.StatusCode/100 != 2 {
			brokerErr := newBrokerError(res.StatusCode, bs)
			if res.StatusCode == http.StatusTooManyRequests {
				logger.Warn(ctx, "alpaca rate limited",
					zap.String("method", method), zap.String("path", req.URL.Path), zap.Int("attempt", attempt))
				return brokerErr
			}
			return backoff.Permanent(brokerErr)
		}

		if out == nil || len(bs) == 0 {
			return nil
		}
		if err := json.Unmarshal(bs, out); err != nil {
			return backoff.Permanent(fmt.Errorf("alpaca %s %s: decode response: %w", method, req.URL.Path, err))
		}
		return nil
	}

	var b backoff.BackOff = &backoff.StopBackOff{}
	if c.cfg.RateLimit {
		b = c.newBackOff()
	}
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}
