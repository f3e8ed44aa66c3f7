package alpaca

import (
	"fmt"
	"strings"

	"github.com/joripage/signal-trader/pkg/trader/model"
)

const (
	PaperTradingURL       = "https://paper-api.alpaca.markets"
	LiveTradingURL        = "https://api.alpaca.markets"
	DefaultDataURL        = "https://data.alpaca.markets"
	DefaultCryptoExchange = "ERSX"

	defaultTimeoutSeconds         = 10
	defaultMaxRetryElapsedSeconds = 30
)

// Config is one Alpaca account (paper or live).
type Config struct {
	KeyID                  string `yaml:"key_id"`
	SecretKey              string `yaml:"secret_key"`
	TradingURL             string `yaml:"trading_url"`
	DataURL                string `yaml:"data_url"`
	TimeoutSeconds         int    `yaml:"timeout_seconds"`
	RateLimit              bool   `yaml:"rate_limit"` // retry HTTP 429 with backoff
	MaxRetryElapsedSeconds int    `yaml:"max_retry_elapsed_seconds"`
	CryptoExchange         string `yaml:"crypto_exchange"`
}

// SetDefaults fills unset fields. tradingURL is the paper or live endpoint.
func (c *Config) SetDefaults(tradingURL string) {
	if c.TradingURL == "" {
		c.TradingURL = tradingURL
	}
	if c.DataURL == "" {
		c.DataURL = DefaultDataURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.MaxRetryElapsedSeconds <= 0 {
		c.MaxRetryElapsedSeconds = defaultMaxRetryElapsedSeconds
	}
	if c.CryptoExchange == "" {
		c.CryptoExchange = DefaultCryptoExchange
	}
	c.TradingURL = strings.TrimRight(c.TradingURL, "/")
	c.DataURL = strings.TrimRight(c.DataURL, "/")
}

func (c *Config) Validate() error {
	if c.KeyID == "" || c.SecretKey == "" {
		return fmt.Errorf("%w: alpaca key_id and secret_key are required", model.ErrConfiguration)
	}
	if c.TradingURL == "" {
		return fmt.Errorf("%w: alpaca trading_url is required", model.ErrConfiguration)
	}
	return nil
}
