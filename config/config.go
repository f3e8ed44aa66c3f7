package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	redis_wrapper "github.com/joripage/signal-trader/pkg/infra/redis"
	"github.com/joripage/signal-trader/pkg/trader/alpaca"
	"github.com/joripage/signal-trader/pkg/trader/model"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	AccountPaper = "paper"
	AccountLive  = "live"
)

type AppConfig struct {
	ServiceName string            `yaml:"service_name"`
	LogLevel    string            `yaml:"log_level"`
	HTTP        HTTPConfig        `yaml:"http"`
	Accounts    AccountsConfig    `yaml:"accounts"`
	Trade       TradeConfig       `yaml:"trade"`
	FillMonitor FillMonitorConfig `yaml:"fill_monitor"`
	Dispatch    DispatchConfig    `yaml:"dispatch"`
	Dedupe      DedupeConfig      `yaml:"dedupe"`
	Report      ReportConfig      `yaml:"report"`
}

type HTTPConfig struct {
	ListenAddr             string `yaml:"listen_addr"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
	RequestTimeoutSeconds  int    `yaml:"request_timeout_seconds"`
}

type AccountsConfig struct {
	Paper *alpaca.Config `yaml:"paper"`
	Live  *alpaca.Config `yaml:"live"`
}

type TradeConfig struct {
	Stock  *model.TradeConfig `yaml:"stock"`
	Crypto *model.TradeConfig `yaml:"crypto"`
}

type FillMonitorConfig struct {
	PollIntervalMs int `yaml:"poll_interval_ms"`
}

type DispatchConfig struct {
	Enabled   bool `yaml:"enabled"`
	Shards    int  `yaml:"shards"`
	QueueSize int  `yaml:"queue_size"`
}

type DedupeConfig struct {
	WindowSeconds int                        `yaml:"window_seconds"` // 0 disables
	KeyPrefix     string                     `yaml:"key_prefix"`
	Redis         *redis_wrapper.RedisConfig `yaml:"redis"` // nil keeps fingerprints in memory
}

type ReportConfig struct {
	Kafka *KafkaReportConfig `yaml:"kafka"`
}

type KafkaReportConfig struct {
	Brokers        []string `yaml:"brokers"`
	Topic          string   `yaml:"topic"`
	BatchTimeoutMs int      `yaml:"batch_timeout_ms"`
}

// Load load config from file and environment variables.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	fields := []interface{}{
		"func",
		"config.readFromFile",
		"filePath",
		filePath,
	}

	sugar := zap.S().With(fields...)

	sugar.Debug("Load config...")
	zap.S().Debugf("CONFIG_FILE=%v", filePath)

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	cfg := &AppConfig{}

	err = yaml.Unmarshal(configBytes, cfg)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		sugar.Errorw("Invalid config", "error", err)
		return nil, err
	}

	zap.S().Debugf("config loaded: service=%s markets=%v", cfg.ServiceName, cfg.Markets())

	return cfg, nil
}

func (c *AppConfig) SetDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "signal-trader"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = ":8080"
	}
	if c.HTTP.ShutdownTimeoutSeconds <= 0 {
		c.HTTP.ShutdownTimeoutSeconds = 10
	}
	if c.HTTP.RequestTimeoutSeconds <= 0 {
		c.HTTP.RequestTimeoutSeconds = 120
	}
	if c.Accounts.Paper != nil {
		c.Accounts.Paper.SetDefaults(alpaca.PaperTradingURL)
	}
	if c.Accounts.Live != nil {
		c.Accounts.Live.SetDefaults(alpaca.LiveTradingURL)
	}
	if c.Dispatch.Shards <= 0 {
		c.Dispatch.Shards = 8
	}
	if c.Dispatch.QueueSize <= 0 {
		c.Dispatch.QueueSize = 64
	}
	if c.Dedupe.KeyPrefix == "" {
		c.Dedupe.KeyPrefix = c.ServiceName + ":signal:"
	}
	if c.Report.Kafka != nil && c.Report.Kafka.Topic == "" {
		c.Report.Kafka.Topic = c.ServiceName + ".orders"
	}
}

// Validate checks every account and trade config. Two enabled leg strategies
// in one trade config fail here, before any signal is processed.
func (c *AppConfig) Validate() error {
	var errs []error

	if c.Accounts.Paper == nil && c.Accounts.Live == nil {
		errs = append(errs, fmt.Errorf("%w: no account configured", model.ErrConfiguration))
	}
	for name, account := range c.accounts() {
		if err := account.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("accounts.%s: %w", name, err))
		}
	}

	if c.Trade.Stock == nil && c.Trade.Crypto == nil {
		errs = append(errs, fmt.Errorf("%w: no market configured", model.ErrConfiguration))
	}
	for market, trade := range c.trades() {
		if err := trade.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("trade.%s.%w", market, err))
		}
		if err := c.HTTP.validateFillWait(market, trade); err != nil {
			errs = append(errs, err)
		}
	}

	if c.FillMonitor.PollIntervalMs < 0 {
		errs = append(errs, fmt.Errorf("%w: fill_monitor.poll_interval_ms must not be negative", model.ErrConfiguration))
	}
	if c.Dedupe.WindowSeconds < 0 {
		errs = append(errs, fmt.Errorf("%w: dedupe.window_seconds must not be negative", model.ErrConfiguration))
	}
	if c.Report.Kafka != nil && len(c.Report.Kafka.Brokers) == 0 {
		errs = append(errs, fmt.Errorf("%w: report.kafka.brokers is required", model.ErrConfiguration))
	}

	return errors.Join(errs...)
}

// validateFillWait keeps the response of a buy from outliving the request.
func (h HTTPConfig) validateFillWait(market alpaca.Market, trade *model.TradeConfig) error {
	if h.RequestTimeoutSeconds <= 0 {
		return nil
	}
	period := trade.Long.CancelPendingOrderPeriod
	if trade.Short != nil {
		period = max(period, trade.Short.CancelPendingOrderPeriod)
	}
	if period >= h.RequestTimeoutSeconds {
		return fmt.Errorf("%w: http.request_timeout_seconds (%d) must exceed trade.%s cancel_pending_order_period (%d)",
			model.ErrConfiguration, h.RequestTimeoutSeconds, market, period)
	}
	return nil
}

func (c *AppConfig) accounts() map[string]*alpaca.Config {
	accounts := map[string]*alpaca.Config{}
	if c.Accounts.Paper != nil {
		accounts[AccountPaper] = c.Accounts.Paper
	}
	if c.Accounts.Live != nil {
		accounts[AccountLive] = c.Accounts.Live
	}
	return accounts
}

func (c *AppConfig) trades() map[alpaca.Market]*model.TradeConfig {
	trades := map[alpaca.Market]*model.TradeConfig{}
	if c.Trade.Stock != nil {
		trades[alpaca.MarketStock] = c.Trade.Stock
	}
	if c.Trade.Crypto != nil {
		trades[alpaca.MarketCrypto] = c.Trade.Crypto
	}
	return trades
}

// Account returns the credentials for account ("paper" or "live").
func (c *AppConfig) Account(account string) (*alpaca.Config, bool) {
	cfg, ok := c.accounts()[account]
	return cfg, ok
}

// TradeFor returns the trade config of market.
func (c *AppConfig) TradeFor(market alpaca.Market) (*model.TradeConfig, bool) {
	cfg, ok := c.trades()[market]
	return cfg, ok
}

// Markets lists the configured markets.
func (c *AppConfig) Markets() []alpaca.Market {
	var markets []alpaca.Market
	for _, market := range []alpaca.Market{alpaca.MarketStock, alpaca.MarketCrypto} {
		if _, ok := c.trades()[market]; ok {
			markets = append(markets, market)
		}
	}
	return markets
}

func (c *AppConfig) PollInterval() time.Duration {
	return time.Duration(c.FillMonitor.PollIntervalMs) * time.Millisecond
}

func (c *AppConfig) DedupeWindow() time.Duration {
	return time.Duration(c.Dedupe.WindowSeconds) * time.Second
}
