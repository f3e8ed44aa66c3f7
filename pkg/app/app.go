// Package app builds the signal processors of every configured route.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/joripage/signal-trader/config"
	redis_wrapper "github.com/joripage/signal-trader/pkg/infra/redis"
	kafkawrapper "github.com/joripage/signal-trader/pkg/kafka_wrapper"
	"github.com/joripage/signal-trader/pkg/server"
	"github.com/joripage/signal-trader/pkg/trader"
	"github.com/joripage/signal-trader/pkg/trader/alpaca"
	"go.uber.org/zap"
)

type App struct {
	Config     *config.AppConfig
	Processors map[string]*trader.SignalProcessor

	closers []func() error
}

func New(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	a := &App{
		Config:     cfg,
		Processors: map[string]*trader.SignalProcessor{},
	}

	opts, err := a.processorOptions(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	for _, accountName := range []string{config.AccountPaper, config.AccountLive} {
		accountCfg, ok := cfg.Account(accountName)
		if !ok {
			continue
		}
		client := alpaca.NewClient(*accountCfg)

		for _, market := range cfg.Markets() {
			tradeCfg, _ := cfg.TradeFor(market)
			gateway, err := alpaca.NewGateway(client, market)
			if err != nil {
				_ = a.Close()
				return nil, err
			}

			route := server.RouteKey(accountName, market)
			processor, err := trader.NewSignalProcessor(route, gateway, *tradeCfg, opts...)
			if err != nil {
				_ = a.Close()
				return nil, err
			}
			a.Processors[route] = processor
		}
	}

	zap.S().Infof("signal routes: %v", a.Routes())
	return a, nil
}

func (a *App) processorOptions(ctx context.Context) ([]trader.Option, error) {
	cfg := a.Config
	opts := []trader.Option{trader.WithPollInterval(cfg.PollInterval())}

	if cfg.Dispatch.Enabled {
		opts = append(opts, trader.WithDispatcher(trader.NewDispatcher(cfg.Dispatch.Shards, cfg.Dispatch.QueueSize)))
	}

	if window := cfg.DedupeWindow(); window > 0 {
		var guard trader.SignalGuard = trader.NewMemorySignalGuard()
		if cfg.Dedupe.Redis != nil {
			client, err := redis_wrapper.InitRedis(ctx, cfg.Dedupe.Redis)
			if err != nil {
				return nil, fmt.Errorf("init dedupe redis: %w", err)
			}
			a.closers = append(a.closers, client.Close)
			guard = trader.NewRedisSignalGuard(client, cfg.Dedupe.KeyPrefix)
		}
		opts = append(opts, trader.WithSignalGuard(guard, window))
	}

	if kafkaCfg := cfg.Report.Kafka; kafkaCfg != nil {
		producer := kafkawrapper.NewProducer(kafkawrapper.ProducerConfig{
			Brokers:      kafkaCfg.Brokers,
			BatchTimeout: time.Duration(kafkaCfg.BatchTimeoutMs) * time.Millisecond,
			Async:        true,
		})
		a.closers = append(a.closers, producer.Close)
		opts = append(opts, trader.WithOrderReporter(trader.NewKafkaOrderReporter(producer, kafkaCfg.Topic)))
	}

	return opts, nil
}

// Routes lists configured routes in a stable order.
func (a *App) Routes() []string {
	routes := make([]string, 0, len(a.Processors))
	for route := range a.Processors {
		routes = append(routes, route)
	}
	sort.Strings(routes)
	return routes
}

func (a *App) EventProcessors() map[string]server.EventProcessor {
	processors := make(map[string]server.EventProcessor, len(a.Processors))
	for route, p := range a.Processors {
		processors[route] = p
	}
	return processors
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
