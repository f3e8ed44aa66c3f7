// Command invoke processes one signal against a configured route and prints
// the response, the same way a single webhook delivery would be handled.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joripage/signal-trader/config"
	"github.com/joripage/signal-trader/pkg/app"
	"github.com/joripage/signal-trader/pkg/logging"
	"github.com/joripage/signal-trader/pkg/server"
	"github.com/joripage/signal-trader/pkg/trader/alpaca"
	"go.uber.org/zap"
)

func main() {
	var (
		configFile string
		account    string
		market     string
		eventFile  string
	)
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.StringVar(&account, "account", config.AccountPaper, "Account: paper or live")
	flag.StringVar(&market, "market", string(alpaca.MarketStock), "Market: stock or crypto")
	flag.StringVar(&eventFile, "event", "-", "Signal JSON file, - for stdin")
	flag.Parse()

	zap.ReplaceGlobals(logging.NewLogger(logging.WARN).Zap())

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}
	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel))
	zap.ReplaceGlobals(logger.Zap())
	defer logger.Sync()

	body, err := readEvent(eventFile)
	if err != nil {
		zap.S().Errorf("read event fail with err: %v", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if cfg.HTTP.RequestTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.HTTP.RequestTimeoutSeconds)*time.Second)
		defer cancel()
	}
	ctx = logging.WithRequestID(ctx, "")

	application, err := app.New(ctx, cfg)
	if err != nil {
		zap.S().Errorf("init app fail with err: %v", err)
		os.Exit(1)
	}
	defer application.Close()

	route := server.RouteKey(account, alpaca.Market(market))
	processor, ok := application.Processors[route]
	if !ok {
		zap.S().Errorf("route %s is not configured, available: %v", route, application.Routes())
		os.Exit(2)
	}

	resp := processor.ProcessEvent(ctx, body)
	fmt.Printf("%d %s\n", resp.StatusCode, resp.Body)
}

func readEvent(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
