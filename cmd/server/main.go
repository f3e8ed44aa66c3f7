package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joripage/signal-trader/config"
	"github.com/joripage/signal-trader/pkg/app"
	"github.com/joripage/signal-trader/pkg/logging"
	"github.com/joripage/signal-trader/pkg/server"
	"go.uber.org/zap"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	zap.ReplaceGlobals(logging.NewLogger(logging.INFO).Zap())

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel))
	zap.ReplaceGlobals(logger.Zap().With(zap.String("service", cfg.ServiceName)))
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		zap.S().Errorf("init app fail with err: %v", err)
		panic(err)
	}
	defer application.Close()

	srv := server.New(cfg.HTTP, application.EventProcessors())
	if err := srv.Run(ctx); err != nil {
		zap.S().Errorf("server stopped with err: %v", err)
		return
	}
	zap.S().Info("exited cleanly")
}
