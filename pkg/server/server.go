package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joripage/signal-trader/config"
	"github.com/joripage/signal-trader/pkg/logging"
	"github.com/joripage/signal-trader/pkg/trader"
	"github.com/joripage/signal-trader/pkg/trader/alpaca"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	headerRequestID = "X-Request-ID"
	contentTypeJSON = "application/json; charset=utf-8"
)

// EventProcessor handles one raw signal body for a route.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, body []byte) trader.Response
}

// RouteKey names the processor of an account/market pair, e.g. "paper/stock".
func RouteKey(account string, market alpaca.Market) string {
	return account + "/" + string(market)
}

type Server struct {
	cfg        config.HTTPConfig
	processors map[string]EventProcessor
	engine     *gin.Engine
	httpServer *http.Server
}

func New(cfg config.HTTPConfig, processors map[string]EventProcessor) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:        cfg,
		processors: processors,
		engine:     gin.New(),
	}
	s.engine.Use(gin.Recovery(), requestID(), accessLog())

	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.POST("/signal/:account/:market", s.handleSignal)

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) handleSignal(c *gin.Context) {
	route := RouteKey(c.Param("account"), alpaca.Market(c.Param("market")))
	processor, ok := s.processors[route]
	if !ok {
		logger, ctx := logging.GetLogger(c.Request.Context())
		logger.Warn(ctx, "signal for unconfigured route", zap.String("route", route))
		resp := trader.UnknownRouteResponse(http.StatusNotFound)
		c.Data(resp.StatusCode, contentTypeJSON, resp.Body)
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to read body"})
		return
	}

	ctx := c.Request.Context()
	if s.cfg.RequestTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.RequestTimeoutSeconds)*time.Second)
		defer cancel()
	}

	resp := processor.ProcessEvent(ctx, body)
	c.Data(resp.StatusCode, contentTypeJSON, resp.Body)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		zap.S().Infof("http server listening on %s", s.cfg.ListenAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		zap.S().Info("shutdown requested")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// requestID puts the caller's X-Request-ID (or a new one) into the request
// context and echoes it back.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := logging.WithRequestID(c.Request.Context(), c.GetHeader(headerRequestID))
		c.Request = c.Request.WithContext(ctx)
		c.Header(headerRequestID, logging.RequestID(ctx))
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger, ctx := logging.GetLogger(c.Request.Context())
		logger.Info(ctx, "http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
