package trader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gammazero/deque"
	"github.com/google/uuid"
	"github.com/joripage/signal-trader/pkg/logging"
	"github.com/joripage/signal-trader/pkg/trader/model"
	"go.uber.org/zap"
)

const (
	msgUnknownRoute    = "Unknown route"
	msgDuplicateSignal = "Duplicate signal"
)

// signalGrace bounds a signal beyond its fill wait, covering the broker calls
// around it.
const signalGrace = 30 * time.Second

// Response is the HTTP-shaped outcome of one signal.
type Response struct {
	StatusCode int
	Body       []byte
}

type messageBody struct {
	Message string `json:"message"`
}

func jsonResponse(statusCode int, v any) Response {
	body, err := json.Marshal(v)
	if err != nil {
		return Response{
			StatusCode: http.StatusInternalServerError,
			Body:       []byte(`{"message":"failed to encode response"}`),
		}
	}
	return Response{StatusCode: statusCode, Body: body}
}

func messageResponse(statusCode int, msg string) Response {
	return jsonResponse(statusCode, messageBody{Message: msg})
}

// UnknownRouteResponse answers deliveries that are not actionable.
func UnknownRouteResponse(statusCode int) Response {
	return messageResponse(statusCode, msgUnknownRoute)
}

func errorResponse(err error) Response {
	statusCode := StatusCodeForError(err)
	var brokerErr *model.BrokerError
	if errors.As(err, &brokerErr) {
		return jsonResponse(statusCode, brokerErr)
	}
	return messageResponse(statusCode, err.Error())
}

// StatusCodeForError maps broker not-found to 404, forbidden to 403 and
// everything else to 500.
func StatusCodeForError(err error) int {
	code := model.BrokerErrorCodeFromMessage(err.Error())
	var brokerErr *model.BrokerError
	if errors.As(err, &brokerErr) {
		code = brokerErr.Code
	}

	switch code {
	case model.BrokerErrorNotFound:
		return http.StatusNotFound
	case model.BrokerErrorForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// CancelResult is the outcome of canceling one open order before a sell.
type CancelResult struct {
	OrderID string
	Err     error
}

// SignalProcessor turns signals for one account/market route into orders.
type SignalProcessor struct {
	route        string
	gateway      BrokerGateway
	config       model.TradeConfig
	monitor      *FillMonitor
	reporter     OrderReporter
	guard        SignalGuard
	guardWindow  time.Duration
	dispatcher   *Dispatcher
	pollInterval time.Duration
}

type Option func(*SignalProcessor)

func WithPollInterval(interval time.Duration) Option {
	return func(p *SignalProcessor) {
		p.pollInterval = interval
	}
}

func WithOrderReporter(reporter OrderReporter) Option {
	return func(p *SignalProcessor) {
		if reporter != nil {
			p.reporter = reporter
		}
	}
}

// WithSignalGuard drops repeated deliveries of the same body within window.
func WithSignalGuard(guard SignalGuard, window time.Duration) Option {
	return func(p *SignalProcessor) {
		p.guard = guard
		p.guardWindow = window
	}
}

// WithDispatcher serializes signals for the same route and ticker.
func WithDispatcher(dispatcher *Dispatcher) Option {
	return func(p *SignalProcessor) {
		p.dispatcher = dispatcher
	}
}

func NewSignalProcessor(route string, gateway BrokerGateway, cfg model.TradeConfig, opts ...Option) (*SignalProcessor, error) {
	if gateway == nil {
		return nil, fmt.Errorf("%w: route %s has no broker gateway", model.ErrConfiguration, route)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("route %s: %w", route, err)
	}

	p := &SignalProcessor{
		route:        route,
		gateway:      gateway,
		config:       cfg,
		reporter:     nopOrderReporter{},
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.monitor = NewFillMonitor(gateway, p.pollInterval)

	return p, nil
}

func (p *SignalProcessor) Route() string {
	return p.route
}

// ProcessEvent handles one raw webhook body. Bodies that do not parse or do not
// carry a buy/sell action get a 200 "Unknown route" so the sender does not
// retry them.
func (p *SignalProcessor) ProcessEvent(ctx context.Context, body []byte) Response {
	logger, ctx := logging.GetLogger(ctx)
	logger = logger.With(zap.String("route", p.route))
	ctx = logging.WithLogger(ctx, logger)

	logger.Info(ctx, "signal received", zap.ByteString("body", body))

	signal, err := model.ParseSignal(body)
	if err != nil {
		logger.Warn(ctx, "failed to parse signal", zap.Error(err))
		mtxSignals.WithLabelValues(p.route, "", "unknown_route").Inc()
		return UnknownRouteResponse(http.StatusOK)
	}
	if !signal.IsBuy() && !signal.IsSell() {
		logger.Warn(ctx, "unknown signal action", zap.String("action", string(signal.Action)))
		mtxSignals.WithLabelValues(p.route, string(signal.Action), "unknown_route").Inc()
		return UnknownRouteResponse(http.StatusOK)
	}

	var fingerprint string
	if p.guard != nil {
		key := SignalFingerprint(p.route, body)
		acquired, err := p.guard.Acquire(ctx, key, p.guardWindow)
		switch {
		case err != nil:
			logger.Warn(ctx, "duplicate guard unavailable, processing signal", zap.Error(err))
		case !acquired:
			logger.Info(ctx, "duplicate signal dropped", zap.String("ticker", signal.Ticker))
			mtxSignals.WithLabelValues(p.route, string(signal.Action), "duplicate").Inc()
			return messageResponse(http.StatusOK, msgDuplicateSignal)
		default:
			fingerprint = key
		}
	}

	run := func(ctx context.Context) Response {
		ctx, cancel := p.detach(ctx)
		defer cancel()

		resp := p.ProcessSignal(ctx, signal)
		if fingerprint != "" && resp.StatusCode >= http.StatusMultipleChoices {
			p.releaseGuard(context.WithoutCancel(ctx), fingerprint)
		}
		return resp
	}

	if p.dispatcher == nil {
		return run(ctx)
	}
	return p.dispatcher.Dispatch(ctx, p.route+":"+signal.Ticker, run)
}

// detach keeps a placed order from being abandoned when the caller goes away.
// The returned context outlives ctx but is bounded by the fill wait plus
// signalGrace.
func (p *SignalProcessor) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	maxWait := time.Duration(p.config.Long.CancelPendingOrderPeriod) * time.Second
	return context.WithTimeout(context.WithoutCancel(ctx), maxWait+signalGrace)
}

// releaseGuard lets a retry of a failed delivery through.
func (p *SignalProcessor) releaseGuard(ctx context.Context, key string) {
	logger, ctx := logging.GetLogger(ctx)
	if err := p.guard.Release(ctx, key); err != nil {
		logger.Warn(ctx, "failed to release duplicate guard", zap.Error(err))
	}
}

// ProcessSignal runs the buy or sell flow for a parsed signal.
func (p *SignalProcessor) ProcessSignal(ctx context.Context, signal *model.TradeSignal) (resp Response) {
	logger, ctx := logging.GetLogger(ctx)
	logger = logger.With(zap.String("ticker", signal.Ticker))
	ctx = logging.WithLogger(ctx, logger)

	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "panic while processing signal", zap.Any("panic", r), zap.Stack("stack"))
			resp = messageResponse(http.StatusInternalServerError, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if err := p.config.Validate(); err != nil {
		logger.Error(ctx, "invalid trade config", zap.Error(err))
		mtxSignals.WithLabelValues(p.route, string(signal.Action), "error").Inc()
		return errorResponse(err)
	}

	var (
		result any
		err    error
	)
	switch {
	case signal.IsBuy():
		result, err = p.processBuy(ctx, signal)
	case signal.IsSell():
		result, err = p.processSell(ctx, signal)
	default:
		mtxSignals.WithLabelValues(p.route, string(signal.Action), "unknown_route").Inc()
		return UnknownRouteResponse(http.StatusOK)
	}

	if err != nil {
		resp = errorResponse(err)
		logger.Error(ctx, "failed to process signal",
			zap.String("action", string(signal.Action)), zap.Int("status", resp.StatusCode), zap.Error(err))
		mtxSignals.WithLabelValues(p.route, string(signal.Action), "error").Inc()
		return resp
	}

	mtxSignals.WithLabelValues(p.route, string(signal.Action), "ok").Inc()
	return jsonResponse(http.StatusOK, result)
}

func (p *SignalProcessor) processBuy(ctx context.Context, signal *model.TradeSignal) (any, error) {
	logger, ctx := logging.GetLogger(ctx)
	params := &p.config.Long

	account, err := p.gateway.GetAccount(ctx)
	if err != nil {
		return nil, err
	}

	askPrice := signal.Price.Decimal
	if !signal.HasPrice() {
		askPrice, err = p.gateway.GetCurrentPrice(ctx, signal.Ticker)
		if err != nil {
			return nil, err
		}
	}

	req, err := BuildLongBuyOrder(signal, params, account.BuyingPower, askPrice)
	if err != nil {
		return nil, err
	}
	req.ClientOrderID = uuid.NewString()

	logger.Info(ctx, "submit buy order", zap.Any("order", req))
	buyOrder, err := p.gateway.PlaceOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	mtxOrders.WithLabelValues(p.route, string(req.Side), string(req.Type)).Inc()
	p.report(ctx, ReportStageBuy, signal, buyOrder)

	maxWait := time.Duration(params.CancelPendingOrderPeriod) * time.Second
	finalOrder, err := p.monitor.AwaitOrderFillOrCancel(ctx, buyOrder.ID, maxWait)
	if err != nil {
		return nil, err
	}

	if !IsTrailingOrderAllowed(finalOrder, signal, params) {
		return finalOrder, nil
	}
	if !finalOrder.IsFilled() {
		logger.Warn(ctx, "buy order not filled, trailing stop not attached",
			zap.String("order_id", finalOrder.ID),
			zap.String("status", string(finalOrder.Status)),
			zap.String("filled_qty", finalOrder.FilledQty.String()))
		return finalOrder, nil
	}

	trailingReq := BuildLongSellTrailingStopOrder(signal, params, finalOrder.FilledQuantity())
	trailingReq.ClientOrderID = uuid.NewString()

	logger.Info(ctx, "submit trailing stop order", zap.Any("order", trailingReq))
	trailingOrder, err := p.gateway.PlaceOrder(ctx, trailingReq)
	if err != nil {
		return nil, err
	}
	mtxOrders.WithLabelValues(p.route, string(trailingReq.Side), string(trailingReq.Type)).Inc()
	p.report(ctx, ReportStageTrailingStop, signal, trailingOrder)

	return []*model.Order{finalOrder, trailingOrder}, nil
}

func (p *SignalProcessor) processSell(ctx context.Context, signal *model.TradeSignal) (any, error) {
	logger, ctx := logging.GetLogger(ctx)

	openOrders, err := p.gateway.GetOrders(ctx, model.OrderFilter{
		Status:  model.OrderQueryStatusOpen,
		Symbols: []string{signal.Ticker},
	})
	if err != nil {
		return nil, err
	}

	results := p.cancelOpenOrders(ctx, signal, openOrders)
	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
		}
	}
	logger.Info(ctx, "open orders canceled", zap.Int("total", len(results)), zap.Int("failed", failed))

	closeOrder, err := p.gateway.ClosePosition(ctx, signal.Ticker)
	if err != nil {
		return nil, err
	}
	mtxOrders.WithLabelValues(p.route, string(closeOrder.Side), string(closeOrder.Type)).Inc()
	p.report(ctx, ReportStageClosePosition, signal, closeOrder)

	return closeOrder, nil
}

// cancelOpenOrders cancels orders in FIFO order. A failed cancel is logged
// and does not stop the rest.
func (p *SignalProcessor) cancelOpenOrders(ctx context.Context, signal *model.TradeSignal, orders []model.Order) []CancelResult {
	logger, ctx := logging.GetLogger(ctx)

	var queue deque.Deque[*model.Order]
	for i := range orders {
		queue.PushBack(&orders[i])
	}

	results := make([]CancelResult, 0, len(orders))
	for queue.Len() > 0 {
		order := queue.PopFront()
		err := p.gateway.CancelOrder(ctx, order.ID)
		if err != nil {
			mtxCancelFailures.WithLabelValues("sell_cleanup").Inc()
			logger.Error(ctx, "failed to cancel open order", zap.String("order_id", order.ID), zap.Error(err))
		} else {
			p.report(ctx, ReportStageCancel, signal, order)
		}
		results = append(results, CancelResult{OrderID: order.ID, Err: err})
	}

	return results
}

func (p *SignalProcessor) report(ctx context.Context, stage string, signal *model.TradeSignal, order *model.Order) {
	logger, ctx := logging.GetLogger(ctx)
	logger.Info(ctx, "order report", zap.String("stage", stage), zap.Any("order", order))

	p.reporter.OnOrderReport(ctx, &OrderReport{
		Route:      p.route,
		Stage:      stage,
		Ticker:     signal.Ticker,
		Action:     signal.Action,
		RequestID:  logging.RequestID(ctx),
		Order:      order,
		ReportedAt: time.Now().UTC(),
	})
}
