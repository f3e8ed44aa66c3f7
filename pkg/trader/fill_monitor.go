package trader

import (
	"context"
	"time"

	"github.com/joripage/signal-trader/pkg/logging"
	"github.com/joripage/signal-trader/pkg/trader/model"
	"go.uber.org/zap"
)

const DefaultPollInterval = time.Second

// FillMonitor waits for a submitted order to fill and cancels it when the
// deadline passes first.
type FillMonitor struct {
	gateway      BrokerGateway
	pollInterval time.Duration
}

func NewFillMonitor(gateway BrokerGateway, pollInterval time.Duration) *FillMonitor {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &FillMonitor{
		gateway:      gateway,
		pollInterval: pollInterval,
	}
}

// AwaitOrderFillOrCancel polls orderID until it is filled or maxWait elapses.
// On timeout the order is canceled (best effort) and the status read right
// after the cancel is returned, which may be filled, canceled or
// pending_cancel. If ctx ends first the order is still canceled and read on a
// context that ignores the cancellation, and ctx.Err() is returned with it.
func (m *FillMonitor) AwaitOrderFillOrCancel(ctx context.Context, orderID string, maxWait time.Duration) (*model.Order, error) {
	logger, ctx := logging.GetLogger(ctx)
	deadline := time.Now().Add(maxWait)

	var ctxErr error
poll:
	for {
		order, err := m.gateway.GetOrder(ctx, orderID)
		if err != nil {
			if ctx.Err() == nil {
				return nil, err
			}
			ctxErr = ctx.Err()
			break poll
		}
		if order.IsFilled() {
			mtxFillMonitor.WithLabelValues("filled").Inc()
			return order, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			logger.Debug(ctx, "order not filled before deadline",
				zap.String("order_id", orderID), zap.String("status", string(order.Status)))
			break poll
		}

		wait := min(m.pollInterval, remaining)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			ctxErr = ctx.Err()
			break poll
		case <-timer.C:
		}
	}

	if ctxErr != nil {
		mtxFillMonitor.WithLabelValues("aborted").Inc()
		logger.Warn(ctx, "wait aborted, cancel pending order", zap.String("order_id", orderID), zap.Error(ctxErr))
		ctx = context.WithoutCancel(ctx)
	} else {
		mtxFillMonitor.WithLabelValues("timeout").Inc()
		logger.Warn(ctx, "cancel pending order", zap.String("order_id", orderID), zap.Duration("max_wait", maxWait))
	}

	if err := m.gateway.CancelOrder(ctx, orderID); err != nil {
		mtxCancelFailures.WithLabelValues("fill_deadline").Inc()
		logger.Error(ctx, "failed to cancel pending order", zap.String("order_id", orderID), zap.Error(err))
	}

	order, err := m.gateway.GetOrder(ctx, orderID)
	if ctxErr != nil {
		if order != nil {
			logger.Warn(ctx, "order state after aborted wait",
				zap.String("order_id", orderID), zap.String("status", string(order.Status)))
		}
		return order, ctxErr
	}
	return order, err
}
