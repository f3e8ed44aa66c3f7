package trader

import (
	"context"
	"time"

	"github.com/joripage/signal-trader/pkg/logging"
	"github.com/joripage/signal-trader/pkg/trader/model"
	"go.uber.org/zap"
)

const (
	ReportStageBuy           = "buy"
	ReportStageTrailingStop  = "trailing_stop"
	ReportStageCancel        = "cancel"
	ReportStageClosePosition = "close_position"
)

// OrderReport describes one order the processor submitted, canceled or closed.
type OrderReport struct {
	Route      string             `json:"route"`
	Stage      string             `json:"stage"`
	Ticker     string             `json:"ticker"`
	Action     model.SignalAction `json:"action"`
	RequestID  string             `json:"request_id"`
	Order      *model.Order       `json:"order"`
	ReportedAt time.Time          `json:"reported_at"`
}

// OrderReporter receives order reports. Implementations must not block the
// signal flow for long; delivery is best effort.
type OrderReporter interface {
	OnOrderReport(ctx context.Context, report *OrderReport)
}

type nopOrderReporter struct{}

func (nopOrderReporter) OnOrderReport(context.Context, *OrderReport) {}

// Publisher is satisfied by kafkawrapper.Producer.
type Publisher interface {
	PublishJSON(ctx context.Context, topic string, key string, v any, headers map[string]string) error
}

// KafkaOrderReporter publishes order reports as JSON keyed by ticker.
type KafkaOrderReporter struct {
	publisher Publisher
	topic     string
}

func NewKafkaOrderReporter(publisher Publisher, topic string) *KafkaOrderReporter {
	return &KafkaOrderReporter{
		publisher: publisher,
		topic:     topic,
	}
}

func (r *KafkaOrderReporter) OnOrderReport(ctx context.Context, report *OrderReport) {
	headers := map[string]string{
		"route":      report.Route,
		"stage":      report.Stage,
		"request_id": report.RequestID,
	}
	if err := r.publisher.PublishJSON(ctx, r.topic, report.Ticker, report, headers); err != nil {
		logger, ctx := logging.GetLogger(ctx)
		logger.Warn(ctx, "failed to publish order report",
			zap.String("topic", r.topic), zap.String("stage", report.Stage), zap.Error(err))
	}
}
