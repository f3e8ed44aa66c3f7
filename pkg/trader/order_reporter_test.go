package trader

import (
	"context"
	"errors"
	"testing"

	"github.com/joripage/signal-trader/pkg/trader/model"
)

type fakePublisher struct {
	topic   string
	key     string
	value   any
	headers map[string]string
	err     error
}

func (p *fakePublisher) PublishJSON(_ context.Context, topic string, key string, v any, headers map[string]string) error {
	p.topic, p.key, p.value, p.headers = topic, key, v, headers
	return p.err
}

func TestKafkaOrderReporterPublishes(t *testing.T) {
	pub := &fakePublisher{}
	reporter := NewKafkaOrderReporter(pub, "signal-trader.orders")
	report := &OrderReport{
		Route:     "live/crypto",
		Stage:     ReportStageBuy,
		Ticker:    "BTCUSD",
		Action:    model.SignalActionBuy,
		RequestID: "req-1",
		Order:     &model.Order{ID: "o1"},
	}

	reporter.OnOrderReport(context.Background(), report)

	if pub.topic != "signal-trader.orders" || pub.key != "BTCUSD" {
		t.Errorf("Unexpected topic/key %q/%q", pub.topic, pub.key)
	}
	if pub.value != report {
		t.Errorf("Expected the report itself to be published")
	}
	if pub.headers["route"] != "live/crypto" || pub.headers["stage"] != ReportStageBuy || pub.headers["request_id"] != "req-1" {
		t.Errorf("Unexpected headers %v", pub.headers)
	}
}

func TestKafkaOrderReporterSwallowsErrors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("kafka: leader not available")}
	reporter := NewKafkaOrderReporter(pub, "orders")

	reporter.OnOrderReport(context.Background(), &OrderReport{Stage: ReportStageCancel, Ticker: "AAPL"})

	if pub.key != "AAPL" {
		t.Errorf("Expected a publish attempt, got key %q", pub.key)
	}
}
