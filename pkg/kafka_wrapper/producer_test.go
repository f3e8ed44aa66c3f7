package kafkawrapper

import (
	"context"
	"encoding/json"
	"testing"

	kafka "github.com/segmentio/kafka-go"
)

type captureWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishJSON(t *testing.T) {
	w := &captureWriter{}
	p := &Producer{w: w}

	err := p.PublishJSON(context.Background(), "orders", "AAPL",
		map[string]string{"id": "o1"}, map[string]string{"stage": "buy", "route": "paper/stock"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(w.msgs))
	}

	msg := w.msgs[0]
	if msg.Topic != "orders" || string(msg.Key) != "AAPL" {
		t.Errorf("Unexpected topic/key %s/%s", msg.Topic, msg.Key)
	}
	var value map[string]string
	if err := json.Unmarshal(msg.Value, &value); err != nil || value["id"] != "o1" {
		t.Errorf("Unexpected value %s", msg.Value)
	}
	if len(msg.Headers) != 2 || msg.Headers[0].Key != "route" || msg.Headers[1].Key != "stage" {
		t.Errorf("Expected sorted headers, got %+v", msg.Headers)
	}

	if err := p.Close(); err != nil || !w.closed {
		t.Errorf("Expected writer to be closed")
	}
}

func TestPublishUninitialized(t *testing.T) {
	var p *Producer
	if err := p.Publish(context.Background(), "orders", nil, nil, nil); err == nil {
		t.Errorf("Expected error from a nil producer")
	}
}
