package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joripage/signal-trader/config"
	"github.com/joripage/signal-trader/pkg/logging"
	"github.com/joripage/signal-trader/pkg/trader"
)

type stubProcessor struct {
	body      string
	requestID string
	resp      trader.Response
}

func (p *stubProcessor) ProcessEvent(ctx context.Context, body []byte) trader.Response {
	p.body = string(body)
	p.requestID = logging.RequestID(ctx)
	return p.resp
}

func newTestServer(processors map[string]EventProcessor) http.Handler {
	return New(config.HTTPConfig{ListenAddr: ":0", RequestTimeoutSeconds: 5}, processors).Handler()
}

func TestSignalRoutesToProcessor(t *testing.T) {
	paperStock := &stubProcessor{resp: trader.Response{StatusCode: http.StatusOK, Body: []byte(`{"id":"o1"}`)}}
	liveCrypto := &stubProcessor{resp: trader.Response{StatusCode: http.StatusForbidden, Body: []byte(`{"message":"forbidden"}`)}}
	h := newTestServer(map[string]EventProcessor{
		"paper/stock": paperStock,
		"live/crypto": liveCrypto,
	})

	req := httptest.NewRequest(http.MethodPost, "/signal/paper/stock", strings.NewReader(`{"ticker":"AAPL","action":"buy"}`))
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != `{"id":"o1"}` {
		t.Errorf("Unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if paperStock.body != `{"ticker":"AAPL","action":"buy"}` {
		t.Errorf("Processor got body %q", paperStock.body)
	}
	if paperStock.requestID != "req-42" || rec.Header().Get("X-Request-ID") != "req-42" {
		t.Errorf("Request id not propagated: %q / %q", paperStock.requestID, rec.Header().Get("X-Request-ID"))
	}
	if liveCrypto.body != "" {
		t.Errorf("Live crypto processor should not be called")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/signal/live/crypto", strings.NewReader(`{}`)))
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected processor status 403, got %d", rec.Code)
	}
}

func TestSignalUnknownRoute(t *testing.T) {
	h := newTestServer(map[string]EventProcessor{
		"paper/stock": &stubProcessor{},
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/signal/live/stock", strings.NewReader(`{}`)))

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
	if rec.Body.String() != `{"message":"Unknown route"}` {
		t.Errorf("Unexpected body %s", rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Errorf("Expected a generated request id")
	}
}

func TestHealthz(t *testing.T) {
	h := newTestServer(nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	h := newTestServer(nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Errorf("Expected prometheus metrics, got %d", rec.Code)
	}
}
