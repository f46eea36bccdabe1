package binance

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := New(srv.URL, 5*time.Second, 5000, "test-key", "test-secret", zap.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client, srv
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New("https://fapi.binance.com", time.Second, 5000, "", "", zap.NewNop()); err == nil {
		t.Fatalf("expected error for missing credentials")
	}
}

func TestPositionsSignedGet(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/fapi/v3/positionRisk" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-MBX-APIKEY"); got != "test-key" {
			t.Errorf("expected api key header, got %q", got)
		}
		q := r.URL.Query()
		if q.Get("symbol") != "BNBUSDC" {
			t.Errorf("expected symbol param, got %q", q.Get("symbol"))
		}
		if q.Get("timestamp") == "" || q.Get("signature") == "" {
			t.Errorf("expected signed query, got %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"symbol":"BNBUSDC","positionAmt":"-5.2","markPrice":"612.34","unRealizedProfit":"-1.5","updateTime":1700000000000}]`))
	}))

	positions, err := client.Positions(context.Background(), "BNBUSDC")
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}
	pos := positions[0]
	if pos.PositionAmt != "-5.2" || pos.MarkPrice != "612.34" || pos.UpdateTime != 1700000000000 {
		t.Fatalf("unexpected position: %+v", pos)
	}
}

func TestOpenSellPostsMarketOrder(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/fapi/v1/order" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		form, err := url.ParseQuery(string(body))
		if err != nil {
			t.Errorf("parse form: %v", err)
		}
		if form.Get("side") != "SELL" || form.Get("type") != "MARKET" {
			t.Errorf("expected market sell, got %s", body)
		}
		if form.Get("quantity") != "7.0" {
			t.Errorf("expected quantity 7.0, got %q", form.Get("quantity"))
		}
		if form.Get("reduceOnly") != "" {
			t.Errorf("open sell must not be reduce-only: %s", body)
		}
		if form.Get("signature") == "" {
			t.Errorf("expected signature in body: %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"orderId":123,"symbol":"BNBUSDC","status":"NEW","side":"SELL","type":"MARKET","origQty":"7.0"}`))
	}))

	result, err := client.OpenSell(context.Background(), "BNBUSDC", "7.0")
	if err != nil {
		t.Fatalf("open sell: %v", err)
	}
	if result.OrderID != 123 || result.Side != "SELL" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestCloseSellIsReduceOnlyBuy(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		form, err := url.ParseQuery(string(body))
		if err != nil {
			t.Errorf("parse form: %v", err)
		}
		if form.Get("side") != "BUY" {
			t.Errorf("expected BUY, got %q", form.Get("side"))
		}
		if form.Get("reduceOnly") != "true" {
			t.Errorf("expected reduceOnly=true, got %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"orderId":124,"symbol":"BNBUSDC","status":"NEW","side":"BUY","type":"MARKET","reduceOnly":true}`))
	}))

	result, err := client.CloseSell(context.Background(), "BNBUSDC", "2.5")
	if err != nil {
		t.Fatalf("close sell: %v", err)
	}
	if !result.ReduceOnly {
		t.Fatalf("expected reduce-only ack, got %+v", result)
	}
}

func TestAPIErrorSurfaced(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-2019,"msg":"Margin is insufficient."}`))
	}))

	_, err := client.OpenSell(context.Background(), "BNBUSDC", "7.0")
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := err.Error(); !strings.Contains(got, "-2019") || !strings.Contains(got, "Margin is insufficient") {
		t.Fatalf("expected venue error detail, got %q", got)
	}
}
