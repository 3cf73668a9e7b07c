package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func newTestSource(t *testing.T, handler http.HandlerFunc) *PriceSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewPriceSource(" xrpusdt ")
	p.client.BaseURL = srv.URL
	return p
}

func TestPrice(t *testing.T) {
	p := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/price" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "XRPUSDT" {
			t.Errorf("symbol = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"symbol":"XRPUSDT","price":"0.55000000"}]`))
	})

	price, err := p.Price(context.Background())
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("0.55")) {
		t.Errorf("price = %s, want 0.55", price)
	}
	if p.Symbol() != "XRPUSDT" {
		t.Errorf("Symbol() = %q", p.Symbol())
	}
}

func TestPriceErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"接口错误", `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest},
		{"价格为零", `[{"symbol":"XRPUSDT","price":"0"}]`, http.StatusOK},
		{"交易对不匹配", `[{"symbol":"BTCUSDT","price":"60000"}]`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			})
			if _, err := p.Price(context.Background()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
