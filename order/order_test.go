package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNewOfferInstruction(t *testing.T) {
	buy, err := NewOfferInstruction(SideBuy, dec("5"), dec("0.5"), "USD", "rIssuer")
	require.NoError(t, err)
	assert.NotEmpty(t, buy.ClientOrderID)
	assert.Equal(t, IssuedAmount{Currency: "USD", Issuer: "rIssuer", Value: "2.500000"}, buy.TakerGets)
	assert.Equal(t, "5000000", buy.TakerPays)

	sell, err := NewOfferInstruction(SideSell, dec("5"), dec("0.58"), "USD", "rIssuer")
	require.NoError(t, err)
	assert.Equal(t, "5000000", sell.TakerGets)
	assert.Equal(t, IssuedAmount{Currency: "USD", Issuer: "rIssuer", Value: "2.900000"}, sell.TakerPays)
	assert.NotEqual(t, buy.ClientOrderID, sell.ClientOrderID)
}

func TestNewOfferInstructionInvalid(t *testing.T) {
	tests := []struct {
		name   string
		side   Side
		amount string
		price  string
		issuer string
	}{
		{"零数量", SideBuy, "0", "0.5", "rIssuer"},
		{"负价格", SideSell, "5", "-1", "rIssuer"},
		{"不足一个最小单位", SideBuy, "0.0000001", "0.5", "rIssuer"},
		{"缺少发行方", SideBuy, "5", "0.5", ""},
		{"未知方向", Side("hold"), "5", "0.5", "rIssuer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOfferInstruction(tt.side, dec(tt.amount), dec(tt.price), "USD", tt.issuer)
			assert.Error(t, err)
		})
	}
}

func TestSignerClientSubmit(t *testing.T) {
	ins, err := NewOfferInstruction(SideBuy, dec("5"), dec("0.5"), "USD", "rIssuer")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ins.ClientOrderID, r.Header.Get("Idempotency-Key"))
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		tx, _ := body["transaction"].(map[string]interface{})
		assert.Equal(t, "OfferCreate", tx["TransactionType"])
		assert.Equal(t, "5000000", tx["TakerPays"])
		_, _ = w.Write([]byte(`{"hash":"E3FE6EA3D48F0C2B639448020EA4F03D4F4F8FFDB243A852A0F59177921B4879","engine_result":"tesSUCCESS"}`))
	}))
	defer srv.Close()

	sc := NewSignerClient(srv.URL, time.Second, 10)
	conf, err := sc.Submit(context.Background(), ins)
	require.NoError(t, err)
	assert.Equal(t, "tesSUCCESS", conf.Status)
	assert.Len(t, conf.Hash, 64)
}

func TestSignerClientErrors(t *testing.T) {
	ins, err := NewOfferInstruction(SideSell, dec("5"), dec("0.5"), "USD", "rIssuer")
	require.NoError(t, err)

	tests := []struct {
		name string
		code int
		body string
	}{
		{"服务端错误", http.StatusBadGateway, `{"error":"tecUNFUNDED_OFFER"}`},
		{"缺少哈希", http.StatusOK, `{"engine_result":"tesSUCCESS"}`},
		{"响应不是 JSON", http.StatusOK, `ok`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewSignerClient(srv.URL, time.Second, 10).Submit(context.Background(), ins)
			assert.Error(t, err)
		})
	}
}

func TestSignerClientHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ins, err := NewOfferInstruction(SideBuy, dec("5"), dec("0.5"), "USD", "rIssuer")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = NewSignerClient(srv.URL, 5*time.Second, 10).Submit(ctx, ins)
	assert.Error(t, err)
}
