package xrpl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var usd = Asset{Currency: "USD", Issuer: "rvYAfWj5gh67oV6fW32ZzP3Aw4Eubs59B"}

const askOffer = `{"Account":"rA","TakerGets":"10000000","TakerPays":{"currency":"USD","issuer":"rvYAfWj5gh67oV6fW32ZzP3Aw4Eubs59B","value":"5"}}`
const bidOffer = `{"Account":"rB","taker_gets":{"currency":"USD","issuer":"rvYAfWj5gh67oV6fW32ZzP3Aw4Eubs59B","value":"4.8"},"taker_pays":"10000000"}`

func TestOfferAcceptsBothFieldStyles(t *testing.T) {
	var a, b Offer
	require.NoError(t, json.Unmarshal([]byte(askOffer), &a))
	require.NoError(t, json.Unmarshal([]byte(bidOffer), &b))

	assert.JSONEq(t, `"10000000"`, string(a.TakerGets))
	assert.Contains(t, string(a.TakerPays), `"value":"5"`)
	assert.JSONEq(t, `"10000000"`, string(b.TakerPays))
	assert.Contains(t, string(b.TakerGets), `"value":"4.8"`)
}

func TestAsset(t *testing.T) {
	assert.True(t, Native().IsNative())
	assert.False(t, usd.IsNative())
	assert.Equal(t, "XRP", Native().String())
	assert.Equal(t, "USD.rvYAfWj5gh67oV6fW32ZzP3Aw4Eubs59B", usd.String())

	b, err := json.Marshal(Native())
	require.NoError(t, err)
	assert.JSONEq(t, `{"currency":"XRP"}`, string(b))
}

func TestFetchBookJSONRPC(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string             `json:"method"`
			Params []bookOffersParams `json:"params"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) || !assert.Len(t, req.Params, 1) {
			return
		}
		assert.Equal(t, "book_offers", req.Method)
		assert.Equal(t, 5, req.Params[0].Limit)

		offer := bidOffer
		if req.Params[0].TakerGets.IsNative() {
			offer = askOffer
		}
		_, _ = w.Write([]byte(`{"result":{"status":"success","offers":[` + offer + `]}}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second)
	require.NoError(t, err)

	book, err := c.FetchBook(context.Background(), Native(), usd, 5)
	require.NoError(t, err)
	require.Len(t, book.Asks, 1)
	require.Len(t, book.Bids, 1)
	assert.Equal(t, "rA", book.Asks[0].Account)
	assert.Equal(t, "rB", book.Bids[0].Account)
}

func TestBookOffersRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"status":"error","error":"srcCurMalformed","error_message":"bad currency"}}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second)
	require.NoError(t, err)
	_, err = c.BookOffers(context.Background(), Native(), usd, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "srcCurMalformed")
}

func TestBookOffersHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second)
	require.NoError(t, err)
	_, err = c.BookOffers(context.Background(), Native(), usd, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestBookOffersTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, 50*time.Millisecond)
	require.NoError(t, err)
	_, err = c.BookOffers(context.Background(), Native(), usd, 5)
	assert.Error(t, err)
}

func TestFetchBookWebSocket(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req map[string]interface{}
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		gets, _ := req["taker_gets"].(map[string]interface{})
		offer := bidOffer
		if gets["currency"] == "XRP" {
			offer = askOffer
		}
		// 先推送一条无关消息，客户端需要按 id 匹配
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ledgerClosed","ledger_index":1}`))
		resp := `{"id":` + jsonNumber(req["id"]) + `,"type":"response","status":"success","result":{"offers":[` + offer + `]}}`
		_ = conn.WriteMessage(websocket.TextMessage, []byte(resp))
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, err := NewClient(wsURL, time.Second)
	require.NoError(t, err)

	book, err := c.FetchBook(context.Background(), Native(), usd, 5)
	require.NoError(t, err)
	require.Len(t, book.Asks, 1)
	require.Len(t, book.Bids, 1)
	assert.Equal(t, "rA", book.Asks[0].Account)
}

func TestNewClientRejectsScheme(t *testing.T) {
	_, err := NewClient("ftp://example.com", time.Second)
	assert.Error(t, err)
}

func jsonNumber(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}
