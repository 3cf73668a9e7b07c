package arbitrage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"governor/event"
	"governor/exchange/xrpl"
	"governor/order"
)

type fakeBook struct {
	book xrpl.Book
	err  error
}

func (f fakeBook) FetchBook(ctx context.Context) (xrpl.Book, error) {
	return f.book, f.err
}

type fakePrice struct {
	price decimal.Decimal
	err   error
}

func (f fakePrice) Price(ctx context.Context) (decimal.Decimal, error) {
	return f.price, f.err
}

type fakeLedger struct {
	calls []order.OfferInstruction
	conf  order.Confirmation
	err   error
}

func (f *fakeLedger) Submit(ctx context.Context, ins order.OfferInstruction) (order.Confirmation, error) {
	f.calls = append(f.calls, ins)
	return f.conf, f.err
}

// 最优卖价 0.50，最优买价 0.49
var cheapAskBook = xrpl.Book{
	Asks: []xrpl.Offer{askOffer("10000000", "5")},
	Bids: []xrpl.Offer{bidOffer("10000000", "4.9")},
}

func engineConfig(dryRun bool) Config {
	return Config{
		Base:           "XRP",
		QuoteCurrency:  "USD",
		QuoteIssuer:    "rIssuer",
		Params:         params("30"),
		DryRun:         dryRun,
		RequestTimeout: time.Second,
	}
}

func TestCycleDryRunBuyAppendsEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arbitrage.log")
	sink := event.NewTradeWriter(path)
	defer sink.Close()
	ledger := &fakeLedger{}
	bus := event.NewEventBus(4)

	e := NewEngine(engineConfig(true), fakeBook{book: cheapAskBook}, fakePrice{price: dec("0.55")}, ledger, sink, bus)
	out := e.Cycle(context.Background())

	require.NoError(t, out.Err)
	assert.Equal(t, OutcomeSimulated, out.Kind)
	assert.Equal(t, ActionBuy, out.Decision.Action)
	assert.Empty(t, ledger.calls, "模拟模式不应调用账本")

	events, _, err := event.ReadTrades(path)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.SideBuy, events[0].Side)
	assert.Equal(t, event.ModeDryRun, events[0].Mode)
	assert.True(t, events[0].Price.Equal(dec("0.5")))
	assert.True(t, events[0].Qty.Equal(dec("5")))

	evt := <-bus.Subscribe()
	assert.Equal(t, event.EventTypeTradeExecuted, evt.Type)
}

func TestCycleLiveSellSubmits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arbitrage.log")
	sink := event.NewTradeWriter(path)
	defer sink.Close()
	ledger := &fakeLedger{conf: order.Confirmation{Hash: "ABCDEF", Status: "tesSUCCESS"}}

	book := xrpl.Book{
		Asks: []xrpl.Offer{askOffer("1000000", "0.60")},
		Bids: []xrpl.Offer{bidOffer("1000000", "0.58")},
	}
	cfg := engineConfig(false)
	cfg.Params = params("100")
	e := NewEngine(cfg, fakeBook{book: book}, fakePrice{price: dec("0.50")}, ledger, sink, nil)
	out := e.Cycle(context.Background())

	require.NoError(t, out.Err)
	assert.Equal(t, OutcomeSubmitted, out.Kind)
	assert.Equal(t, "ABCDEF", out.Confirmation.Hash)
	require.Len(t, ledger.calls, 1)
	assert.Equal(t, order.SideSell, ledger.calls[0].Side)
	assert.True(t, ledger.calls[0].LimitPrice.Equal(dec("0.58")))

	events, _, err := event.ReadTrades(path)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.ModeLive, events[0].Mode)
	assert.Equal(t, "ABCDEF", events[0].TxHash)
}

func TestCycleLiveFailureDoesNotRetryOrRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arbitrage.log")
	sink := event.NewTradeWriter(path)
	defer sink.Close()
	ledger := &fakeLedger{err: errors.New("tecUNFUNDED_OFFER")}
	bus := event.NewEventBus(4)

	e := NewEngine(engineConfig(false), fakeBook{book: cheapAskBook}, fakePrice{price: dec("0.55")}, ledger, sink, bus)
	out := e.Cycle(context.Background())

	assert.Equal(t, OutcomeFailed, out.Kind)
	assert.Error(t, out.Err)
	assert.Len(t, ledger.calls, 1)

	events, _, err := event.ReadTrades(path)
	require.NoError(t, err)
	assert.Empty(t, events)

	evt := <-bus.Subscribe()
	assert.Equal(t, event.EventTypeOrderFailed, evt.Type)
}

func TestCycleLiveWithoutLedger(t *testing.T) {
	e := NewEngine(engineConfig(false), fakeBook{book: cheapAskBook}, fakePrice{price: dec("0.55")}, nil, nil, nil)
	out := e.Cycle(context.Background())
	assert.Equal(t, OutcomeFailed, out.Kind)
}

func TestCycleEarlyOutcomes(t *testing.T) {
	tests := []struct {
		name string
		cfg  func(*Config)
		book BookSource
		ref  PriceSource
		want OutcomeKind
	}{
		{"交易对未配置", func(c *Config) { c.QuoteIssuer = "" }, fakeBook{book: cheapAskBook}, fakePrice{price: dec("0.55")}, OutcomeNotConfigured},
		{"订单簿请求失败", nil, fakeBook{err: errors.New("timeout")}, fakePrice{price: dec("0.55")}, OutcomeBookError},
		{"订单簿一侧为空", nil, fakeBook{book: xrpl.Book{Asks: cheapAskBook.Asks}}, fakePrice{price: dec("0.55")}, OutcomeNoData},
		{"未配置参考价", nil, fakeBook{book: cheapAskBook}, nil, OutcomeNoReference},
		{"参考价请求失败", nil, fakeBook{book: cheapAskBook}, fakePrice{err: errors.New("503")}, OutcomeNoReference},
		{"价差不足", nil, fakeBook{book: cheapAskBook}, fakePrice{price: dec("0.501")}, OutcomeNoOp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := engineConfig(true)
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			path := filepath.Join(t.TempDir(), "arbitrage.log")
			sink := event.NewTradeWriter(path)
			defer sink.Close()

			out := NewEngine(cfg, tt.book, tt.ref, nil, sink, nil).Cycle(context.Background())
			assert.Equal(t, tt.want, out.Kind)

			events, _, err := event.ReadTrades(path)
			require.NoError(t, err)
			assert.Empty(t, events)
		})
	}
}

func TestCycleNoDataReturnsErrNoData(t *testing.T) {
	e := NewEngine(engineConfig(true), fakeBook{book: xrpl.Book{}}, fakePrice{price: dec("0.55")}, nil, nil, nil)
	out := e.Cycle(context.Background())
	assert.ErrorIs(t, out.Err, ErrNoData)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := engineConfig(true)
	cfg.Interval = 10 * time.Millisecond
	e := NewEngine(cfg, fakeBook{book: xrpl.Book{}}, nil, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
