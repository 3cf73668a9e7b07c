package arbitrage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"governor/event"
	"governor/exchange/xrpl"
	"governor/logger"
	"governor/metrics"
	"governor/order"
)

// BookSource 订单簿来源
type BookSource interface {
	FetchBook(ctx context.Context) (xrpl.Book, error)
}

// PriceSource 参考价来源
type PriceSource interface {
	Price(ctx context.Context) (decimal.Decimal, error)
}

// TradeSink 成交日志写入方
type TradeSink interface {
	Append(e event.TradeEvent) (event.TradeEvent, error)
}

// ErrPairNotConfigured 未配置报价资产
var ErrPairNotConfigured = errors.New("pair not configured")

// Config 引擎配置
type Config struct {
	Base           string
	QuoteCurrency  string
	QuoteIssuer    string
	Params         Params
	DryRun         bool
	Interval       time.Duration
	RequestTimeout time.Duration // 每次外部调用的超时
}

// OutcomeKind 周期结果类型
type OutcomeKind string

const (
	OutcomeNotConfigured OutcomeKind = "not_configured"
	OutcomeBookError     OutcomeKind = "book_error"
	OutcomeNoData        OutcomeKind = "no_data"
	OutcomeNoReference   OutcomeKind = "no_reference"
	OutcomeNoOp          OutcomeKind = "noop"
	OutcomeSimulated     OutcomeKind = "simulated"
	OutcomeSubmitted     OutcomeKind = "submitted"
	OutcomeFailed        OutcomeKind = "failed"
)

// Outcome 单个周期的结果
type Outcome struct {
	Kind         OutcomeKind
	Quotes       Quotes
	Reference    decimal.Decimal
	Decision     Decision
	Confirmation order.Confirmation
	Err          error
}

// Engine 套利决策引擎
type Engine struct {
	cfg    Config
	book   BookSource
	ref    PriceSource
	ledger order.LedgerClient
	sink   TradeSink
	bus    *event.EventBus
	pm     *metrics.PrometheusMetrics
}

// NewEngine 创建引擎。ref 为 nil 时只记录盘口；ledger 仅在实盘模式下使用
func NewEngine(cfg Config, book BookSource, ref PriceSource, ledger order.LedgerClient, sink TradeSink, bus *event.EventBus) *Engine {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Base == "" {
		cfg.Base = xrpl.NativeCurrency
	}
	return &Engine{
		cfg:    cfg,
		book:   book,
		ref:    ref,
		ledger: ledger,
		sink:   sink,
		bus:    bus,
		pm:     metrics.GetPrometheusMetrics(),
	}
}

// Run 按固定间隔执行周期，ctx 取消时返回
func (e *Engine) Run(ctx context.Context) {
	logger.Info("🚀 套利引擎启动 %s/%s (DRY_RUN=%v, 阈值 %s bps, 间隔 %v)",
		e.cfg.Base, e.cfg.QuoteCurrency, e.cfg.DryRun, e.cfg.Params.MinSpreadBps, e.cfg.Interval)

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	e.Cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("🛑 套利引擎已停止")
			return
		case <-ticker.C:
			e.Cycle(ctx)
		}
	}
}

// Cycle 执行一个周期：拉取订单簿、计算最优价、对比参考价、执行决策。
// 外部调用失败只记录日志，不重试。
func (e *Engine) Cycle(ctx context.Context) Outcome {
	out := e.cycle(ctx)
	e.pm.RecordCycle(string(out.Kind))
	return out
}

func (e *Engine) cycle(ctx context.Context) Outcome {
	if e.cfg.QuoteCurrency == "" || e.cfg.QuoteIssuer == "" {
		logger.Warn("⚠️ 交易对未配置，请设置 QUOTE_CURRENCY 和 QUOTE_ISSUER")
		return Outcome{Kind: OutcomeNotConfigured, Err: ErrPairNotConfigured}
	}

	bookCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	book, err := e.book.FetchBook(bookCtx)
	cancel()
	if err != nil {
		logger.Warn("⚠️ 获取订单簿失败: %v", err)
		return Outcome{Kind: OutcomeBookError, Err: err}
	}

	quotes, err := Normalize(book)
	if err != nil {
		logger.Info("ℹ️ 订单簿无有效数据 (卖单 %d / 买单 %d)", quotes.ValidAsks, quotes.ValidBids)
		return Outcome{Kind: OutcomeNoData, Quotes: quotes, Err: err}
	}
	e.pm.SetBestPrices(quotes.BestBid.InexactFloat64(), quotes.BestAsk.InexactFloat64())
	logger.Info("📊 最优买价 %s %s/%s，最优卖价 %s %s/%s",
		quotes.BestBid.StringFixed(6), e.cfg.QuoteCurrency, e.cfg.Base,
		quotes.BestAsk.StringFixed(6), e.cfg.QuoteCurrency, e.cfg.Base)

	if e.ref == nil {
		return Outcome{Kind: OutcomeNoReference, Quotes: quotes}
	}
	refCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	reference, err := e.ref.Price(refCtx)
	cancel()
	if err != nil {
		logger.Warn("⚠️ 获取参考价失败: %v", err)
		return Outcome{Kind: OutcomeNoReference, Quotes: quotes, Err: err}
	}
	e.pm.SetReferencePrice(reference.InexactFloat64())

	decision := Decide(quotes, reference, e.cfg.Params)
	e.pm.SetEdge(decision.BuyEdgeBps.InexactFloat64(), decision.SellEdgeBps.InexactFloat64())
	out := Outcome{Quotes: quotes, Reference: reference, Decision: decision}

	if decision.Action == ActionNoOp {
		logger.Info("ℹ️ 无可操作价差 (买 %sbps / 卖 %sbps，参考价 %s)",
			decision.BuyEdgeBps.StringFixed(1), decision.SellEdgeBps.StringFixed(1), reference.StringFixed(6))
		out.Kind = OutcomeNoOp
		return out
	}

	if e.cfg.DryRun {
		return e.simulate(out)
	}
	return e.submit(ctx, out)
}

// simulate 模拟成交：记录日志并写入成交事件，不调用外部服务
func (e *Engine) simulate(out Outcome) Outcome {
	d := out.Decision
	notional := d.SizeBase.Mul(d.LimitPrice)
	if d.Action == ActionBuy {
		logger.Info("🧪 [模拟] 买入 %s %s @≤ %s，花费约 %s %s (价差 %sbps)",
			d.SizeBase.StringFixed(4), e.cfg.Base, d.LimitPrice.StringFixed(6),
			notional.StringFixed(2), e.cfg.QuoteCurrency, d.EdgeBps.StringFixed(1))
	} else {
		logger.Info("🧪 [模拟] 卖出 %s %s @≥ %s，收到约 %s %s (价差 %sbps)",
			d.SizeBase.StringFixed(4), e.cfg.Base, d.LimitPrice.StringFixed(6),
			notional.StringFixed(2), e.cfg.QuoteCurrency, d.EdgeBps.StringFixed(1))
	}

	out.Kind = OutcomeSimulated
	out.Err = e.record(d, event.ModeDryRun, "")
	e.pm.RecordOrder(string(d.Action), string(event.ModeDryRun), "filled")
	return out
}

// submit 实盘：构造挂单指令交给签名服务，失败不重试
func (e *Engine) submit(ctx context.Context, out Outcome) Outcome {
	d := out.Decision
	side := order.SideBuy
	if d.Action == ActionSell {
		side = order.SideSell
	}

	fail := func(err error) Outcome {
		logger.Error("❌ %s 提交失败: %v", sideLabel(d.Action), err)
		e.pm.RecordOrder(string(d.Action), string(event.ModeLive), "failed")
		e.bus.Publish(&event.Event{
			Type: event.EventTypeOrderFailed,
			Data: map[string]interface{}{"side": string(d.Action), "error": err.Error()},
		})
		out.Kind = OutcomeFailed
		out.Err = err
		return out
	}

	if e.ledger == nil {
		return fail(errors.New("未配置账本客户端"))
	}
	ins, err := order.NewOfferInstruction(side, d.SizeBase, d.LimitPrice, e.cfg.QuoteCurrency, e.cfg.QuoteIssuer)
	if err != nil {
		return fail(err)
	}

	submitCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	conf, err := e.ledger.Submit(submitCtx, ins)
	cancel()
	if err != nil {
		return fail(err)
	}

	logger.Info("✅ %s 已提交 %s (%s)，client_order_id=%s", sideLabel(d.Action), conf.Hash, conf.Status, ins.ClientOrderID)
	e.pm.RecordOrder(string(d.Action), string(event.ModeLive), "submitted")
	out.Kind = OutcomeSubmitted
	out.Confirmation = conf
	out.Err = e.record(d, event.ModeLive, conf.Hash)
	return out
}

// record 写入成交日志并发布通知事件
func (e *Engine) record(d Decision, mode event.Mode, txHash string) error {
	side := event.SideBuy
	if d.Action == ActionSell {
		side = event.SideSell
	}
	if e.sink == nil {
		return nil
	}
	written, err := e.sink.Append(event.TradeEvent{
		Side:   side,
		Base:   e.cfg.Base,
		Quote:  e.cfg.QuoteCurrency,
		Qty:    d.SizeBase,
		Price:  d.LimitPrice,
		Mode:   mode,
		TxHash: txHash,
	})
	if err != nil {
		logger.Error("❌ 写入成交日志失败: %v", err)
		return err
	}

	e.bus.Publish(&event.Event{
		Type: event.EventTypeTradeExecuted,
		Data: map[string]interface{}{
			"id":    written.ID,
			"side":  string(side),
			"qty":   d.SizeBase.String(),
			"price": d.LimitPrice.String(),
			"mode":  string(mode),
		},
	})
	return nil
}

func sideLabel(a Action) string {
	if a == ActionBuy {
		return "BUY"
	}
	return "SELL"
}
