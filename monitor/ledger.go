package monitor

import (
	"time"

	"github.com/shopspring/decimal"

	"governor/event"
)

// Position 单槽未平仓位：要么为空，要么是一笔待配对的买入。
// 新的买入会覆盖旧的待配对买入，被覆盖的一笔不产生记录。
type Position struct {
	pending bool
	price   decimal.Decimal
	qty     decimal.Decimal
	at      time.Time
}

// PendingBuy 构造待配对买入
func PendingBuy(price, qty decimal.Decimal, at time.Time) Position {
	return Position{pending: true, price: price, qty: qty, at: at}
}

// Empty 是否没有待配对买入
func (p Position) Empty() bool { return !p.pending }

// Price 待配对买入价格
func (p Position) Price() decimal.Decimal { return p.price }

// Qty 待配对买入数量
func (p Position) Qty() decimal.Decimal { return p.qty }

// TradeRecord 一次完整的买入-卖出往返
type TradeRecord struct {
	BuyPrice  decimal.Decimal
	SellPrice decimal.Decimal
	Qty       decimal.Decimal
	Profit    decimal.Decimal // (SellPrice - BuyPrice) * Qty
	Timestamp time.Time       // 卖出事件时间
}

// Fold 按日志顺序配对买卖：
// 空仓遇买入开仓；有仓遇卖出平仓生成记录；空仓遇卖出忽略；有仓遇买入覆盖。
// 数量取卖出事件的数量。
func Fold(events []event.TradeEvent) ([]TradeRecord, Position) {
	var (
		trades []TradeRecord
		pos    Position
	)
	for _, e := range events {
		switch e.Side {
		case event.SideBuy:
			pos = PendingBuy(e.Price, e.Qty, e.Time)
		case event.SideSell:
			if pos.Empty() {
				continue
			}
			trades = append(trades, TradeRecord{
				BuyPrice:  pos.price,
				SellPrice: e.Price,
				Qty:       e.Qty,
				Profit:    e.Price.Sub(pos.price).Mul(e.Qty),
				Timestamp: e.Time,
			})
			pos = Position{}
		}
	}
	return trades, pos
}
