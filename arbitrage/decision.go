package arbitrage

import (
	"github.com/shopspring/decimal"
)

// Action 决策动作
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionNoOp Action = "noop"
)

var bpsScale = decimal.NewFromInt(10000)

// Params 决策参数
type Params struct {
	MinSpreadBps   decimal.Decimal
	MaxSlippageBps decimal.Decimal // 暂不参与数量计算
	Amount         decimal.Decimal // 每次下单的基础资产数量
}

// Decision 单个周期的决策结果
type Decision struct {
	Action      Action
	EdgeBps     decimal.Decimal // 所选方向的价差；NoOp 时为两侧较大者
	BuyEdgeBps  decimal.Decimal
	SellEdgeBps decimal.Decimal
	SizeBase    decimal.Decimal
	LimitPrice  decimal.Decimal
}

// Decide 对比订单簿与参考价：
// buyEdge = 10000*(ref-bestAsk)/ref，sellEdge = 10000*(bestBid-ref)/ref。
// 买入优先；两侧都未达到阈值时不操作。参考价非正时不操作。
func Decide(q Quotes, reference decimal.Decimal, p Params) Decision {
	if !reference.IsPositive() {
		return Decision{Action: ActionNoOp}
	}

	buyEdge := bpsScale.Mul(reference.Sub(q.BestAsk)).Div(reference)
	sellEdge := bpsScale.Mul(q.BestBid.Sub(reference)).Div(reference)
	d := Decision{BuyEdgeBps: buyEdge, SellEdgeBps: sellEdge}

	switch {
	case buyEdge.GreaterThanOrEqual(p.MinSpreadBps):
		d.Action = ActionBuy
		d.EdgeBps = buyEdge
		d.SizeBase = p.Amount
		d.LimitPrice = q.BestAsk
	case sellEdge.GreaterThanOrEqual(p.MinSpreadBps):
		d.Action = ActionSell
		d.EdgeBps = sellEdge
		d.SizeBase = p.Amount
		d.LimitPrice = q.BestBid
	default:
		d.Action = ActionNoOp
		d.EdgeBps = decimal.Max(buyEdge, sellEdge)
	}
	return d
}
