package order

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side 下单方向（相对基础资产）
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// dropsPerUnit 原生资产最小单位换算
var dropsPerUnit = decimal.New(1, 6)

// IssuedAmount 发行资产金额
type IssuedAmount struct {
	Currency string `json:"currency"`
	Issuer   string `json:"issuer"`
	Value    string `json:"value"`
}

// OfferInstruction 挂单指令。TakerGets 是挂单方付出的资产，TakerPays 是挂单方得到的资产。
// 原生资产金额为 drops 字符串。
type OfferInstruction struct {
	ClientOrderID string          `json:"client_order_id"`
	Side          Side            `json:"side"`
	Amount        decimal.Decimal `json:"amount"`
	LimitPrice    decimal.Decimal `json:"limit_price"`
	TakerGets     interface{}     `json:"taker_gets"`
	TakerPays     interface{}     `json:"taker_pays"`
}

// NewOfferInstruction 构造挂单指令：买入基础资产时付出 amount*price 报价资产，卖出时得到 amount*price 报价资产
func NewOfferInstruction(side Side, amount, limitPrice decimal.Decimal, quoteCurrency, quoteIssuer string) (OfferInstruction, error) {
	if !amount.IsPositive() || !limitPrice.IsPositive() {
		return OfferInstruction{}, fmt.Errorf("数量和价格必须大于0: amount=%s price=%s", amount, limitPrice)
	}
	if quoteCurrency == "" || quoteIssuer == "" {
		return OfferInstruction{}, fmt.Errorf("报价资产未配置")
	}

	drops := amount.Mul(dropsPerUnit).Truncate(0)
	if !drops.IsPositive() {
		return OfferInstruction{}, fmt.Errorf("数量过小: %s", amount)
	}
	quote := IssuedAmount{
		Currency: quoteCurrency,
		Issuer:   quoteIssuer,
		Value:    amount.Mul(limitPrice).StringFixed(6),
	}

	ins := OfferInstruction{
		ClientOrderID: uuid.NewString(),
		Side:          side,
		Amount:        amount,
		LimitPrice:    limitPrice,
	}
	switch side {
	case SideBuy:
		ins.TakerGets = quote
		ins.TakerPays = drops.String()
	case SideSell:
		ins.TakerGets = drops.String()
		ins.TakerPays = quote
	default:
		return OfferInstruction{}, fmt.Errorf("未知方向: %q", side)
	}
	return ins, nil
}
