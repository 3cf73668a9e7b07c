package arbitrage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"governor/exchange/xrpl"
)

// ErrNoData 任意一侧没有有效报价
var ErrNoData = errors.New("no orderbook data available")

var dropsPerUnit = decimal.New(1, 6)

// Amount 解析后的挂单金额，原生资产已从 drops 换算为整单位
type Amount struct {
	Currency string
	Issuer   string
	Value    decimal.Decimal
	Native   bool
}

// ParseAmount 解析账本金额：字符串为原生资产 drops，对象为 {currency, issuer, value}。
// 对象形式的原生资产同样按 drops 处理。
func ParseAmount(raw json.RawMessage) (Amount, error) {
	if len(raw) == 0 {
		return Amount{}, errors.New("金额为空")
	}

	var drops string
	if err := json.Unmarshal(raw, &drops); err == nil {
		v, err := decimal.NewFromString(drops)
		if err != nil {
			return Amount{}, fmt.Errorf("解析 drops 失败: %w", err)
		}
		return Amount{Currency: xrpl.NativeCurrency, Value: v.Div(dropsPerUnit), Native: true}, nil
	}

	var obj struct {
		Currency string `json:"currency"`
		Issuer   string `json:"issuer"`
		Value    string `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Amount{}, fmt.Errorf("解析金额失败: %w", err)
	}
	v, err := decimal.NewFromString(obj.Value)
	if err != nil {
		return Amount{}, fmt.Errorf("解析金额 value 失败: %w", err)
	}
	if obj.Currency == xrpl.NativeCurrency && obj.Issuer == "" {
		return Amount{Currency: obj.Currency, Value: v.Div(dropsPerUnit), Native: true}, nil
	}
	return Amount{Currency: obj.Currency, Issuer: obj.Issuer, Value: v}, nil
}

// Side 报价所在侧
type Side string

const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
)

// Quote 单笔挂单的统一价格：每单位基础资产对应的报价资产数量
type Quote struct {
	Price decimal.Decimal
	Side  Side
}

// OfferPrice 计算单笔挂单价格。
// ask: taker 得到基础资产、支付报价资产；bid: taker 支付基础资产、得到报价资产。
// 基础资产数量非正或价格非正时返回 false。
func OfferPrice(o xrpl.Offer, side Side) (Quote, bool) {
	gets, err := ParseAmount(o.TakerGets)
	if err != nil {
		return Quote{}, false
	}
	pays, err := ParseAmount(o.TakerPays)
	if err != nil {
		return Quote{}, false
	}

	base, quote := gets, pays
	if side == SideBid {
		base, quote = pays, gets
	}
	if !base.Value.IsPositive() {
		return Quote{}, false
	}
	price := quote.Value.Div(base.Value)
	if !price.IsPositive() {
		return Quote{}, false
	}
	return Quote{Price: price, Side: side}, true
}

// Quotes 订单簿的最优买卖价
type Quotes struct {
	BestBid   decimal.Decimal
	BestAsk   decimal.Decimal
	ValidBids int
	ValidAsks int
}

// Crossed 买价高于卖价（合法输入，仅用于日志）
func (q Quotes) Crossed() bool {
	return q.BestBid.GreaterThan(q.BestAsk)
}

// Normalize 计算最优买卖价：卖单取最低价，买单取最高价；任意一侧为空返回 ErrNoData
func Normalize(book xrpl.Book) (Quotes, error) {
	var q Quotes
	for _, o := range book.Asks {
		quote, ok := OfferPrice(o, SideAsk)
		if !ok {
			continue
		}
		if q.ValidAsks == 0 || quote.Price.LessThan(q.BestAsk) {
			q.BestAsk = quote.Price
		}
		q.ValidAsks++
	}
	for _, o := range book.Bids {
		quote, ok := OfferPrice(o, SideBid)
		if !ok {
			continue
		}
		if q.ValidBids == 0 || quote.Price.GreaterThan(q.BestBid) {
			q.BestBid = quote.Price
		}
		q.ValidBids++
	}
	if q.ValidAsks == 0 || q.ValidBids == 0 {
		return q, ErrNoData
	}
	return q, nil
}
