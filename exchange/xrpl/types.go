package xrpl

import (
	"encoding/json"
)

// NativeCurrency 账本原生资产代码
const NativeCurrency = "XRP"

// Asset 订单簿查询中的资产描述；原生资产没有发行方
type Asset struct {
	Currency string `json:"currency"`
	Issuer   string `json:"issuer,omitempty"`
}

// Native 返回原生资产
func Native() Asset {
	return Asset{Currency: NativeCurrency}
}

// IsNative 是否为原生资产
func (a Asset) IsNative() bool {
	return a.Currency == NativeCurrency && a.Issuer == ""
}

func (a Asset) String() string {
	if a.IsNative() {
		return a.Currency
	}
	return a.Currency + "." + a.Issuer
}

// Offer 订单簿中的一笔挂单，金额保持原始 JSON 由调用方解析：
// 原生资产是 drops 字符串，发行资产是 {currency, issuer, value} 对象。
type Offer struct {
	Account   string          `json:"Account,omitempty"`
	Sequence  uint32          `json:"Sequence,omitempty"`
	Quality   string          `json:"quality,omitempty"`
	TakerGets json.RawMessage `json:"TakerGets"`
	TakerPays json.RawMessage `json:"TakerPays"`
}

// UnmarshalJSON 同时接受账本原始字段名（TakerGets）和 snake_case 字段名（taker_gets）
func (o *Offer) UnmarshalJSON(data []byte) error {
	var raw struct {
		Account        string          `json:"Account"`
		Sequence       uint32          `json:"Sequence"`
		Quality        string          `json:"quality"`
		TakerGets      json.RawMessage `json:"TakerGets"`
		TakerPays      json.RawMessage `json:"TakerPays"`
		TakerGetsSnake json.RawMessage `json:"taker_gets"`
		TakerPaysSnake json.RawMessage `json:"taker_pays"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Account = raw.Account
	o.Sequence = raw.Sequence
	o.Quality = raw.Quality
	o.TakerGets = raw.TakerGets
	if len(o.TakerGets) == 0 {
		o.TakerGets = raw.TakerGetsSnake
	}
	o.TakerPays = raw.TakerPays
	if len(o.TakerPays) == 0 {
		o.TakerPays = raw.TakerPaysSnake
	}
	return nil
}

// Book 一个交易对两侧的挂单快照。
// Asks: taker 得到基础资产、支付报价资产；Bids: taker 支付基础资产、得到报价资产。
type Book struct {
	Asks []Offer
	Bids []Offer
}

// bookOffersParams book_offers 请求参数
type bookOffersParams struct {
	TakerGets Asset `json:"taker_gets"`
	TakerPays Asset `json:"taker_pays"`
	Limit     int   `json:"limit,omitempty"`
}

// bookOffersResult book_offers 响应（JSON-RPC 的 result / WebSocket 的 result）
type bookOffersResult struct {
	Offers       []Offer `json:"offers"`
	Status       string  `json:"status"`
	Error        string  `json:"error"`
	ErrorMessage string  `json:"error_message"`
}
