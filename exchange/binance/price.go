package binance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"governor/metrics"
)

// PriceSource 现货最新成交价，作为套利的外部参考价
type PriceSource struct {
	client *binance.Client
	symbol string
}

// NewPriceSource 创建参考价来源，行情接口无需 API Key
func NewPriceSource(symbol string) *PriceSource {
	return &PriceSource{
		client: binance.NewClient("", ""),
		symbol: strings.ToUpper(strings.TrimSpace(symbol)),
	}
}

// Symbol 交易对
func (p *PriceSource) Symbol() string {
	return p.symbol
}

// Price 获取现货价格
// API: GET /api/v3/ticker/price
func (p *PriceSource) Price(ctx context.Context) (decimal.Decimal, error) {
	start := time.Now()
	prices, err := p.client.NewListPricesService().Symbol(p.symbol).Do(ctx)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.GetPrometheusMetrics().RecordAPICall("binance", "ticker_price", status, time.Since(start))
	if err != nil {
		return decimal.Zero, fmt.Errorf("请求现货价格失败: %w", err)
	}

	for _, sp := range prices {
		if sp == nil || !strings.EqualFold(sp.Symbol, p.symbol) {
			continue
		}
		price, err := decimal.NewFromString(sp.Price)
		if err != nil {
			return decimal.Zero, fmt.Errorf("解析价格失败: %w", err)
		}
		if !price.IsPositive() {
			return decimal.Zero, fmt.Errorf("交易对 %s 价格无效: %s", p.symbol, sp.Price)
		}
		return price, nil
	}
	return decimal.Zero, fmt.Errorf("未找到交易对 %s 的价格", p.symbol)
}
