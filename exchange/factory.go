package exchange

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"governor/config"
	"governor/exchange/binance"
	"governor/exchange/xrpl"
)

// PriceSource 参考价来源
type PriceSource interface {
	Price(ctx context.Context) (decimal.Decimal, error)
}

// StaticPrice 固定参考价（离线运行或测试）
type StaticPrice decimal.Decimal

// Price 返回固定价格
func (s StaticPrice) Price(context.Context) (decimal.Decimal, error) {
	return decimal.Decimal(s), nil
}

// NewBookSource 根据配置创建订单簿来源
func NewBookSource(cfg *config.ArbitrageConfig) (*xrpl.PairSource, error) {
	if cfg.QuoteCurrency == "" || cfg.QuoteIssuer == "" {
		return nil, fmt.Errorf("交易对未配置，请设置 QUOTE_CURRENCY 和 QUOTE_ISSUER")
	}
	if !strings.EqualFold(cfg.Base, xrpl.NativeCurrency) {
		return nil, fmt.Errorf("基础资产只支持 %s，当前: %s", xrpl.NativeCurrency, cfg.Base)
	}

	client, err := xrpl.NewClient(cfg.RPCURL, cfg.RequestTimeout)
	if err != nil {
		return nil, err
	}
	quote := xrpl.Asset{Currency: cfg.QuoteCurrency, Issuer: cfg.QuoteIssuer}
	return client.Pair(xrpl.Native(), quote, cfg.BookLimit), nil
}

// NewReferenceSource 根据配置创建参考价来源：配置了固定价格时优先使用
func NewReferenceSource(cfg *config.ArbitrageConfig) PriceSource {
	if cfg.Reference.StaticPrice > 0 {
		return StaticPrice(decimal.NewFromFloat(cfg.Reference.StaticPrice))
	}
	if cfg.Reference.Symbol == "" {
		return nil
	}
	return binance.NewPriceSource(cfg.Reference.Symbol)
}
