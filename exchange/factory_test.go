package exchange

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"governor/config"
	"governor/exchange/binance"
)

func arbConfig() *config.ArbitrageConfig {
	return &config.ArbitrageConfig{
		RPCURL:         "https://s.altnet.rippletest.net:51234",
		Base:           "XRP",
		QuoteCurrency:  "USD",
		QuoteIssuer:    "rIssuer",
		BookLimit:      5,
		RequestTimeout: time.Second,
	}
}

func TestNewBookSource(t *testing.T) {
	src, err := NewBookSource(arbConfig())
	if err != nil {
		t.Fatalf("NewBookSource: %v", err)
	}
	if !src.Base().IsNative() || src.Quote().Issuer != "rIssuer" {
		t.Errorf("交易对错误: %v / %v", src.Base(), src.Quote())
	}

	cfg := arbConfig()
	cfg.QuoteIssuer = ""
	if _, err := NewBookSource(cfg); err == nil {
		t.Error("缺少发行方应返回错误")
	}

	cfg = arbConfig()
	cfg.Base = "ETH"
	if _, err := NewBookSource(cfg); err == nil {
		t.Error("非原生基础资产应返回错误")
	}
}

func TestNewReferenceSource(t *testing.T) {
	cfg := arbConfig()
	cfg.Reference.StaticPrice = 0.55
	src := NewReferenceSource(cfg)
	price, err := src.Price(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !price.Equal(decimal.RequireFromString("0.55")) {
		t.Errorf("price = %s", price)
	}

	cfg = arbConfig()
	cfg.Reference.Symbol = "XRPUSDT"
	if _, ok := NewReferenceSource(cfg).(*binance.PriceSource); !ok {
		t.Error("未配置固定价格时应使用现货行情")
	}

	if NewReferenceSource(arbConfig()) != nil {
		t.Error("未配置参考价时应返回 nil")
	}
}
