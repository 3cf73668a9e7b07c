package arbitrage

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"governor/exchange/xrpl"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func iou(value string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"currency":"USD","issuer":"rIssuer","value":%q}`, value))
}

func drops(n string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf("%q", n))
}

// askOffer taker 得到 xrp 个基础资产，支付 quote 个报价资产
func askOffer(xrpDrops, quote string) xrpl.Offer {
	return xrpl.Offer{TakerGets: drops(xrpDrops), TakerPays: iou(quote)}
}

// bidOffer taker 支付 xrp 个基础资产，得到 quote 个报价资产
func bidOffer(xrpDrops, quote string) xrpl.Offer {
	return xrpl.Offer{TakerGets: iou(quote), TakerPays: drops(xrpDrops)}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		native  bool
		wantErr bool
	}{
		{"drops 字符串", `"5000000"`, "5", true, false},
		{"小额 drops", `"1"`, "0.000001", true, false},
		{"发行资产", `{"currency":"USD","issuer":"rIssuer","value":"2.75"}`, "2.75", false, false},
		{"对象形式原生资产", `{"currency":"XRP","value":"2000000"}`, "2", true, false},
		{"非数字 drops", `"abc"`, "", false, true},
		{"非数字 value", `{"currency":"USD","issuer":"r","value":"x"}`, "", false, true},
		{"数组", `[1]`, "", false, true},
		{"空", ``, "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseAmount(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, a.Value.Equal(dec(tt.want)), "value = %s", a.Value)
			assert.Equal(t, tt.native, a.Native)
		})
	}
}

func TestOfferPrice(t *testing.T) {
	q, ok := OfferPrice(askOffer("10000000", "5"), SideAsk)
	require.True(t, ok)
	assert.True(t, q.Price.Equal(dec("0.5")))

	q, ok = OfferPrice(bidOffer("10000000", "4.8"), SideBid)
	require.True(t, ok)
	assert.True(t, q.Price.Equal(dec("0.48")))

	_, ok = OfferPrice(askOffer("0", "5"), SideAsk)
	assert.False(t, ok, "基础资产数量为0时价格无定义")

	_, ok = OfferPrice(bidOffer("10000000", "0"), SideBid)
	assert.False(t, ok, "价格为0应丢弃")

	_, ok = OfferPrice(xrpl.Offer{TakerGets: drops("1000000")}, SideAsk)
	assert.False(t, ok, "缺少金额应丢弃")
}

func TestNormalize(t *testing.T) {
	book := xrpl.Book{
		Asks: []xrpl.Offer{
			askOffer("10000000", "5.2"),  // 0.52
			askOffer("10000000", "5"),    // 0.50
			askOffer("0", "1"),           // 无效
			askOffer("20000000", "10.6"), // 0.53
		},
		Bids: []xrpl.Offer{
			bidOffer("10000000", "4.8"), // 0.48
			bidOffer("10000000", "4.9"), // 0.49
			{TakerGets: json.RawMessage(`"garbage`), TakerPays: drops("1")},
		},
	}

	q, err := Normalize(book)
	require.NoError(t, err)
	assert.True(t, q.BestAsk.Equal(dec("0.5")), "best ask = %s", q.BestAsk)
	assert.True(t, q.BestBid.Equal(dec("0.49")), "best bid = %s", q.BestBid)
	assert.Equal(t, 3, q.ValidAsks)
	assert.Equal(t, 2, q.ValidBids)
	assert.False(t, q.Crossed())
}

func TestNormalizeEmptySide(t *testing.T) {
	tests := []struct {
		name string
		book xrpl.Book
	}{
		{"空订单簿", xrpl.Book{}},
		{"只有卖单", xrpl.Book{Asks: []xrpl.Offer{askOffer("1000000", "0.5")}}},
		{"只有买单", xrpl.Book{Bids: []xrpl.Offer{bidOffer("1000000", "0.5")}}},
		{"卖单全部无效", xrpl.Book{
			Asks: []xrpl.Offer{askOffer("0", "0.5")},
			Bids: []xrpl.Offer{bidOffer("1000000", "0.5")},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.book)
			assert.ErrorIs(t, err, ErrNoData)
		})
	}
}

func TestNormalizeCrossedBook(t *testing.T) {
	q, err := Normalize(xrpl.Book{
		Asks: []xrpl.Offer{askOffer("1000000", "0.60")},
		Bids: []xrpl.Offer{bidOffer("1000000", "0.65")},
	})
	require.NoError(t, err)
	assert.True(t, q.Crossed())
}
