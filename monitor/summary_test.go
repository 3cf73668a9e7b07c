package monitor

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	trades, _ := Fold(nil)
	s := Summarize(trades, t0)
	assert.Equal(t, 0, s.TotalTrades)
	assert.True(t, s.AverageProfit.IsZero())
	assert.True(t, s.WinRate.IsZero())

	trades = []TradeRecord{
		{Profit: dec("2")},
		{Profit: dec("-1")},
		{Profit: dec("0")},
		{Profit: dec("3")},
	}
	s = Summarize(trades, t0)
	assert.Equal(t, 4, s.TotalTrades)
	assert.True(t, s.TotalProfit.Equal(dec("4")))
	assert.True(t, s.AverageProfit.Equal(dec("1")))
	assert.True(t, s.WinRate.Equal(dec("50")), "零收益不计为盈利: %s", s.WinRate)
	assert.Equal(t, t0, s.LastUpdated)
}

func TestSummaryEqualIgnoresLastUpdated(t *testing.T) {
	trades := []TradeRecord{{Profit: dec("2")}}
	a := Summarize(trades, t0)
	b := Summarize(trades, t0.Add(time.Hour))
	assert.True(t, a.Equal(b))

	c := Summarize(append(trades, TradeRecord{Profit: dec("1")}), t0)
	assert.False(t, a.Equal(c))
}

func TestWriteAndReadReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "monitor_report.json")
	s := Summarize([]TradeRecord{{Profit: dec("2")}}, t0)

	require.NoError(t, WriteReport(path, s))
	r, err := ReadReport(path)
	require.NoError(t, err)
	assert.Equal(t, Report{TotalTrades: 1, TotalProfit: 2, AverageProfit: 2, WinRate: 100, LastUpdated: t0}, r)

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches, "临时文件应已清理")
}
