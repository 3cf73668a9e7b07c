package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Summary 绩效汇总，每次轮询从全部成交记录重新计算
type Summary struct {
	TotalTrades   int
	TotalProfit   decimal.Decimal
	AverageProfit decimal.Decimal
	WinRate       decimal.Decimal // 百分比
	LastUpdated   time.Time
}

// Summarize 汇总成交记录；没有记录时平均收益和胜率为 0
func Summarize(trades []TradeRecord, now time.Time) Summary {
	s := Summary{TotalTrades: len(trades), LastUpdated: now}
	if len(trades) == 0 {
		return s
	}

	wins := 0
	for _, t := range trades {
		s.TotalProfit = s.TotalProfit.Add(t.Profit)
		if t.Profit.IsPositive() {
			wins++
		}
	}
	n := decimal.NewFromInt(int64(len(trades)))
	s.AverageProfit = s.TotalProfit.Div(n)
	s.WinRate = hundred.Mul(decimal.NewFromInt(int64(wins))).Div(n)
	return s
}

// Equal 比较除 LastUpdated 以外的字段
func (s Summary) Equal(o Summary) bool {
	return s.TotalTrades == o.TotalTrades &&
		s.TotalProfit.Equal(o.TotalProfit) &&
		s.AverageProfit.Equal(o.AverageProfit) &&
		s.WinRate.Equal(o.WinRate)
}

// Report 汇总文件格式
type Report struct {
	TotalTrades   int       `json:"total_trades"`
	TotalProfit   float64   `json:"total_profit"`
	AverageProfit float64   `json:"average_profit"`
	WinRate       float64   `json:"win_rate"`
	LastUpdated   time.Time `json:"last_updated"`
}

// Report 转换为汇总文件格式
func (s Summary) Report() Report {
	return Report{
		TotalTrades:   s.TotalTrades,
		TotalProfit:   s.TotalProfit.InexactFloat64(),
		AverageProfit: s.AverageProfit.InexactFloat64(),
		WinRate:       s.WinRate.InexactFloat64(),
		LastUpdated:   s.LastUpdated.UTC(),
	}
}

// WriteReport 整体重写汇总文件（先写临时文件再 rename）
func WriteReport(path string, s Summary) error {
	data, err := json.MarshalIndent(s.Report(), "", "  ")
	if err != nil {
		return fmt.Errorf("序列化汇总失败: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("创建汇总目录失败: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("写入汇总失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("写入汇总失败: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("替换汇总文件失败: %w", err)
	}
	return nil
}

// ReadReport 读取汇总文件
func ReadReport(path string) (Report, error) {
	var r Report
	data, err := os.ReadFile(path)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("解析汇总文件失败: %w", err)
	}
	return r, nil
}
