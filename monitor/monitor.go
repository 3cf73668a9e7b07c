package monitor

import (
	"context"
	"fmt"
	"time"

	"governor/event"
	"governor/logger"
	"governor/metrics"
)

// Options 监控配置
type Options struct {
	LogPath    string
	ReportPath string
	Interval   time.Duration
	Watch      bool // 成交日志写入时提前轮询
	Bus        *event.EventBus
	Now        func() time.Time
}

// Monitor 成交日志监控：定时重读整个日志，重算汇总，仅在汇总变化时写文件
type Monitor struct {
	opts Options
	last *Summary
	pm   *metrics.PrometheusMetrics
}

// New 创建监控
func New(opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Monitor{opts: opts, pm: metrics.GetPrometheusMetrics()}
}

// Last 最近一次发布的汇总
func (m *Monitor) Last() (Summary, bool) {
	if m.last == nil {
		return Summary{}, false
	}
	return *m.last, true
}

// Poll 执行一次轮询，返回本次汇总以及是否发布了新汇总
func (m *Monitor) Poll() (Summary, bool, error) {
	events, skipped, err := event.ReadTrades(m.opts.LogPath)
	if err != nil {
		m.pm.RecordPoll("error")
		return Summary{}, false, err
	}
	m.pm.SetSkippedLines(skipped)
	if skipped > 0 {
		logger.Debug("跳过 %d 行无法解析的成交日志", skipped)
	}

	trades, pending := Fold(events)
	summary := Summarize(trades, m.opts.Now())
	if !pending.Empty() {
		logger.Debug("待配对买入: %s @ %s", pending.Qty(), pending.Price())
	}

	if m.last != nil && m.last.Equal(summary) {
		m.pm.RecordPoll("unchanged")
		return summary, false, nil
	}

	if err := WriteReport(m.opts.ReportPath, summary); err != nil {
		m.pm.RecordPoll("error")
		return summary, false, err
	}
	m.last = &summary
	m.pm.RecordPoll("changed")
	m.pm.SetSummary(summary.TotalTrades, summary.TotalProfit.InexactFloat64(), summary.WinRate.InexactFloat64())

	unit := ""
	if n := len(events); n > 0 {
		unit = " " + events[n-1].Quote
	}
	logger.Info("📈 %s | Trades=%d Profit=%s%s | WinRate=%s%%",
		summary.LastUpdated.UTC().Format(time.RFC3339), summary.TotalTrades,
		summary.TotalProfit.StringFixed(6), unit, summary.WinRate.StringFixed(1))

	m.opts.Bus.Publish(&event.Event{
		Type: event.EventTypeSummaryChanged,
		Data: map[string]interface{}{
			"total_trades":   summary.TotalTrades,
			"total_profit":   summary.TotalProfit.String(),
			"average_profit": summary.AverageProfit.String(),
			"win_rate":       summary.WinRate.StringFixed(1),
		},
	})
	return summary, true, nil
}

// Run 轮询循环，ctx 取消时返回
func (m *Monitor) Run(ctx context.Context) {
	logger.Info("👀 监控成交日志 %s（间隔 %v）", m.opts.LogPath, m.opts.Interval)

	var wake <-chan struct{}
	if m.opts.Watch {
		ch, err := watchFile(ctx, m.opts.LogPath)
		if err != nil {
			logger.Warn("⚠️ 文件监控不可用，仅使用定时轮询: %v", err)
		} else {
			wake = ch
		}
	}

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	m.pollAndLog()
	for {
		select {
		case <-ctx.Done():
			logger.Info("🛑 成交监控已停止")
			return
		case <-ticker.C:
			m.pollAndLog()
		case <-wake:
			m.pollAndLog()
		}
	}
}

func (m *Monitor) pollAndLog() {
	if _, _, err := m.Poll(); err != nil {
		logger.Error("❌ 监控轮询失败: %v", err)
	}
}

// String 便于日志输出
func (s Summary) String() string {
	return fmt.Sprintf("trades=%d profit=%s avg=%s win_rate=%s%%",
		s.TotalTrades, s.TotalProfit, s.AverageProfit, s.WinRate.StringFixed(1))
}
