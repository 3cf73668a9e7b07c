package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// 进程托管指标
	agentRunning     *prometheus.GaugeVec
	agentStartsTotal *prometheus.CounterVec
	agentStopsTotal  *prometheus.CounterVec
	agentCPUPercent  *prometheus.GaugeVec
	agentRSSBytes    *prometheus.GaugeVec

	// 套利引擎指标
	arbCyclesTotal *prometheus.CounterVec
	arbEdgeBps     *prometheus.GaugeVec
	arbBestPrice   *prometheus.GaugeVec
	arbRefPrice    prometheus.Gauge
	ordersTotal    *prometheus.CounterVec

	// 成交监控指标
	monitorTrades       prometheus.Gauge
	monitorProfit       prometheus.Gauge
	monitorWinRate      prometheus.Gauge
	monitorSkippedLines prometheus.Gauge
	monitorPolls        *prometheus.CounterVec

	// 外部调用
	apiCallDuration *prometheus.HistogramVec

	// 运行时
	goroutineCount prometheus.Gauge
	memoryAlloc    prometheus.Gauge
)

func initMetrics() {
	agentRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "governor_agent_running",
			Help: "Agent liveness (0=stopped, 1=running)",
		},
		[]string{"agent"},
	)

	agentStartsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "governor_agent_starts_total",
			Help: "Total number of agent processes spawned",
		},
		[]string{"agent"},
	)

	agentStopsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "governor_agent_stops_total",
			Help: "Total number of agent stops by termination mode",
		},
		[]string{"agent", "mode"},
	)

	agentCPUPercent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "governor_agent_cpu_percent",
			Help: "Agent process CPU usage percent",
		},
		[]string{"agent"},
	)

	agentRSSBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "governor_agent_rss_bytes",
			Help: "Agent process resident memory in bytes",
		},
		[]string{"agent"},
	)

	arbCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "governor_arb_cycles_total",
			Help: "Total number of arbitrage cycles by outcome",
		},
		[]string{"outcome"},
	)

	arbEdgeBps = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "governor_arb_edge_bps",
			Help: "Last computed edge in basis points",
		},
		[]string{"side"},
	)

	arbBestPrice = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "governor_arb_best_price",
			Help: "Best bid/ask in quote units per base unit",
		},
		[]string{"side"},
	)

	arbRefPrice = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "governor_arb_reference_price",
			Help: "Last reference price",
		},
	)

	ordersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "governor_orders_total",
			Help: "Total number of orders by side, mode and status",
		},
		[]string{"side", "mode", "status"},
	)

	monitorTrades = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "governor_monitor_trades",
			Help: "Completed round-trip trades in the event log",
		},
	)

	monitorProfit = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "governor_monitor_profit",
			Help: "Total realized profit in quote units",
		},
	)

	monitorWinRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "governor_monitor_win_rate",
			Help: "Share of profitable trades in percent",
		},
	)

	monitorSkippedLines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "governor_monitor_skipped_lines",
			Help: "Malformed event log lines skipped in the last poll",
		},
	)

	monitorPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "governor_monitor_polls_total",
			Help: "Total number of monitor polls by result",
		},
		[]string{"result"},
	)

	apiCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "governor_api_call_duration_seconds",
			Help:    "External call duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0},
		},
		[]string{"venue", "endpoint", "status"},
	)

	goroutineCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "governor_goroutines",
			Help: "Number of goroutines",
		},
	)

	memoryAlloc = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "governor_memory_alloc_bytes",
			Help: "Bytes of allocated heap objects",
		},
	)
}

// PrometheusMetrics Prometheus 指标记录器
type PrometheusMetrics struct{}

// GetPrometheusMetrics 获取全局指标记录器
func GetPrometheusMetrics() *PrometheusMetrics {
	once.Do(initMetrics)
	return &PrometheusMetrics{}
}

// SetAgentRunning 记录子进程存活状态
func (pm *PrometheusMetrics) SetAgentRunning(agent string, running bool) {
	v := 0.0
	if running {
		v = 1
	}
	agentRunning.WithLabelValues(agent).Set(v)
}

// RecordAgentStart 记录子进程启动
func (pm *PrometheusMetrics) RecordAgentStart(agent string) {
	agentStartsTotal.WithLabelValues(agent).Inc()
}

// RecordAgentStop 记录子进程停止（graceful / forced）
func (pm *PrometheusMetrics) RecordAgentStop(agent, mode string) {
	agentStopsTotal.WithLabelValues(agent, mode).Inc()
}

// SetAgentResources 记录子进程资源占用
func (pm *PrometheusMetrics) SetAgentResources(agent string, cpuPercent float64, rss uint64) {
	agentCPUPercent.WithLabelValues(agent).Set(cpuPercent)
	agentRSSBytes.WithLabelValues(agent).Set(float64(rss))
}

// RecordCycle 记录一次套利周期结果
func (pm *PrometheusMetrics) RecordCycle(outcome string) {
	arbCyclesTotal.WithLabelValues(outcome).Inc()
}

// SetEdge 记录买卖两侧的价差（bps）
func (pm *PrometheusMetrics) SetEdge(buyBps, sellBps float64) {
	arbEdgeBps.WithLabelValues("buy").Set(buyBps)
	arbEdgeBps.WithLabelValues("sell").Set(sellBps)
}

// SetBestPrices 记录最优买卖价
func (pm *PrometheusMetrics) SetBestPrices(bid, ask float64) {
	arbBestPrice.WithLabelValues("bid").Set(bid)
	arbBestPrice.WithLabelValues("ask").Set(ask)
}

// SetReferencePrice 记录参考价
func (pm *PrometheusMetrics) SetReferencePrice(price float64) {
	arbRefPrice.Set(price)
}

// RecordOrder 记录下单结果
func (pm *PrometheusMetrics) RecordOrder(side, mode, status string) {
	ordersTotal.WithLabelValues(side, mode, status).Inc()
}

// SetSummary 记录监控汇总
func (pm *PrometheusMetrics) SetSummary(trades int, profit, winRate float64) {
	monitorTrades.Set(float64(trades))
	monitorProfit.Set(profit)
	monitorWinRate.Set(winRate)
}

// SetSkippedLines 记录最近一次轮询跳过的行数
func (pm *PrometheusMetrics) SetSkippedLines(n int) {
	monitorSkippedLines.Set(float64(n))
}

// RecordPoll 记录一次监控轮询（changed / unchanged / error）
func (pm *PrometheusMetrics) RecordPoll(result string) {
	monitorPolls.WithLabelValues(result).Inc()
}

// RecordAPICall 记录外部调用耗时
func (pm *PrometheusMetrics) RecordAPICall(venue, endpoint, status string, duration time.Duration) {
	apiCallDuration.WithLabelValues(venue, endpoint, status).Observe(duration.Seconds())
}

// SetGoroutineCount 设置 goroutine 数量
func (pm *PrometheusMetrics) SetGoroutineCount(count int) {
	goroutineCount.Set(float64(count))
}

// SetMemoryAlloc 设置堆内存分配
func (pm *PrometheusMetrics) SetMemoryAlloc(bytes uint64) {
	memoryAlloc.Set(float64(bytes))
}
