package metrics

import (
	"context"
	"runtime"
	"time"
)

// SystemMetricsCollector 周期采集运行时指标，并调用额外的采样函数
type SystemMetricsCollector struct {
	pm       *PrometheusMetrics
	interval time.Duration
	samplers []func()
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewSystemMetricsCollector 创建采集器，samplers 在每个周期依次执行
func NewSystemMetricsCollector(interval time.Duration, samplers ...func()) *SystemMetricsCollector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &SystemMetricsCollector{
		pm:       GetPrometheusMetrics(),
		interval: interval,
		samplers: samplers,
	}
}

// Start 启动采集
func (smc *SystemMetricsCollector) Start(ctx context.Context) {
	smc.ctx, smc.cancel = context.WithCancel(ctx)
	go smc.collectLoop()
}

// Stop 停止采集
func (smc *SystemMetricsCollector) Stop() {
	if smc.cancel != nil {
		smc.cancel()
	}
}

func (smc *SystemMetricsCollector) collectLoop() {
	ticker := time.NewTicker(smc.interval)
	defer ticker.Stop()

	smc.collect()
	for {
		select {
		case <-smc.ctx.Done():
			return
		case <-ticker.C:
			smc.collect()
		}
	}
}

func (smc *SystemMetricsCollector) collect() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	smc.pm.SetGoroutineCount(runtime.NumGoroutine())
	smc.pm.SetMemoryAlloc(m.Alloc)

	for _, sample := range smc.samplers {
		sample()
	}
}
