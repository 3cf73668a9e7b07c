package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"governor/agent"
	"governor/arbitrage"
	"governor/config"
	"governor/event"
	"governor/exchange"
	"governor/logger"
	"governor/metrics"
	"governor/monitor"
	"governor/notify"
	"governor/order"
	"governor/supervisor"
	"governor/web"
)

// Version 版本号
var Version = "0.4.0"

const usage = `Governor - XRPL 套利进程管理

用法:
  governor hub        [-config governor.yaml]   启动 Agent Hub 控制面
  governor arbitrage  [-config governor.yaml]   运行套利决策引擎
  governor monitor    [-config governor.yaml]   运行成交监控
  governor hash-token <token>                   生成 hub.token_hash
  governor version
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "version", "-version", "--version":
		fmt.Printf("Governor\nVersion: %s\n", Version)
		return
	case "hash-token":
		if len(args) != 1 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		hash, err := web.HashToken(args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	case "hub", "arbitrage", "monitor":
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "governor.yaml", "配置文件路径（不存在时只使用环境变量）")
	_ = fs.Parse(args)

	role := config.Role(cmd)
	cfg := loadConfig(*configPath, role)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch role {
	case config.RoleHub:
		runHub(ctx, cfg, *configPath)
	case config.RoleArbitrage:
		runArbitrage(ctx, cfg)
	case config.RoleMonitor:
		runMonitor(ctx, cfg)
	}
	logger.Close()
}

// loadConfig 加载并校验配置，失败时直接退出
func loadConfig(path string, role config.Role) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		logger.Fatalf("❌ 加载配置失败: %v", err)
	}
	if err := cfg.Validate(role); err != nil {
		logger.Fatalf("❌ 配置验证失败: %v", err)
	}

	logger.SetComponent(string(role))
	logger.SetLogDir(cfg.System.LogDir)
	logger.SetLevel(logger.ParseLogLevel(cfg.System.LogLevel))
	logger.Info("✅ 配置已加载 (role=%s, version=%s)", role, Version)
	return cfg
}

// startNotifications 启动事件总线与通知服务
func startNotifications(ctx context.Context, cfg *config.Config) *event.EventBus {
	ns := notify.NewNotificationService(cfg)
	if !ns.Enabled() {
		// 没有消费方时不创建总线，Publish 在 nil 总线上为空操作
		return nil
	}
	bus := event.NewEventBus(256)
	go ns.Run(ctx, bus)
	return bus
}

func runHub(ctx context.Context, cfg *config.Config, configPath string) {
	exe, err := os.Executable()
	if err != nil {
		logger.Fatalf("❌ 获取可执行文件路径失败: %v", err)
	}

	configured := make([]agent.Descriptor, 0, len(cfg.Agents))
	for _, a := range cfg.Agents {
		configured = append(configured, agent.Descriptor{Name: a.Name, Command: a.Command})
	}
	descs, err := agent.Resolve(configured, agent.DefaultDescriptors(exe, configPath))
	if err != nil {
		logger.Fatalf("❌ agent 配置错误: %v", err)
	}
	reg, err := agent.NewRegistry(descs...)
	if err != nil {
		logger.Fatalf("❌ agent 注册失败: %v", err)
	}

	bus := startNotifications(ctx, cfg)
	sup, err := supervisor.New(reg, supervisor.Options{
		RunDir:         cfg.System.RunDir,
		LogDir:         cfg.System.LogDir,
		GracefulWindow: cfg.System.GracefulStop,
		SelfHeal:       cfg.System.SelfHealStale,
		Bus:            bus,
	})
	if err != nil {
		logger.Fatalf("❌ 创建进程管理器失败: %v", err)
	}
	for _, st := range sup.StatusAll() {
		if st.Running {
			logger.Info("📊 %s 已在运行 (pid=%d)", st.Name, *st.PID)
		}
	}

	if cfg.Hub.Metrics {
		collector := metrics.NewSystemMetricsCollector(15*time.Second, sup.SampleResources)
		collector.Start(ctx)
		defer collector.Stop()
	}

	server := web.NewWebServer(cfg, sup)
	if err := server.Start(); err != nil {
		logger.Fatalf("❌ Agent Hub 启动失败: %v", err)
	}
	bus.Publish(&event.Event{Type: event.EventTypeSystemStart, Data: map[string]interface{}{"addr": cfg.Addr()}})

	<-ctx.Done()
	// 子进程在独立进程组中运行，Hub 退出不影响它们，重启后通过 PID 记录接管
	logger.Info("🛑 收到退出信号，Agent Hub 关闭（子进程保持运行）")
	bus.Publish(&event.Event{Type: event.EventTypeSystemStop, Data: map[string]interface{}{"reason": "收到退出信号"}})
	server.Stop()
}

func runArbitrage(ctx context.Context, cfg *config.Config) {
	ac := &cfg.Arbitrage
	book, err := exchange.NewBookSource(ac)
	if err != nil {
		logger.Fatalf("❌ %v", err)
	}
	ref := exchange.NewReferenceSource(ac)
	if ref == nil {
		logger.Warn("⚠️ 未配置参考价，只记录盘口")
	}

	var ledger order.LedgerClient
	if !ac.DryRun {
		ledger = order.NewSignerClient(ac.Signer.URL, ac.Signer.Timeout, ac.Signer.RateLimit)
	}

	writer := event.NewTradeWriter(ac.EventLog)
	defer writer.Close()

	metrics.Serve(ctx, ac.MetricsAddr)
	collector := metrics.NewSystemMetricsCollector(15 * time.Second)
	collector.Start(ctx)
	defer collector.Stop()

	bus := startNotifications(ctx, cfg)
	engine := arbitrage.NewEngine(arbitrage.Config{
		Base:          ac.Base,
		QuoteCurrency: ac.QuoteCurrency,
		QuoteIssuer:   ac.QuoteIssuer,
		Params: arbitrage.Params{
			MinSpreadBps:   decimal.NewFromFloat(ac.MinSpreadBps),
			MaxSlippageBps: decimal.NewFromFloat(ac.MaxSlippageBps),
			Amount:         decimal.NewFromFloat(ac.Amount),
		},
		DryRun:         ac.DryRun,
		Interval:       ac.Interval,
		RequestTimeout: ac.RequestTimeout,
	}, book, ref, ledger, writer, bus)

	engine.Run(ctx)
}

func runMonitor(ctx context.Context, cfg *config.Config) {
	mc := cfg.Monitor
	metrics.Serve(ctx, mc.MetricsAddr)
	collector := metrics.NewSystemMetricsCollector(15 * time.Second)
	collector.Start(ctx)
	defer collector.Stop()

	m := monitor.New(monitor.Options{
		LogPath:    mc.EventLog,
		ReportPath: mc.ReportPath,
		Interval:   mc.Interval,
		Watch:      mc.Watch,
		Bus:        startNotifications(ctx, cfg),
	})
	m.Run(ctx)
}
