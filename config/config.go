package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Role 进程角色，不同角色的必填项不同
type Role string

const (
	RoleHub       Role = "hub"
	RoleArbitrage Role = "arbitrage"
	RoleMonitor   Role = "monitor"
)

// Config 全局配置，进程启动时加载一次，之后只读
type Config struct {
	System struct {
		LogLevel      string        `yaml:"log_level"`
		RunDir        string        `yaml:"run_dir"`        // PID 文件目录
		LogDir        string        `yaml:"log_dir"`        // 子进程 stdout/stderr 目录
		GracefulStop  time.Duration `yaml:"graceful_stop"`  // 优雅停止窗口
		SelfHealStale bool          `yaml:"self_heal_stale"` // 检测到进程已死时清理 PID 文件
	} `yaml:"system"`

	Hub struct {
		Host      string `yaml:"host"`
		Port      int    `yaml:"port"`
		TokenHash string `yaml:"token_hash"` // bcrypt 哈希，为空则不鉴权
		Metrics   bool   `yaml:"metrics"`
	} `yaml:"hub"`

	Agents []AgentConfig `yaml:"agents"`

	Arbitrage ArbitrageConfig `yaml:"arbitrage"`

	Monitor MonitorConfig `yaml:"monitor"`

	Notifications struct {
		Enabled bool `yaml:"enabled"`
		Webhook struct {
			URL     string        `yaml:"url"`
			Timeout time.Duration `yaml:"timeout"`
		} `yaml:"webhook"`
		Slack struct {
			Webhook string `yaml:"webhook"`
		} `yaml:"slack"`
	} `yaml:"notifications"`
}

// AgentConfig 子进程定义，Command 为空时使用内置命令
type AgentConfig struct {
	Name    string   `yaml:"name"`
	Command []string `yaml:"command"`
}

// ArbitrageConfig 套利引擎配置
type ArbitrageConfig struct {
	RPCURL         string        `yaml:"rpc_url"`
	Base           string        `yaml:"base"`
	QuoteCurrency  string        `yaml:"quote_currency"`
	QuoteIssuer    string        `yaml:"quote_issuer"`
	MinSpreadBps   float64       `yaml:"min_spread_bps"`
	MaxSlippageBps float64       `yaml:"max_slippage_bps"` // 仅记录，不参与下单数量计算
	DryRun         bool          `yaml:"dry_run"`
	Amount         float64       `yaml:"amount"` // 每次下单的基础资产数量
	Interval       time.Duration `yaml:"interval"`
	BookLimit      int           `yaml:"book_limit"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	EventLog       string        `yaml:"event_log"`
	MetricsAddr    string        `yaml:"metrics_addr"`

	Reference struct {
		Symbol      string  `yaml:"symbol"`
		StaticPrice float64 `yaml:"static_price"` // 大于0时不请求行情
	} `yaml:"reference"`

	Signer struct {
		URL       string        `yaml:"url"`
		Timeout   time.Duration `yaml:"timeout"`
		RateLimit float64       `yaml:"rate_limit"` // 每秒提交次数
	} `yaml:"signer"`
}

// MonitorConfig 成交监控配置
type MonitorConfig struct {
	EventLog    string        `yaml:"event_log"`
	ReportPath  string        `yaml:"report_path"`
	Interval    time.Duration `yaml:"interval"`
	Watch       bool          `yaml:"watch"` // 文件写入时提前触发轮询
	MetricsAddr string        `yaml:"metrics_addr"`
}

// Load 加载配置：YAML 文件（可选）+ 环境变量覆盖
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.Arbitrage.DryRun = true
	cfg.Monitor.Watch = true

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("解析配置文件失败: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
			// 没有配置文件时只使用环境变量和默认值
		default:
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv 使用环境变量覆盖配置
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *float64) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("环境变量 %s 不是有效数字: %q", key, v)
		}
		*dst = f
		return nil
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		d, err := parseInterval(v)
		if err != nil {
			return fmt.Errorf("环境变量 %s 不是有效时间间隔: %q", key, v)
		}
		*dst = d
		return nil
	}

	str("GOVERNOR_LOG_LEVEL", &c.System.LogLevel)
	str("HUB_TOKEN_HASH", &c.Hub.TokenHash)
	if v, ok := lookup("HUB_PORT"); ok && v != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("环境变量 HUB_PORT 不是有效端口: %q", v)
		}
		c.Hub.Port = port
	}

	str("XRPL_RPC_URL", &c.Arbitrage.RPCURL)
	str("QUOTE_CURRENCY", &c.Arbitrage.QuoteCurrency)
	str("QUOTE_ISSUER", &c.Arbitrage.QuoteIssuer)
	str("ARB_REF_SYMBOL", &c.Arbitrage.Reference.Symbol)
	str("LEDGER_SIGNER_URL", &c.Arbitrage.Signer.URL)
	if v, ok := lookup("ARB_DRY_RUN"); ok && v != "" {
		c.Arbitrage.DryRun = strings.TrimSpace(v) == "1" || strings.EqualFold(strings.TrimSpace(v), "true")
	}

	// ARB_LOG_PATH 同时是引擎的写入路径和监控的读取路径
	if v, ok := lookup("ARB_LOG_PATH"); ok && v != "" {
		c.Arbitrage.EventLog = v
		c.Monitor.EventLog = v
	}
	str("ARB_REPORT_PATH", &c.Monitor.ReportPath)

	for _, f := range []func() error{
		func() error { return num("ARB_MIN_SPREAD_BPS", &c.Arbitrage.MinSpreadBps) },
		func() error { return num("ARB_MAX_SLIPPAGE_BPS", &c.Arbitrage.MaxSlippageBps) },
		func() error { return num("ARB_REF_PRICE", &c.Arbitrage.Reference.StaticPrice) },
		func() error { return dur("ARB_INTERVAL", &c.Arbitrage.Interval) },
		func() error { return dur("ARB_MONITOR_INTERVAL", &c.Monitor.Interval) },
	} {
		if err := f(); err != nil {
			return err
		}
	}
	return nil
}

// parseInterval 支持 "30s" 形式，也兼容纯数字秒数 "30.0"
func parseInterval(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(v)
}

// Validate 填充默认值并按角色校验配置
func (c *Config) Validate(role Role) error {
	if c.System.LogLevel == "" {
		c.System.LogLevel = "info"
	}
	if c.System.RunDir == "" {
		c.System.RunDir = "run"
	}
	if c.System.LogDir == "" {
		c.System.LogDir = "logs"
	}
	if c.System.GracefulStop <= 0 {
		c.System.GracefulStop = 5 * time.Second
	}

	if c.Hub.Host == "" {
		c.Hub.Host = "0.0.0.0"
	}
	if c.Hub.Port == 0 {
		c.Hub.Port = 5060
	}
	if c.Hub.Port < 0 || c.Hub.Port > 65535 {
		return fmt.Errorf("hub.port 超出范围: %d", c.Hub.Port)
	}

	seen := make(map[string]bool, len(c.Agents))
	for _, a := range c.Agents {
		if a.Name == "" {
			return fmt.Errorf("agents 中存在空名称")
		}
		if seen[a.Name] {
			return fmt.Errorf("agent %s 重复定义", a.Name)
		}
		seen[a.Name] = true
	}

	if err := c.Arbitrage.validate(role == RoleArbitrage); err != nil {
		return err
	}

	m := &c.Monitor
	if m.EventLog == "" {
		m.EventLog = c.Arbitrage.EventLog
	}
	if m.ReportPath == "" {
		m.ReportPath = "./logs/monitor_report.json"
	}
	if m.Interval == 0 {
		m.Interval = 30 * time.Second
	}
	if m.Interval < 0 {
		return fmt.Errorf("monitor.interval 必须大于0")
	}

	if c.Notifications.Enabled && c.Notifications.Webhook.URL == "" && c.Notifications.Slack.Webhook == "" {
		return fmt.Errorf("已启用通知但未配置任何通知渠道")
	}
	return nil
}

func (a *ArbitrageConfig) validate(required bool) error {
	if a.RPCURL == "" {
		a.RPCURL = "https://s.altnet.rippletest.net:51234"
	}
	if a.Base == "" {
		a.Base = "XRP"
	}
	if a.MinSpreadBps == 0 {
		a.MinSpreadBps = 30
	}
	if a.MaxSlippageBps == 0 {
		a.MaxSlippageBps = 20
	}
	if a.Amount == 0 {
		a.Amount = 5
	}
	if a.Interval == 0 {
		a.Interval = 10 * time.Second
	}
	if a.BookLimit == 0 {
		a.BookLimit = 5
	}
	if a.RequestTimeout == 0 {
		a.RequestTimeout = 10 * time.Second
	}
	if a.EventLog == "" {
		a.EventLog = "./logs/arbitrage.log"
	}
	if a.Reference.Symbol == "" {
		a.Reference.Symbol = "XRPUSDT"
	}
	if a.Signer.Timeout == 0 {
		a.Signer.Timeout = 15 * time.Second
	}
	if a.Signer.RateLimit == 0 {
		a.Signer.RateLimit = 1
	}

	if !strings.EqualFold(a.Base, "XRP") {
		return fmt.Errorf("arbitrage.base 仅支持 XRP: %s", a.Base)
	}
	if a.MinSpreadBps < 0 || a.MaxSlippageBps < 0 {
		return fmt.Errorf("arbitrage 阈值不能为负数")
	}
	if a.Amount < 0 || a.Reference.StaticPrice < 0 {
		return fmt.Errorf("arbitrage.amount 和 reference.static_price 不能为负数")
	}
	if a.Interval < 0 || a.RequestTimeout < 0 || a.Signer.Timeout < 0 {
		return fmt.Errorf("arbitrage 时间间隔必须大于0")
	}
	if a.BookLimit < 0 {
		return fmt.Errorf("arbitrage.book_limit 不能为负数")
	}

	if !required {
		return nil
	}
	if a.QuoteCurrency == "" || a.QuoteIssuer == "" {
		return fmt.Errorf("交易对未配置，请设置 QUOTE_CURRENCY 和 QUOTE_ISSUER")
	}
	if !a.DryRun && a.Signer.URL == "" {
		return fmt.Errorf("实盘模式需要配置 LEDGER_SIGNER_URL")
	}
	return nil
}

// Addr 控制面监听地址
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Hub.Host, c.Hub.Port)
}
