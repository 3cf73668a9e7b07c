package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"governor/supervisor"
)

// AgentController 控制面依赖的进程管理能力
type AgentController interface {
	Names() []string
	StatsAll() []supervisor.Status
	Stats(name string) (supervisor.Status, error)
	Start(ctx context.Context, name string) (int, error)
	Stop(ctx context.Context, name string, window time.Duration) (bool, error)
	RestartAll(ctx context.Context) (map[string]int, error)
}

// handlers 路由处理器共享的依赖
type handlers struct {
	ctl        AgentController
	reportPath string
	window     time.Duration
	now        func() time.Time
}

// RouterOptions 路由配置
type RouterOptions struct {
	ReportPath     string        // 监控汇总文件
	TokenHash      string        // bcrypt 哈希，为空不鉴权
	GracefulWindow time.Duration // 停止时的优雅窗口
	Metrics        bool          // 是否暴露 /metrics
}

// SetupRoutes 设置路由
func SetupRoutes(r *gin.Engine, ctl AgentController, opts RouterOptions) {
	h := &handlers{ctl: ctl, reportPath: opts.ReportPath, window: opts.GracefulWindow, now: time.Now}

	r.GET("/health", h.health)

	// Prometheus metrics 端点（不需要认证，供 Prometheus 抓取）
	if opts.Metrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	protected := r.Group("/")
	protected.Use(authMiddleware(opts.TokenHash))
	{
		// 兼容旧版 Agent Hub 路由
		protected.GET("/status", h.legacyStatus)
		protected.POST("/start/:agent", h.start)
		protected.POST("/stop/:agent", h.stop)
		protected.POST("/restart/all", h.restartAll)

		api := protected.Group("/api")
		api.GET("/status", h.status)
		api.GET("/summary", h.summary)
		api.GET("/agents/:agent", h.agentDetail)
		api.POST("/agents/:agent/start", h.start)
		api.POST("/agents/:agent/stop", h.stop)
		api.POST("/restart/all", h.restartAll)
	}

	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "not found")
	})
}

// respondError 统一错误响应
func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}
