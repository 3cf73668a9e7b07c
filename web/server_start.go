package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"governor/config"
	"governor/logger"
)

// WebServer 控制面 HTTP 服务
type WebServer struct {
	server *http.Server
	addr   string
}

// NewWebServer 创建控制面服务
func NewWebServer(cfg *config.Config, ctl AgentController) *WebServer {
	debug := cfg.System.LogLevel == "debug"
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), GinLoggerMiddleware(debug))
	SetupRoutes(r, ctl, RouterOptions{
		ReportPath:     cfg.Monitor.ReportPath,
		TokenHash:      cfg.Hub.TokenHash,
		GracefulWindow: cfg.System.GracefulStop,
		Metrics:        cfg.Hub.Metrics,
	})

	addr := cfg.Addr()
	return &WebServer{
		addr: addr,
		server: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: controlWriteTimeout(cfg.System.GracefulStop, len(ctl.Names())),
			IdleTimeout:  60 * time.Second,
		},
	}
}

// controlWriteTimeout 全部重启会依次停止每个子进程，最坏情况每个都等满优雅窗口
func controlWriteTimeout(window time.Duration, agents int) time.Duration {
	if agents < 1 {
		agents = 1
	}
	return window*time.Duration(agents+1) + 15*time.Second
}

// Start 监听端口并在后台服务
func (ws *WebServer) Start() error {
	if ws == nil {
		return nil
	}

	ln, err := net.Listen("tcp", ws.addr)
	if err != nil {
		return err
	}
	ws.addr = ln.Addr().String()

	go func() {
		logger.Info("🌐 Agent Hub 启动在 http://%s", ln.Addr())
		if err := ws.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("❌ Agent Hub 服务异常: %v", err)
		}
	}()
	return nil
}

// Addr 实际监听地址
func (ws *WebServer) Addr() string {
	return ws.addr
}

// Stop 停止服务
func (ws *WebServer) Stop() {
	if ws == nil || ws.server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(ctx); err != nil {
		logger.Error("❌ Agent Hub 关闭失败: %v", err)
	} else {
		logger.Info("✅ Agent Hub 已关闭")
	}
}
