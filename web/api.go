package web

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"governor/logger"
	"governor/monitor"
	"governor/supervisor"
)

// agentStatus 旧版状态格式
type agentStatus struct {
	Running bool `json:"running"`
	PID     *int `json:"pid"`
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   h.now().UTC().Format(time.RFC3339Nano),
	})
}

// legacyStatus GET /status: {"<name>": {"running": bool, "pid": int|null}}
func (h *handlers) legacyStatus(c *gin.Context) {
	out := make(map[string]agentStatus)
	for _, st := range h.ctl.StatsAll() {
		out[st.Name] = agentStatus{Running: st.Running, PID: st.PID}
	}
	c.JSON(http.StatusOK, out)
}

// status GET /api/status: 按注册顺序列出状态与资源占用
func (h *handlers) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"agents": h.ctl.StatsAll()})
}

// agentDetail GET /api/agents/:agent: 单个子进程状态与资源占用
func (h *handlers) agentDetail(c *gin.Context) {
	name := c.Param("agent")
	st, err := h.ctl.Stats(name)
	if err != nil {
		h.fail(c, name, "查询", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *handlers) start(c *gin.Context) {
	name := c.Param("agent")
	pid, err := h.ctl.Start(c.Request.Context(), name)
	if err != nil {
		h.fail(c, name, "启动", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"started": true, "pid": pid})
}

func (h *handlers) stop(c *gin.Context) {
	name := c.Param("agent")
	ok, err := h.ctl.Stop(c.Request.Context(), name, h.window)
	if err != nil {
		h.fail(c, name, "停止", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stopped": ok})
}

// restartAll 返回 {"restarted": true, "pids": {...}, "<name>_pid": pid}
func (h *handlers) restartAll(c *gin.Context) {
	pids, err := h.ctl.RestartAll(c.Request.Context())
	if err != nil {
		logger.Error("❌ 重启全部子进程失败: %v", err)
	}

	resp := gin.H{"restarted": err == nil, "pids": pids}
	for _, name := range h.ctl.Names() {
		if pid, ok := pids[name]; ok {
			resp[name+"_pid"] = pid
		} else {
			resp[name+"_pid"] = nil
		}
	}
	if err != nil {
		resp["error"] = err.Error()
		c.JSON(http.StatusInternalServerError, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// summary GET /api/summary 读取监控写出的汇总文件
func (h *handlers) summary(c *gin.Context) {
	r, err := monitor.ReadReport(h.reportPath)
	if errors.Is(err, os.ErrNotExist) {
		respondError(c, http.StatusNotFound, "summary not available yet")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *handlers) fail(c *gin.Context, name, action string, err error) {
	if errors.Is(err, supervisor.ErrUnknownAgent) {
		respondError(c, http.StatusNotFound, err.Error())
		return
	}
	logger.Error("❌ %s %s 失败: %v", action, name, err)
	respondError(c, http.StatusInternalServerError, err.Error())
}
