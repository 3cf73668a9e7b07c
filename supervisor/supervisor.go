package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"governor/agent"
	"governor/event"
	"governor/logger"
	"governor/metrics"
)

// ErrUnknownAgent 名称不在注册表中
var ErrUnknownAgent = errors.New("unknown agent")

const pollInterval = 100 * time.Millisecond

// Options 进程管理配置
type Options struct {
	RunDir         string
	LogDir         string
	GracefulWindow time.Duration // Stop 传入 0 时使用
	SelfHeal       bool          // 状态查询发现进程已退出时清理 PID 记录
	Bus            *event.EventBus
}

// Status 子进程状态，每次查询实时计算
type Status struct {
	Name    string  `json:"name"`
	Running bool    `json:"running"`
	PID     *int    `json:"pid"`
	CPU     float64 `json:"cpu_percent,omitempty"`
	RSS     uint64  `json:"rss_bytes,omitempty"`
}

// Supervisor 按名称管理子进程：启动、停止、状态查询、全部重启。
// 同一名称的 Start/Stop 串行执行，不同名称互不阻塞。
type Supervisor struct {
	reg   *agent.Registry
	opts  Options
	locks map[string]*sync.Mutex
	pm    *metrics.PrometheusMetrics
}

// New 创建进程管理器并准备 PID 与日志目录
func New(reg *agent.Registry, opts Options) (*Supervisor, error) {
	if reg == nil {
		return nil, fmt.Errorf("注册表不能为空")
	}
	if opts.RunDir == "" {
		opts.RunDir = "run"
	}
	if opts.LogDir == "" {
		opts.LogDir = "logs"
	}
	if opts.GracefulWindow <= 0 {
		opts.GracefulWindow = 5 * time.Second
	}
	for _, dir := range []string{opts.RunDir, opts.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("创建目录 %s 失败: %w", dir, err)
		}
	}

	s := &Supervisor{
		reg:   reg,
		opts:  opts,
		locks: make(map[string]*sync.Mutex),
		pm:    metrics.GetPrometheusMetrics(),
	}
	for _, name := range reg.Names() {
		s.locks[name] = &sync.Mutex{}
	}
	return s, nil
}

// Names 受管子进程名称（注册顺序）
func (s *Supervisor) Names() []string {
	return s.reg.Names()
}

func (s *Supervisor) lock(name string) (func(), error) {
	mu, ok := s.locks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, name)
	}
	mu.Lock()
	return mu.Unlock, nil
}

// alive 用 0 号信号探测进程是否存在，任何错误（包括无权限）都视为不存在
func alive(pid int) bool {
	return syscall.Kill(pid, syscall.Signal(0)) == nil
}

// Status 查询单个子进程状态
func (s *Supervisor) Status(name string) (Status, error) {
	if _, ok := s.reg.Get(name); !ok {
		return Status{}, fmt.Errorf("%w: %s", ErrUnknownAgent, name)
	}
	return s.status(name, false), nil
}

// status 读取 PID 记录并探测存活。held 表示调用方已持有该名称的锁。
func (s *Supervisor) status(name string, held bool) Status {
	st := Status{Name: name}
	pid, ok := ReadPID(s.pidPath(name))
	if !ok {
		s.pm.SetAgentRunning(name, false)
		return st
	}
	st.PID = &pid
	st.Running = alive(pid)
	s.pm.SetAgentRunning(name, st.Running)

	if !st.Running && s.opts.SelfHeal && s.healStale(name, pid, held) {
		st.PID = nil
	}
	return st
}

// healStale 删除指向已退出进程的 PID 记录。
// 未持锁时只尝试加锁，锁被 Start/Stop 占用就跳过，并在锁内确认记录仍是同一个已退出的 PID。
func (s *Supervisor) healStale(name string, pid int, held bool) bool {
	path := s.pidPath(name)
	if !held {
		mu := s.locks[name]
		if !mu.TryLock() {
			return false
		}
		defer mu.Unlock()
		cur, ok := ReadPID(path)
		if !ok {
			return true
		}
		if cur != pid || alive(cur) {
			return false
		}
	}
	if err := removePID(path); err != nil {
		logger.Warn("⚠️ 清理 %s 的过期 PID 记录失败: %v", name, err)
		return false
	}
	logger.Info("🧹 %s 进程 %d 已退出，清理过期 PID 记录", name, pid)
	return true
}

// StatusAll 按注册顺序返回全部子进程状态
func (s *Supervisor) StatusAll() []Status {
	names := s.reg.Names()
	out := make([]Status, 0, len(names))
	for _, name := range names {
		out = append(out, s.status(name, false))
	}
	return out
}

// Start 启动子进程；已在运行则直接返回已有 PID
func (s *Supervisor) Start(ctx context.Context, name string) (int, error) {
	desc, ok := s.reg.Get(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAgent, name)
	}
	unlock, err := s.lock(name)
	if err != nil {
		return 0, err
	}
	defer unlock()

	if st := s.status(name, true); st.Running {
		logger.Debug("%s 已在运行 (pid=%d)", name, *st.PID)
		return *st.PID, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	pid, err := s.spawn(desc)
	if err != nil {
		return 0, err
	}
	if err := writePID(s.pidPath(name), pid); err != nil {
		// 记录写不进去就无法再停止它，直接结束整个进程组
		_ = syscall.Kill(-pid, syscall.SIGKILL)
		return 0, err
	}

	s.pm.RecordAgentStart(name)
	s.pm.SetAgentRunning(name, true)
	logger.Info("🚀 已启动 %s (pid=%d)", name, pid)
	s.opts.Bus.Publish(&event.Event{
		Type: event.EventTypeAgentStarted,
		Data: map[string]interface{}{"agent": name, "pid": pid},
	})
	return pid, nil
}

// spawn 以新进程组组长的身份启动命令，输出追加到 <log_dir>/<name>.out.log / .err.log
func (s *Supervisor) spawn(desc agent.Descriptor) (int, error) {
	openLog := func(suffix string) (*os.File, error) {
		return os.OpenFile(filepath.Join(s.opts.LogDir, desc.Name+suffix),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	}
	stdout, err := openLog(".out.log")
	if err != nil {
		return 0, fmt.Errorf("打开输出日志失败: %w", err)
	}
	defer stdout.Close()
	stderr, err := openLog(".err.log")
	if err != nil {
		return 0, fmt.Errorf("打开错误日志失败: %w", err)
	}
	defer stderr.Close()
	devNull, err := os.Open(os.DevNull)
	if err != nil {
		return 0, fmt.Errorf("打开 %s 失败: %w", os.DevNull, err)
	}
	defer devNull.Close()

	cmd := exec.Command(desc.Command[0], desc.Command[1:]...)
	cmd.Stdin = devNull
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("启动 %s 失败: %w", desc.Name, err)
	}

	pid := cmd.Process.Pid
	// 回收子进程，避免僵尸进程让 0 号信号探测一直成功
	go func() {
		err := cmd.Wait()
		logger.Debug("%s (pid=%d) 已退出: %v", desc.Name, pid, err)
	}()
	return pid, nil
}

// Stop 停止子进程：先向进程组发送 SIGTERM，窗口内每 100ms 检查一次，超时后 SIGKILL。
// 没有 PID 记录时返回 false；否则最终总会删除记录并返回 true。
func (s *Supervisor) Stop(ctx context.Context, name string, window time.Duration) (bool, error) {
	unlock, err := s.lock(name)
	if err != nil {
		return false, err
	}
	defer unlock()

	path := s.pidPath(name)
	pid, ok := ReadPID(path)
	if !ok {
		return false, nil
	}
	if window <= 0 {
		window = s.opts.GracefulWindow
	}

	// 进程已不存在时信号发送失败，忽略
	_ = syscall.Kill(-pid, syscall.SIGTERM)

	mode := "forced"
	checks := int(window / pollInterval)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
wait:
	for i := 0; i < checks; i++ {
		if !alive(pid) {
			mode = "graceful"
			break
		}
		select {
		case <-ctx.Done():
			break wait
		case <-ticker.C:
		}
	}
	if mode == "forced" && !alive(pid) {
		mode = "graceful"
	}

	evtType := event.EventTypeAgentStopped
	if mode == "forced" {
		_ = syscall.Kill(-pid, syscall.SIGKILL)
		evtType = event.EventTypeAgentKilled
		logger.Warn("⚠️ %s (pid=%d) 未在 %v 内退出，已强制结束", name, pid, window)
	} else {
		logger.Info("🛑 已停止 %s (pid=%d)", name, pid)
	}

	if err := removePID(path); err != nil {
		logger.Warn("⚠️ %v", err)
	}
	s.pm.RecordAgentStop(name, mode)
	s.pm.SetAgentRunning(name, false)
	s.opts.Bus.Publish(&event.Event{
		Type: evtType,
		Data: map[string]interface{}{"agent": name, "pid": pid},
	})
	return true, nil
}

// RestartAll 先停止全部子进程（忽略单个失败），再全部启动，返回新的 PID
func (s *Supervisor) RestartAll(ctx context.Context) (map[string]int, error) {
	names := s.reg.Names()
	for _, name := range names {
		if _, err := s.Stop(ctx, name, s.opts.GracefulWindow); err != nil {
			logger.Warn("⚠️ 重启时停止 %s 失败: %v", name, err)
		}
	}

	pids := make(map[string]int, len(names))
	var errs []error
	for _, name := range names {
		pid, err := s.Start(ctx, name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		pids[name] = pid
	}
	return pids, errors.Join(errs...)
}
