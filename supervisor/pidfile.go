package supervisor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// pidPath PID 记录路径 <run_dir>/<name>.pid
func (s *Supervisor) pidPath(name string) string {
	return filepath.Join(s.opts.RunDir, name+".pid")
}

// ReadPID 读取 PID 记录；文件不存在或内容无法解析都视为没有记录
func ReadPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// writePID 先写临时文件再 rename，读方不会看到半截内容
func writePID(path string, pid int) error {
	tmp := fmt.Sprintf("%s.tmp-%d", path, os.Getpid())
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return fmt.Errorf("写入 PID 文件失败: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("替换 PID 文件失败: %w", err)
	}
	return nil
}

// removePID 删除 PID 记录，文件不存在不算错误
func removePID(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("删除 PID 文件失败: %w", err)
	}
	return nil
}
