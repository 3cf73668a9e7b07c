package supervisor

import (
	"github.com/shirou/gopsutil/v3/process"

	"governor/logger"
)

// Stats 状态附带 CPU 与常驻内存，进程未运行时与 Status 相同
func (s *Supervisor) Stats(name string) (Status, error) {
	st, err := s.Status(name)
	if err != nil || !st.Running {
		return st, err
	}
	s.fillResources(&st)
	return st, nil
}

// StatsAll 全部子进程的状态与资源占用
func (s *Supervisor) StatsAll() []Status {
	all := s.StatusAll()
	for i := range all {
		if all[i].Running {
			s.fillResources(&all[i])
		}
	}
	return all
}

func (s *Supervisor) fillResources(st *Status) {
	p, err := process.NewProcess(int32(*st.PID))
	if err != nil {
		logger.Debug("读取 %s 进程信息失败: %v", st.Name, err)
		return
	}
	if cpu, err := p.CPUPercent(); err == nil {
		st.CPU = cpu
	}
	if mem, err := p.MemoryInfo(); err == nil && mem != nil {
		st.RSS = mem.RSS
	}
	s.pm.SetAgentResources(st.Name, st.CPU, st.RSS)
}

// SampleResources 供系统指标采集器定期调用
func (s *Supervisor) SampleResources() {
	s.StatsAll()
}
