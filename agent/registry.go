package agent

import (
	"fmt"
)

const (
	// Arbitrage 套利决策引擎
	Arbitrage = "arbitrage"
	// Monitor 成交监控
	Monitor = "monitor"
)

// Descriptor 子进程描述：名称 + 启动命令
type Descriptor struct {
	Name    string
	Command []string
}

// Registry 进程注册表，启动时构建，之后只读
type Registry struct {
	order []string
	byKey map[string]Descriptor
}

// NewRegistry 创建注册表，名称不能为空或重复，命令不能为空
func NewRegistry(ds ...Descriptor) (*Registry, error) {
	r := &Registry{byKey: make(map[string]Descriptor, len(ds))}
	for _, d := range ds {
		if d.Name == "" {
			return nil, fmt.Errorf("agent 名称不能为空")
		}
		if len(d.Command) == 0 {
			return nil, fmt.Errorf("agent %s 未配置启动命令", d.Name)
		}
		if _, dup := r.byKey[d.Name]; dup {
			return nil, fmt.Errorf("agent %s 重复注册", d.Name)
		}
		r.byKey[d.Name] = Descriptor{Name: d.Name, Command: append([]string(nil), d.Command...)}
		r.order = append(r.order, d.Name)
	}
	return r, nil
}

// Get 按名称查找
func (r *Registry) Get(name string) (Descriptor, bool) {
	d, ok := r.byKey[name]
	if !ok {
		return Descriptor{}, false
	}
	d.Command = append([]string(nil), d.Command...)
	return d, true
}

// Names 按注册顺序返回名称
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// All 按注册顺序返回全部描述
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		d, _ := r.Get(name)
		out = append(out, d)
	}
	return out
}

// DefaultDescriptors 内置的两个子进程：以当前可执行文件的子命令方式启动
func DefaultDescriptors(executable, configPath string) []Descriptor {
	build := func(name string) Descriptor {
		cmd := []string{executable, name}
		if configPath != "" {
			cmd = append(cmd, "-config", configPath)
		}
		return Descriptor{Name: name, Command: cmd}
	}
	return []Descriptor{build(Arbitrage), build(Monitor)}
}

// Resolve 合并配置中的 agent 定义与内置命令：未配置命令的已知 agent 使用内置命令
func Resolve(configured []Descriptor, defaults []Descriptor) ([]Descriptor, error) {
	if len(configured) == 0 {
		return defaults, nil
	}
	builtin := make(map[string]Descriptor, len(defaults))
	for _, d := range defaults {
		builtin[d.Name] = d
	}
	out := make([]Descriptor, 0, len(configured))
	for _, d := range configured {
		if len(d.Command) == 0 {
			def, ok := builtin[d.Name]
			if !ok {
				return nil, fmt.Errorf("agent %s 未配置启动命令", d.Name)
			}
			d.Command = def.Command
		}
		out = append(out, d)
	}
	return out, nil
}
