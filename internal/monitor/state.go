package monitor

import (
	"sync"
	"time"

	"rewritefailover/internal/failover"
	"rewritefailover/internal/job"
	"rewritefailover/internal/probe"
	"rewritefailover/internal/schedule"
)

// State 任务生命周期
type State string

const (
	StateIdle    State = "idle"    // 已创建，尚未启动
	StateRunning State = "running" // 正在按计划检测
	StateStopped State = "stopped" // 已取消
	StateSkipped State = "skipped" // 配置无效或对账决定不运行
)

// CandidateHealth 单个候选记录的最近一次检测结果
type CandidateHealth struct {
	Answer    string        `json:"answer"`
	Healthy   bool          `json:"healthy"`
	Latency   time.Duration `json:"latency_ns"`
	Error     string        `json:"error,omitempty"`
	CheckedAt time.Time     `json:"checked_at"`
}

// Status 任务运行时状态（仅存在于内存中）
type Status struct {
	ID         string            `json:"id"`
	Kind       job.Kind          `json:"kind"`
	Domain     string            `json:"domain"`
	Candidates []string          `json:"candidates"`
	Schedule   string            `json:"schedule"`
	State      State             `json:"state"`
	Reason     string            `json:"reason,omitempty"` // 跳过原因
	Ticks      int               `json:"ticks"`
	Active     string            `json:"active,omitempty"` // 最近一次确认的远端记录值
	LastAction string            `json:"last_action,omitempty"`
	LastError  string            `json:"last_error,omitempty"`
	LastRunAt  *time.Time        `json:"last_run_at,omitempty"`
	NextRunAt  *time.Time        `json:"next_run_at,omitempty"`
	Health     []CandidateHealth `json:"health,omitempty"`
}

// Handle 单个任务的控制句柄
// 每个任务一个 goroutine，cancel 结束循环，trigger 请求立即检测一次
type Handle struct {
	ID  string
	Job job.Descriptor

	schedule schedule.Schedule
	checker  probe.Checker
	trigger  chan struct{}
	cancel   func()
	done     chan struct{}

	mu     sync.RWMutex
	status Status
}

func newHandle(id string, d job.Descriptor, sched schedule.Schedule, checker probe.Checker) *Handle {
	var desc string
	if sched != nil {
		desc = sched.String()
	}
	return &Handle{
		ID:       id,
		Job:      d,
		schedule: sched,
		checker:  checker,
		trigger:  make(chan struct{}, 1),
		done:     make(chan struct{}),
		status: Status{
			ID:         id,
			Kind:       d.Kind,
			Domain:     d.Domain,
			Candidates: append([]string(nil), d.Candidates...),
			Schedule:   desc,
			State:      StateIdle,
		},
	}
}

// Status 返回状态快照
func (h *Handle) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s := h.status
	s.Candidates = append([]string(nil), h.status.Candidates...)
	s.Health = append([]CandidateHealth(nil), h.status.Health...)
	return s
}

// State 当前生命周期状态
func (h *Handle) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status.State
}

// Done 任务循环退出后关闭
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) setState(state State, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status.State = state
	h.status.Reason = reason
}

func (h *Handle) setNext(next time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status.NextRunAt = &next
}

// record 保存一轮检测的结果
func (h *Handle) record(at time.Time, results []*probe.Result, out failover.Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.status.Ticks++
	h.status.LastRunAt = &at
	h.status.LastAction = out.Action.String()
	h.status.LastError = ""
	if out.Err != nil {
		h.status.LastError = out.Err.Error()
	}
	if active := out.Active(); active != "" {
		h.status.Active = active
	}

	if results == nil {
		return
	}
	h.status.Health = make([]CandidateHealth, len(results))
	for i, r := range results {
		ch := CandidateHealth{
			Answer:    h.Job.Candidates[i],
			Healthy:   r.Success,
			Latency:   r.Latency,
			CheckedAt: at,
		}
		if r.Error != nil {
			ch.Error = r.Error.Error()
		}
		h.status.Health[i] = ch
	}
}
