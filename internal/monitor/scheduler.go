package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"rewritefailover/internal/failover"
	"rewritefailover/internal/job"
	"rewritefailover/internal/logger"
	"rewritefailover/internal/probe"
	"rewritefailover/internal/rewrite"
	"rewritefailover/internal/schedule"
)

// CheckerFactory 为任务创建检测器，静态条目任务返回 nil
type CheckerFactory func(job.Descriptor) (probe.Checker, error)

// Options 调度器参数
type Options struct {
	Policy   EntryPolicy       // 远端已存在条目时的处理策略
	Wait     time.Duration     // 对账完成后到第一次检测之间的等待
	Verifier failover.Verifier // 可选，变更后做 DNS 验证
	Checkers CheckerFactory    // 默认 probe.ForJob
}

// Scheduler 任务调度器
// 启动时按顺序逐个对账，然后每个任务在自己的 goroutine 中循环检测
type Scheduler struct {
	store    rewrite.Store
	switcher *failover.Switcher
	jobs     []job.Descriptor
	opts     Options

	mu        sync.RWMutex
	handles   []*Handle
	byID      map[string]*Handle
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
}

// NewScheduler 创建调度器
func NewScheduler(store rewrite.Store, jobs []job.Descriptor, opts Options) *Scheduler {
	if opts.Policy == "" {
		opts.Policy = PolicyKeep
	}
	if opts.Checkers == nil {
		opts.Checkers = probe.ForJob
	}

	var switcherOpts []failover.Option
	if opts.Verifier != nil {
		switcherOpts = append(switcherOpts, failover.WithVerifier(opts.Verifier))
	}

	return &Scheduler{
		store:    store,
		switcher: failover.NewSwitcher(store, switcherOpts...),
		jobs:     jobs,
		opts:     opts,
		byID:     make(map[string]*Handle),
	}
}

// Start 对账并启动所有任务
// 对账需要访问远端，因此会阻塞到所有任务对账完成；检测循环在后台运行，直到 Stop 或 ctx 取消
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("调度器已经在运行中")
	}

	logger.Info("==========================================")
	logger.Infof("启动任务调度器，共 %d 个任务，策略: %s", len(s.jobs), s.opts.Policy)

	s.handles = nil
	s.byID = make(map[string]*Handle)

	var runnable []*Handle
	for _, d := range s.jobs {
		h, reason := s.prepare(ctx, d)
		s.handles = append(s.handles, h)
		s.byID[h.ID] = h

		if reason != "" {
			h.setState(StateSkipped, reason)
			close(h.done)
			continue
		}
		runnable = append(runnable, h)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.isRunning = true

	for _, h := range runnable {
		jobCtx, jobCancel := context.WithCancel(runCtx)
		h.cancel = jobCancel
		h.setState(StateRunning, "")
		s.wg.Add(1)
		go s.run(jobCtx, h)
	}

	logger.Infof("已启动 %d 个任务，跳过 %d 个", len(runnable), len(s.handles)-len(runnable))
	logger.Info("==========================================")
	return nil
}

// Stop 取消所有任务并等待正在进行的检测结束
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	logger.Info("正在停止任务调度器...")
	cancel()
	s.wg.Wait()
	logger.Info("任务调度器已停止")
}

// IsRunning 检查是否正在运行
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handles 所有任务句柄，按配置顺序
func (s *Scheduler) Handles() []*Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Handle(nil), s.handles...)
}

// Handle 按 ID 查找任务
func (s *Scheduler) Handle(id string) (*Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.byID[id]
	return h, ok
}

// Trigger 请求任务立即检测一次
// 请求由任务自己的循环处理，不会与正在进行的检测重叠；已有待处理请求时合并
func (s *Scheduler) Trigger(id string) error {
	h, ok := s.Handle(id)
	if !ok {
		return fmt.Errorf("任务不存在: %s", id)
	}
	if h.State() != StateRunning {
		return fmt.Errorf("任务未在运行: %s (%s)", h.Job.Name(), h.State())
	}

	select {
	case h.trigger <- struct{}{}:
	default:
	}
	return nil
}

// StopJob 取消单个任务
func (s *Scheduler) StopJob(id string) error {
	h, ok := s.Handle(id)
	if !ok {
		return fmt.Errorf("任务不存在: %s", id)
	}
	if h.cancel != nil {
		h.cancel()
	}
	<-h.done
	return nil
}

// prepare 创建任务句柄，返回非空原因时该任务不启动
func (s *Scheduler) prepare(ctx context.Context, d job.Descriptor) (*Handle, string) {
	id := uuid.NewString()

	sched, err := schedule.ForJob(d)
	if err != nil {
		logger.Errorf("[%s] 调度配置无效，跳过: %v", d.Name(), err)
		return newHandle(id, d, nil, nil), "调度配置无效"
	}
	checker, err := s.opts.Checkers(d)
	if err != nil {
		logger.Errorf("[%s] 创建检测器失败，跳过: %v", d.Name(), err)
		return newHandle(id, d, sched, nil), "创建检测器失败"
	}

	h := newHandle(id, d, sched, checker)
	if ok, reason := s.reconcile(ctx, d); !ok {
		return h, reason
	}
	return h, ""
}

// reconcile 启动前按策略处理远端已存在的同名条目，返回是否启动任务
func (s *Scheduler) reconcile(ctx context.Context, d job.Descriptor) (bool, string) {
	exists, err := s.store.DomainExists(ctx, d.Domain)
	if err != nil {
		logger.Errorf("[%s] 无法确认远端状态，本次运行不启动该任务: %v", d.Name(), err)
		return false, "远端不可用"
	}

	switch s.opts.Policy {
	case PolicyKeep:
		return true, ""

	case PolicyDrop:
		if exists {
			logger.Warnf("[%s] 远端已存在该域名，策略 DROP，不启动任务", d.Name())
			return false, "远端已存在 (DROP)"
		}
		return true, ""

	default:
		if !exists {
			return true, ""
		}
		answer, found, err := s.store.GetAnswerOfDomain(ctx, d.Domain)
		if err != nil {
			logger.Errorf("[%s] 获取远端记录失败，不启动任务: %v", d.Name(), err)
			return false, "远端不可用"
		}
		if !found {
			return true, ""
		}

		deleted, err := s.store.DeleteEntry(ctx, d.Domain, answer)
		if err != nil || !deleted {
			logger.Errorf("[%s] 删除远端条目 %s 失败，不启动任务: %v", d.Name(), answer, err)
			return false, "删除远端条目失败"
		}
		logger.Infof("[%s] 已删除远端条目 %s", d.Name(), answer)
		return true, ""
	}
}

// run 单个任务的检测循环
func (s *Scheduler) run(ctx context.Context, h *Handle) {
	defer s.wg.Done()
	defer close(h.done)
	defer h.setState(StateStopped, "")

	if s.opts.Wait > 0 {
		logger.Infof("[%s] 等待 %v 后开始检测", h.Job.Name(), s.opts.Wait)
		if !s.sleep(ctx, h, s.opts.Wait) {
			return
		}
	}

	for {
		s.tick(ctx, h)

		next := h.schedule.Next(time.Now())
		h.setNext(next)
		if !s.sleep(ctx, h, time.Until(next)) {
			return
		}
	}
}

// sleep 等待到期或被手动触发，ctx 取消时返回 false
func (s *Scheduler) sleep(ctx context.Context, h *Handle, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	case <-h.trigger:
		logger.Infof("[%s] 手动触发检测", h.Job.Name())
		return true
	}
}

// tick 执行一轮检测：按顺序检测每个候选，然后交给切换器决策
func (s *Scheduler) tick(ctx context.Context, h *Handle) {
	d := h.Job
	logger.Infof("[%s] ---------- 开始检测 ----------", d.Name())
	start := time.Now()

	var (
		out     failover.Outcome
		results []*probe.Result
	)

	if h.checker == nil {
		out = s.switcher.EnsureEntry(ctx, d.Domain, d.Primary())
	} else {
		healthy := make([]bool, len(d.Candidates))
		results = make([]*probe.Result, len(d.Candidates))
		for i, c := range d.Candidates {
			results[i] = h.checker.Check(ctx, c)
			healthy[i] = results[i].Success
		}
		// 检测过程中被取消时不再修改远端
		if ctx.Err() != nil {
			return
		}
		out = s.switcher.Apply(ctx, d.Domain, d.Candidates, healthy)
	}

	h.record(start, results, out)
	logger.Infof("[%s] ---------- 检测结束 (%s, 耗时: %v) ----------", d.Name(), out.Action, time.Since(start))
}
