package failover

import (
	"context"
	"fmt"

	"rewritefailover/internal/logger"
	"rewritefailover/internal/rewrite"
)

// Action 一轮决策对远端执行的操作
type Action int

const (
	ActionNone   Action = iota // 无需变更
	ActionAdd                  // 添加条目
	ActionChange               // 替换记录值
	ActionSkip                 // 远端状态未知，本轮跳过
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionAdd:
		return "add"
	case ActionChange:
		return "change"
	case ActionSkip:
		return "skip"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Outcome 一轮决策的结果，仅用于日志和状态展示
type Outcome struct {
	Action   Action
	Chosen   string // 本轮选中的记录值，没有可用候选时为空
	Previous string // 变更前远端的记录值
	Applied  bool   // 远端变更已确认成功
	Err      error
}

// Active 本轮结束后该任务认为生效的记录值
func (o Outcome) Active() string {
	switch {
	case o.Action == ActionNone && o.Chosen != "":
		return o.Chosen
	case o.Applied:
		return o.Chosen
	default:
		return o.Previous
	}
}

// Verifier 在变更后确认 DNS 服务器实际返回的记录
type Verifier interface {
	Verify(ctx context.Context, domain, expected string) (bool, error)
}

// Switcher 根据健康向量对远端重写条目做最少的变更
// 不缓存远端状态，每次决策都重新读取
type Switcher struct {
	store    rewrite.Store
	verifier Verifier
}

// Option Switcher 可选项
type Option func(*Switcher)

// WithVerifier 变更成功后用 DNS 查询确认结果
func WithVerifier(v Verifier) Option {
	return func(s *Switcher) {
		s.verifier = v
	}
}

// NewSwitcher 创建切换器
func NewSwitcher(store rewrite.Store, opts ...Option) *Switcher {
	s := &Switcher{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply 有序故障转移：选出记录值后与远端比较，最多执行一次变更
func (s *Switcher) Apply(ctx context.Context, domain string, candidates []string, healthy []bool) Outcome {
	chosen, ok := Choose(candidates, healthy)
	if !ok {
		if len(candidates) > 0 {
			logger.Warnf("[%s] 所有候选记录均不可用，保留当前配置", domain)
		}
		return Outcome{Action: ActionNone}
	}

	current, found, err := s.store.GetAnswerOfDomain(ctx, domain)
	if err != nil {
		logger.Errorf("[%s] 获取当前记录失败，下次检测时重试: %v", domain, err)
		return Outcome{Action: ActionSkip, Chosen: chosen, Err: err}
	}

	if !found {
		logger.Infof("[%s] 远端没有记录，添加 %s", domain, chosen)
		added, err := s.store.AddEntry(ctx, domain, chosen)
		out := Outcome{Action: ActionAdd, Chosen: chosen, Applied: added, Err: err}
		s.report(ctx, domain, out)
		return out
	}

	if current == chosen {
		logger.Debugf("[%s] 当前记录 %s 已是目标值", domain, current)
		return Outcome{Action: ActionNone, Chosen: chosen, Previous: current}
	}

	logger.Infof("[%s] 切换记录: %s -> %s", domain, current, chosen)
	changed, err := s.store.ChangeAnswer(ctx, domain, current, chosen)
	out := Outcome{Action: ActionChange, Chosen: chosen, Previous: current, Applied: changed, Err: err}
	s.report(ctx, domain, out)
	return out
}

// EnsureEntry 静态条目：不存在时添加，存在时什么都不做
func (s *Switcher) EnsureEntry(ctx context.Context, domain, answer string) Outcome {
	exists, err := s.store.EntryExists(ctx, domain, answer)
	if err != nil {
		logger.Errorf("[%s] 检查静态条目失败，下次检测时重试: %v", domain, err)
		return Outcome{Action: ActionSkip, Chosen: answer, Err: err}
	}
	if exists {
		logger.Debugf("[%s] 静态条目 %s 已存在", domain, answer)
		return Outcome{Action: ActionNone, Chosen: answer, Previous: answer}
	}

	logger.Infof("[%s] 静态条目不存在，添加 %s", domain, answer)
	added, err := s.store.AddEntry(ctx, domain, answer)
	out := Outcome{Action: ActionAdd, Chosen: answer, Applied: added, Err: err}
	s.report(ctx, domain, out)
	return out
}

func (s *Switcher) report(ctx context.Context, domain string, out Outcome) {
	switch {
	case out.Err != nil:
		logger.Errorf("[%s] %s 失败: %v", domain, out.Action, out.Err)
		return
	case !out.Applied:
		logger.Warnf("[%s] %s 未生效 (目标: %s)", domain, out.Action, out.Chosen)
		return
	}

	logger.Infof("[%s] %s 成功，当前记录: %s", domain, out.Action, out.Chosen)

	if s.verifier == nil {
		return
	}
	ok, err := s.verifier.Verify(ctx, domain, out.Chosen)
	switch {
	case err != nil:
		logger.Warnf("[%s] DNS 验证失败: %v", domain, err)
	case ok:
		logger.Infof("[%s] DNS 验证通过: %s", domain, out.Chosen)
	default:
		logger.Warnf("[%s] DNS 尚未返回 %s（可能仍在缓存中）", domain, out.Chosen)
	}
}
