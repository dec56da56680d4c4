package probe

import (
	"context"
	"fmt"
	"time"

	"rewritefailover/internal/job"
)

// ProbeType 检测类型
type ProbeType string

const (
	TypePing ProbeType = "PING"
	TypeTCP  ProbeType = "TCP"
	TypeHTTP ProbeType = "HTTP"
)

// Result 通用检测结果
// 目标不可达、状态码不符、域名解析失败都属于正常的检测结果，记录在 Error 中
type Result struct {
	Type    ProbeType     // 检测类型
	Target  string        // 检测目标
	Success bool          // 是否健康
	Latency time.Duration // 延迟
	Error   error         // 失败原因
}

// Checker 检测器接口
type Checker interface {
	// Check 对单个候选地址执行一次检测
	Check(ctx context.Context, target string) *Result
	// Type 返回检测类型
	Type() ProbeType
}

// ForJob 按任务类型创建检测器
// 静态条目任务没有主动检测，返回 nil
func ForJob(d job.Descriptor) (Checker, error) {
	switch d.Kind {
	case job.KindHTTP:
		return NewHTTPChecker(d.HTTP), nil
	case job.KindPing:
		return NewPingChecker(d.Ping), nil
	case job.KindTCP:
		return NewTCPChecker(d.TCP), nil
	case job.KindStatic:
		return nil, nil
	default:
		return nil, fmt.Errorf("未知的任务类型: %s", d.Kind)
	}
}
