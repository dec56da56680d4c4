package probe

import (
	"context"
	"fmt"
	"time"

	goping "github.com/go-ping/ping"

	"rewritefailover/internal/job"
	"rewritefailover/internal/logger"
)

// packetInterval 两个回显请求之间的间隔
const packetInterval = 300 * time.Millisecond

// PingChecker ICMP 检测器
type PingChecker struct {
	count      int
	timeout    time.Duration
	privileged bool
}

// NewPingChecker 创建 Ping 检测器
func NewPingChecker(p job.PingParams) *PingChecker {
	count := p.Count
	if count <= 0 {
		count = 2
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &PingChecker{
		count:      count,
		timeout:    timeout,
		privileged: p.Privileged,
	}
}

// Type 返回检测类型
func (c *PingChecker) Type() ProbeType {
	return TypePing
}

// runTimeout go-ping 的 Timeout 是整次运行的上限，这里换算成每个包都有 timeout 的等待时间
func (c *PingChecker) runTimeout() time.Duration {
	return time.Duration(c.count-1)*packetInterval + c.timeout
}

// Check 发送 count 个回显请求，收到任意一个应答即为健康
func (c *PingChecker) Check(ctx context.Context, target string) *Result {
	result := &Result{
		Type:   TypePing,
		Target: target,
	}

	logger.Infof("检测(开始): %s", target)

	// NewPinger 内部会解析主机名，解析失败按不健康处理
	pinger, err := goping.NewPinger(target)
	if err != nil {
		result.Error = fmt.Errorf("创建pinger失败: %w", err)
		logger.Infof("检测(结果): %s 失败 (域名解析错误)", target)
		return result
	}

	pinger.SetPrivileged(c.privileged)
	pinger.Count = c.count
	pinger.Interval = packetInterval
	pinger.Timeout = c.runTimeout()

	stop := context.AfterFunc(ctx, pinger.Stop)
	defer stop()

	if err := pinger.Run(); err != nil {
		result.Error = fmt.Errorf("执行ping失败: %w", err)
		logger.Infof("检测(结果): %s 失败 (%v)", target, err)
		return result
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv > 0 {
		result.Success = true
		result.Latency = stats.AvgRtt
		logger.Infof("检测(结果): %s 正常 (延迟: %v)", target, stats.AvgRtt)
		return result
	}

	result.Error = fmt.Errorf("ICMP应答超时 (发送: %d, 接收: %d, 丢包率: %.0f%%)",
		stats.PacketsSent, stats.PacketsRecv, stats.PacketLoss)
	logger.Infof("检测(结果): %s 主机无响应", target)
	return result
}
