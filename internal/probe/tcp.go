package probe

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"rewritefailover/internal/job"
	"rewritefailover/internal/logger"
)

// TCPChecker TCP 端口检测器
type TCPChecker struct {
	port    int
	timeout time.Duration
}

// NewTCPChecker 创建 TCP 检测器
func NewTCPChecker(p job.TCPParams) *TCPChecker {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &TCPChecker{
		port:    p.Port,
		timeout: timeout,
	}
}

// Type 返回检测类型
func (c *TCPChecker) Type() ProbeType {
	return TypeTCP
}

// Check 在超时内能建立 TCP 连接即为健康
func (c *TCPChecker) Check(ctx context.Context, candidate string) *Result {
	target := net.JoinHostPort(candidate, strconv.Itoa(c.port))
	result := &Result{
		Type:   TypeTCP,
		Target: target,
	}

	logger.Infof("检测(开始): %s", target)

	dialer := &net.Dialer{Timeout: c.timeout}
	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		result.Error = fmt.Errorf("TCP连接失败: %w", err)
		logger.Infof("检测(结果): %s 失败 (连接错误)", target)
		return result
	}
	defer conn.Close()

	result.Latency = time.Since(start)
	result.Success = true
	logger.Infof("检测(结果): %s 正常 (耗时: %v)", target, result.Latency)
	return result
}
