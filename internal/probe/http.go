package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rewritefailover/internal/job"
	"rewritefailover/internal/logger"
)

// HTTPChecker HTTP 状态码检测器
type HTTPChecker struct {
	client   *http.Client
	proto    string
	port     int
	expected int
}

// NewHTTPChecker 创建 HTTP 检测器
func NewHTTPChecker(p job.HTTPParams) *HTTPChecker {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	expected := p.StatusCode
	if expected == 0 {
		expected = http.StatusOK
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if p.TLSSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &HTTPChecker{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		proto:    p.Proto,
		port:     p.Port,
		expected: expected,
	}
}

// Type 返回检测类型
func (c *HTTPChecker) Type() ProbeType {
	return TypeHTTP
}

// URL 拼接 {proto}{candidate}:{port}
func (c *HTTPChecker) URL(candidate string) string {
	return c.proto + net.JoinHostPort(candidate, strconv.Itoa(c.port))
}

// Check 请求候选地址，状态码与期望值一致才算健康
// 重定向会被跟随，比较的是最终响应的状态码
func (c *HTTPChecker) Check(ctx context.Context, candidate string) *Result {
	target := c.URL(candidate)
	result := &Result{
		Type:   TypeHTTP,
		Target: target,
	}

	logger.Infof("检测(开始): %s", target)

	// 不支持的协议直接判为不健康
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		result.Error = fmt.Errorf("不支持的协议: %s", target)
		logger.Infof("检测(结果): %s 失败 (无效协议)", target)
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		result.Error = fmt.Errorf("创建请求失败: %w", err)
		logger.Infof("检测(结果): %s 失败 (%v)", target, err)
		return result
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		result.Error = fmt.Errorf("HTTP请求失败: %w", err)
		logger.Infof("检测(结果): %s 失败 (连接错误)", target)
		return result
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	result.Latency = time.Since(start)

	if resp.StatusCode != c.expected {
		result.Error = fmt.Errorf("状态码 %d，期望 %d", resp.StatusCode, c.expected)
		logger.Infof("检测(结果): %s 失败 (状态码 %d)", target, resp.StatusCode)
		return result
	}

	result.Success = true
	logger.Infof("检测(结果): %s 正常", target)
	return result
}
