package job

import (
	"fmt"
	"strings"
	"time"
)

// Kind 任务类型
type Kind string

const (
	KindHTTP   Kind = "http"
	KindPing   Kind = "ping"
	KindTCP    Kind = "tcp"
	KindStatic Kind = "static"
)

// DefaultInterval interval 未设置或非正数时使用的检测间隔
const DefaultInterval = 60 * time.Second

// HTTPParams HTTP 检测参数
type HTTPParams struct {
	Proto         string        // 带斜杠的协议前缀，例如 "http://"
	Port          int           // 请求端口
	StatusCode    int           // 期望的响应状态码
	Timeout       time.Duration // 请求超时
	TLSSkipVerify bool          // 跳过证书校验（自签名证书的内部服务）
}

// PingParams ICMP 检测参数
type PingParams struct {
	Count      int           // 每次检测发送的包数
	Timeout    time.Duration // 等待应答的超时
	Privileged bool          // 使用原始套接字（需要 root）
}

// TCPParams TCP 端口检测参数
type TCPParams struct {
	Port    int
	Timeout time.Duration
}

// Descriptor 一个检测任务的配置，在配置加载时构造，之后不再修改
//
// Candidates[0] 为主记录，其余按顺序作为故障转移候选。
// 静态条目任务只有一个候选，且不做主动探测。
type Descriptor struct {
	Kind       Kind
	Domain     string
	Candidates []string
	Interval   time.Duration
	Cron       string // 非空时取代 Interval 计算下一次执行时间

	HTTP HTTPParams
	Ping PingParams
	TCP  TCPParams
}

// Primary 返回主记录
func (d Descriptor) Primary() string {
	if len(d.Candidates) == 0 {
		return ""
	}
	return d.Candidates[0]
}

// EffectiveInterval 返回生效的检测间隔，非正数回退为 DefaultInterval
func (d Descriptor) EffectiveInterval() time.Duration {
	if d.Interval <= 0 {
		return DefaultInterval
	}
	return d.Interval
}

// Name 用于日志的简短描述
func (d Descriptor) Name() string {
	return fmt.Sprintf("%s:%s", d.Kind, d.Domain)
}

// String 任务摘要
func (d Descriptor) String() string {
	trigger := d.EffectiveInterval().String()
	if d.Cron != "" {
		trigger = "cron(" + d.Cron + ")"
	}
	return fmt.Sprintf("[%s] %s -> %s (%s)", d.Kind, d.Domain, strings.Join(d.Candidates, ", "), trigger)
}

// Validate 检查描述符的结构完整性
// 语法层面的校验（域名、IP、端口）在配置解析阶段完成
func (d Descriptor) Validate() error {
	if d.Domain == "" {
		return fmt.Errorf("任务域名为空")
	}
	if len(d.Candidates) == 0 {
		return fmt.Errorf("任务 %s 没有候选记录", d.Domain)
	}
	switch d.Kind {
	case KindHTTP, KindPing, KindTCP:
	case KindStatic:
		if len(d.Candidates) != 1 {
			return fmt.Errorf("静态条目 %s 只能有一个记录值", d.Domain)
		}
	default:
		return fmt.Errorf("未知的任务类型: %s", d.Kind)
	}
	return nil
}
