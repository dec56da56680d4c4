package config

import (
	"fmt"
	"net"
	"regexp"
	"strings"
)

var (
	labelRe = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)
	protoRe = regexp.MustCompile(`^[a-zA-Z]+(:/{0,2})?$`)
)

// ValidateDomain 检查域名语法：RFC 1123 标签，总长不超过 253，允许 "*." 通配前缀
func ValidateDomain(domain string) error {
	if domain == "" {
		return fmt.Errorf("域名为空")
	}
	name := strings.TrimPrefix(domain, "*.")
	if len(name) > 253 {
		return fmt.Errorf("域名过长: %s", domain)
	}
	for _, label := range strings.Split(name, ".") {
		if !labelRe.MatchString(label) {
			return fmt.Errorf("域名格式无效: %s", domain)
		}
	}
	return nil
}

// ValidateIP 检查 IPv4 / IPv6 地址
func ValidateIP(ip string) error {
	if net.ParseIP(ip) == nil {
		return fmt.Errorf("IP 地址无效: %q", ip)
	}
	return nil
}

// ValidateIPs 列表不能为空且每一项都必须是合法地址
func ValidateIPs(ips []string) error {
	if len(ips) == 0 {
		return fmt.Errorf("没有配置记录值")
	}
	for _, ip := range ips {
		if err := ValidateIP(ip); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePort 端口范围 1..65535
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("端口超出范围: %d", port)
	}
	return nil
}

// ValidateStatusCode HTTP 状态码范围 100..599
func ValidateStatusCode(code int) error {
	if code < 100 || code > 599 {
		return fmt.Errorf("HTTP 状态码无效: %d", code)
	}
	return nil
}

// ValidateProto 协议只能由字母和 "://" 组成
func ValidateProto(proto string) error {
	if !protoRe.MatchString(proto) {
		return fmt.Errorf("协议格式无效: %q", proto)
	}
	return nil
}

// Validate 检查全局配置，错误会导致程序退出
// 单个任务的错误只会让该任务被跳过，见 Jobs
func (c *Config) Validate() error {
	switch c.API.Provider {
	case "adguard":
		if c.API.Host == "" {
			return fmt.Errorf("配置错误: 缺少 api.host")
		}
		if ValidateIP(c.API.Host) != nil && ValidateDomain(c.API.Host) != nil {
			return fmt.Errorf("配置错误: api.host 无效: %s", c.API.Host)
		}
		if err := ValidatePort(c.API.Port); err != nil {
			return fmt.Errorf("配置错误: api.port: %w", err)
		}
		if err := ValidateProto(c.API.Proto); err != nil {
			return fmt.Errorf("配置错误: api.proto: %w", err)
		}
	case "cloudflare":
		if c.Cloudflare.APIToken == "" {
			return fmt.Errorf("配置错误: 缺少 cloudflare.api_token")
		}
	default:
		return fmt.Errorf("配置错误: 未知的 api.provider: %s", c.API.Provider)
	}
	return nil
}
