// Package resolver 通过 DNS 查询确认重写已经在 AdGuardHome 上生效
package resolver

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// Resolver 向指定的 DNS 服务器发起 A / AAAA / CNAME 查询
type Resolver struct {
	client *dns.Client
	server string
}

// New 创建解析器，server 未带端口时补 53
func New(server string, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	return &Resolver{
		client: &dns.Client{Net: "udp", Timeout: timeout},
		server: server,
	}
}

// Server 返回查询的服务器地址
func (r *Resolver) Server() string {
	return r.server
}

func (r *Resolver) query(ctx context.Context, domain string, qtype uint16) (*dns.Msg, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), qtype)
	msg.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return nil, fmt.Errorf("查询 %s (%s) 失败: %w", domain, dns.TypeToString[qtype], err)
	}
	if resp.Rcode != dns.RcodeSuccess && resp.Rcode != dns.RcodeNameError {
		return nil, fmt.Errorf("查询 %s (%s) 返回 %s", domain, dns.TypeToString[qtype], dns.RcodeToString[resp.Rcode])
	}
	return resp, nil
}

// Lookup 返回域名的全部 A / AAAA 地址和 CNAME 目标
// CNAME 目标去掉末尾的点
func (r *Resolver) Lookup(ctx context.Context, domain string) ([]string, error) {
	var answers []string
	seen := make(map[string]bool)

	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		resp, err := r.query(ctx, domain, qtype)
		if err != nil {
			return nil, err
		}
		for _, rr := range resp.Answer {
			var value string
			switch v := rr.(type) {
			case *dns.A:
				value = v.A.String()
			case *dns.AAAA:
				value = v.AAAA.String()
			case *dns.CNAME:
				value = strings.TrimSuffix(v.Target, ".")
			default:
				continue
			}
			if !seen[value] {
				seen[value] = true
				answers = append(answers, value)
			}
		}
	}
	return answers, nil
}

// Verify 检查域名的解析结果是否包含期望的记录值
// IP 按地址比较，主机名按 CNAME 目标比较（忽略大小写）
func (r *Resolver) Verify(ctx context.Context, domain, expected string) (bool, error) {
	answers, err := r.Lookup(ctx, domain)
	if err != nil {
		return false, err
	}

	want := net.ParseIP(expected)
	for _, a := range answers {
		if want != nil {
			if ip := net.ParseIP(a); ip != nil && ip.Equal(want) {
				return true, nil
			}
			continue
		}
		if strings.EqualFold(a, strings.TrimSuffix(expected, ".")) {
			return true, nil
		}
	}
	return false, nil
}
