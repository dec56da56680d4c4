package cloudflare

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudflare/cloudflare-go"

	"rewritefailover/internal/rewrite"
)

// dnsAPI 用到的 Cloudflare 接口子集，*cloudflare.API 实现了它
type dnsAPI interface {
	VerifyAPIToken(ctx context.Context) (cloudflare.APITokenVerifyBody, error)
	ZoneIDByName(zoneName string) (string, error)
	ListDNSRecords(ctx context.Context, rc *cloudflare.ResourceContainer, params cloudflare.ListDNSRecordsParams) ([]cloudflare.DNSRecord, *cloudflare.ResultInfo, error)
	CreateDNSRecord(ctx context.Context, rc *cloudflare.ResourceContainer, params cloudflare.CreateDNSRecordParams) (cloudflare.DNSRecord, error)
	DeleteDNSRecord(ctx context.Context, rc *cloudflare.ResourceContainer, recordID string) error
}

// Options Cloudflare 后端参数
type Options struct {
	APIToken string
	Zone     string // 为空时从域名推断根域名
	Proxied  bool
	TTL      int // 1 表示自动
	Rollback bool
}

// Client 以 Cloudflare DNS 记录作为重写存储
// 一个域名的 A / AAAA / CNAME 记录对应 AdGuardHome 中的重写条目
type Client struct {
	api      dnsAPI
	zone     string
	proxied  bool
	ttl      int
	rollback bool

	mu      sync.Mutex
	zoneIDs map[string]string
}

var _ rewrite.Store = (*Client)(nil)

// NewClient 创建Cloudflare客户端（仅支持API Token）
func NewClient(opts Options) (*Client, error) {
	api, err := cloudflare.NewWithAPIToken(opts.APIToken)
	if err != nil {
		return nil, fmt.Errorf("创建Cloudflare API客户端失败: %w", err)
	}
	return newClient(api, opts), nil
}

func newClient(api dnsAPI, opts Options) *Client {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 1
	}
	return &Client{
		api:      api,
		zone:     strings.TrimSuffix(opts.Zone, "."),
		proxied:  opts.Proxied,
		ttl:      ttl,
		rollback: opts.Rollback,
		zoneIDs:  make(map[string]string),
	}
}

// TestConnection 验证API凭证（通过验证Token来验证）
func (c *Client) TestConnection(ctx context.Context) error {
	result, err := c.api.VerifyAPIToken(ctx)
	if err != nil {
		return fmt.Errorf("验证Cloudflare凭证失败: %v: %w", err, rewrite.ErrUnavailable)
	}
	if result.Status != "active" {
		return fmt.Errorf("API Token状态异常: %s: %w", result.Status, rewrite.ErrUnavailable)
	}
	return nil
}

// zoneID 获取域名所在 Zone 的 ID，结果会被缓存
func (c *Client) zoneID(domain string) (string, error) {
	zoneName := c.zone
	if zoneName == "" {
		zoneName = extractRootDomain(domain)
	}

	c.mu.Lock()
	id, ok := c.zoneIDs[zoneName]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	id, err := c.api.ZoneIDByName(zoneName)
	if err != nil {
		return "", fmt.Errorf("获取Zone ID失败 (域名: %s): %v: %w", zoneName, err, rewrite.ErrUnavailable)
	}

	c.mu.Lock()
	c.zoneIDs[zoneName] = id
	c.mu.Unlock()
	return id, nil
}

// extractRootDomain 从完整域名中提取根域名
// 取最后两段，例如 cn1.speedtest-node.com -> speedtest-node.com
// 多级公共后缀（如 .co.uk）需要在配置中显式指定 zone
func extractRootDomain(domain string) string {
	domain = strings.TrimSuffix(domain, ".")
	domain = strings.TrimPrefix(domain, "*.")

	parts := strings.Split(domain, ".")
	if len(parts) <= 2 {
		return domain
	}
	return strings.Join(parts[len(parts)-2:], ".")
}
