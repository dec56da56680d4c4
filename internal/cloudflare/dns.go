package cloudflare

import (
	"context"
	"fmt"
	"net"

	"github.com/cloudflare/cloudflare-go"

	"rewritefailover/internal/logger"
	"rewritefailover/internal/rewrite"
)

// DNSRecordType DNS记录类型
type DNSRecordType string

const (
	TypeA     DNSRecordType = "A"
	TypeAAAA  DNSRecordType = "AAAA"
	TypeCNAME DNSRecordType = "CNAME"
)

// records 列出域名的 A / AAAA / CNAME 记录
func (c *Client) records(ctx context.Context, domain string) (string, []cloudflare.DNSRecord, error) {
	zoneID, err := c.zoneID(domain)
	if err != nil {
		return "", nil, err
	}

	all, _, err := c.api.ListDNSRecords(ctx, cloudflare.ZoneIdentifier(zoneID), cloudflare.ListDNSRecordsParams{
		Name: domain,
	})
	if err != nil {
		return "", nil, fmt.Errorf("查询DNS记录失败: %v: %w", err, rewrite.ErrUnavailable)
	}

	var out []cloudflare.DNSRecord
	for _, r := range all {
		switch DNSRecordType(r.Type) {
		case TypeA, TypeAAAA, TypeCNAME:
			if r.Name == domain {
				out = append(out, r)
			}
		}
	}
	return zoneID, out, nil
}

// List 以重写条目的形式返回域名的记录
func (c *Client) List(ctx context.Context, domain string) ([]rewrite.Entry, error) {
	_, records, err := c.records(ctx, domain)
	if err != nil {
		return nil, err
	}
	entries := make([]rewrite.Entry, 0, len(records))
	for _, r := range records {
		entries = append(entries, rewrite.Entry{Domain: r.Name, Answer: r.Content})
	}
	return entries, nil
}

// EntryExists 精确匹配 (domain, answer)
func (c *Client) EntryExists(ctx context.Context, domain, answer string) (bool, error) {
	entries, err := c.List(ctx, domain)
	if err != nil {
		return false, err
	}
	return rewrite.Contains(entries, domain, answer), nil
}

// DomainExists 域名是否有任意记录
func (c *Client) DomainExists(ctx context.Context, domain string) (bool, error) {
	entries, err := c.List(ctx, domain)
	if err != nil {
		return false, err
	}
	return len(entries) > 0, nil
}

// GetAnswerOfDomain 返回域名的第一条记录值
func (c *Client) GetAnswerOfDomain(ctx context.Context, domain string) (string, bool, error) {
	entries, err := c.List(ctx, domain)
	if err != nil {
		return "", false, err
	}
	answer, found := rewrite.FindAnswer(entries, domain)
	return answer, found, nil
}

// AddEntry 创建DNS记录，记录已存在时返回 false
func (c *Client) AddEntry(ctx context.Context, domain, answer string) (bool, error) {
	zoneID, records, err := c.records(ctx, domain)
	if err != nil {
		return false, err
	}
	for _, r := range records {
		if r.Content == answer {
			return false, nil
		}
	}

	recordType := determineRecordType(answer)
	params := cloudflare.CreateDNSRecordParams{
		Type:    string(recordType),
		Name:    domain,
		Content: answer,
		Proxied: cloudflare.BoolPtr(c.proxied),
		TTL:     c.ttl,
	}

	if _, err := c.api.CreateDNSRecord(ctx, cloudflare.ZoneIdentifier(zoneID), params); err != nil {
		return false, fmt.Errorf("创建DNS记录失败: %v: %w", err, rewrite.ErrUnavailable)
	}
	logger.Infof("Cloudflare 已创建记录: %s %s %s", domain, recordType, answer)
	return true, nil
}

// DeleteEntry 删除与 answer 匹配的记录，没有匹配时返回 false
func (c *Client) DeleteEntry(ctx context.Context, domain, answer string) (bool, error) {
	zoneID, records, err := c.records(ctx, domain)
	if err != nil {
		return false, err
	}

	for _, r := range records {
		if r.Content != answer {
			continue
		}
		if err := c.api.DeleteDNSRecord(ctx, cloudflare.ZoneIdentifier(zoneID), r.ID); err != nil {
			return false, fmt.Errorf("删除DNS记录失败: %v: %w", err, rewrite.ErrUnavailable)
		}
		logger.Infof("Cloudflare 已删除记录: %s %s %s", domain, r.Type, answer)
		return true, nil
	}
	return false, nil
}

// ChangeAnswer 先删旧值再加新值
func (c *Client) ChangeAnswer(ctx context.Context, domain, oldAnswer, newAnswer string) (bool, error) {
	return rewrite.ChangeAnswer(ctx, c, domain, oldAnswer, newAnswer, c.rollback)
}

// determineRecordType 判断记录类型：IPv4 为 A，IPv6 为 AAAA，其余按主机名处理为 CNAME
func determineRecordType(target string) DNSRecordType {
	ip := net.ParseIP(target)
	switch {
	case ip == nil:
		return TypeCNAME
	case ip.To4() != nil:
		return TypeA
	default:
		return TypeAAAA
	}
}
