package rewrite

import (
	"context"
	"errors"
)

// ErrUnavailable 远端重写存储不可用（网络错误、超时或非 200 响应）
// 调用方据此区分“确认不存在”和“无法确定”
var ErrUnavailable = errors.New("rewrite: 远端存储不可用")

// Entry DNS 重写条目
type Entry struct {
	Domain string `json:"domain"`
	Answer string `json:"answer"`
}

// Store 远端 DNS 重写存储
//
// 所有布尔返回值遵循同一约定：
//   - (true, nil)  已确认
//   - (false, nil) 已成功读取远端列表，但结果为否（不存在 / 已存在无需操作）
//   - (_, err)     无法确定，err 包装 ErrUnavailable
type Store interface {
	// TestConnection 连通性测试，仅在启动时使用
	TestConnection(ctx context.Context) error
	// EntryExists 精确匹配 (domain, answer)
	EntryExists(ctx context.Context, domain, answer string) (bool, error)
	// DomainExists 仅按域名匹配
	DomainExists(ctx context.Context, domain string) (bool, error)
	// GetAnswerOfDomain 返回域名的第一条记录值
	GetAnswerOfDomain(ctx context.Context, domain string) (answer string, found bool, err error)
	// AddEntry 添加条目，条目已存在时返回 false
	AddEntry(ctx context.Context, domain, answer string) (bool, error)
	// DeleteEntry 删除条目，条目不存在时返回 false
	DeleteEntry(ctx context.Context, domain, answer string) (bool, error)
	// ChangeAnswer 先删旧值再加新值
	ChangeAnswer(ctx context.Context, domain, oldAnswer, newAnswer string) (bool, error)
}

// IsUnavailable 判断错误是否为远端不可用
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// FindAnswer 在条目列表中查找域名的第一条记录
func FindAnswer(entries []Entry, domain string) (string, bool) {
	for _, e := range entries {
		if e.Domain == domain {
			return e.Answer, true
		}
	}
	return "", false
}

// Contains 条目列表中是否存在 (domain, answer)，不做通配符匹配
func Contains(entries []Entry, domain, answer string) bool {
	for _, e := range entries {
		if e.Domain == domain && e.Answer == answer {
			return true
		}
	}
	return false
}
