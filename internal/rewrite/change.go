package rewrite

import (
	"context"

	"rewritefailover/internal/logger"
)

// Mutator ChangeAnswer 依赖的基础操作
type Mutator interface {
	EntryExists(ctx context.Context, domain, answer string) (bool, error)
	AddEntry(ctx context.Context, domain, answer string) (bool, error)
	DeleteEntry(ctx context.Context, domain, answer string) (bool, error)
}

// ChangeAnswer 将 domain 的记录从 oldAnswer 替换为 newAnswer
//
// 顺序为：确认旧值存在 -> 删除旧值 -> 添加新值。旧值不存在或无法确认时
// 直接返回该结果。删除成功而添加失败时，远端会暂时没有该域名的记录；
// rollback 为 true 时会尝试重新添加旧值，但返回值仍是添加新值的结果。
func ChangeAnswer(ctx context.Context, m Mutator, domain, oldAnswer, newAnswer string, rollback bool) (bool, error) {
	logger.Infof("处理条目(替换) %s: %s -> %s", domain, oldAnswer, newAnswer)

	exists, err := m.EntryExists(ctx, domain, oldAnswer)
	if err != nil || !exists {
		return exists, err
	}

	deleted, err := m.DeleteEntry(ctx, domain, oldAnswer)
	if err != nil || !deleted {
		return deleted, err
	}

	added, err := m.AddEntry(ctx, domain, newAnswer)
	if err == nil && added {
		return true, nil
	}

	if rollback {
		logger.Warnf("添加新记录失败，回滚旧记录: %s -> %s", domain, oldAnswer)
		if ok, rbErr := m.AddEntry(ctx, domain, oldAnswer); rbErr != nil || !ok {
			logger.Errorf("回滚失败，%s 当前可能没有任何记录: %v", domain, rbErr)
		}
	} else {
		logger.Errorf("替换未完成，%s 当前可能没有任何记录", domain)
	}

	return added, err
}
