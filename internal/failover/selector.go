package failover

// Choose 按候选顺序选出本轮应写入的记录值
//
//   - 没有候选：不做任何事
//   - 只有一个候选：无论健康与否都选它（没有可以切换的目标）
//   - 多个候选：选第一个健康的；全部不健康时不做任何事，保留当前记录
//
// healthy[i] 对应 candidates[i]，长度不足的部分视为不健康
func Choose(candidates []string, healthy []bool) (string, bool) {
	switch len(candidates) {
	case 0:
		return "", false
	case 1:
		return candidates[0], true
	}

	for i, c := range candidates {
		if i < len(healthy) && healthy[i] {
			return c, true
		}
	}
	return "", false
}
