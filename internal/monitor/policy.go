package monitor

import "strings"

// EntryPolicy 启动时远端已存在同名域名条目的处理策略
type EntryPolicy string

const (
	PolicyKeep   EntryPolicy = "KEEP"   // 保留并照常启动任务
	PolicyDrop   EntryPolicy = "DROP"   // 以远端为准，不启动任务
	PolicyDelete EntryPolicy = "DELETE" // 删除远端条目后启动任务
)

// ParseEntryPolicy 解析策略（忽略大小写）
// 无法识别的值按 DELETE 处理，第二个返回值为 false
func ParseEntryPolicy(s string) (EntryPolicy, bool) {
	switch p := EntryPolicy(strings.ToUpper(strings.TrimSpace(s))); p {
	case PolicyKeep, PolicyDrop, PolicyDelete:
		return p, true
	default:
		return PolicyDelete, false
	}
}
