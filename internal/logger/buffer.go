package logger

import (
	"container/ring"
	"sync"
	"time"
)

// LogEntry 日志条目
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// LogBuffer 内存日志环形缓冲区
type LogBuffer struct {
	buffer *ring.Ring
	mu     sync.RWMutex
	size   int
}

var globalBuffer *LogBuffer

// NewBuffer 创建指定容量的缓冲区
func NewBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = bufferSize
	}
	return &LogBuffer{
		buffer: ring.New(size),
		size:   size,
	}
}

// InitBuffer 初始化全局缓冲区
func InitBuffer(size int) {
	globalBuffer = NewBuffer(size)
}

// GetBuffer 获取全局缓冲区
func GetBuffer() *LogBuffer {
	return globalBuffer
}

// AddLog 添加日志，写满后覆盖最旧的条目
func (lb *LogBuffer) AddLog(level, message string) {
	if lb == nil {
		return
	}

	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.buffer.Value = LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
	}
	lb.buffer = lb.buffer.Next()
}

// GetLogs 获取最近的 n 条日志，按时间从旧到新排列
func (lb *LogBuffer) GetLogs(n int) []LogEntry {
	if lb == nil || n <= 0 {
		return []LogEntry{}
	}

	lb.mu.RLock()
	defer lb.mu.RUnlock()

	// 当前位置是下一个写入点，从这里开始遍历即为从旧到新
	all := make([]LogEntry, 0, lb.size)
	lb.buffer.Do(func(v interface{}) {
		if entry, ok := v.(LogEntry); ok {
			all = append(all, entry)
		}
	})

	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all
}

// Clear 清空缓冲区
func (lb *LogBuffer) Clear() {
	if lb == nil {
		return
	}

	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.buffer = ring.New(lb.size)
}
