package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"rewritefailover/internal/job"
)

// parser 支持可选的秒字段和 @every / @hourly 等描述符
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Schedule 计算任务的下一次执行时间
// 由任务自己的循环在一轮检测结束后调用，因此同一任务的检测不会重叠
type Schedule interface {
	Next(after time.Time) time.Time
	String() string
}

// Every 固定间隔：上一轮结束后等待 d
type Every time.Duration

// Next 实现 Schedule
func (e Every) Next(after time.Time) time.Time {
	return after.Add(time.Duration(e))
}

func (e Every) String() string {
	return "every " + time.Duration(e).String()
}

// Cron 基于 cron 表达式的调度
type Cron struct {
	expr  string
	sched cron.Schedule
}

// ParseCron 解析 5 段或 6 段（带秒）的 cron 表达式
func ParseCron(expr string) (*Cron, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("无效的 Cron 表达式 %q: %w", expr, err)
	}
	return &Cron{expr: expr, sched: sched}, nil
}

// Next 实现 Schedule
func (c *Cron) Next(after time.Time) time.Time {
	return c.sched.Next(after)
}

func (c *Cron) String() string {
	return "cron " + c.expr
}

// ForJob 根据任务配置选择调度方式，cron 优先于 interval
func ForJob(d job.Descriptor) (Schedule, error) {
	if d.Cron != "" {
		return ParseCron(d.Cron)
	}
	return Every(d.EffectiveInterval()), nil
}
