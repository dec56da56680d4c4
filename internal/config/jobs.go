package config

import (
	"fmt"

	"rewritefailover/internal/adguard"
	"rewritefailover/internal/job"
	"rewritefailover/internal/logger"
)

// HTTPJob HTTP 状态码检测任务
type HTTPJob struct {
	Domain        string     `yaml:"domain"`
	Answers       StringList `yaml:"answers"`
	Interval      Seconds    `yaml:"interval"`
	Cron          string     `yaml:"cron"`
	Status        int        `yaml:"status"`
	Proto         string     `yaml:"proto"`
	Port          int        `yaml:"port"`
	Timeout       Seconds    `yaml:"timeout"`
	TLSSkipVerify bool       `yaml:"tls_skip_verify"`
}

// PingJob ICMP 检测任务
type PingJob struct {
	Domain     string     `yaml:"domain"`
	Answers    StringList `yaml:"answers"`
	Interval   Seconds    `yaml:"interval"`
	Cron       string     `yaml:"cron"`
	Count      int        `yaml:"count"`
	Timeout    Seconds    `yaml:"timeout"`
	Privileged bool       `yaml:"privileged"`
}

// TCPJob TCP 端口检测任务
type TCPJob struct {
	Domain   string     `yaml:"domain"`
	Answers  StringList `yaml:"answers"`
	Interval Seconds    `yaml:"interval"`
	Cron     string     `yaml:"cron"`
	Port     int        `yaml:"port"`
	Timeout  Seconds    `yaml:"timeout"`
}

// StaticJob 静态条目，只保证条目存在
type StaticJob struct {
	Domain   string  `yaml:"domain"`
	Answer   string  `yaml:"answer"`
	Interval Seconds `yaml:"interval"`
	Cron     string  `yaml:"cron"`
}

// 配置文件中每个任务都包在 `job:` 下

type HTTPJobEntry struct {
	Job HTTPJob `yaml:"job"`
}

type PingJobEntry struct {
	Job PingJob `yaml:"job"`
}

type TCPJobEntry struct {
	Job TCPJob `yaml:"job"`
}

type StaticJobEntry struct {
	Job StaticJob `yaml:"job"`
}

// Jobs 将配置转换为任务描述，无效的任务记录日志后跳过
// privileged 为 true 时所有 ping 任务强制使用特权模式
func (c *Config) Jobs(privileged bool) []job.Descriptor {
	var jobs []job.Descriptor

	add := func(d job.Descriptor, err error) {
		if err == nil {
			err = d.Validate()
		}
		if err != nil {
			logger.Errorf("任务 %s 未添加，参数无效: %v", d.Domain, err)
			return
		}
		jobs = append(jobs, d)
	}

	for _, e := range c.HTTPJobs {
		add(e.Job.descriptor())
	}
	for _, e := range c.PingJobs {
		d, err := e.Job.descriptor()
		d.Ping.Privileged = d.Ping.Privileged || privileged
		add(d, err)
	}
	for _, e := range c.TCPJobs {
		add(e.Job.descriptor())
	}
	for _, e := range c.Static {
		add(e.Job.descriptor())
	}
	return jobs
}

func (j HTTPJob) descriptor() (job.Descriptor, error) {
	d := job.Descriptor{
		Kind:       job.KindHTTP,
		Domain:     j.Domain,
		Candidates: j.Answers,
		Interval:   j.Interval.Duration(),
		Cron:       j.Cron,
		HTTP: job.HTTPParams{
			Proto:         adguard.SlashedProto(j.Proto),
			Port:          j.Port,
			StatusCode:    j.Status,
			Timeout:       j.Timeout.Duration(),
			TLSSkipVerify: j.TLSSkipVerify,
		},
	}

	if err := validateCommon(j.Domain, j.Answers); err != nil {
		return d, err
	}
	if err := ValidatePort(j.Port); err != nil {
		return d, err
	}
	if err := ValidateStatusCode(j.Status); err != nil {
		return d, err
	}
	if err := ValidateProto(j.Proto); err != nil {
		return d, err
	}
	return d, nil
}

func (j PingJob) descriptor() (job.Descriptor, error) {
	d := job.Descriptor{
		Kind:       job.KindPing,
		Domain:     j.Domain,
		Candidates: j.Answers,
		Interval:   j.Interval.Duration(),
		Cron:       j.Cron,
		Ping: job.PingParams{
			Count:      j.Count,
			Timeout:    j.Timeout.Duration(),
			Privileged: j.Privileged,
		},
	}

	if err := validateCommon(j.Domain, j.Answers); err != nil {
		return d, err
	}
	if j.Count < 1 {
		return d, fmt.Errorf("count 必须为正数: %d", j.Count)
	}
	return d, nil
}

func (j TCPJob) descriptor() (job.Descriptor, error) {
	d := job.Descriptor{
		Kind:       job.KindTCP,
		Domain:     j.Domain,
		Candidates: j.Answers,
		Interval:   j.Interval.Duration(),
		Cron:       j.Cron,
		TCP: job.TCPParams{
			Port:    j.Port,
			Timeout: j.Timeout.Duration(),
		},
	}

	if err := validateCommon(j.Domain, j.Answers); err != nil {
		return d, err
	}
	if err := ValidatePort(j.Port); err != nil {
		return d, err
	}
	return d, nil
}

func (j StaticJob) descriptor() (job.Descriptor, error) {
	d := job.Descriptor{
		Kind:       job.KindStatic,
		Domain:     j.Domain,
		Candidates: []string{j.Answer},
		Interval:   j.Interval.Duration(),
		Cron:       j.Cron,
	}
	return d, validateCommon(j.Domain, []string{j.Answer})
}

func validateCommon(domain string, answers []string) error {
	if err := ValidateDomain(domain); err != nil {
		return err
	}
	return ValidateIPs(answers)
}
