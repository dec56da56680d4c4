package config

import "strings"

// 默认值，修改时同步修改测试
const (
	DefaultProvider   = "adguard"
	DefaultAPIProto   = "http"
	DefaultAPIPort    = 80
	DefaultAPITimeout = 10

	DefaultStartupTimeout    = 10
	DefaultStartupRetryAfter = 10

	DefaultLogLevel   = "INFO"
	DefaultLogFile    = "N/A"
	DefaultEntryExist = "KEEP"
	DefaultListen     = ":8080"

	DefaultInterval = 60

	DefaultHTTPStatus  = 200
	DefaultHTTPProto   = "http"
	DefaultHTTPPort    = 80
	DefaultHTTPTimeout = 10

	DefaultPingCount   = 2
	DefaultPingTimeout = 2

	DefaultTCPPort    = 80
	DefaultTCPTimeout = 5
)

// portForProto http 对应 80，https 对应 443，其他协议使用 fallback
func portForProto(proto string, fallback int) int {
	switch strings.TrimSuffix(strings.ToLower(proto), "://") {
	case "http":
		return 80
	case "https":
		return 443
	default:
		return fallback
	}
}

// applyDefaults 未设置或为零的字段使用默认值
func (c *Config) applyDefaults() {
	a := &c.API
	if a.Provider == "" {
		a.Provider = DefaultProvider
	}
	if a.Proto == "" {
		a.Proto = DefaultAPIProto
	}
	if a.Port == 0 {
		a.Port = portForProto(a.Proto, DefaultAPIPort)
	}
	if a.Timeout <= 0 {
		a.Timeout = DefaultAPITimeout
	}
	if a.Startup.Timeout <= 0 {
		a.Startup.Timeout = DefaultStartupTimeout
	}
	if a.Startup.RetryAfter <= 0 {
		a.Startup.RetryAfter = DefaultStartupRetryAfter
	}

	g := &c.Config
	if g.Wait < 0 {
		g.Wait = 0
	}
	if g.LogLevel == "" {
		g.LogLevel = DefaultLogLevel
	}
	if g.LogFile == "" {
		g.LogFile = DefaultLogFile
	}
	if g.EntryExist == "" {
		g.EntryExist = DefaultEntryExist
	}

	if c.Status.Listen == "" {
		c.Status.Listen = DefaultListen
	}

	for i := range c.HTTPJobs {
		j := &c.HTTPJobs[i].Job
		if j.Interval <= 0 {
			j.Interval = DefaultInterval
		}
		if j.Status == 0 {
			j.Status = DefaultHTTPStatus
		}
		if j.Proto == "" {
			j.Proto = DefaultHTTPProto
		}
		if j.Port == 0 {
			j.Port = portForProto(j.Proto, DefaultHTTPPort)
		}
		if j.Timeout <= 0 {
			j.Timeout = DefaultHTTPTimeout
		}
	}

	for i := range c.PingJobs {
		j := &c.PingJobs[i].Job
		if j.Interval <= 0 {
			j.Interval = DefaultInterval
		}
		if j.Count == 0 {
			j.Count = DefaultPingCount
		}
		if j.Timeout <= 0 {
			j.Timeout = DefaultPingTimeout
		}
	}

	for i := range c.TCPJobs {
		j := &c.TCPJobs[i].Job
		if j.Interval <= 0 {
			j.Interval = DefaultInterval
		}
		if j.Port == 0 {
			j.Port = DefaultTCPPort
		}
		if j.Timeout <= 0 {
			j.Timeout = DefaultTCPTimeout
		}
	}

	for i := range c.Static {
		j := &c.Static[i].Job
		if j.Interval <= 0 {
			j.Interval = DefaultInterval
		}
	}
}
