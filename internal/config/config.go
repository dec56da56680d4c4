package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 主配置结构，对应 YAML 配置文件
type Config struct {
	API        APIConfig        `yaml:"api"`
	Config     GeneralConfig    `yaml:"config"`
	HTTPJobs   []HTTPJobEntry   `yaml:"http_jobs"`
	PingJobs   []PingJobEntry   `yaml:"ping_jobs"`
	TCPJobs    []TCPJobEntry    `yaml:"tcp_jobs"`
	Static     []StaticJobEntry `yaml:"static_entry"`
	Cloudflare CloudflareConfig `yaml:"cloudflare"`
	Status     StatusConfig     `yaml:"status"`

	// Source 实际读取的配置来源（本地路径或 URL）
	Source string `yaml:"-"`
}

// APIConfig 重写存储连接配置
type APIConfig struct {
	Provider string        `yaml:"provider"` // adguard / cloudflare
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Proto    string        `yaml:"proto"`
	Username string        `yaml:"username"`
	Passwd   string        `yaml:"passwd"`
	Timeout  Seconds       `yaml:"timeout"`
	Startup  StartupConfig `yaml:"startup"`
}

// StartupConfig 启动时的连通性测试
// 兼容旧格式 `startup: true`
type StartupConfig struct {
	Test       *bool   `yaml:"test"`
	Timeout    Seconds `yaml:"timeout"`
	ExitOnFail bool    `yaml:"exit_on_fail"` // 失败时直接退出，否则每隔 retry_after 重试
	RetryAfter Seconds `yaml:"retry_after"`
}

// UnmarshalYAML 支持布尔值和完整的映射两种写法
func (s *StartupConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var enabled bool
		if err := value.Decode(&enabled); err != nil {
			return fmt.Errorf("api.startup: %w", err)
		}
		s.Test = &enabled
		return nil
	}

	type plain StartupConfig
	return value.Decode((*plain)(s))
}

// Enabled 是否执行启动测试，未设置时默认执行
func (s StartupConfig) Enabled() bool {
	return s.Test == nil || *s.Test
}

// GeneralConfig 全局配置
type GeneralConfig struct {
	Wait       Seconds `yaml:"wait"`
	LogLevel   string  `yaml:"log_level"`
	LogFile    string  `yaml:"log_file"`
	EntryExist string  `yaml:"entry_exist"`
	Rollback   bool    `yaml:"rollback"`
	VerifyDNS  string  `yaml:"verify_dns"`
}

// CloudflareConfig provider 为 cloudflare 时使用
type CloudflareConfig struct {
	APIToken string `yaml:"api_token"`
	Zone     string `yaml:"zone"`
	Proxied  bool   `yaml:"proxied"`
	TTL      int    `yaml:"ttl"`
}

// StatusConfig 状态接口
type StatusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// Seconds 以秒为单位的时长，允许小数
type Seconds float64

// Duration 转换为 time.Duration
func (s Seconds) Duration() time.Duration {
	return time.Duration(float64(s) * float64(time.Second))
}

// StringList 既可以写成单个字符串也可以写成列表
type StringList []string

// UnmarshalYAML 实现 yaml.Unmarshaler
func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*l = StringList{value.Value}
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return err
	}
	*l = list
	return nil
}

// Load 读取配置：.env -> 配置文件 -> 环境变量覆盖 -> 默认值 -> 校验
func Load(ctx context.Context, src string) (*Config, error) {
	_ = godotenv.Load()

	data, used, err := readSource(ctx, src)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", used, err)
	}
	cfg.Source = used

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse 解析 YAML 内容，不应用默认值
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if isEmpty(cfg) {
		return nil, fmt.Errorf("配置文件为空")
	}
	return cfg, nil
}

func isEmpty(cfg *Config) bool {
	return cfg.API == (APIConfig{}) &&
		cfg.Config == (GeneralConfig{}) &&
		len(cfg.HTTPJobs) == 0 && len(cfg.PingJobs) == 0 &&
		len(cfg.TCPJobs) == 0 && len(cfg.Static) == 0
}

// applyEnv 环境变量优先于配置文件
func (c *Config) applyEnv() {
	c.API.Host = getEnvString("ADGUARD_HOST", c.API.Host)
	c.API.Username = getEnvString("ADGUARD_USERNAME", c.API.Username)
	c.API.Passwd = getEnvString("ADGUARD_PASSWD", c.API.Passwd)
	c.API.Port = getEnvInt("ADGUARD_PORT", c.API.Port)
	c.Cloudflare.APIToken = getEnvString("CLOUDFLARE_API_TOKEN", c.Cloudflare.APIToken)
	c.Config.EntryExist = getEnvString("ENTRY_EXIST", c.Config.EntryExist)
	c.Config.LogLevel = getEnvString("LOG_LEVEL", c.Config.LogLevel)
	c.Config.LogFile = getEnvString("LOG_FILE", c.Config.LogFile)
	c.Config.Rollback = getEnvBool("ROLLBACK", c.Config.Rollback)
}

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}
