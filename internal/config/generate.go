package config

import (
	"fmt"
	"os"
)

// DefaultYAML 首次运行时生成的配置模板
const DefaultYAML = `# AdGuardHome DNS 重写故障转移配置
api:
  # provider: adguard        # adguard / cloudflare
  host: 192.168.1.1
  port: 80
  proto: http
  username: admin
  passwd: changeme
  timeout: 10
  startup:
    test: true
    timeout: 10
    exit_on_fail: false
    retry_after: 10

config:
  wait: 0
  log_level: INFO
  log_file: N/A
  entry_exist: KEEP          # KEEP / DROP / DELETE
  rollback: false
  # verify_dns: 192.168.1.1:53

# cloudflare:
#   api_token: ""
#   zone: example.com
#   proxied: false
#   ttl: 1

# status:
#   enabled: true
#   listen: ":8080"

http_jobs:
  - job:
      domain: app.lan
      answers:
        - 192.168.1.10
        - 192.168.1.11
      interval: 60
      status: 200
      proto: http
      port: 80
      timeout: 10

ping_jobs:
  - job:
      domain: nas.lan
      answers:
        - 192.168.1.20
        - 192.168.1.21
      interval: 60
      count: 2
      timeout: 2
      privileged: false

# tcp_jobs:
#   - job:
#       domain: db.lan
#       answers: [192.168.1.30, 192.168.1.31]
#       port: 5432
#       cron: "@every 30s"

static_entry:
  - job:
      domain: printer.lan
      answer: 192.168.1.40
      interval: 300
`

// WriteDefault 写入默认配置，文件已存在时返回错误
func WriteDefault(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("创建默认配置文件失败: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(DefaultYAML); err != nil {
		return fmt.Errorf("写入默认配置文件失败: %w", err)
	}
	return nil
}
