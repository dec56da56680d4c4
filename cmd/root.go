package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	logLevel   string
	logFile    string
	privileged bool

	rootCmd = &cobra.Command{
		Use:   "rewritefailover",
		Short: "AdGuardHome DNS 重写故障转移",
		Long: `rewritefailover 定期检测一组候选地址的可用性，
并把 AdGuardHome（或 Cloudflare）中对应域名的重写记录切换到第一个可用的地址。`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// 全局flags - 支持本地文件路径、HTTP(S) URL 或 s3://bucket/key
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yml", "配置文件路径或URL (支持 http(s):// 和 s3://)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别，覆盖配置文件")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "日志文件，覆盖配置文件")
	rootCmd.PersistentFlags().BoolVarP(&privileged, "privileged", "p", false, "所有 ping 任务使用特权模式（需要 root）")
}

// configSource 位置参数优先于 --config
func configSource(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return cfgFile
}
