package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"rewritefailover/internal/resolver"
)

var checkCmd = &cobra.Command{
	Use:   "check [config]",
	Short: "检查远端连通性和当前记录",
	Long:  "执行一次连通性测试，然后列出每个任务域名在远端的当前记录值；配置了 verify_dns 时同时显示实际解析结果",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, err := loadConfig(ctx, configSource(args), false)
		if err != nil {
			return err
		}

		store, storeName, err := newStore(cfg)
		if err != nil {
			return err
		}

		tctx, cancel := context.WithTimeout(ctx, cfg.API.Startup.Timeout.Duration())
		err = store.TestConnection(tctx)
		cancel()
		if err != nil {
			return fmt.Errorf("无法连接 %s: %w", storeName, err)
		}
		fmt.Printf("连接正常: %s\n\n", storeName)

		var dns *resolver.Resolver
		if cfg.Config.VerifyDNS != "" {
			dns = resolver.New(cfg.Config.VerifyDNS, cfg.API.Timeout.Duration())
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		header := "任务\t域名\t候选\t远端记录"
		if dns != nil {
			header += "\t解析结果 (" + dns.Server() + ")"
		}
		fmt.Fprintln(w, header)

		var failed int
		for _, d := range cfg.Jobs(privileged) {
			answer, found, err := store.GetAnswerOfDomain(ctx, d.Domain)
			remote := answer
			switch {
			case err != nil:
				remote = "未知"
				failed++
			case !found:
				remote = "-"
			}

			line := fmt.Sprintf("%s\t%s\t%s\t%s", d.Kind, d.Domain, strings.Join(d.Candidates, ","), remote)
			if dns != nil {
				line += "\t" + lookup(ctx, dns, d.Domain)
			}
			fmt.Fprintln(w, line)
		}
		w.Flush()

		if failed > 0 {
			return errors.New("部分域名无法读取远端记录")
		}
		return nil
	},
}

func lookup(ctx context.Context, r *resolver.Resolver, domain string) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	answers, err := r.Lookup(ctx, domain)
	if err != nil {
		return "查询失败: " + err.Error()
	}
	if len(answers) == 0 {
		return "-"
	}
	return strings.Join(answers, ",")
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
