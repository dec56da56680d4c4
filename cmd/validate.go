package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"rewritefailover/internal/monitor"
	"rewritefailover/internal/schedule"
)

var validateCmd = &cobra.Command{
	Use:   "validate [config]",
	Short: "校验配置文件",
	Long:  "解析配置并打印生效的任务列表，没有有效任务时以非零状态退出",
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

		policy, ok := monitor.ParseEntryPolicy(cfg.Config.EntryExist)
		if !ok {
			fmt.Printf("警告: 未知的 entry_exist 取值 %q，按 DELETE 处理\n", cfg.Config.EntryExist)
		}
		fmt.Printf("配置来源: %s\n", cfg.Source)
		fmt.Printf("存储: %s  策略: %s  等待: %s\n\n", cfg.API.Provider, policy, cfg.Config.Wait.Duration())

		jobs := cfg.Jobs(privileged)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "类型\t域名\t候选\t调度")
		for _, d := range jobs {
			trigger := "无效"
			if sched, err := schedule.ForJob(d); err == nil {
				trigger = sched.String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Kind, d.Domain, strings.Join(d.Candidates, ","), trigger)
		}
		w.Flush()

		if len(jobs) == 0 {
			return errors.New("没有有效的任务")
		}
		fmt.Printf("\n共 %d 个有效任务\n", len(jobs))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
