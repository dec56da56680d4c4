package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rewritefailover/internal/api"
	"rewritefailover/internal/logger"
	"rewritefailover/internal/monitor"
	"rewritefailover/internal/resolver"
)

var runCmd = &cobra.Command{
	Use:   "run [config]",
	Short: "启动故障转移服务",
	Long:  "对账远端已有条目后为每个任务启动检测循环，按健康状态切换重写记录，收到 SIGINT/SIGTERM 后退出",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig(ctx, configSource(args), true)
		if errors.Is(err, errDefaultWritten) {
			return nil
		}
		if err != nil {
			return err
		}

		store, storeName, err := newStore(cfg)
		if err != nil {
			return err
		}
		logger.Infof("重写存储: %s", storeName)

		if err := waitForStore(ctx, store, cfg.API.Startup); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		policy, ok := monitor.ParseEntryPolicy(cfg.Config.EntryExist)
		if !ok {
			logger.Warnf("未知的 entry_exist 取值 %q，按 DELETE 处理", cfg.Config.EntryExist)
		}

		opts := monitor.Options{
			Policy: policy,
			Wait:   cfg.Config.Wait.Duration(),
		}
		if cfg.Config.VerifyDNS != "" {
			r := resolver.New(cfg.Config.VerifyDNS, cfg.API.Timeout.Duration())
			opts.Verifier = r
			logger.Infof("变更后通过 %s 验证解析结果", r.Server())
		}

		jobs := cfg.Jobs(privileged)
		if len(jobs) == 0 {
			logger.Warn("没有有效的任务")
		}
		logger.Infof("共 %d 个任务", len(jobs))

		scheduler := monitor.NewScheduler(store, jobs, opts)
		if err := scheduler.Start(ctx); err != nil {
			return fmt.Errorf("启动任务失败: %w", err)
		}

		var apiServer *api.Server
		if cfg.Status.Enabled {
			apiServer = api.NewServer(cfg.Status.Listen, scheduler, api.Info{
				Provider:  cfg.API.Provider,
				Store:     storeName,
				Policy:    string(policy),
				Source:    cfg.Source,
				StartedAt: time.Now(),
			})
			if err := apiServer.Start(); err != nil {
				logger.Warnf("启动状态接口失败: %v", err)
				apiServer = nil
			}
		}

		logger.Info("服务运行中，按 Ctrl+C 停止...")
		<-ctx.Done()

		logger.Info("收到停止信号，正在关闭...")
		if apiServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := apiServer.Stop(shutdownCtx); err != nil {
				logger.Warnf("关闭状态接口失败: %v", err)
			}
			cancel()
		}
		scheduler.Stop()
		logger.Info("已停止")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
