package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"rewritefailover/internal/adguard"
	"rewritefailover/internal/cloudflare"
	"rewritefailover/internal/config"
	"rewritefailover/internal/logger"
	"rewritefailover/internal/rewrite"
)

// errDefaultWritten 配置文件不存在，已生成默认配置
var errDefaultWritten = errors.New("已生成默认配置")

// loadConfig 加载配置并按配置初始化日志
// 配置文件不存在时生成默认配置并返回 errDefaultWritten
func loadConfig(ctx context.Context, src string, writeDefault bool) (*config.Config, error) {
	// 先以控制台模式初始化，保证加载过程中的日志可见
	if err := logger.Init(firstNonEmpty(logLevel, config.DefaultLogLevel), ""); err != nil {
		return nil, err
	}

	cfg, err := config.Load(ctx, src)
	if err != nil {
		if writeDefault && errors.Is(err, os.ErrNotExist) {
			fmt.Println("配置文件不存在，正在生成默认配置...")
			if werr := config.WriteDefault(src); werr != nil {
				return nil, fmt.Errorf("生成配置失败: %w", werr)
			}
			fmt.Printf("已生成: %s\n", src)
			fmt.Println("请填入 AdGuardHome 地址和账号后重新运行")
			return nil, errDefaultWritten
		}
		return nil, err
	}

	level := firstNonEmpty(logLevel, cfg.Config.LogLevel)
	file := firstNonEmpty(logFile, cfg.Config.LogFile)
	if _, ok := logger.ParseLevel(level); !ok {
		fmt.Fprintf(os.Stderr, "未知的日志级别 %s，使用 INFO\n", level)
	}
	if err := logger.Init(level, file); err != nil {
		return nil, fmt.Errorf("日志初始化失败: %w", err)
	}
	logger.Infof("配置来源: %s", cfg.Source)
	return cfg, nil
}

// newStore 按 api.provider 创建重写存储，返回存储和用于展示的地址
func newStore(cfg *config.Config) (rewrite.Store, string, error) {
	switch cfg.API.Provider {
	case "cloudflare":
		c, err := cloudflare.NewClient(cloudflare.Options{
			APIToken: cfg.Cloudflare.APIToken,
			Zone:     cfg.Cloudflare.Zone,
			Proxied:  cfg.Cloudflare.Proxied,
			TTL:      cfg.Cloudflare.TTL,
			Rollback: cfg.Config.Rollback,
		})
		if err != nil {
			return nil, "", fmt.Errorf("Cloudflare客户端失败: %w", err)
		}
		return c, "cloudflare:" + firstNonEmpty(cfg.Cloudflare.Zone, "auto"), nil
	default:
		c := adguard.NewClient(adguard.Options{
			Proto:    cfg.API.Proto,
			Host:     cfg.API.Host,
			Port:     cfg.API.Port,
			Username: cfg.API.Username,
			Password: cfg.API.Passwd,
			Timeout:  cfg.API.Timeout.Duration(),
			Rollback: cfg.Config.Rollback,
		})
		return c, c.BaseURLString(), nil
	}
}

// waitForStore 启动连通性测试
// exit_on_fail 时第一次失败即返回错误，否则每隔 retry_after 重试直到成功或 ctx 取消
func waitForStore(ctx context.Context, store rewrite.Store, startup config.StartupConfig) error {
	if !startup.Enabled() {
		logger.Info("跳过启动连通性测试")
		return nil
	}

	for {
		tctx, cancel := context.WithTimeout(ctx, startup.Timeout.Duration())
		err := store.TestConnection(tctx)
		cancel()
		if err == nil {
			return nil
		}
		if startup.ExitOnFail {
			return fmt.Errorf("启动连通性测试失败: %w", err)
		}

		retry := startup.RetryAfter.Duration()
		logger.Warnf("启动连通性测试失败，%s 后重试", retry)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry):
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
