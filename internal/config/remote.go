package config

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"rewritefailover/internal/logger"
)

// maxConfigSize 远程配置的大小上限
const maxConfigSize = 4 << 20

// readSource 按来源类型读取配置内容，返回内容和实际使用的来源
func readSource(ctx context.Context, src string) ([]byte, string, error) {
	switch {
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		data, err := FetchRemoteConfig(ctx, src)
		return data, src, err
	case strings.HasPrefix(src, "s3://"):
		data, err := FetchS3Config(ctx, src)
		return data, src, err
	default:
		return readLocal(src)
	}
}

// FetchRemoteConfig 从远程URL拉取配置
func FetchRemoteConfig(ctx context.Context, rawURL string) ([]byte, error) {
	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求远程配置失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("远程配置HTTP状态错误: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxConfigSize))
	if err != nil {
		return nil, fmt.Errorf("读取远程配置失败: %w", err)
	}
	return body, nil
}

// FetchS3Config 从 s3://bucket/key 读取配置，凭证来自 AWS 默认凭证链
func FetchS3Config(ctx context.Context, rawURL string) ([]byte, error) {
	bucket, key, err := parseS3URL(rawURL)
	if err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("加载AWS配置失败: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("读取S3配置 %s 失败: %w", rawURL, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(io.LimitReader(out.Body, maxConfigSize))
	if err != nil {
		return nil, fmt.Errorf("读取S3配置 %s 失败: %w", rawURL, err)
	}
	return body, nil
}

func parseS3URL(rawURL string) (string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("无效的S3地址 %s: %w", rawURL, err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("无效的S3地址 %s，格式应为 s3://bucket/key", rawURL)
	}
	return u.Host, key, nil
}

// readLocal 读取本地文件，失败时在同一目录下寻找其他可读的 *.yml
func readLocal(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return data, path, nil
	}
	logger.Infof("无法读取配置文件 %s: %v", path, err)

	fallback, ok := findAnyYML(filepath.Dir(path), path)
	if !ok {
		return nil, "", fmt.Errorf("无法读取配置文件 %s: %w", path, err)
	}

	data, ferr := os.ReadFile(fallback)
	if ferr != nil {
		return nil, "", fmt.Errorf("无法读取配置文件 %s: %w", fallback, ferr)
	}
	logger.Infof("使用配置文件 %s", fallback)
	return data, fallback, nil
}

// findAnyYML 返回目录中第一个权限不低于 0444 的 *.yml 文件
func findAnyYML(dir, exclude string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return "", false
	}
	for _, m := range matches {
		if filepath.Clean(m) == filepath.Clean(exclude) {
			continue
		}
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if info.Mode().Perm()&0o444 == 0o444 {
			return m, true
		}
	}
	return "", false
}
