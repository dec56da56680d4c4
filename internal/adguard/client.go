package adguard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rewritefailover/internal/logger"
	"rewritefailover/internal/rewrite"
)

const (
	pathStatus        = "/control/status"
	pathRewriteList   = "/control/rewrite/list"
	pathRewriteAdd    = "/control/rewrite/add"
	pathRewriteDelete = "/control/rewrite/delete"
)

// Options AdGuardHome 连接参数
type Options struct {
	Proto    string // http / https，允许带 "://"
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration // 每个请求的超时
	Rollback bool          // ChangeAnswer 添加失败时回滚旧值
}

// Client AdGuardHome DNS 重写接口客户端
// 凭证和地址在构造后只读，可被多个任务并发使用
type Client struct {
	baseURL    string
	username   string
	password   string
	rollback   bool
	httpClient *http.Client
}

var _ rewrite.Store = (*Client)(nil)

// NewClient 创建 AdGuardHome 客户端
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:  BaseURL(opts.Proto, opts.Host, opts.Port),
		username: opts.Username,
		password: opts.Password,
		rollback: opts.Rollback,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL 拼接 {proto}://{host}:{port}
func BaseURL(proto, host string, port int) string {
	return SlashedProto(proto) + net.JoinHostPort(host, strconv.Itoa(port))
}

// SlashedProto 补全协议后缀，"http" / "http:" / "http:/" 都会变成 "http://"
func SlashedProto(proto string) string {
	switch {
	case proto == "":
		return ""
	case strings.HasSuffix(proto, "://"):
		return proto
	case strings.HasSuffix(proto, ":/"):
		return proto + "/"
	case strings.HasSuffix(proto, ":"):
		return proto + "//"
	default:
		return proto + "://"
	}
}

// BaseURLString 返回接口地址
func (c *Client) BaseURLString() string {
	return c.baseURL
}

// TestConnection 检查能否访问并通过认证
func (c *Client) TestConnection(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, pathStatus, nil)
	if err != nil {
		logger.Errorf("无法连接到 AdGuardHome 接口: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Errorf("接口测试失败，状态码: %d", resp.StatusCode)
		return fmt.Errorf("%w: 状态码 %d", rewrite.ErrUnavailable, resp.StatusCode)
	}

	logger.Info("接口测试成功")
	return nil
}

// List 读取完整的重写列表
func (c *Client) List(ctx context.Context) ([]rewrite.Entry, error) {
	resp, err := c.do(ctx, http.MethodGet, pathRewriteList, nil)
	if err != nil {
		logger.Errorf("读取重写列表失败: %v", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Errorf("服务器返回状态码: %d", resp.StatusCode)
		return nil, fmt.Errorf("%w: 状态码 %d", rewrite.ErrUnavailable, resp.StatusCode)
	}

	var entries []rewrite.Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		logger.Errorf("解析重写列表失败: %v", err)
		return nil, fmt.Errorf("%w: 解析重写列表失败: %v", rewrite.ErrUnavailable, err)
	}
	return entries, nil
}

// EntryExists 精确匹配 (domain, answer)
func (c *Client) EntryExists(ctx context.Context, domain, answer string) (bool, error) {
	entries, err := c.List(ctx)
	if err != nil {
		return false, err
	}
	return rewrite.Contains(entries, domain, answer), nil
}

// DomainExists 仅按域名匹配
func (c *Client) DomainExists(ctx context.Context, domain string) (bool, error) {
	entries, err := c.List(ctx)
	if err != nil {
		return false, err
	}
	_, found := rewrite.FindAnswer(entries, domain)
	return found, nil
}

// GetAnswerOfDomain 返回域名的第一条记录值
func (c *Client) GetAnswerOfDomain(ctx context.Context, domain string) (string, bool, error) {
	entries, err := c.List(ctx)
	if err != nil {
		return "", false, err
	}
	answer, found := rewrite.FindAnswer(entries, domain)
	return answer, found, nil
}

// AddEntry 添加重写条目，条目已存在时返回 false
func (c *Client) AddEntry(ctx context.Context, domain, answer string) (bool, error) {
	logger.Infof("处理条目(添加) %s %s", domain, answer)

	exists, err := c.EntryExists(ctx, domain, answer)
	if err != nil {
		logger.Info("添加条目失败，无法确认条目状态")
		return false, err
	}
	if exists {
		logger.Info("添加条目失败，条目已存在")
		return false, nil
	}

	if err := c.post(ctx, pathRewriteAdd, rewrite.Entry{Domain: domain, Answer: answer}); err != nil {
		logger.Infof("添加条目失败: %v", err)
		return false, err
	}

	logger.Info("添加条目成功")
	return true, nil
}

// DeleteEntry 删除重写条目，条目不存在时返回 false
func (c *Client) DeleteEntry(ctx context.Context, domain, answer string) (bool, error) {
	logger.Infof("处理条目(删除) %s %s", domain, answer)

	exists, err := c.EntryExists(ctx, domain, answer)
	if err != nil {
		logger.Info("删除条目失败，无法确认条目状态")
		return false, err
	}
	if !exists {
		logger.Info("删除条目失败，条目不存在")
		return false, nil
	}

	if err := c.post(ctx, pathRewriteDelete, rewrite.Entry{Domain: domain, Answer: answer}); err != nil {
		logger.Infof("删除条目失败: %v", err)
		return false, err
	}

	logger.Info("删除条目成功")
	return true, nil
}

// ChangeAnswer 替换域名的记录值
func (c *Client) ChangeAnswer(ctx context.Context, domain, oldAnswer, newAnswer string) (bool, error) {
	return rewrite.ChangeAnswer(ctx, c, domain, oldAnswer, newAnswer, c.rollback)
}

// post 以 JSON 提交条目，非 200 视为失败
func (c *Client) post(ctx context.Context, path string, entry rewrite.Entry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("序列化条目失败: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: 状态码 %d", rewrite.ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// do 发送带 Basic Auth 的请求，传输层错误统一包装为 ErrUnavailable
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: 创建请求失败: %v", rewrite.ErrUnavailable, err)
	}
	req.SetBasicAuth(c.username, c.password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rewrite.ErrUnavailable, err)
	}
	return resp, nil
}
