// Package pocketbase PocketBase 后端存储
//
// 以管理员身份访问 PocketBase 的记录与文件 API：
//   - 任务记录存放在 infographic_tasks 集合
//   - 图片文件存放在 infographic_images 集合
//
// 认证 token 在进程内缓存，收到 401/403 时失效并重试一次。
package pocketbase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Client PocketBase 管理端客户端，任务存储与媒体存储共用
type Client struct {
	baseURL    string
	adminEmail string
	adminPass  string
	httpClient *http.Client

	mu    sync.Mutex
	token string
}

// NewClient 创建 PocketBase 客户端
func NewClient(baseURL, adminEmail, adminPassword string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		adminEmail: adminEmail,
		adminPass:  adminPassword,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// BaseURL 返回 PocketBase 服务地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError PocketBase 返回的非 2xx 响应
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pocketbase: status %d: %s", e.Status, e.Body)
}

// getToken 获取缓存的管理员 token，不存在时重新认证
//
// PocketBase v0.23+ 管理员集合改名为 _superusers，旧版本走 /api/admins，
// 按新旧顺序逐个尝试。
func (c *Client) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	endpoints := []string{
		c.baseURL + "/api/collections/_superusers/auth-with-password",
		c.baseURL + "/api/admins/auth-with-password",
	}

	payload, _ := json.Marshal(map[string]string{
		"identity": c.adminEmail,
		"password": c.adminPass,
	})

	var lastErr error
	for _, endpoint := range endpoints {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			lastErr = &APIError{Status: resp.StatusCode, Body: truncate(string(body), 200)}
			continue
		}

		var auth struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(body, &auth); err != nil || auth.Token == "" {
			lastErr = fmt.Errorf("pocketbase: invalid auth response from %s", endpoint)
			continue
		}
		c.token = auth.Token
		return c.token, nil
	}
	return "", fmt.Errorf("pocketbase auth failed: %w", lastErr)
}

// invalidateToken 使缓存的 token 失效
func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// doJSON 发送带认证的 JSON 请求并解码响应
//
// 收到 401/403 时重新认证并重试一次；out 为 nil 时丢弃响应体。
func (c *Client) doJSON(ctx context.Context, method, url string, payload interface{}, out interface{}) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	resp, respBody, err := c.doAuthed(ctx, func(token string) (*http.Request, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	})
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Body: truncate(string(respBody), 200)}
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// doAuthed 执行带认证的请求，401/403 时刷新 token 重试一次
//
// 请求体可能需要重复发送，因此由 build 回调按 token 构造新请求。
func (c *Client) doAuthed(ctx context.Context, build func(token string) (*http.Request, error)) (*http.Response, []byte, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return nil, nil, err
	}

	resp, body, err := c.send(build, token)
	if err != nil {
		return nil, nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		log.Printf("[PocketBase] token rejected (status %d), re-authenticating", resp.StatusCode)
		c.invalidateToken()
		token, err = c.getToken(ctx)
		if err != nil {
			return nil, nil, err
		}
		resp, body, err = c.send(build, token)
		if err != nil {
			return nil, nil, err
		}
	}
	return resp, body, nil
}

func (c *Client) send(build func(token string) (*http.Request, error), token string) (*http.Response, []byte, error) {
	req, err := build(token)
	if err != nil {
		return nil, nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, nil, err
	}
	return resp, body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// parseTimestamp 解析 PocketBase 的时间字段
// 格式形如 "2024-01-02 15:04:05.000Z"，兼容 RFC3339
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02 15:04:05.000Z", "2006-01-02 15:04:05Z", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
