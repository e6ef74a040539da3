package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// contentSelector 交给抓取服务的正文提取提示
const contentSelector = "article, main, .post, .content, .entry-content, [role='main']"

// excludedSocialDomains 抓取时排除的社交媒体域名
var excludedSocialDomains = []string{
	"facebook.com",
	"twitter.com",
	"x.com",
	"linkedin.com",
	"instagram.com",
	"pinterest.com",
	"tiktok.com",
	"snapchat.com",
	"reddit.com",
}

// ServiceFetcher 调用 crawl4ai 兼容服务的抓取器
type ServiceFetcher struct {
	baseURL    string
	httpClient *http.Client
}

// NewServiceFetcher 创建服务抓取器
func NewServiceFetcher(baseURL string) *ServiceFetcher {
	return &ServiceFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		// 页面渲染可能很慢，整体超时放宽到 120s
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// crawlResult 抓取服务响应第一行的数据格式
type crawlResult struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message"`
	Markdown     struct {
		RawMarkdown string `json:"raw_markdown"`
	} `json:"markdown"`
}

// Fetch 调用抓取服务并返回正文 Markdown
func (f *ServiceFetcher) Fetch(ctx context.Context, url string) (string, error) {
	payload := map[string]interface{}{
		"urls": []string{url},
		"crawler_config": map[string]interface{}{
			"type": "CrawlerRunConfig",
			"params": map[string]interface{}{
				"css_selector":             contentSelector,
				"wait_until":               "domcontentloaded",
				"delay_before_return_html": 2.0,
				"scraping_strategy": map[string]interface{}{
					"type":   "LXMLWebScrapingStrategy",
					"params": map[string]interface{}{},
				},
				"exclude_social_media_domains": excludedSocialDomains,
				"stream":                       true,
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &FetchError{URL: url, Msg: "encode crawl request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/crawl", bytes.NewReader(body))
	if err != nil {
		return "", &FetchError{URL: url, Msg: "build crawl request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", &FetchError{URL: url, Msg: "crawl service unreachable", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return "", &FetchError{URL: url, Msg: "read crawl response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{URL: url, Msg: fmt.Sprintf("crawl service error: %s", truncate(string(respBody), 200))}
	}

	// 响应是多行 JSON：第一行是数据，后续行是状态
	lines := strings.Split(strings.TrimSpace(string(respBody)), "\n")
	var result crawlResult
	if err := json.Unmarshal([]byte(lines[0]), &result); err != nil {
		return "", &FetchError{URL: url, Msg: "parse crawl response", Err: err}
	}

	if !result.Success {
		msg := result.ErrorMessage
		if msg == "" {
			msg = "unknown crawl error"
		}
		return "", &FetchError{URL: url, Msg: "crawl failed: " + msg}
	}

	markdown := result.Markdown.RawMarkdown
	if len(strings.TrimSpace(markdown)) < minContentLength {
		return "", &FetchError{URL: url, Msg: "crawled content is too short or empty"}
	}
	return markdown, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
