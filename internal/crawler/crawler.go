// Package crawler 内容抓取
//
// 给定来源 URL，返回正文的 Markdown 文本。提供两种后端：
//   - ServiceFetcher: 调用 crawl4ai 兼容的抓取服务（默认）
//   - DirectFetcher:  进程内直接抓取并转换为 Markdown
//
// 正文长度低于 minContentLength 视为抓取失败，即使后端报告成功。
package crawler

import (
	"context"
	"fmt"

	"github.com/MuserQuantity/infographic-article-renderer/internal/config"
)

// minContentLength 判定抓取成功所需的最小正文长度
const minContentLength = 100

// Fetcher 内容抓取接口
type Fetcher interface {
	// Fetch 抓取来源 URL 的正文并转换为 Markdown
	Fetch(ctx context.Context, url string) (string, error)
}

// FetchError 抓取失败
type FetchError struct {
	URL string
	Msg string
	Err error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Msg, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Msg)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// New 按配置创建抓取器
func New(cfg config.CrawlerConfig) (Fetcher, error) {
	switch cfg.Mode {
	case "", "service":
		return NewServiceFetcher(cfg.ServiceURL), nil
	case "direct":
		return NewDirectFetcher(), nil
	default:
		return nil, fmt.Errorf("unknown crawler mode: %s", cfg.Mode)
	}
}
