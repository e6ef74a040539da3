package crawler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

// userAgent 直连抓取使用的 UA，部分站点会拒绝无 UA 的请求
const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

// noiseSelectors 抽取正文前移除的噪音元素
// 图片保留，后续媒体归一化阶段需要处理 image 块
var noiseSelectors = []string{
	"script", "style", "noscript",
	"nav", "footer", "header", "aside",
	"iframe", "svg", "canvas",
	"form", "button", "input", "select", "textarea",
	".sidebar", ".menu", ".navigation", ".ads", ".advertisement",
	".comments", ".related-posts",
}

// contentContainers 正文容器的优先顺序
var contentContainers = []string{
	"article", "main", ".post", ".content", ".entry-content", "[role='main']", "body",
}

// DirectFetcher 进程内直接抓取页面并转换为 Markdown 的抓取器
//
// 无法执行页面脚本，对强依赖客户端渲染的站点应使用 service 模式。
type DirectFetcher struct {
	httpClient *http.Client
}

// NewDirectFetcher 创建直连抓取器
func NewDirectFetcher() *DirectFetcher {
	return &DirectFetcher{
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Fetch 抓取页面、抽取正文并转换为 Markdown
func (f *DirectFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{URL: url, Msg: "build request", Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", &FetchError{URL: url, Msg: "page unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{URL: url, Msg: fmt.Sprintf("page returned status %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", &FetchError{URL: url, Msg: "parse html", Err: err}
	}

	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}

	var content *goquery.Selection
	for _, sel := range contentContainers {
		if found := doc.Find(sel); found.Length() > 0 {
			content = found.First()
			break
		}
	}
	if content == nil {
		return "", &FetchError{URL: url, Msg: "no content container found"}
	}

	fragment, err := goquery.OuterHtml(content)
	if err != nil {
		return "", &FetchError{URL: url, Msg: "serialize content", Err: err}
	}

	markdown, err := htmltomarkdown.ConvertString(fragment)
	if err != nil {
		return "", &FetchError{URL: url, Msg: "convert to markdown", Err: err}
	}

	if len(strings.TrimSpace(markdown)) < minContentLength {
		return "", &FetchError{URL: url, Msg: "crawled content is too short or empty"}
	}
	return markdown, nil
}
