// Package media 媒体归一化
//
// 遍历结构化文章中的远程图片引用（image 块的 src、linkcard 块的 image），
// 把图片下载并归档到自有存储，原地改写为稳定 URL。
// 单个图片失败只记录日志并保留原始 URL，绝不让整篇文章失败。
package media

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MuserQuantity/infographic-article-renderer/internal/model"
	"github.com/MuserQuantity/infographic-article-renderer/internal/storage"
)

// minImageSize 小于该字节数的响应视为无效图片（多半是错误页）
const minImageSize = 100

// downloadUA 下载图片使用的 UA
const downloadUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

// Normalizer 媒体归一化器
type Normalizer struct {
	store      storage.MediaStore
	httpClient *http.Client
}

// NewNormalizer 创建媒体归一化器
func NewNormalizer(store storage.MediaStore) *Normalizer {
	return &Normalizer{
		store:      store,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Stats 一次归一化的统计
type Stats struct {
	Materialized int // 成功归档并改写的图片数
	Failed       int // 下载或上传失败、保留原始 URL 的图片数
}

// Process 处理文章中的所有图片引用，原地改写
//
// 永远不返回错误：任何失败都按单项计入 Stats.Failed。
func (n *Normalizer) Process(ctx context.Context, article *model.ArticleData) Stats {
	var stats Stats
	if article == nil {
		return stats
	}

	for si := range article.Sections {
		content := article.Sections[si].Content
		for bi := range content {
			block := &content[bi]
			switch block.Type {
			case model.BlockImage:
				n.rewrite(ctx, &block.Src, &stats)
			case model.BlockLinkCard:
				n.rewrite(ctx, &block.Image, &stats)
			}
		}
	}

	log.Printf("[Media] image processing complete: %d uploaded, %d failed", stats.Materialized, stats.Failed)
	return stats
}

// rewrite 归档单个图片引用并改写字段
func (n *Normalizer) rewrite(ctx context.Context, field *string, stats *Stats) {
	src := *field
	if src == "" {
		return
	}
	// 已经在自有存储上，或是内联 data URL，保持不变
	if base := n.store.BaseURL(); base != "" && strings.HasPrefix(src, base) {
		return
	}
	if strings.HasPrefix(src, "data:") {
		return
	}

	newURL, err := n.materialize(ctx, src)
	if err != nil {
		log.Printf("[Media] keep original url %s: %v", truncate(src, 100), err)
		stats.Failed++
		return
	}
	*field = newURL
	stats.Materialized++
}

// materialize 下载远程图片并上传到自有存储，返回新 URL
func (n *Normalizer) materialize(ctx context.Context, src string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set("User-Agent", downloadUA)
	req.Header.Set("Accept", "image/*,*/*")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return "", fmt.Errorf("read image body: %w", err)
	}
	if len(data) < minImageSize {
		return "", fmt.Errorf("image too small (%d bytes), likely invalid", len(data))
	}

	contentType := resp.Header.Get("Content-Type")
	filename := fileNameFor(src, contentType)

	newURL, err := n.store.Upload(ctx, src, filename, contentType, data)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	return newURL, nil
}

// fileNameFor 生成内容派生的文件名：URL 的 md5 前 12 位加扩展名
func fileNameFor(src, contentType string) string {
	sum := md5.Sum([]byte(src))
	return hex.EncodeToString(sum[:])[:12] + fileExtension(src, contentType)
}

// fileExtension 从 URL 路径或 Content-Type 推断扩展名
func fileExtension(src, contentType string) string {
	if u, err := url.Parse(src); err == nil {
		path := strings.ToLower(u.Path)
		for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".bmp"} {
			if strings.HasSuffix(path, ext) {
				return ext
			}
		}
	}

	contentType = strings.ToLower(contentType)
	switch {
	case strings.Contains(contentType, "jpeg"), strings.Contains(contentType, "jpg"):
		return ".jpg"
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "gif"):
		return ".gif"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	case strings.Contains(contentType, "svg"):
		return ".svg"
	}
	return ".jpg"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
