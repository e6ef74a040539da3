package objstore

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/MuserQuantity/infographic-article-renderer/internal/config"
)

// MediaStore 基于 MinIO 的媒体存储
// 实现了 storage.MediaStore 接口
type MediaStore struct {
	client    *Client
	publicURL string
}

// NewMediaStore 创建 MinIO 媒体存储
//
// publicURL 为对象对外可访问的地址前缀（通常是反向代理或 CDN），
// 未配置时按 endpoint 拼出直连地址。
func NewMediaStore(client *Client, cfg config.MinIOConfig) *MediaStore {
	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)
	}
	return &MediaStore{client: client, publicURL: publicURL}
}

// BaseURL 返回公开访问地址的前缀，已归档的 URL 以此为前缀
func (s *MediaStore) BaseURL() string {
	return s.publicURL
}

// Upload 上传文件并返回公开访问 URL
// 原始出处写入对象元数据 source-url 以便追溯
//
// 文件名由内容摘要派生，同名对象内容必然相同，已存在时跳过上传直接返回地址。
func (s *MediaStore) Upload(ctx context.Context, sourceURL, filename, contentType string, data []byte) (string, error) {
	objectURL := fmt.Sprintf("%s/%s/%s", s.publicURL, s.client.Bucket(), filename)

	exists, err := s.client.Exists(ctx, filename)
	if err != nil {
		log.Printf("[minio] check object %s: %v", filename, err)
	} else if exists {
		return objectURL, nil
	}

	metadata := map[string]string{}
	if sourceURL != "" {
		if len(sourceURL) > 500 {
			sourceURL = sourceURL[:500]
		}
		metadata["source-url"] = sourceURL
	}

	if err := s.client.Upload(ctx, filename, bytes.NewReader(data), int64(len(data)), contentType, metadata); err != nil {
		return "", err
	}
	return objectURL, nil
}
