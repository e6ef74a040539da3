package pocketbase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
)

// imageCollection 图片文件所在的集合
const imageCollection = "infographic_images"

// MediaStore 基于 PocketBase 文件集合的媒体存储
// 实现了 storage.MediaStore 接口
type MediaStore struct {
	client *Client
	apiURL string
}

// NewMediaStore 创建 PocketBase 媒体存储
func NewMediaStore(client *Client) *MediaStore {
	return &MediaStore{
		client: client,
		apiURL: client.BaseURL() + "/api/collections/" + imageCollection + "/records",
	}
}

// BaseURL 返回 PocketBase 服务地址，已归档的 URL 以此为前缀
func (s *MediaStore) BaseURL() string {
	return s.client.BaseURL()
}

// Upload 以 multipart 表单上传文件，返回 PocketBase 文件访问 URL
//
// 返回的 URL 形如 {base}/api/files/{collection}/{recordId}/{filename}，
// 其中 filename 以 PocketBase 实际存储的名字为准（可能追加随机后缀）。
// 原始出处写入 original_url 字段以便追溯。
func (s *MediaStore) Upload(ctx context.Context, sourceURL, filename, contentType string, data []byte) (string, error) {
	if contentType == "" {
		contentType = "image/jpeg"
	}

	// multipart 边界由 writer 生成，重试时重新构造整个请求体
	resp, body, err := s.client.doAuthed(ctx, func(token string) (*http.Request, error) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(data); err != nil {
			return nil, err
		}
		if err := w.WriteField("original_url", truncate(sourceURL, 500)); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, &buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", &APIError{Status: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	var record struct {
		ID    string `json:"id"`
		Image string `json:"image"`
	}
	if err := json.Unmarshal(body, &record); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if record.ID == "" || record.Image == "" {
		return "", fmt.Errorf("upload response missing record id or filename")
	}

	return fmt.Sprintf("%s/api/files/%s/%s/%s", s.client.BaseURL(), imageCollection, record.ID, record.Image), nil
}
