package task

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MuserQuantity/infographic-article-renderer/internal/model"
)

// fakePipeline 记录调用参数并返回预置任务
type fakePipeline struct {
	task       *model.Task
	err        error
	lastURL    string
	lastForce  bool
	lastText   string
	lastTransl bool
}

func (f *fakePipeline) Submit(ctx context.Context, url string, forceRefresh, translate bool) (*model.Task, error) {
	f.lastURL, f.lastForce, f.lastTransl = url, forceRefresh, translate
	return f.task, f.err
}

func (f *fakePipeline) SubmitText(ctx context.Context, text string, translate bool) (*model.Task, error) {
	f.lastText, f.lastTransl = text, translate
	return f.task, f.err
}

func (f *fakePipeline) Refresh(ctx context.Context, url string, translate bool) (*model.Task, error) {
	f.lastURL, f.lastForce, f.lastTransl = url, true, translate
	return f.task, f.err
}

func (f *fakePipeline) GetTask(ctx context.Context, id string) (*model.Task, error) {
	if f.task != nil && f.task.ID == id {
		return f.task, f.err
	}
	return nil, f.err
}

func (f *fakePipeline) GetTaskByURL(ctx context.Context, url string) (*model.Task, error) {
	if f.task != nil && f.task.URL == url {
		return f.task, f.err
	}
	return nil, f.err
}

func sampleTask() *model.Task {
	now := time.Now().UTC()
	return &model.Task{
		ID:        "task-abc123def456",
		URL:       "https://example.com/article",
		Status:    model.TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newTestMux(p Pipeline) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(p).RegisterRoutes(mux)
	return mux
}

// TestSubmit 测试任务提交
func TestSubmit(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantForce  bool
		wantTransl bool
	}{
		{
			name:       "基本提交",
			body:       `{"url": "https://example.com/article"}`,
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "带翻译和强制刷新",
			body:       `{"url": "https://example.com/article", "force_refresh": true, "translate_to_chinese": true}`,
			wantStatus: http.StatusAccepted,
			wantForce:  true,
			wantTransl: true,
		},
		{
			name:       "缺少 URL",
			body:       `{"translate_to_chinese": true}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "无效 JSON",
			body:       `{invalid}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := &fakePipeline{task: sampleTask()}
			mux := newTestMux(pipeline)

			req := httptest.NewRequest("POST", "/api/tasks", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusAccepted {
				return
			}

			if pipeline.lastForce != tt.wantForce {
				t.Errorf("forceRefresh = %v, want %v", pipeline.lastForce, tt.wantForce)
			}
			if pipeline.lastTransl != tt.wantTransl {
				t.Errorf("translate = %v, want %v", pipeline.lastTransl, tt.wantTransl)
			}

			var got model.Task
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if got.ID != "task-abc123def456" {
				t.Errorf("ID = %q, want task-abc123def456", got.ID)
			}
			if got.Status != model.TaskStatusPending {
				t.Errorf("Status = %q, want pending", got.Status)
			}
		})
	}
}

// TestSubmitText 测试原文提交
func TestSubmitText(t *testing.T) {
	pipeline := &fakePipeline{task: sampleTask()}
	mux := newTestMux(pipeline)

	body := `{"text": "这是一篇文章的正文内容", "translate_to_chinese": true}`
	req := httptest.NewRequest("POST", "/api/tasks/text", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202, body: %s", rec.Code, rec.Body.String())
	}
	if pipeline.lastText != "这是一篇文章的正文内容" {
		t.Errorf("text = %q", pipeline.lastText)
	}
	if !pipeline.lastTransl {
		t.Error("translate should be true")
	}
}

// TestSubmitTextEmpty 测试空正文
func TestSubmitTextEmpty(t *testing.T) {
	mux := newTestMux(&fakePipeline{task: sampleTask()})

	req := httptest.NewRequest("POST", "/api/tasks/text", strings.NewReader(`{"text": "  "}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// TestRefresh 测试强制刷新接口
func TestRefresh(t *testing.T) {
	pipeline := &fakePipeline{task: sampleTask()}
	mux := newTestMux(pipeline)

	body := `{"url": "https://example.com/article"}`
	req := httptest.NewRequest("POST", "/api/tasks/refresh", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if !pipeline.lastForce {
		t.Error("refresh should force replace")
	}
}

// TestGet 测试按 ID 查询
func TestGet(t *testing.T) {
	mux := newTestMux(&fakePipeline{task: sampleTask()})

	req := httptest.NewRequest("GET", "/api/tasks/task-abc123def456", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got model.Task
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.URL != "https://example.com/article" {
		t.Errorf("URL = %q", got.URL)
	}
}

// TestGetNotFound 测试查询不存在的任务
func TestGetNotFound(t *testing.T) {
	mux := newTestMux(&fakePipeline{task: sampleTask()})

	req := httptest.NewRequest("GET", "/api/tasks/task-nope", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

// TestGetByURL 测试按来源地址查询
func TestGetByURL(t *testing.T) {
	mux := newTestMux(&fakePipeline{task: sampleTask()})

	// 路径中的 https:// 会被折叠为 https:/，处理器需还原
	req := httptest.NewRequest("GET", "/api/tasks/url/https:/example.com/article", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
}

// TestSubmitPipelineError 测试流水线故障时的响应
func TestSubmitPipelineError(t *testing.T) {
	mux := newTestMux(&fakePipeline{err: fmt.Errorf("store unavailable")})

	req := httptest.NewRequest("POST", "/api/tasks", strings.NewReader(`{"url": "https://example.com/x"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "store unavailable") {
		t.Error("internal error detail must not leak to the client")
	}
}
