package pocketbase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/MuserQuantity/infographic-article-renderer/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePocketBase 模拟 PocketBase 的认证与记录 API
type fakePocketBase struct {
	mu         sync.Mutex
	authCalls  int
	legacyAuth bool // 仅在旧的 /api/admins 端点上响应
	token      string
	rejectOnce bool // 下一次带认证的请求返回 401

	records map[string]map[string]interface{}
	nextID  int
}

func newFakePocketBase() *fakePocketBase {
	return &fakePocketBase{
		token:   "token-1",
		records: make(map[string]map[string]interface{}),
	}
}

func (f *fakePocketBase) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/collections/_superusers/auth-with-password", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.legacyAuth {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		f.authCalls++
		json.NewEncoder(w).Encode(map[string]string{"token": f.token})
	})
	mux.HandleFunc("POST /api/admins/auth-with-password", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.authCalls++
		json.NewEncoder(w).Encode(map[string]string{"token": f.token})
	})
	mux.HandleFunc("/api/collections/infographic_tasks/records", f.withAuth(f.handleRecords))
	mux.HandleFunc("/api/collections/infographic_tasks/records/{id}", f.withAuth(f.handleRecord))
	return mux
}

func (f *fakePocketBase) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		reject := f.rejectOnce
		f.rejectOnce = false
		token := f.token
		f.mu.Unlock()
		if reject || r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (f *fakePocketBase) handleRecords(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPost:
		var payload map[string]interface{}
		json.NewDecoder(r.Body).Decode(&payload)
		f.nextID++
		id := fmt.Sprintf("rec%03d", f.nextID)
		record := map[string]interface{}{
			"id":      id,
			"url":     payload["url"],
			"status":  payload["status"],
			"result":  payload["result"],
			"error":   payload["error"],
			"created": "2024-06-01 10:00:00.000Z",
			"updated": "2024-06-01 10:00:00.000Z",
		}
		f.records[id] = record
		json.NewEncoder(w).Encode(record)
	case http.MethodGet:
		filter := r.URL.Query().Get("filter")
		var items []map[string]interface{}
		for _, rec := range f.records {
			if strings.Contains(filter, fmt.Sprintf("%q", rec["url"])) {
				items = append(items, rec)
			}
		}
		if items == nil {
			items = []map[string]interface{}{}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"items": items})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakePocketBase) handleRecord(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := r.PathValue("id")
	record, ok := f.records[id]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		json.NewEncoder(w).Encode(record)
	case http.MethodPatch:
		var payload map[string]interface{}
		json.NewDecoder(r.Body).Decode(&payload)
		for k, v := range payload {
			record[k] = v
		}
		json.NewEncoder(w).Encode(record)
	case http.MethodDelete:
		delete(f.records, id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func newTestTaskStore(t *testing.T) (*TaskStore, *fakePocketBase) {
	t.Helper()
	fake := newFakePocketBase()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, "admin@example.com", "secret")
	return NewTaskStore(client), fake
}

func TestTaskStoreCRUD(t *testing.T) {
	s, _ := newTestTaskStore(t)
	ctx := context.Background()

	task, err := s.CreateTask(ctx, "https://example.com/post")
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, model.TaskStatusPending, task.Status)
	assert.False(t, task.CreatedAt.IsZero())

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "https://example.com/post", got.URL)

	got, err = s.GetTaskByURL(ctx, "https://example.com/post")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, task.ID, got.ID)

	got, err = s.GetTaskByURL(ctx, "https://example.com/other")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.UpdateTaskStatus(ctx, task.ID, model.TaskStatusFailed, nil, "网页内容太少"))
	got, _ = s.GetTask(ctx, task.ID)
	assert.Equal(t, model.TaskStatusFailed, got.Status)
	assert.Equal(t, "网页内容太少", got.Error)

	require.NoError(t, s.DeleteTask(ctx, task.ID))
	got, err = s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	// 重复删除静默成功
	require.NoError(t, s.DeleteTask(ctx, task.ID))
}

func TestTokenCachedAcrossRequests(t *testing.T) {
	s, fake := newTestTaskStore(t)
	ctx := context.Background()

	_, err := s.CreateTask(ctx, "https://example.com/a")
	require.NoError(t, err)
	_, err = s.GetTaskByURL(ctx, "https://example.com/a")
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 1, fake.authCalls)
}

func TestLegacyAuthFallback(t *testing.T) {
	s, fake := newTestTaskStore(t)
	fake.legacyAuth = true

	_, err := s.CreateTask(context.Background(), "https://example.com/a")
	require.NoError(t, err)
}

func TestTokenRefreshOn401(t *testing.T) {
	s, fake := newTestTaskStore(t)
	ctx := context.Background()

	_, err := s.CreateTask(ctx, "https://example.com/a")
	require.NoError(t, err)

	// 使当前 token 失效，下一次请求应重新认证并重试成功
	fake.mu.Lock()
	fake.token = "token-2"
	fake.mu.Unlock()

	got, err := s.GetTaskByURL(ctx, "https://example.com/a")
	require.NoError(t, err)
	require.NotNil(t, got)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 2, fake.authCalls)
}

func TestResultRepairedOnRead(t *testing.T) {
	s, fake := newTestTaskStore(t)
	ctx := context.Background()

	task, err := s.CreateTask(ctx, "https://example.com/legacy")
	require.NoError(t, err)

	// 直接塞入旧形态的 comparison 行，模拟存量记录
	fake.mu.Lock()
	fake.records[task.ID]["status"] = "completed"
	fake.records[task.ID]["result"] = map[string]interface{}{
		"title": "旧记录",
		"sections": []interface{}{
			map[string]interface{}{
				"title": "对比",
				"content": []interface{}{
					map[string]interface{}{
						"type":    "comparison",
						"columns": []interface{}{"方案 A", "方案 B"},
						"rows":    []interface{}{[]interface{}{"价格", "免费", "收费"}},
					},
				},
			},
		},
	}
	fake.mu.Unlock()

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Result)

	block := got.Result.Sections[0].Content[0]
	require.NotNil(t, block.Rows)
	require.Len(t, block.Rows.Comparison, 1)
	assert.Equal(t, "价格", block.Rows.Comparison[0].Label)
	assert.Equal(t, []string{"免费", "收费"}, block.Rows.Comparison[0].Values)
}

func TestMediaUpload(t *testing.T) {
	var gotSourceURL string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/collections/_superusers/auth-with-password", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"token": "t"})
	})
	mux.HandleFunc("POST /api/collections/infographic_images/records", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(16<<20))
		gotSourceURL = r.FormValue("original_url")
		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		file.Close()
		// PocketBase 会给文件名追加随机后缀
		stored := strings.TrimSuffix(header.Filename, ".png") + "_a1b2c3.png"
		json.NewEncoder(w).Encode(map[string]string{"id": "img001", "image": stored})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := NewMediaStore(NewClient(srv.URL, "admin@example.com", "secret"))
	url, err := store.Upload(context.Background(), "https://cdn.example.com/pic.png", "abcdef123456.png", "image/png", []byte("fake-png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/api/files/infographic_images/img001/abcdef123456_a1b2c3.png", url)
	assert.Equal(t, "https://cdn.example.com/pic.png", gotSourceURL)
	assert.Equal(t, srv.URL, store.BaseURL())
}
