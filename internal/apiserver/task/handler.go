// Package task 任务领域 - HTTP 处理
package task

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/MuserQuantity/infographic-article-renderer/internal/model"
)

// Pipeline 任务提交与查询入口
type Pipeline interface {
	Submit(ctx context.Context, url string, forceRefresh, translate bool) (*model.Task, error)
	SubmitText(ctx context.Context, text string, translate bool) (*model.Task, error)
	Refresh(ctx context.Context, url string, translate bool) (*model.Task, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	GetTaskByURL(ctx context.Context, url string) (*model.Task, error)
}

// Handler 任务领域 HTTP 处理器
type Handler struct {
	pipeline Pipeline
}

// NewHandler 创建任务处理器
func NewHandler(pipeline Pipeline) *Handler {
	return &Handler{pipeline: pipeline}
}

// RegisterRoutes 注册任务相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/tasks", h.Submit)
	mux.HandleFunc("POST /api/tasks/text", h.SubmitText)
	mux.HandleFunc("POST /api/tasks/refresh", h.Refresh)
	mux.HandleFunc("GET /api/tasks/{id}", h.Get)
	mux.HandleFunc("GET /api/tasks/url/{url...}", h.GetByURL)
}

// SubmitRequest 按地址提交任务的请求体
type SubmitRequest struct {
	URL                string `json:"url"`
	ForceRefresh       bool   `json:"force_refresh"`
	TranslateToChinese bool   `json:"translate_to_chinese"`
}

// SubmitTextRequest 提交原文的请求体
type SubmitTextRequest struct {
	Text               string `json:"text"`
	TranslateToChinese bool   `json:"translate_to_chinese"`
}

// Submit 提交网页转换任务
// POST /api/tasks
//
// 同一 URL 的重复提交返回已有任务；force_refresh 删除旧任务重建。
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	task, err := h.pipeline.Submit(r.Context(), req.URL, req.ForceRefresh, req.TranslateToChinese)
	if err != nil {
		log.Printf("[Task] Submit error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to submit task")
		return
	}
	writeJSON(w, http.StatusAccepted, task)
}

// SubmitText 直接提交文章原文
// POST /api/tasks/text
func (h *Handler) SubmitText(w http.ResponseWriter, r *http.Request) {
	var req SubmitTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	task, err := h.pipeline.SubmitText(r.Context(), req.Text, req.TranslateToChinese)
	if err != nil {
		log.Printf("[Task] SubmitText error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to submit task")
		return
	}
	writeJSON(w, http.StatusAccepted, task)
}

// Refresh 强制刷新，等价于 force_refresh 提交
// POST /api/tasks/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	task, err := h.pipeline.Refresh(r.Context(), req.URL, req.TranslateToChinese)
	if err != nil {
		log.Printf("[Task] Refresh error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to refresh task")
		return
	}
	writeJSON(w, http.StatusAccepted, task)
}

// Get 获取任务详情
// GET /api/tasks/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	task, err := h.pipeline.GetTask(r.Context(), id)
	if err != nil {
		log.Printf("[Task] Get error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// GetByURL 按来源地址查询最新任务
// GET /api/tasks/url/{url...}
//
// URL 直接拼在路径上（含协议），例如：
// /api/tasks/url/https://example.com/article
func (h *Handler) GetByURL(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("url")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	// 路径解析会把 https:// 折叠成 https:/，还原双斜杠
	if strings.Contains(raw, ":/") && !strings.Contains(raw, "://") {
		raw = strings.Replace(raw, ":/", "://", 1)
	}

	task, err := h.pipeline.GetTaskByURL(r.Context(), raw)
	if err != nil {
		log.Printf("[Task] GetByURL error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}
