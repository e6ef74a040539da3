// Package server 路由配置与核心基础设施
package server

import (
	"net/http"

	"github.com/MuserQuantity/infographic-article-renderer/internal/apiserver/task"
)

// Router 返回配置好的 HTTP 路由
//
// 路由规则：
//
// 健康检查:
//   - GET /health - 服务健康检查
//
// 任务管理 (Task):
//   - POST /api/tasks          - 提交网页转换任务
//   - POST /api/tasks/text     - 提交文章原文
//   - POST /api/tasks/refresh  - 强制刷新
//   - GET  /api/tasks/{id}     - 获取任务详情
//   - GET  /api/tasks/url/{url...} - 按来源地址查询
//
// WebSocket:
//   - GET /ws/tasks/{id} - 实时任务状态推送
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /health", h.Health)

	// Prometheus 指标端点
	mux.Handle("GET /metrics", MetricsHandler())

	// Task 接口
	taskHandler := task.NewHandler(h.pipeline)
	taskHandler.RegisterRoutes(mux)

	// 应用指标中间件到 REST API
	apiHandler := h.metrics.MetricsMiddleware(mux)

	// 应用 CORS 中间件
	corsHandler := corsMiddleware(apiHandler)

	// 顶层路由，WebSocket 绕过 metrics 中间件（避免 http.Hijacker 问题）
	topMux := http.NewServeMux()
	watchGateway := task.NewWatchGateway(h.pipeline)
	topMux.HandleFunc("GET /ws/tasks/{id}", watchGateway.HandleWebSocket)
	topMux.Handle("/", corsHandler)

	return topMux
}

// corsMiddleware 添加 CORS 头支持跨域请求
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
