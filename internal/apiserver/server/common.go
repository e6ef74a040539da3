// Package server 提供 HTTP API 处理器
//
// 本包实现文章转换服务的 RESTful API，包括：
//   - 任务提交与查询（Task）接口
//   - WebSocket 任务状态推送
//   - Prometheus 指标
//
// 文件组织：
//   - common.go: 通用工具函数和 Handler 定义
//   - handler.go: 路由配置
//   - metrics.go: Prometheus 指标
package server

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MuserQuantity/infographic-article-renderer/internal/pipeline"
)

// Handler API 处理器
//
// Handler 是所有 HTTP API 的入口，负责：
//   - 路由请求到对应的处理函数
//   - 持有流水线实例
//   - 暴露 Prometheus 指标
type Handler struct {
	pipeline *pipeline.Service
	metrics  *Metrics
}

// NewHandler 创建 Handler 实例
//
// reg 为 Prometheus 注册器，生产环境传 prometheus.DefaultRegisterer，
// 测试中传独立的 prometheus.NewRegistry() 避免重复注册。
func NewHandler(p *pipeline.Service, reg prometheus.Registerer) *Handler {
	return &Handler{
		pipeline: p,
		metrics:  NewMetrics("api", reg),
	}
}

// GetMetrics 返回指标实例
func (h *Handler) GetMetrics() *Metrics {
	return h.metrics
}

// writeJSON 将数据以 JSON 格式写入 HTTP 响应
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Health 健康检查接口
//
// 路由: GET /health
//
// 用于负载均衡器和监控系统检查服务状态。
// 返回 {"status": "ok"} 表示服务正常运行。
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
