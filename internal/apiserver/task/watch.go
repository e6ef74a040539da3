// Package task WebSocket 任务状态推送
//
// 为轮询之外提供实时通道：客户端订阅单个任务，
// 状态变化即推送，任务进入终态后连接关闭。
package task

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MuserQuantity/infographic-article-renderer/internal/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WatchGateway WebSocket 任务订阅网关
type WatchGateway struct {
	pipeline Pipeline
	clients  map[string]map[*websocket.Conn]bool // 按任务 ID 索引
	mu       sync.RWMutex

	// pollInterval 状态轮询间隔，测试中可调小
	pollInterval time.Duration
}

// NewWatchGateway 创建任务订阅网关
func NewWatchGateway(pipeline Pipeline) *WatchGateway {
	return &WatchGateway{
		pipeline:     pipeline,
		clients:      make(map[string]map[*websocket.Conn]bool),
		pollInterval: 500 * time.Millisecond,
	}
}

// HandleWebSocket 处理 WebSocket 连接请求
//
// 路由: GET /ws/tasks/{id}
//
// 推送消息格式：
//
//	状态消息：{"type": "status", "data": {"id": "...", "status": "processing"}}
//	终态消息：{"type": "done", "data": <完整任务记录>}
//
// 客户端消息：
//
//	心跳：{"type": "ping"} -> 响应 {"type": "pong"}
func (g *WatchGateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("id")
	if taskID == "" {
		http.Error(w, "task id required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Task] WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	g.addClient(taskID, conn)
	defer g.removeClient(taskID, conn)

	log.Printf("[Task] WebSocket client connected task=%s", taskID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go g.readPump(conn, cancel)
	g.writePump(ctx, conn, taskID)
}

func (g *WatchGateway) addClient(taskID string, conn *websocket.Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.clients[taskID] == nil {
		g.clients[taskID] = make(map[*websocket.Conn]bool)
	}
	g.clients[taskID][conn] = true
}

func (g *WatchGateway) removeClient(taskID string, conn *websocket.Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if clients, ok := g.clients[taskID]; ok {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(g.clients, taskID)
		}
	}
}

// readPump 读取客户端消息，处理心跳与连接关闭
func (g *WatchGateway) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Task] WebSocket read error: %v", err)
			}
			return
		}

		var req map[string]interface{}
		if json.Unmarshal(msg, &req) == nil {
			if req["type"] == "ping" {
				conn.WriteJSON(map[string]string{"type": "pong"})
			}
		}
	}
}

// writePump 轮询任务状态并推送变化，终态后发送完整记录并退出
func (g *WatchGateway) writePump(ctx context.Context, conn *websocket.Conn, taskID string) {
	ticker := time.NewTicker(g.pollInterval)
	pingTicker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	defer pingTicker.Stop()

	var lastStatus model.TaskStatus

	for {
		select {
		case <-ctx.Done():
			return
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ticker.C:
			task, err := g.pipeline.GetTask(ctx, taskID)
			if err != nil {
				log.Printf("[Task] watch poll error: %v", err)
				continue
			}
			if task == nil {
				conn.WriteJSON(map[string]string{"type": "error", "error": "task not found"})
				return
			}

			if task.Status.IsTerminal() {
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				conn.WriteJSON(map[string]interface{}{"type": "done", "data": task})
				return
			}

			if task.Status != lastStatus {
				lastStatus = task.Status
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				msg := map[string]interface{}{
					"type": "status",
					"data": map[string]interface{}{"id": task.ID, "status": task.Status},
				}
				if err := conn.WriteJSON(msg); err != nil {
					log.Printf("[Task] WebSocket write error: %v", err)
					return
				}
			}
		}
	}
}
