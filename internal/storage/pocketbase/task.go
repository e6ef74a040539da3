package pocketbase

import (
	"context"
	"fmt"
	"net/url"

	"github.com/MuserQuantity/infographic-article-renderer/internal/model"
)

// taskCollection 任务记录所在的集合
const taskCollection = "infographic_tasks"

// TaskStore 基于 PocketBase 记录 API 的任务存储
// 实现了 storage.TaskStore 接口
type TaskStore struct {
	client *Client
	apiURL string
}

// NewTaskStore 创建 PocketBase 任务存储
func NewTaskStore(client *Client) *TaskStore {
	return &TaskStore{
		client: client,
		apiURL: client.BaseURL() + "/api/collections/" + taskCollection + "/records",
	}
}

// taskRecord PocketBase 任务记录的线格式
type taskRecord struct {
	ID      string     `json:"id"`
	URL     string     `json:"url"`
	Status  string     `json:"status"`
	Result  jsonOrNull `json:"result"`
	Error   string     `json:"error"`
	Created string     `json:"created"`
	Updated string     `json:"updated"`
}

// jsonOrNull 保留原始 JSON 字节，空对象与 null 视为无值
type jsonOrNull []byte

func (j *jsonOrNull) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` || s == "{}" {
		*j = nil
		return nil
	}
	*j = append((*j)[:0], data...)
	return nil
}

func (j jsonOrNull) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// parseTask 将 PocketBase 记录转换为领域模型
//
// 存量记录的 result 可能带有旧的行形态，读取时统一修复。
func parseTask(record *taskRecord) (*model.Task, error) {
	task := &model.Task{
		ID:        record.ID,
		URL:       record.URL,
		Status:    model.TaskStatus(record.Status),
		Error:     record.Error,
		CreatedAt: parseTimestamp(record.Created),
		UpdatedAt: parseTimestamp(record.Updated),
	}
	if len(record.Result) > 0 {
		article, err := model.DecodeArticleJSON(record.Result)
		if err != nil {
			return nil, fmt.Errorf("decode stored result for task %s: %w", record.ID, err)
		}
		task.Result = article
	}
	return task, nil
}

// CreateTask 创建一条 pending 任务记录，ID 由 PocketBase 分配
func (s *TaskStore) CreateTask(ctx context.Context, taskURL string) (*model.Task, error) {
	payload := map[string]interface{}{
		"url":    taskURL,
		"status": string(model.TaskStatusPending),
		"result": nil,
		"error":  nil,
	}
	var record taskRecord
	if err := s.client.doJSON(ctx, "POST", s.apiURL, payload, &record); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return parseTask(&record)
}

// GetTask 按 ID 查询任务，不存在时返回 (nil, nil)
func (s *TaskStore) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var record taskRecord
	err := s.client.doJSON(ctx, "GET", s.apiURL+"/"+url.PathEscape(id), nil, &record)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return parseTask(&record)
}

// GetTaskByURL 按来源 URL 查询最近创建的任务，不存在时返回 (nil, nil)
func (s *TaskStore) GetTaskByURL(ctx context.Context, taskURL string) (*model.Task, error) {
	query := url.Values{}
	query.Set("filter", fmt.Sprintf("url=%q", taskURL))
	query.Set("sort", "-created")
	query.Set("perPage", "1")

	var list struct {
		Items []taskRecord `json:"items"`
	}
	if err := s.client.doJSON(ctx, "GET", s.apiURL+"?"+query.Encode(), nil, &list); err != nil {
		return nil, fmt.Errorf("query task by url: %w", err)
	}
	if len(list.Items) == 0 {
		return nil, nil
	}
	return parseTask(&list.Items[0])
}

// UpdateTaskStatus 更新任务状态
func (s *TaskStore) UpdateTaskStatus(ctx context.Context, id string, status model.TaskStatus, result *model.ArticleData, errMsg string) error {
	payload := map[string]interface{}{
		"status": string(status),
		"result": nil,
		"error":  nil,
	}
	switch status {
	case model.TaskStatusCompleted:
		payload["result"] = result
	case model.TaskStatusFailed:
		payload["error"] = errMsg
	}

	if err := s.client.doJSON(ctx, "PATCH", s.apiURL+"/"+url.PathEscape(id), payload, nil); err != nil {
		return fmt.Errorf("update task %s: %w", id, err)
	}
	return nil
}

// DeleteTask 删除任务记录，记录不存在时静默成功
func (s *TaskStore) DeleteTask(ctx context.Context, id string) error {
	err := s.client.doJSON(ctx, "DELETE", s.apiURL+"/"+url.PathEscape(id), nil, nil)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

// Close 实现 storage.TaskStore，PocketBase 客户端无需释放
func (s *TaskStore) Close() error {
	return nil
}

func isNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == 404
}
