// Package storage 定义任务与媒体的持久化接口
//
// 任务存储支持三种后端：PocketBase（默认）、SQLite、PostgreSQL；
// 媒体存储支持 PocketBase 文件集合与 MinIO 对象存储。
// 各实现位于本目录下的子包中。
package storage

import (
	"context"

	"github.com/MuserQuantity/infographic-article-renderer/internal/model"
)

// TaskStore 任务记录存储接口
//
// 查询方法对不存在的记录返回 (nil, nil)，错误仅表示后端故障。
type TaskStore interface {
	// CreateTask 创建一条 pending 状态的任务记录，ID 由存储层分配
	CreateTask(ctx context.Context, url string) (*model.Task, error)

	// GetTask 按 ID 查询任务，不存在时返回 (nil, nil)
	GetTask(ctx context.Context, id string) (*model.Task, error)

	// GetTaskByURL 按来源 URL 查询最近创建的任务，不存在时返回 (nil, nil)
	GetTaskByURL(ctx context.Context, url string) (*model.Task, error)

	// UpdateTaskStatus 更新任务状态，result 与 errMsg 按状态语义二选一：
	// completed 时写入 result 并清空 error，failed 时写入 error 并清空 result，
	// 其余状态两者皆清空
	UpdateTaskStatus(ctx context.Context, id string, status model.TaskStatus, result *model.ArticleData, errMsg string) error

	// DeleteTask 删除任务记录，记录不存在时不视为错误
	DeleteTask(ctx context.Context, id string) error

	// Close 释放底层连接
	Close() error
}

// MediaStore 媒体文件存储接口
type MediaStore interface {
	// Upload 上传一个文件并返回可公开访问的稳定 URL；
	// sourceURL 为文件的原始出处，存储层可留档用于追溯
	Upload(ctx context.Context, sourceURL, filename, contentType string, data []byte) (string, error)

	// BaseURL 返回该存储对外地址的前缀，用于识别已归档的 URL
	BaseURL() string
}
