// Package model 定义核心数据模型
//
// task.go 包含任务相关的数据模型定义：
//   - Task：抓取转换任务（以来源 URL 为去重键）
//   - TaskStatus：任务状态枚举
//
// 任务状态机：pending → processing → completed | failed。
// completed 和 failed 为终态，不支持原地重试；强制刷新走删除重建。
package model

import "time"

// TaskStatus 任务状态枚举
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsTerminal 判断状态是否为终态
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// IsValid 判断状态是否合法
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed:
		return true
	}
	return false
}

// Task 抓取转换任务
//
// 不变式：Result 仅在 completed 态存在，Error 仅在 failed 态存在，
// pending/processing 态两者皆空。状态只由流水线修改。
type Task struct {
	// ID 唯一标识（由存储层生成）
	ID string `json:"id"`

	// URL 来源地址，同时作为去重键；
	// 纯文本任务使用合成键（text-xxxxxxxxxxxx）
	URL string `json:"url"`

	// Status 当前状态
	Status TaskStatus `json:"status"`

	// Result 结构化文章结果（仅 completed 态）
	Result *ArticleData `json:"result,omitempty"`

	// Error 面向用户的错误提示（仅 failed 态）
	Error string `json:"error,omitempty"`

	// CreatedAt / UpdatedAt 由存储层维护
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CheckInvariant 校验状态与结果/错误字段的一致性
func (t *Task) CheckInvariant() bool {
	switch t.Status {
	case TaskStatusCompleted:
		return t.Result != nil && t.Error == ""
	case TaskStatusFailed:
		return t.Result == nil && t.Error != ""
	default:
		return t.Result == nil && t.Error == ""
	}
}
