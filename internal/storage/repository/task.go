// Package repository Task 相关的存储操作
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MuserQuantity/infographic-article-renderer/internal/model"
)

// CreateTask 创建一条 pending 任务记录
func (s *Store) CreateTask(ctx context.Context, url string) (*model.Task, error) {
	now := time.Now().UTC()
	task := &model.Task{
		ID:        newTaskID(),
		URL:       url,
		Status:    model.TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := s.rebind(`
		INSERT INTO tasks (id, url, status, result, error, created_at, updated_at)
		VALUES ($1, $2, $3, NULL, '', $4, $5)
	`)
	_, err := s.db.ExecContext(ctx, query,
		task.ID, task.URL, task.Status, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return task, nil
}

// GetTask 按 ID 获取任务，不存在时返回 (nil, nil)
func (s *Store) GetTask(ctx context.Context, id string) (*model.Task, error) {
	query := s.rebind(`SELECT id, url, status, result, error, created_at, updated_at FROM tasks WHERE id = $1`)
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return task, err
}

// GetTaskByURL 按来源 URL 获取最近创建的任务，不存在时返回 (nil, nil)
func (s *Store) GetTaskByURL(ctx context.Context, url string) (*model.Task, error) {
	query := s.rebind(`SELECT id, url, status, result, error, created_at, updated_at FROM tasks WHERE url = $1 ORDER BY created_at DESC LIMIT 1`)
	task, err := scanTask(s.db.QueryRowContext(ctx, query, url))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return task, err
}

// scanTask 辅助函数：从数据库行扫描 Task
func scanTask(scanner interface {
	Scan(dest ...interface{}) error
}) (*model.Task, error) {
	task := &model.Task{}
	var resultJSON []byte
	var errMsg sql.NullString
	err := scanner.Scan(
		&task.ID, &task.URL, &task.Status, &resultJSON, &errMsg,
		&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}
	task.Error = errMsg.String
	if len(resultJSON) > 0 && string(resultJSON) != "null" {
		// 存量记录可能带有旧的行形态，读取时统一修复
		article, decErr := model.DecodeArticleJSON(resultJSON)
		if decErr != nil {
			return nil, fmt.Errorf("decode stored result for task %s: %w", task.ID, decErr)
		}
		task.Result = article
	}
	return task, nil
}

// UpdateTaskStatus 更新任务状态
//
// completed 写入 result 并清空 error，failed 写入 error 并清空 result，
// 其余状态两者皆清空。
func (s *Store) UpdateTaskStatus(ctx context.Context, id string, status model.TaskStatus, result *model.ArticleData, errMsg string) error {
	var resultJSON interface{}
	switch status {
	case model.TaskStatusCompleted:
		if result != nil {
			data, err := json.Marshal(result)
			if err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			resultJSON = data
		}
		errMsg = ""
	case model.TaskStatusFailed:
		resultJSON = nil
	default:
		resultJSON = nil
		errMsg = ""
	}

	query := s.rebind(`UPDATE tasks SET status = $1, result = $2, error = $3, updated_at = $4 WHERE id = $5`)
	res, err := s.db.ExecContext(ctx, query, status, resultJSON, errMsg, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update task %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update task %s: no such task", id)
	}
	return nil
}

// DeleteTask 删除任务记录，记录不存在时静默成功
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	query := s.rebind(`DELETE FROM tasks WHERE id = $1`)
	_, err := s.db.ExecContext(ctx, query, id)
	return err
}
