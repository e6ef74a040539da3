// Package repository 数据库无关的任务存储层
//
// 通过 dbutil.Dialect 接口屏蔽不同数据库的 SQL 差异，
// 所有 SQL 以 PostgreSQL 风格编写，运行时由 Dialect.Rebind() 转换。
package repository

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"

	"github.com/MuserQuantity/infographic-article-renderer/internal/storage/dbutil"
)

// Store 基于 database/sql 的任务存储
// 实现了 storage.TaskStore 接口
type Store struct {
	db      *sql.DB
	dialect dbutil.Dialect
}

// NewStore 创建任务存储
func NewStore(db *sql.DB, dialect dbutil.Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	return s.db.Close()
}

// DB 返回底层数据库连接（仅用于测试）
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect 返回当前方言
func (s *Store) Dialect() dbutil.Dialect {
	return s.dialect
}

// rebind 快捷方法：将 PG 风格 SQL 转换为当前方言
func (s *Store) rebind(query string) string {
	return s.dialect.Rebind(query)
}

// newTaskID 生成任务 ID，格式为 task- 前缀加 12 位十六进制
func newTaskID() string {
	b := make([]byte, 6)
	rand.Read(b)
	return "task-" + hex.EncodeToString(b)
}
