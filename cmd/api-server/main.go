// Package main API Server 入口
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MuserQuantity/infographic-article-renderer/internal/apiserver/server"
	"github.com/MuserQuantity/infographic-article-renderer/internal/config"
	"github.com/MuserQuantity/infographic-article-renderer/internal/crawler"
	"github.com/MuserQuantity/infographic-article-renderer/internal/llm"
	"github.com/MuserQuantity/infographic-article-renderer/internal/media"
	"github.com/MuserQuantity/infographic-article-renderer/internal/objstore"
	"github.com/MuserQuantity/infographic-article-renderer/internal/pipeline"
	"github.com/MuserQuantity/infographic-article-renderer/internal/storage"
	"github.com/MuserQuantity/infographic-article-renderer/internal/storage/dbutil"
	pgdriver "github.com/MuserQuantity/infographic-article-renderer/internal/storage/driver/postgres"
	sqlitedriver "github.com/MuserQuantity/infographic-article-renderer/internal/storage/driver/sqlite"
	"github.com/MuserQuantity/infographic-article-renderer/internal/storage/pocketbase"
	"github.com/MuserQuantity/infographic-article-renderer/internal/storage/repository"
)

func main() {
	// 加载配置（自动加载 .env，根据 APP_ENV 切换 YAML）
	cfg := config.Load()

	log.Printf("Starting API Server... [env=%s]", cfg.Env)
	log.Printf("Config: %s", cfg.String())

	// 任务存储
	taskStore, pbClient, err := newTaskStore(cfg)
	if err != nil {
		log.Fatalf("Failed to init task store: %v", err)
	}
	defer taskStore.Close()
	log.Printf("Task store ready [driver=%s]", cfg.Store.Driver)

	// 媒体存储
	mediaStore, err := newMediaStore(cfg, pbClient)
	if err != nil {
		log.Fatalf("Failed to init media store: %v", err)
	}
	log.Printf("Media store ready [backend=%s]", cfg.Media.Backend)

	// 内容抓取
	fetcher, err := crawler.New(cfg.Crawler)
	if err != nil {
		log.Fatalf("Failed to init crawler: %v", err)
	}

	// 生成式结构化后端
	llmClient := llm.NewClient(cfg.LLM)

	// 流水线
	pipelineMetrics := pipeline.NewMetrics("pipeline", prometheus.DefaultRegisterer)
	normalizer := media.NewNormalizer(mediaStore)
	svc := pipeline.NewService(taskStore, fetcher, llmClient, normalizer, cfg.Pipeline.Workers, pipelineMetrics)
	svc.Start()
	defer svc.Stop()

	h := server.NewHandler(svc, prometheus.DefaultRegisterer)

	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 优雅关闭
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("API Server listening on :%s", cfg.APIPort)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	fmt.Println("Server stopped")
}

// newTaskStore 按配置创建任务存储。
// 选用 pocketbase 驱动时同时返回客户端，供媒体存储共用认证。
func newTaskStore(cfg *config.Config) (storage.TaskStore, *pocketbase.Client, error) {
	switch cfg.Store.Driver {
	case "pocketbase":
		client := pocketbase.NewClient(cfg.Store.PocketBaseURL, cfg.Store.AdminEmail, cfg.Store.AdminPassword)
		return pocketbase.NewTaskStore(client), client, nil

	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Store.SQLitePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		db, err := sqlitedriver.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		dialect := sqlitedriver.NewDialect()
		if err := migrate(db, dialect); err != nil {
			return nil, nil, err
		}
		return repository.NewStore(db, dialect), nil, nil

	case "postgres":
		db, err := pgdriver.Open(cfg.Store.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		dialect := pgdriver.NewDialect()
		if err := migrate(db, dialect); err != nil {
			return nil, nil, err
		}
		return repository.NewStore(db, dialect), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
}

func migrate(db *sql.DB, dialect dbutil.Dialect) error {
	if err := dialect.AutoMigrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// newMediaStore 按配置创建媒体存储
func newMediaStore(cfg *config.Config, pbClient *pocketbase.Client) (storage.MediaStore, error) {
	switch cfg.Media.Backend {
	case "pocketbase":
		if pbClient == nil {
			pbClient = pocketbase.NewClient(cfg.Store.PocketBaseURL, cfg.Store.AdminEmail, cfg.Store.AdminPassword)
		}
		return pocketbase.NewMediaStore(pbClient), nil

	case "minio":
		client, err := objstore.NewClient(cfg.Media.MinIO)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket: %w", err)
		}
		return objstore.NewMediaStore(client, cfg.Media.MinIO), nil
	}
	return nil, fmt.Errorf("unknown media backend: %s", cfg.Media.Backend)
}
