// Package pipeline 文章处理流水线编排
//
// 驱动任务走完 抓取 → 结构化 → 图片归档 → 持久化 的单一流程，
// 维护任务状态机 pending → processing → {completed | failed}。
// 提交立即返回 pending 任务，处理由后台工作协程异步完成，
// 进度只通过任务存储对外可见。
package pipeline

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/MuserQuantity/infographic-article-renderer/internal/crawler"
	"github.com/MuserQuantity/infographic-article-renderer/internal/media"
	"github.com/MuserQuantity/infographic-article-renderer/internal/model"
	"github.com/MuserQuantity/infographic-article-renderer/internal/storage"
)

const defaultQueueSize = 64

// Structurer 生成式结构化后端
type Structurer interface {
	Structure(ctx context.Context, markdown string, translate bool) (*model.ArticleData, error)
	TranslateError(ctx context.Context, technicalError string) (string, error)
}

// Normalizer 文档内图片归档
type Normalizer interface {
	Process(ctx context.Context, article *model.ArticleData) media.Stats
}

// job 一次后台处理。text 非空表示直接提交的原文，跳过抓取。
type job struct {
	taskID    string
	sourceKey string
	text      string
	translate bool
}

// Service 流水线编排器
type Service struct {
	store      storage.TaskStore
	fetcher    crawler.Fetcher
	structurer Structurer
	normalizer Normalizer
	metrics    *Metrics

	jobs chan job

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	workers int
}

// NewService 创建流水线。metrics 可为 nil（不上报指标）。
func NewService(store storage.TaskStore, fetcher crawler.Fetcher, structurer Structurer, normalizer Normalizer, workers int, metrics *Metrics) *Service {
	if workers <= 0 {
		workers = 4
	}
	return &Service{
		store:      store,
		fetcher:    fetcher,
		structurer: structurer,
		normalizer: normalizer,
		metrics:    metrics,
		jobs:       make(chan job, defaultQueueSize),
		workers:    workers,
	}
}

// Start 启动后台工作协程
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	log.Printf("[Pipeline] started workers=%d", s.workers)
}

// Stop 停止接收新任务并等待在途任务结束
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	log.Printf("[Pipeline] stopped")
}

func (s *Service) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case j := <-s.jobs:
			s.process(j)
		}
	}
}

// Submit 按网页地址提交任务。
// 同一地址已有任务且未要求强制刷新时直接返回已有任务（幂等去重）；
// 强制刷新会先删除旧任务再新建，不存在原地重试。
func (s *Service) Submit(ctx context.Context, url string, forceRefresh, translate bool) (*model.Task, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("url is required")
	}

	existing, err := s.store.GetTaskByURL(ctx, url)
	if err != nil {
		// 查询失败按不存在处理，提交路径不因读故障中断
		log.Printf("[Pipeline] lookup by url failed, treating as absent: %v", err)
		existing = nil
	}
	if existing != nil {
		if !forceRefresh {
			if s.metrics != nil {
				s.metrics.TasksDeduped.Inc()
			}
			log.Printf("[Pipeline] reuse existing task id=%s status=%s", existing.ID, existing.Status)
			return existing, nil
		}
		if err := s.store.DeleteTask(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("delete stale task: %w", err)
		}
		log.Printf("[Pipeline] force refresh, removed task id=%s", existing.ID)
	}

	return s.createAndEnqueue(ctx, job{sourceKey: url, translate: translate})
}

// SubmitText 直接提交原文，跳过抓取阶段。
// 源键由正文内容哈希合成，相同正文同样享受去重。
func (s *Service) SubmitText(ctx context.Context, text string, translate bool) (*model.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}

	sum := md5.Sum([]byte(text))
	sourceKey := "text-" + hex.EncodeToString(sum[:])[:12]

	existing, err := s.store.GetTaskByURL(ctx, sourceKey)
	if err != nil {
		log.Printf("[Pipeline] lookup by source key failed, treating as absent: %v", err)
		existing = nil
	}
	if existing != nil {
		if s.metrics != nil {
			s.metrics.TasksDeduped.Inc()
		}
		return existing, nil
	}

	return s.createAndEnqueue(ctx, job{sourceKey: sourceKey, text: text, translate: translate})
}

// Refresh 删除已有任务并以同一地址重新提交
func (s *Service) Refresh(ctx context.Context, url string, translate bool) (*model.Task, error) {
	return s.Submit(ctx, url, true, translate)
}

// GetTask 按 id 查询任务，不存在返回 (nil, nil)
func (s *Service) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return s.store.GetTask(ctx, id)
}

// GetTaskByURL 按源键查询最新任务，不存在返回 (nil, nil)
func (s *Service) GetTaskByURL(ctx context.Context, url string) (*model.Task, error) {
	return s.store.GetTaskByURL(ctx, url)
}

func (s *Service) createAndEnqueue(ctx context.Context, j job) (*model.Task, error) {
	task, err := s.store.CreateTask(ctx, j.sourceKey)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	j.taskID = task.ID

	if s.metrics != nil {
		s.metrics.TasksSubmitted.Inc()
	}
	log.Printf("[Pipeline] task created id=%s source=%s", task.ID, truncate(j.sourceKey, 120))

	// 入队不阻塞提交方，队列满时退化为独立协程投递
	select {
	case s.jobs <- j:
	default:
		go func() {
			select {
			case s.jobs <- j:
			case <-s.stopCh:
			}
		}()
	}
	return task, nil
}

// process 一次任务处理，单次执行，任一阶段失败即进入失败路径
func (s *Service) process(j job) {
	ctx := context.Background()
	start := time.Now()
	log.Printf("[Pipeline] processing task id=%s", j.taskID)

	if err := s.store.UpdateTaskStatus(ctx, j.taskID, model.TaskStatusProcessing, nil, ""); err != nil {
		log.Printf("[Pipeline] mark processing failed id=%s: %v", j.taskID, err)
		return
	}

	article, err := s.run(ctx, j)
	if err != nil {
		s.fail(ctx, j.taskID, err)
		return
	}

	if err := s.store.UpdateTaskStatus(ctx, j.taskID, model.TaskStatusCompleted, article, ""); err != nil {
		s.fail(ctx, j.taskID, fmt.Errorf("persist result: %w", err))
		return
	}

	if s.metrics != nil {
		s.metrics.TasksCompleted.Inc()
		s.metrics.TaskDuration.Observe(time.Since(start).Seconds())
	}
	log.Printf("[Pipeline] task completed id=%s elapsed=%s", j.taskID, time.Since(start).Round(time.Millisecond))
}

func (s *Service) run(ctx context.Context, j job) (*model.ArticleData, error) {
	text := j.text
	if text == "" {
		fetched, err := s.fetcher.Fetch(ctx, j.sourceKey)
		if err != nil {
			return nil, err
		}
		text = fetched
	}

	article, err := s.structurer.Structure(ctx, text, j.translate)
	if err != nil {
		return nil, err
	}

	// 图片归档单项失败不致命，只计数
	stats := s.normalizer.Process(ctx, article)
	if s.metrics != nil {
		s.metrics.ImagesMaterialized.Add(float64(stats.Materialized))
		s.metrics.ImagesFailed.Add(float64(stats.Failed))
	}

	return article, nil
}

// fail 写入失败终态。写失败记录本身出错时只记日志，绝不再上抛。
func (s *Service) fail(ctx context.Context, taskID string, taskErr error) {
	message := translateError(ctx, s.structurer, taskErr)
	if s.metrics != nil {
		s.metrics.TasksFailed.Inc()
	}
	if err := s.store.UpdateTaskStatus(ctx, taskID, model.TaskStatusFailed, nil, message); err != nil {
		log.Printf("[Pipeline] persist failure record failed id=%s: %v", taskID, err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
