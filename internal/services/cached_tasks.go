package services

import (
	"context"
	"fmt"
	"time"

	"tugasku/internal/cache"
	"tugasku/internal/models"
	"tugasku/internal/repositories"

	"go.uber.org/zap"
)

const (
	keyAllTasks      = "tasks:all"
	keyTaskPattern   = "tasks:*"
	defaultCachedTTL = 10 * time.Minute
)

// aggregateReader is implemented by services that can tell a real zero apart
// from a storage failure. Only successful aggregates are cached.
type aggregateReader interface {
	countTasks(ctx context.Context, date *time.Time) (int64, error)
	summarize(ctx context.Context, date *time.Time) (Summary, error)
}

// CachedTaskService decorates a TaskService with a read-through cache. Any
// successful mutation drops every cached task view.
type CachedTaskService struct {
	taskService TaskService
	cache       cache.Cache
	ttl         time.Duration
	log         *zap.Logger
}

func NewCachedTaskService(taskService TaskService, c cache.Cache, ttl time.Duration, log *zap.Logger) *CachedTaskService {
	if ttl <= 0 {
		ttl = defaultCachedTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedTaskService{
		taskService: taskService,
		cache:       c,
		ttl:         ttl,
		log:         log,
	}
}

func (s *CachedTaskService) CreateTask(ctx context.Context, task *models.Task) error {
	if err := s.taskService.CreateTask(ctx, task); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CachedTaskService) GetTasks(ctx context.Context) ([]models.Task, error) {
	var cached []models.Task
	if err := s.cache.Get(ctx, keyAllTasks, &cached); err == nil {
		return cached, nil
	}

	tasks, err := s.taskService.GetTasks(ctx)
	if err != nil {
		return tasks, err
	}

	s.store(ctx, keyAllTasks, tasks)
	return tasks, nil
}

func (s *CachedTaskService) GetTaskByID(ctx context.Context, id int64) (models.Task, error) {
	cacheKey := fmt.Sprintf("tasks:id:%d", id)

	var cached models.Task
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return cached, nil
	}

	task, err := s.taskService.GetTaskByID(ctx, id)
	if err != nil {
		return task, err
	}

	s.store(ctx, cacheKey, task)
	return task, nil
}

// FilterTasks is not cached; the key space grows with every filter combination.
func (s *CachedTaskService) FilterTasks(ctx context.Context, filter TaskFilter) repositories.Table {
	return s.taskService.FilterTasks(ctx, filter)
}

func (s *CachedTaskService) UpdateTask(ctx context.Context, task models.Task) error {
	if err := s.taskService.UpdateTask(ctx, task); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CachedTaskService) DeleteTask(ctx context.Context, id int64) error {
	if err := s.taskService.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CachedTaskService) MarkComplete(ctx context.Context, id int64) error {
	if err := s.taskService.MarkComplete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CachedTaskService) CountTasks(ctx context.Context, date *time.Time) int64 {
	cacheKey := "tasks:count:" + dateKey(date)

	var cached int64
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return cached
	}

	reader, ok := s.taskService.(aggregateReader)
	if !ok {
		count := s.taskService.CountTasks(ctx, date)
		s.store(ctx, cacheKey, count)
		return count
	}

	count, err := reader.countTasks(ctx, date)
	if err != nil {
		s.log.Warn("count failed, reporting zero", zap.Error(err))
		return 0
	}
	s.store(ctx, cacheKey, count)
	return count
}

func (s *CachedTaskService) Summarize(ctx context.Context, date *time.Time) Summary {
	cacheKey := "tasks:summary:" + dateKey(date)

	var cached Summary
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return cached
	}

	reader, ok := s.taskService.(aggregateReader)
	if !ok {
		summary := s.taskService.Summarize(ctx, date)
		s.store(ctx, cacheKey, summary)
		return summary
	}

	summary, err := reader.summarize(ctx, date)
	if err != nil {
		s.log.Warn("summary failed, reporting empty", zap.Error(err))
		return summary
	}
	s.store(ctx, cacheKey, summary)
	return summary
}

func (s *CachedTaskService) GetCacheStats() map[string]interface{} {
	return s.cache.Stats()
}

func (s *CachedTaskService) store(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *CachedTaskService) invalidate(ctx context.Context) {
	if err := s.cache.DeletePattern(ctx, keyTaskPattern); err != nil {
		s.log.Warn("cache invalidation failed", zap.String("pattern", keyTaskPattern), zap.Error(err))
	}
}

func dateKey(date *time.Time) string {
	if date == nil {
		return "all"
	}
	return date.Format(models.DateLayout)
}
