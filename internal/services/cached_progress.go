package services

import (
	"context"
	"fmt"
	"time"

	"pm-bot/backend/internal/cache"
	"pm-bot/backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const progressTTL = time.Minute

func progressKey(projectID uint) string {
	return fmt.Sprintf("progress:%d", projectID)
}

// CachedProgressService memoizes project progress. Cache failures are logged
// and fall through to the database.
type CachedProgressService struct {
	progress ProgressService
	cache    cache.Cache
	logger   *zap.Logger
}

func NewCachedProgressService(progress ProgressService, c cache.Cache, logger *zap.Logger) *CachedProgressService {
	return &CachedProgressService{progress: progress, cache: c, logger: logger}
}

func (s *CachedProgressService) ProjectProgress(ctx context.Context, projectID uint) (*Progress, error) {
	key := progressKey(projectID)

	var cached Progress
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if err != cache.ErrCacheMiss {
		s.logger.Warn("progress cache read failed", zap.String("key", key), zap.Error(err))
	}

	progress, err := s.progress.ProjectProgress(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, progress, progressTTL); err != nil {
		s.logger.Warn("progress cache write failed", zap.String("key", key), zap.Error(err))
	}
	return progress, nil
}

// Invalidate drops the cached progress for one project.
func (s *CachedProgressService) Invalidate(ctx context.Context, projectID uint) {
	if err := s.cache.Delete(ctx, progressKey(projectID)); err != nil {
		s.logger.Warn("progress cache invalidation failed", zap.Uint("project_id", projectID), zap.Error(err))
	}
}

// InvalidateAll is used after a reminder scan, which may touch any project.
func (s *CachedProgressService) InvalidateAll(ctx context.Context) {
	if err := s.cache.DeletePattern(ctx, "progress:*"); err != nil {
		s.logger.Warn("progress cache invalidation failed", zap.Error(err))
	}
}

// WarmProgress fills the cache for every project. Called once at startup.
func (s *CachedProgressService) WarmProgress(ctx context.Context, db *gorm.DB) error {
	var ids []uint
	if err := db.WithContext(ctx).Model(&models.Project{}).Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("failed to list projects for warming: %w", err)
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := s.ProjectProgress(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// CachedTaskService wraps a TaskService and drops the affected project's
// progress entry after every write.
type CachedTaskService struct {
	TaskService
	progress *CachedProgressService
}

func NewCachedTaskService(tasks TaskService, progress *CachedProgressService) *CachedTaskService {
	return &CachedTaskService{TaskService: tasks, progress: progress}
}

func (s *CachedTaskService) CreateTask(ctx context.Context, input TaskCreate) (*models.Task, error) {
	task, err := s.TaskService.CreateTask(ctx, input)
	if err != nil {
		return nil, err
	}
	s.progress.Invalidate(ctx, task.ProjectID)
	return task, nil
}

func (s *CachedTaskService) UpdateTask(ctx context.Context, id uint, update TaskUpdate) (*models.Task, error) {
	task, err := s.TaskService.UpdateTask(ctx, id, update)
	if err != nil {
		return nil, err
	}
	s.progress.Invalidate(ctx, task.ProjectID)
	return task, nil
}
