package services

import (
	"context"
	"fmt"

	"pm-bot/backend/internal/models"

	"gorm.io/gorm"
)

// Progress summarises a project's tasks. Statuses with no tasks are absent
// from Counts.
type Progress struct {
	ProjectID uint             `json:"project_id"`
	Percent   int              `json:"percent"`
	Counts    map[string]int64 `json:"counts"`
	Total     int64            `json:"total"`
}

type ProgressService interface {
	ProjectProgress(ctx context.Context, projectID uint) (*Progress, error)
}

type ProgressServiceImpl struct {
	db *gorm.DB
}

func NewProgressService(db *gorm.DB) *ProgressServiceImpl {
	return &ProgressServiceImpl{db: db}
}

// ProjectProgress reports zeros for a project with no tasks, including one
// that does not exist.
func (s *ProgressServiceImpl) ProjectProgress(ctx context.Context, projectID uint) (*Progress, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.Task{}).
		Select("status, COUNT(*) AS count").
		Where("project_id = ?", projectID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks for project %d: %w", projectID, err)
	}

	counts := map[string]int64{}
	var total int64
	for _, row := range rows {
		counts[row.Status] = row.Count
		total += row.Count
	}

	return &Progress{
		ProjectID: projectID,
		Percent:   percentDone(counts[models.StatusDone], total),
		Counts:    counts,
		Total:     total,
	}, nil
}

// percentDone rounds half up: 1 of 8 done is 13%.
func percentDone(done, total int64) int {
	if total == 0 {
		return 0
	}
	return int((done*200 + total) / (2 * total))
}
