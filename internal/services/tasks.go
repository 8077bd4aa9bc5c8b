package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pm-bot/backend/internal/models"

	"gorm.io/gorm"
)

type TaskCreate struct {
	ProjectID   uint
	Title       string
	Description *string
	AssigneeID  *uint
	DueAt       *time.Time
	Priority    *int
}

// TaskUpdate is a partial update: only fields with Set == true are applied.
type TaskUpdate struct {
	Title       models.Optional[string]
	Description models.Optional[string]
	AssigneeID  models.Optional[uint]
	DueAt       models.Optional[time.Time]
	Status      models.Optional[string]
	Priority    models.Optional[int]
}

type TaskFilter struct {
	ProjectID *uint
	Status    *string
}

type TaskService interface {
	CreateTask(ctx context.Context, input TaskCreate) (*models.Task, error)
	GetTask(ctx context.Context, id uint) (*models.Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]models.Task, error)
	UpdateTask(ctx context.Context, id uint, update TaskUpdate) (*models.Task, error)
}

type TaskServiceImpl struct {
	db *gorm.DB
}

func NewTaskService(db *gorm.DB) *TaskServiceImpl {
	return &TaskServiceImpl{db: db}
}

func (s *TaskServiceImpl) CreateTask(ctx context.Context, input TaskCreate) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Message: "is required"}
	}

	priority := models.DefaultPriority
	if input.Priority != nil {
		priority = *input.Priority
	}
	if !models.ValidPriority(priority) {
		return nil, &ValidationError{Field: "priority", Message: "must be between 1 and 5"}
	}

	task := models.Task{
		ProjectID:   input.ProjectID,
		Title:       title,
		Description: input.Description,
		AssigneeID:  input.AssigneeID,
		DueAt:       normalizeDue(input.DueAt),
		Status:      models.StatusTodo,
		Priority:    priority,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Project{}, input.ProjectID).Error; err != nil {
			return notFound("project", input.ProjectID, err)
		}
		if err := checkAssignee(tx, task.AssigneeID); err != nil {
			return err
		}
		return tx.Create(&task).Error
	})
	if err != nil {
		return nil, err
	}

	return &task, nil
}

func (s *TaskServiceImpl) GetTask(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	if err := s.db.WithContext(ctx).Preload("Assignee").First(&task, id).Error; err != nil {
		return nil, notFound("task", id, err)
	}
	return &task, nil
}

// ListTasks orders by priority (1 first), then due date with undated tasks last.
func (s *TaskServiceImpl) ListTasks(ctx context.Context, filter TaskFilter) ([]models.Task, error) {
	query := s.db.WithContext(ctx).Preload("Assignee")
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	tasks := []models.Task{}
	err := query.
		Order("priority ASC").
		Order("due_at IS NULL").
		Order("due_at ASC").
		Order("id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskServiceImpl) UpdateTask(ctx context.Context, id uint, update TaskUpdate) (*models.Task, error) {
	var task models.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&task, id).Error; err != nil {
			return notFound("task", id, err)
		}
		if err := update.ApplyTo(&task); err != nil {
			return err
		}
		if update.AssigneeID.Set {
			if err := checkAssignee(tx, task.AssigneeID); err != nil {
				return err
			}
		}
		task.DueAt = normalizeDue(task.DueAt)
		return tx.Save(&task).Error
	})
	if err != nil {
		return nil, err
	}

	return &task, nil
}

// ApplyTo merges the fields present in u into task. Nullable columns accept
// null; title, status and priority do not.
func (u TaskUpdate) ApplyTo(task *models.Task) error {
	if u.Title.Set {
		if u.Title.Value == nil || strings.TrimSpace(*u.Title.Value) == "" {
			return &ValidationError{Field: "title", Message: "must not be empty"}
		}
		task.Title = strings.TrimSpace(*u.Title.Value)
	}
	if u.Description.Set {
		task.Description = u.Description.Value
	}
	if u.AssigneeID.Set {
		task.AssigneeID = u.AssigneeID.Value
	}
	if u.DueAt.Set {
		task.DueAt = u.DueAt.Value
	}
	if u.Status.Set {
		if u.Status.Value == nil || !models.ValidStatus(*u.Status.Value) {
			return &ValidationError{Field: "status", Message: "must be one of todo, in_progress, done, blocked"}
		}
		task.Status = *u.Status.Value
	}
	if u.Priority.Set {
		if u.Priority.Value == nil || !models.ValidPriority(*u.Priority.Value) {
			return &ValidationError{Field: "priority", Message: "must be between 1 and 5"}
		}
		task.Priority = *u.Priority.Value
	}
	return nil
}

func checkAssignee(tx *gorm.DB, assigneeID *uint) error {
	if assigneeID == nil {
		return nil
	}
	var count int64
	if err := tx.Model(&models.User{}).Where("id = ?", *assigneeID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return &ValidationError{Field: "assignee_id", Message: fmt.Sprintf("user %d does not exist", *assigneeID)}
	}
	return nil
}

// normalizeDue stores due dates in UTC. Zone-less input has already been
// read as UTC at the edges, so the instant is unchanged.
func normalizeDue(due *time.Time) *time.Time {
	if due == nil {
		return nil
	}
	utc := due.UTC()
	return &utc
}
