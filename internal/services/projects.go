package services

import (
	"context"
	"fmt"
	"strings"

	"pm-bot/backend/internal/models"

	"gorm.io/gorm"
)

type ProjectCreate struct {
	Name        string
	Description *string
}

type ProjectService interface {
	CreateProject(ctx context.Context, input ProjectCreate) (*models.Project, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
}

type ProjectServiceImpl struct {
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectServiceImpl {
	return &ProjectServiceImpl{db: db}
}

func (s *ProjectServiceImpl) CreateProject(ctx context.Context, input ProjectCreate) (*models.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}

	project := models.Project{Name: name, Description: input.Description}
	if err := s.db.WithContext(ctx).Create(&project).Error; err != nil {
		return nil, conflict(fmt.Sprintf("project %q", name), err)
	}
	return &project, nil
}

func (s *ProjectServiceImpl) ListProjects(ctx context.Context) ([]models.Project, error) {
	projects := []models.Project{}
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}
