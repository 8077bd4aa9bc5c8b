package services

import (
	"context"
	"fmt"
	"strings"

	"pm-bot/backend/internal/models"

	"gorm.io/gorm"
)

type UserCreate struct {
	Name        string
	ExternalRef *string
}

type UserService interface {
	CreateUser(ctx context.Context, input UserCreate) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

type UserServiceImpl struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserServiceImpl {
	return &UserServiceImpl{db: db}
}

func (s *UserServiceImpl) CreateUser(ctx context.Context, input UserCreate) (*models.User, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}

	user := models.User{Name: name, ExternalRef: input.ExternalRef}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

func (s *UserServiceImpl) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
