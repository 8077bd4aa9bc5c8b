package services

import (
	"context"
	"testing"
	"time"

	"pm-bot/backend/internal/database/dbtest"
	"pm-bot/backend/internal/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var baseTime = time.Date(2025, 10, 5, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db      *gorm.DB
	clock   *clockwork.FakeClock
	project *models.Project
	user    *models.User
	tasks   *TaskServiceImpl
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := clockwork.NewFakeClockAt(baseTime)
	db := dbtest.Open(t, clock.Now)

	project := &models.Project{Name: "Launch"}
	require.NoError(t, db.Create(project).Error)
	user := &models.User{Name: "Alice"}
	require.NoError(t, db.Create(user).Error)

	return &fixture{
		db:      db,
		clock:   clock,
		project: project,
		user:    user,
		tasks:   NewTaskService(db),
	}
}

func (f *fixture) createTask(t *testing.T, title string, priority int, due *time.Time) *models.Task {
	t.Helper()

	task, err := f.tasks.CreateTask(context.Background(), TaskCreate{
		ProjectID: f.project.ID,
		Title:     title,
		Priority:  &priority,
		DueAt:     due,
	})
	require.NoError(t, err)
	return task
}

func (f *fixture) setStatus(t *testing.T, id uint, status string) {
	t.Helper()

	_, err := f.tasks.UpdateTask(context.Background(), id, TaskUpdate{Status: models.Some(status)})
	require.NoError(t, err)
}

func ptr[T any](v T) *T {
	return &v
}
