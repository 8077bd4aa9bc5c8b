package intent

import (
	"context"
	"strings"
	"testing"
	"time"

	"pm-bot/backend/internal/database"
	"pm-bot/backend/internal/database/dbtest"
	"pm-bot/backend/internal/dateparse"
	"pm-bot/backend/internal/models"
	"pm-bot/backend/internal/services"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var now = time.Date(2025, 10, 4, 9, 0, 0, 0, time.UTC)

func setupRouter(t *testing.T) (*Router, *gorm.DB) {
	t.Helper()

	clock := clockwork.NewFakeClockAt(now)
	db := dbtest.Open(t, clock.Now)
	require.NoError(t, database.Seed(db))

	router := NewRouter(
		services.NewTaskService(db),
		services.NewProgressService(db),
		dateparse.New(time.UTC, clock),
		nil,
	)
	return router, db
}

func countTasks(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Task{}).Count(&n).Error)
	return n
}

func TestRoute_AssignCreatesTask(t *testing.T) {
	router, db := setupRouter(t)

	reply := router.Route(context.Background(), "assign @bob to 'Write report' due tomorrow 5pm")

	var tasks []models.Task
	require.NoError(t, db.Find(&tasks).Error)
	require.Len(t, tasks, 1)

	task := tasks[0]
	assert.Equal(t, "Write report", task.Title)
	assert.Equal(t, DefaultProjectID, task.ProjectID)
	assert.Nil(t, task.AssigneeID)
	require.NotNil(t, task.DueAt)
	assert.True(t, task.DueAt.Equal(time.Date(2025, 10, 5, 17, 0, 0, 0, time.UTC)))

	assert.Equal(t, "Created task #1: 'Write report' due 2025-10-05T17:00:00Z.", reply)
}

func TestRoute_AssignUnparseableDate(t *testing.T) {
	router, db := setupRouter(t)

	reply := router.Route(context.Background(), "assign @bob to 'Write report' due whenever")

	assert.Equal(t, ParseFailureMessage, reply)
	assert.Zero(t, countTasks(t, db))
}

func TestRoute_AssignRejectsPartialDates(t *testing.T) {
	router, db := setupRouter(t)

	for _, due := range []string{"2025-13-45", "blah blah 5pm on the moon"} {
		reply := router.Route(context.Background(), "assign @bob to 'Write report' due "+due)
		assert.Equal(t, ParseFailureMessage, reply, "due %q", due)
	}
	assert.Zero(t, countTasks(t, db))
}

func TestRoute_Status(t *testing.T) {
	router, db := setupRouter(t)
	ctx := context.Background()
	tasks := services.NewTaskService(db)

	for _, title := range []string{"a", "b", "c"} {
		_, err := tasks.CreateTask(ctx, services.TaskCreate{ProjectID: 1, Title: title})
		require.NoError(t, err)
	}
	_, err := tasks.UpdateTask(ctx, 1, services.TaskUpdate{Status: models.Some(models.StatusDone)})
	require.NoError(t, err)

	reply := router.Route(ctx, "status project 1")
	assert.Equal(t, "Project 1 progress: 33% (counts={done:1, todo:2}).", reply)

	empty := router.Route(ctx, "status project 42")
	assert.Equal(t, "Project 42 progress: 0% (counts={}).", empty)
}

func TestRoute_Mark(t *testing.T) {
	router, db := setupRouter(t)
	ctx := context.Background()

	_, err := services.NewTaskService(db).CreateTask(ctx, services.TaskCreate{ProjectID: 1, Title: "ship"})
	require.NoError(t, err)

	reply := router.Route(ctx, "mark task 1 done")
	assert.Equal(t, "Task #1 marked done.", reply)
	assert.True(t, strings.Contains(reply, "1") && strings.Contains(reply, "done"))

	var task models.Task
	require.NoError(t, db.First(&task, 1).Error)
	assert.Equal(t, models.StatusDone, task.Status)
}

func TestRoute_MarkMissingTask(t *testing.T) {
	router, _ := setupRouter(t)

	reply := router.Route(context.Background(), "mark task 99 blocked")
	assert.Equal(t, "Task #99 not found.", reply)
}

func TestRoute_Fallback(t *testing.T) {
	router, _ := setupRouter(t)

	assert.Equal(t, HelpMessage, router.Route(context.Background(), "good morning"))
}

func TestRoute_AssignWithoutDefaultProject(t *testing.T) {
	clock := clockwork.NewFakeClockAt(now)
	db := dbtest.Open(t, clock.Now)
	router := NewRouter(services.NewTaskService(db), services.NewProgressService(db), dateparse.New(time.UTC, clock), nil)

	reply := router.Route(context.Background(), "assign @bob to 'x' due 2025-10-05 17:00")
	assert.True(t, strings.HasPrefix(reply, "Something went wrong:"), reply)
	assert.Zero(t, countTasks(t, db))
}
