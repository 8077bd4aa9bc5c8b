package intent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"pm-bot/backend/internal/models"
	"pm-bot/backend/internal/services"

	"go.uber.org/zap"
)

// DefaultProjectID receives tasks created from chat; the @user token is
// not resolved to an assignee.
const DefaultProjectID uint = 1

const (
	ParseFailureMessage = "Couldn't parse due date. Try formats like 'tomorrow 5pm' or '2025-10-05 17:00'."
	HelpMessage         = "I can help with: assign, status project <id>, mark task <id> done/blocked/in_progress."
)

type DateParser interface {
	Parse(text string) (time.Time, error)
}

type Router struct {
	tasks     services.TaskService
	progress  services.ProgressService
	dates     DateParser
	projectID uint
	logger    *zap.Logger
}

func NewRouter(tasks services.TaskService, progress services.ProgressService, dates DateParser, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		tasks:     tasks,
		progress:  progress,
		dates:     dates,
		projectID: DefaultProjectID,
		logger:    logger.Named("intent"),
	}
}

// Route executes the command in text and returns the reply to post back.
// Every outcome, including failures, is a reply string.
func (r *Router) Route(ctx context.Context, text string) string {
	cmd := Parse(text)

	r.logger.Debug("routing message", zap.Stringer("intent", cmd.Kind))

	switch cmd.Kind {
	case KindAssign:
		return r.assign(ctx, cmd)
	case KindStatus:
		return r.status(ctx, cmd)
	case KindMark:
		return r.mark(ctx, cmd)
	default:
		return HelpMessage
	}
}

func (r *Router) assign(ctx context.Context, cmd Command) string {
	due, err := r.dates.Parse(cmd.DueText)
	if err != nil {
		r.logger.Debug("due date not understood", zap.String("due", cmd.DueText), zap.Error(err))
		return ParseFailureMessage
	}

	task, err := r.tasks.CreateTask(ctx, services.TaskCreate{
		ProjectID: r.projectID,
		Title:     cmd.Title,
		DueAt:     &due,
	})
	if err != nil {
		return r.failure("assign", err)
	}

	return fmt.Sprintf("Created task #%d: '%s' due %s.", task.ID, task.Title, due.Format(time.RFC3339))
}

func (r *Router) status(ctx context.Context, cmd Command) string {
	progress, err := r.progress.ProjectProgress(ctx, cmd.ProjectID)
	if err != nil {
		return r.failure("status", err)
	}

	return fmt.Sprintf("Project %d progress: %d%% (counts=%s).", cmd.ProjectID, progress.Percent, formatCounts(progress.Counts))
}

func (r *Router) mark(ctx context.Context, cmd Command) string {
	task, err := r.tasks.UpdateTask(ctx, cmd.TaskID, services.TaskUpdate{
		Status: models.Some(cmd.Status),
	})
	if errors.Is(err, services.ErrNotFound) {
		return fmt.Sprintf("Task #%d not found.", cmd.TaskID)
	}
	if err != nil {
		return r.failure("mark", err)
	}

	return fmt.Sprintf("Task #%d marked %s.", task.ID, task.Status)
}

func (r *Router) failure(intent string, err error) string {
	r.logger.Error("intent failed", zap.String("intent", intent), zap.Error(err))
	return fmt.Sprintf("Something went wrong: %v", err)
}

// formatCounts renders counts as {done:2, todo:1} with keys sorted.
func formatCounts(counts map[string]int64) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%d", k, counts[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
