package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pm-bot/backend/internal/services"

	"go.uber.org/zap"
)

// ReminderPayload is the body of a due_reminder job. Only ids and titles
// travel; handlers reload anything else they need.
type ReminderPayload struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Overdue     []ReminderTask `json:"overdue"`
	DueSoon     []ReminderTask `json:"due_soon"`
}

type ReminderTask struct {
	ID         uint       `json:"id"`
	ProjectID  uint       `json:"project_id"`
	Title      string     `json:"title"`
	AssigneeID *uint      `json:"assignee_id,omitempty"`
	DueAt      *time.Time `json:"due_at,omitempty"`
}

func NewReminderPayload(report services.DueReport) ReminderPayload {
	payload := ReminderPayload{
		GeneratedAt: report.GeneratedAt,
		Overdue:     make([]ReminderTask, 0, len(report.Overdue)),
		DueSoon:     make([]ReminderTask, 0, len(report.DueSoon)),
	}
	for _, t := range report.Overdue {
		payload.Overdue = append(payload.Overdue, ReminderTask{ID: t.ID, ProjectID: t.ProjectID, Title: t.Title, AssigneeID: t.AssigneeID, DueAt: t.DueAt})
	}
	for _, t := range report.DueSoon {
		payload.DueSoon = append(payload.DueSoon, ReminderTask{ID: t.ID, ProjectID: t.ProjectID, Title: t.Title, AssigneeID: t.AssigneeID, DueAt: t.DueAt})
	}
	return payload
}

// QueueNotifier hands non-empty scan reports to the worker queue.
type QueueNotifier struct {
	queue *JobQueue
	name  string
}

func NewQueueNotifier(queue *JobQueue, name string) *QueueNotifier {
	return &QueueNotifier{queue: queue, name: name}
}

func (n *QueueNotifier) Notify(ctx context.Context, report services.DueReport) error {
	if report.Empty() {
		return nil
	}

	if _, err := n.queue.Enqueue(ctx, n.name, JobTypeDueReminder, NewReminderPayload(report)); err != nil {
		return fmt.Errorf("failed to queue reminders: %w", err)
	}
	return nil
}

// ReminderHandler logs each reminder; nothing is posted to chat.
func ReminderHandler(logger *zap.Logger) JobHandler {
	return func(ctx context.Context, job *Job) error {
		var payload ReminderPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("invalid due_reminder payload: %w", err)
		}

		for _, t := range payload.Overdue {
			logger.Info("task overdue", zap.Uint("task_id", t.ID), zap.Uint("project_id", t.ProjectID), zap.String("title", t.Title))
		}
		for _, t := range payload.DueSoon {
			logger.Info("task due soon", zap.Uint("task_id", t.ID), zap.Uint("project_id", t.ProjectID), zap.String("title", t.Title))
		}
		return nil
	}
}
