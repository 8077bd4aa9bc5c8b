package services

import (
	"context"
	"errors"
	"time"

	"pm-bot/backend/internal/models"

	"go.uber.org/zap"
)

// DueReport is what a reminder scan hands to its Notifier.
type DueReport struct {
	Overdue     []models.Task `json:"overdue"`
	DueSoon     []models.Task `json:"due_soon"`
	GeneratedAt time.Time     `json:"generated_at"`
}

func (r DueReport) Empty() bool {
	return len(r.Overdue) == 0 && len(r.DueSoon) == 0
}

type Notifier interface {
	Notify(ctx context.Context, report DueReport) error
}

type NotifierFunc func(ctx context.Context, report DueReport) error

func (f NotifierFunc) Notify(ctx context.Context, report DueReport) error {
	return f(ctx, report)
}

type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, report DueReport) error {
	if report.Empty() {
		return nil
	}

	n.logger.Info("reminders",
		zap.Int("overdue", len(report.Overdue)),
		zap.Int("due_soon", len(report.DueSoon)),
		zap.Time("generated_at", report.GeneratedAt),
	)
	return nil
}

// MultiNotifier fans a report out to every notifier and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, report DueReport) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
