package services

import (
	"context"
	"fmt"
	"time"

	"pm-bot/backend/internal/models"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const DefaultDueSoonWindow = 24 * time.Hour

type ScanResult struct {
	Overdue   []models.Task
	DueSoon   []models.Task
	Marked    int
	ScannedAt time.Time
}

func (r *ScanResult) Report() DueReport {
	return DueReport{Overdue: r.Overdue, DueSoon: r.DueSoon, GeneratedAt: r.ScannedAt}
}

type ReminderService struct {
	db       *gorm.DB
	clock    clockwork.Clock
	window   time.Duration
	notifier Notifier
	logger   *zap.Logger

	// onScan runs after a successful commit; used to drop cached progress.
	onScan func(ctx context.Context)
}

type ReminderOption func(*ReminderService)

func WithClock(clock clockwork.Clock) ReminderOption {
	return func(s *ReminderService) { s.clock = clock }
}

func WithDueSoonWindow(window time.Duration) ReminderOption {
	return func(s *ReminderService) {
		if window > 0 {
			s.window = window
		}
	}
}

func WithNotifier(n Notifier) ReminderOption {
	return func(s *ReminderService) { s.notifier = n }
}

func WithAfterScan(fn func(ctx context.Context)) ReminderOption {
	return func(s *ReminderService) { s.onScan = fn }
}

func NewReminderService(db *gorm.DB, logger *zap.Logger, opts ...ReminderOption) *ReminderService {
	s := &ReminderService{
		db:     db,
		clock:  clockwork.NewRealClock(),
		window: DefaultDueSoonWindow,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = NewLogNotifier(logger)
	}
	return s
}

// Scan classifies every open task with a due date. Tasks already past due
// are flagged is_overdue; tasks due within the window are reported only.
// The flag is never cleared, even if the due date later moves out.
func (s *ReminderService) Scan(ctx context.Context) (*ScanResult, error) {
	now := s.clock.Now().UTC()
	soon := now.Add(s.window)
	result := &ScanResult{ScannedAt: now}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tasks []models.Task
		err := tx.Where("due_at IS NOT NULL AND status <> ?", models.StatusDone).
			Order("due_at ASC").
			Order("id ASC").
			Find(&tasks).Error
		if err != nil {
			return fmt.Errorf("failed to load candidate tasks: %w", err)
		}

		var toMark []uint
		for _, task := range tasks {
			due := task.DueAt.UTC()
			switch {
			case due.Before(now):
				if !task.IsOverdue {
					toMark = append(toMark, task.ID)
					task.IsOverdue = true
				}
				result.Overdue = append(result.Overdue, task)
			case !due.After(soon):
				result.DueSoon = append(result.DueSoon, task)
			}
		}

		if len(toMark) == 0 {
			return nil
		}
		res := tx.Model(&models.Task{}).Where("id IN ?", toMark).Update("is_overdue", true)
		if res.Error != nil {
			return fmt.Errorf("failed to mark overdue tasks: %w", res.Error)
		}
		result.Marked = int(res.RowsAffected)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("reminder scan complete",
		zap.Int("overdue", len(result.Overdue)),
		zap.Int("due_soon", len(result.DueSoon)),
		zap.Int("marked", result.Marked),
	)

	if result.Marked > 0 && s.onScan != nil {
		s.onScan(ctx)
	}

	if err := s.notifier.Notify(ctx, result.Report()); err != nil {
		return result, fmt.Errorf("failed to deliver reminders: %w", err)
	}
	return result, nil
}
