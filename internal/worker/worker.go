package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type JobType string

const (
	JobTypeDueReminder JobType = "due_reminder"
)

const (
	defaultMaxTries    = 3
	defaultJobTimeout  = 30 * time.Second
	defaultPollTimeout = 5 * time.Second
)

type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	MaxTries  int             `json:"max_tries"`
	CreatedAt time.Time       `json:"created_at"`
	ProcessAt time.Time       `json:"process_at"`
	LastError string          `json:"last_error,omitempty"`
}

type JobHandler func(ctx context.Context, job *Job) error

// DeadQueue names the list that holds jobs which exhausted their retries.
func DeadQueue(queue string) string {
	return queue + ":dead"
}

type Worker struct {
	client      *redis.Client
	handlers    map[JobType]JobHandler
	queue       string
	pollTimeout time.Duration
	clock       clockwork.Clock
	logger      *zap.Logger

	mu     sync.RWMutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type WorkerConfig struct {
	RedisClient *redis.Client
	Queue       string
	PollTimeout time.Duration
	Clock       clockwork.Clock
	Logger      *zap.Logger
}

func NewWorker(config WorkerConfig) *Worker {
	if config.PollTimeout <= 0 {
		config.PollTimeout = defaultPollTimeout
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Worker{
		client:      config.RedisClient,
		handlers:    make(map[JobType]JobHandler),
		queue:       config.Queue,
		pollTimeout: config.PollTimeout,
		clock:       config.Clock,
		logger:      config.Logger.Named("worker"),
	}
}

func (w *Worker) RegisterHandler(jobType JobType, handler JobHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobType] = handler
}

func (w *Worker) Start(ctx context.Context, concurrency int) {
	if concurrency < 1 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	w.logger.Info("starting worker", zap.Int("concurrency", concurrency), zap.String("queue", w.queue))

	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx)
	}
}

// Stop cancels in-flight polling and waits for every goroutine to exit.
func (w *Worker) Stop() {
	w.mu.RLock()
	cancel := w.cancel
	w.mu.RUnlock()

	if cancel == nil {
		return
	}
	cancel()
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

func (w *Worker) workerLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		if err := w.processNextJob(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Warn("error processing job", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-w.clock.After(time.Second):
			}
		}
	}
}

func (w *Worker) processNextJob(ctx context.Context) error {
	result, err := w.client.BLPop(ctx, w.pollTimeout, w.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("failed to pop job: %w", err)
	}

	if len(result) < 2 {
		return fmt.Errorf("invalid job result")
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}

	if w.clock.Now().Before(job.ProcessAt) {
		if err := w.push(ctx, w.queue, &job); err != nil {
			return err
		}
		// Not due yet; back off so a lone delayed job does not spin.
		select {
		case <-ctx.Done():
		case <-w.clock.After(100 * time.Millisecond):
		}
		return nil
	}

	return w.executeJob(ctx, &job)
}

func (w *Worker) executeJob(ctx context.Context, job *Job) error {
	w.mu.RLock()
	handler, exists := w.handlers[job.Type]
	w.mu.RUnlock()

	log := w.logger.With(zap.String("job_id", job.ID), zap.String("job_type", string(job.Type)))

	if !exists {
		return w.moveToDeadQueue(ctx, job, fmt.Errorf("no handler registered for job type: %s", job.Type))
	}

	log.Debug("processing job")

	jobCtx, cancel := context.WithTimeout(ctx, defaultJobTimeout)
	defer cancel()

	if err := handler(jobCtx, job); err != nil {
		job.Attempts++
		job.LastError = err.Error()
		if job.Attempts < job.MaxTries {
			log.Warn("job failed, retrying", zap.Int("attempt", job.Attempts), zap.Int("max_tries", job.MaxTries), zap.Error(err))
			return w.retryJob(ctx, job)
		}

		log.Error("job failed permanently", zap.Int("attempts", job.Attempts), zap.Error(err))
		return w.moveToDeadQueue(ctx, job, err)
	}

	log.Debug("job completed")
	return nil
}

// retryJob requeues with exponential backoff: 2s, 4s, 8s...
func (w *Worker) retryJob(ctx context.Context, job *Job) error {
	delay := time.Duration(1<<job.Attempts) * time.Second
	job.ProcessAt = w.clock.Now().Add(delay)

	return w.push(ctx, w.queue, job)
}

func (w *Worker) push(ctx context.Context, queue string, job *Job) error {
	jobData, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return w.client.RPush(ctx, queue, jobData).Err()
}

func (w *Worker) moveToDeadQueue(ctx context.Context, job *Job, jobErr error) error {
	deadJob := map[string]interface{}{
		"original_job": job,
		"error":        jobErr.Error(),
		"failed_at":    w.clock.Now(),
	}

	deadJobData, err := json.Marshal(deadJob)
	if err != nil {
		return fmt.Errorf("failed to marshal dead job: %w", err)
	}

	return w.client.RPush(ctx, DeadQueue(w.queue), deadJobData).Err()
}

type JobQueue struct {
	client *redis.Client
	clock  clockwork.Clock
}

func NewJobQueue(client *redis.Client, clock clockwork.Clock) *JobQueue {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &JobQueue{client: client, clock: clock}
}

func (q *JobQueue) Enqueue(ctx context.Context, queue string, jobType JobType, payload interface{}) (*Job, error) {
	return q.EnqueueAt(ctx, queue, jobType, payload, q.clock.Now())
}

func (q *JobQueue) EnqueueAt(ctx context.Context, queue string, jobType JobType, payload interface{}, processAt time.Time) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate job id: %w", err)
	}

	job := &Job{
		ID:        id.String(),
		Type:      jobType,
		Payload:   raw,
		MaxTries:  defaultMaxTries,
		CreatedAt: q.clock.Now(),
		ProcessAt: processAt,
	}

	jobData, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := q.client.RPush(ctx, queue, jobData).Err(); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}
	return job, nil
}

func (q *JobQueue) GetQueueSize(ctx context.Context, queue string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return q.client.LLen(ctx, queue).Result()
}
