// Package server assembles the API process: storage, caches, services,
// background jobs and the HTTP surface.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"pm-bot/backend/internal/cache"
	"pm-bot/backend/internal/chat"
	"pm-bot/backend/internal/config"
	"pm-bot/backend/internal/database"
	"pm-bot/backend/internal/dateparse"
	"pm-bot/backend/internal/integrations"
	"pm-bot/backend/internal/intent"
	"pm-bot/backend/internal/monitoring"
	"pm-bot/backend/internal/scheduler"
	"pm-bot/backend/internal/services"
	"pm-bot/backend/internal/worker"

	"github.com/jonboulle/clockwork"
	"github.com/slack-go/slack"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// cacheSweepInterval is how often expired in-process cache entries, such as
// chat dedup keys, are dropped.
const cacheSweepInterval = time.Minute

type App struct {
	config *config.Config
	logger *zap.Logger
	clock  clockwork.Clock

	pool  *database.DatabasePool
	redis *cache.RedisCache
	cache *cache.MultiLevelCache

	tasks     services.TaskService
	projects  services.ProjectService
	users     services.UserService
	progress  *services.CachedProgressService
	reminders *services.ReminderService

	scheduler *scheduler.Scheduler
	worker    *worker.Worker
	slack     *chat.SlackHandler
	monitor   *monitoring.Monitor
	issues    integrations.IssueTracker
	pulls     integrations.PullRequestSource

	server  *http.Server
	baseCtx context.Context
	cancel  context.CancelFunc
}

type Option func(*options)

type options struct {
	clock  clockwork.Clock
	poster chat.Poster
}

// WithClock replaces the wall clock used by the scan, caches and breakers.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithSlackPoster overrides the chat client built from SLACK_BOT_TOKEN.
func WithSlackPoster(poster chat.Poster) Option {
	return func(o *options) { o.poster = poster }
}

// New opens the database, migrates it and wires every component. Nothing
// runs in the background until Run.
func New(cfg *config.Config, log *zap.Logger, opts ...Option) (*App, error) {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{config: cfg, logger: log, clock: o.clock}
	a.baseCtx, a.cancel = context.WithCancel(context.Background())

	if err := a.openDatabase(); err != nil {
		a.cancel()
		return nil, err
	}
	a.openCache()

	a.monitor = monitoring.New(a.clock)
	a.monitor.RegisterCheck("database", func(context.Context) error { return a.pool.Health() })
	if a.redis != nil {
		a.monitor.RegisterCheck("redis", a.redis.Health)
	}

	if err := a.buildServices(); err != nil {
		a.closeStores()
		a.cancel()
		return nil, err
	}
	a.buildChat(o.poster)

	if err := a.buildIntegrations(); err != nil {
		a.closeStores()
		a.cancel()
		return nil, err
	}

	a.server = &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      a.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return a, nil
}

func (a *App) openDatabase() error {
	level := logger.Warn
	if a.config.Database.LogQueries {
		level = logger.Info
	}

	pool, err := database.NewDatabasePool(&database.PoolConfig{
		URL:             a.config.Database.URL,
		MaxOpenConns:    a.config.Database.MaxOpenConns,
		MaxIdleConns:    a.config.Database.MaxIdleConns,
		ConnMaxLifetime: a.config.Database.ConnMaxLifetime,
		ConnMaxIdleTime: a.config.Database.ConnMaxIdleTime,
		LogLevel:        level,
		Logger:          a.logger,
		NowFunc:         a.clock.Now,
	})
	if err != nil {
		return err
	}
	if err := database.Migrate(pool.DB); err != nil {
		pool.Close()
		return err
	}

	a.pool = pool
	return nil
}

func (a *App) openCache() {
	if !a.config.RedisEnabled() {
		a.cache = cache.NewMemoryOnlyCache(cache.NewMemoryCacheWithClock(a.clock))
		return
	}

	rc := a.config.Redis
	a.redis = cache.NewRedisCache(&cache.CacheConfig{
		Addr:         rc.Addr,
		Password:     rc.Password,
		DB:           rc.DB,
		PoolSize:     rc.PoolSize,
		MinIdleConns: rc.MinIdleConns,
		MaxRetries:   rc.MaxRetries,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
		KeyPrefix:    a.config.App.Name + ":",
	})
	a.cache = cache.NewMultiLevelCache(a.redis)
}

func (a *App) buildServices() error {
	db := a.pool.DB

	a.progress = services.NewCachedProgressService(services.NewProgressService(db), a.cache, a.logger)
	a.tasks = services.NewCachedTaskService(services.NewTaskService(db), a.progress)
	a.projects = services.NewProjectService(db)
	a.users = services.NewUserService(db)

	notifiers := services.MultiNotifier{services.NewLogNotifier(a.logger)}
	if a.redis != nil {
		queue := worker.NewJobQueue(a.redis.Client(), a.clock)
		notifiers = append(notifiers, worker.NewQueueNotifier(queue, a.config.Worker.Queue))

		a.worker = worker.NewWorker(worker.WorkerConfig{
			RedisClient: a.redis.Client(),
			Queue:       a.config.Worker.Queue,
			Clock:       a.clock,
			Logger:      a.logger,
		})
		a.worker.RegisterHandler(worker.JobTypeDueReminder, worker.ReminderHandler(a.logger.Named("reminders")))
	}

	a.reminders = services.NewReminderService(db, a.logger,
		services.WithClock(a.clock),
		services.WithDueSoonWindow(a.config.Scheduler.DueSoonWindow),
		services.WithNotifier(notifiers),
		services.WithAfterScan(a.progress.InvalidateAll),
	)

	if a.config.Scheduler.Enabled {
		s, err := scheduler.New(a.reminders, scheduler.Config{
			Schedule: a.config.Scheduler.Schedule,
			Location: a.config.Location(),
			Logger:   a.logger,
		})
		if err != nil {
			return err
		}
		a.scheduler = s
	}
	return nil
}

func (a *App) buildChat(poster chat.Poster) {
	if poster == nil && a.config.Slack.BotToken != "" {
		poster = slack.New(a.config.Slack.BotToken)
	}

	dates := dateparse.New(a.config.Location(), a.clock)
	router := intent.NewRouter(a.tasks, a.progress, dates, a.logger)

	a.slack = chat.NewSlackHandler(chat.SlackConfig{
		SigningSecret: a.config.Slack.SigningSecret,
		Router:        router,
		Poster:        poster,
		Deduper:       chat.NewCacheDeduper(a.cache),
		Logger:        a.logger,
		BaseContext:   a.baseCtx,
	})
}

// buildIntegrations picks live sources when credentials are configured and
// the static stand-ins otherwise.
func (a *App) buildIntegrations() error {
	ic := a.config.Integrations

	a.issues = integrations.StaticTracker{}
	jira := integrations.JiraConfig{BaseURL: ic.JiraBaseURL, Email: ic.JiraEmail, APIToken: ic.JiraAPIToken}
	if jira.Enabled() {
		tracker, err := integrations.NewJiraTracker(jira)
		if err != nil {
			return err
		}
		a.issues = integrations.NewBreakerTracker(tracker, integrations.NewCircuitBreaker(nil, a.clock))
	}

	a.pulls = integrations.StaticPulls{}
	if ic.GitHubToken != "" {
		a.pulls = integrations.NewBreakerPulls(
			integrations.NewGitHubPulls(ic.GitHubToken, a.clock),
			integrations.NewCircuitBreaker(nil, a.clock),
		)
	}

	a.logger.Info("integrations configured",
		zap.Bool("jira", jira.Enabled()),
		zap.Bool("github", ic.GitHubToken != ""),
	)
	return nil
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

func (a *App) DB() *gorm.DB {
	return a.pool.DB
}

func (a *App) Reminders() *services.ReminderService {
	return a.reminders
}

// Run starts the background jobs and serves HTTP until ctx is cancelled,
// then shuts everything down within the configured timeout.
func (a *App) Run(ctx context.Context) error {
	if err := a.progress.WarmProgress(ctx, a.pool.DB); err != nil {
		a.logger.Warn("progress cache warm-up failed", zap.Error(err))
	}

	a.startBackground()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
	case serveErr = <-errCh:
		if serveErr != nil {
			serveErr = fmt.Errorf("http server failed: %w", serveErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()
	return errors.Join(serveErr, a.Shutdown(shutdownCtx))
}

func (a *App) startBackground() {
	a.cache.StartJanitor(cacheSweepInterval)
	if a.scheduler != nil {
		a.scheduler.Start(a.baseCtx)
	}
	if a.worker != nil {
		a.worker.Start(a.baseCtx, a.config.Worker.Concurrency)
	}
}

// Shutdown stops accepting requests, then drains the scheduler, worker and
// chat goroutines before closing the stores.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("scheduler stop: %w", err))
		}
	}
	if a.worker != nil {
		a.worker.Stop()
	}
	a.slack.Wait()
	a.cancel()

	errs = append(errs, a.closeStores())
	return errors.Join(errs...)
}

func (a *App) closeStores() error {
	var errs []error
	if err := a.cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("cache close: %w", err))
	}
	if err := a.pool.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database close: %w", err))
	}
	return errors.Join(errs...)
}
