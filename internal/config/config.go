package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	App          AppConfig          `json:"app"`
	Server       ServerConfig       `json:"server"`
	Database     DatabaseConfig     `json:"database"`
	Redis        RedisConfig        `json:"redis"`
	Scheduler    SchedulerConfig    `json:"scheduler"`
	Worker       WorkerConfig       `json:"worker"`
	Slack        SlackConfig        `json:"slack"`
	Integrations IntegrationsConfig `json:"integrations"`
	Auth         AuthConfig         `json:"auth"`
	RateLimit    RateLimitConfig    `json:"rate_limit"`
	CORS         CORSConfig         `json:"cors"`
}

type AppConfig struct {
	Name        string `json:"name"`
	Environment string `json:"environment"`
	Timezone    string `json:"timezone"`
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            string        `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `json:"url"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	LogQueries      bool          `json:"log_queries"`
}

// RedisConfig is optional; an empty Addr disables the redis-backed cache,
// event dedup and reminder queue.
type RedisConfig struct {
	Addr         string        `json:"addr"`
	Password     string        `json:"password"`
	DB           int           `json:"db"`
	PoolSize     int           `json:"pool_size"`
	MinIdleConns int           `json:"min_idle_conns"`
	MaxRetries   int           `json:"max_retries"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

type SchedulerConfig struct {
	Enabled       bool          `json:"enabled"`
	Schedule      string        `json:"schedule"`
	DueSoonWindow time.Duration `json:"due_soon_window"`
}

type WorkerConfig struct {
	Concurrency int    `json:"concurrency"`
	Queue       string `json:"queue"`
}

type SlackConfig struct {
	BotToken      string `json:"-"`
	SigningSecret string `json:"-"`
}

type IntegrationsConfig struct {
	JiraBaseURL  string `json:"jira_base_url"`
	JiraEmail    string `json:"jira_email"`
	JiraAPIToken string `json:"-"`
	GitHubToken  string `json:"-"`
}

type AuthConfig struct {
	JWTSecret string `json:"-"`
	Issuer    string `json:"issuer"`
}

type RateLimitConfig struct {
	Enabled        bool `json:"enabled"`
	RequestsPerMin int  `json:"requests_per_minute"`
	BurstSize      int  `json:"burst_size"`
}

type CORSConfig struct {
	AllowedOrigins []string `json:"allowed_origins"`
}

// LoadConfig reads .env (when present) and then the process environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "pm-bot"),
			Environment: getEnv("ENVIRONMENT", "development"),
			Timezone:    getEnv("TZ", "America/Chicago"),
		},
		Server: ServerConfig{
			Host:            getEnv("HOST", "localhost"),
			Port:            getEnv("PORT", "8000"),
			ReadTimeout:     getEnvAsDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", "sqlite://pm_bot.db"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
			LogQueries:      getEnvAsBool("DB_LOG_QUERIES", false),
		},
		Redis: RedisConfig{
			Addr:         getEnv("REDIS_ADDR", ""),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
			MaxRetries:   getEnvAsInt("REDIS_MAX_RETRIES", 3),
			DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvAsDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Scheduler: SchedulerConfig{
			Enabled:       getEnvAsBool("SCHEDULER_ENABLED", true),
			Schedule:      getEnv("SCAN_SCHEDULE", "*/15 * * * *"),
			DueSoonWindow: getEnvAsDuration("DUE_SOON_WINDOW", 24*time.Hour),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvAsInt("WORKER_CONCURRENCY", 2),
			Queue:       getEnv("WORKER_QUEUE", "reminders"),
		},
		Slack: SlackConfig{
			BotToken:      getEnv("SLACK_BOT_TOKEN", ""),
			SigningSecret: getEnv("SLACK_SIGNING_SECRET", ""),
		},
		Integrations: IntegrationsConfig{
			JiraBaseURL:  getEnv("JIRA_BASE_URL", ""),
			JiraEmail:    getEnv("JIRA_EMAIL", ""),
			JiraAPIToken: getEnv("JIRA_API_TOKEN", ""),
			GitHubToken:  getEnv("GITHUB_TOKEN", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("API_JWT_SECRET", ""),
			Issuer:    getEnv("API_JWT_ISSUER", "pm-bot"),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMin: getEnvAsInt("RATE_LIMIT_RPM", 300),
			BurstSize:      getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{
				"http://localhost:5173",
				"http://127.0.0.1:5173",
			}),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid TZ %q: %w", c.App.Timezone, err)
	}

	if _, err := cron.ParseStandard(c.Scheduler.Schedule); err != nil {
		return fmt.Errorf("invalid SCAN_SCHEDULE %q: %w", c.Scheduler.Schedule, err)
	}

	if c.Scheduler.DueSoonWindow <= 0 {
		return fmt.Errorf("DUE_SOON_WINDOW must be positive")
	}

	if c.IsProduction() && c.Slack.BotToken != "" && c.Slack.SigningSecret == "" {
		return fmt.Errorf("slack signing secret is required in production")
	}

	return nil
}

// Location returns the configured timezone; Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
