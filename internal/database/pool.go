package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type PoolConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	LogLevel        logger.LogLevel
	Logger          *zap.Logger
	NowFunc         func() time.Time
}

type DatabasePool struct {
	DB     *gorm.DB
	config *PoolConfig
}

func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
		LogLevel:        logger.Warn,
	}
}

// NewDatabasePool opens the database named by config.URL. postgres:// and
// postgresql:// URLs use the postgres driver; sqlite://<path>, file: and
// :memory: use sqlite.
func NewDatabasePool(config *PoolConfig) (*DatabasePool, error) {
	if config == nil {
		config = DefaultPoolConfig()
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	dialector, inMemory, err := dialectorFor(config.URL)
	if err != nil {
		return nil, err
	}

	gormConfig := &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(config.Logger, config.LogLevel),
	}
	if config.NowFunc != nil {
		gormConfig.NowFunc = config.NowFunc
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Each connection to :memory: is its own database.
	if inMemory {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabasePool{DB: db, config: config}, nil
}

func (c *PoolConfig) validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return errors.New("database url is required")
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		return errors.New("connection limits must not be negative")
	}
	if c.ConnMaxLifetime < 0 || c.ConnMaxIdleTime < 0 {
		return errors.New("connection lifetimes must not be negative")
	}
	return nil
}

func dialectorFor(url string) (gorm.Dialector, bool, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return postgres.Open(url), false, nil
	case strings.HasPrefix(url, "sqlite://"):
		return sqliteDialector(strings.TrimPrefix(url, "sqlite://"))
	case strings.HasPrefix(url, "file:"), strings.HasPrefix(url, ":memory:"):
		return sqliteDialector(url)
	default:
		return nil, false, fmt.Errorf("unsupported database url %q", url)
	}
}

func sqliteDialector(dsn string) (gorm.Dialector, bool, error) {
	if dsn == "" {
		return nil, false, errors.New("sqlite path is empty")
	}
	inMemory := strings.Contains(dsn, ":memory:") && !strings.Contains(dsn, "cache=shared")
	if !strings.Contains(dsn, "_foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_foreign_keys=on"
	}
	return sqlite.Open(dsn), inMemory, nil
}

func (p *DatabasePool) Stats() map[string]interface{} {
	if p.DB == nil {
		return map[string]interface{}{"error": "database not initialized"}
	}

	sqlDB, err := p.DB.DB()
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}

	stats := sqlDB.Stats()
	return map[string]interface{}{
		"driver":           p.DB.Dialector.Name(),
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
		"idle":             stats.Idle,
		"wait_count":       stats.WaitCount,
		"wait_duration":    stats.WaitDuration.String(),
		"max_open":         stats.MaxOpenConnections,
	}
}

func (p *DatabasePool) Health() error {
	if p.DB == nil {
		return errors.New("database not initialized")
	}

	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (p *DatabasePool) Close() error {
	if p.DB == nil {
		return nil
	}

	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
