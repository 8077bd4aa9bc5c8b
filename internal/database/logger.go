package database

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

type zapWriter struct {
	sugar *zap.SugaredLogger
}

func (w zapWriter) Printf(format string, args ...interface{}) {
	w.sugar.Infof(format, args...)
}

func newGormLogger(log *zap.Logger, level logger.LogLevel) logger.Interface {
	if log == nil {
		return logger.Default.LogMode(level)
	}

	return logger.New(zapWriter{sugar: log.Named("gorm").Sugar()}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
