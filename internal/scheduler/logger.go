package scheduler

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type cronLogger struct {
	sugar *zap.SugaredLogger
}

// NewCronLogger adapts zap to cron's key/value logger.
func NewCronLogger(logger *zap.Logger) cron.Logger {
	return &cronLogger{sugar: logger.Sugar()}
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
