package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blackpanther093/manage/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

// gormLogger forwards gorm output to zap
type gormLogger struct {
	logger        logger.Logger
	level         glogger.LogLevel
	slowThreshold time.Duration
}

// NewGormLogger builds a gorm logger from the level and slow threshold of cfg
func NewGormLogger(log logger.Logger, cfg *Config) glogger.Interface {
	return &gormLogger{
		logger:        log,
		level:         gormLevel(cfg.LogLevel),
		slowThreshold: cfg.SlowThreshold,
	}
}

func (g *gormLogger) LogMode(level glogger.LogLevel) glogger.Interface {
	c := *g
	c.level = level
	return &c
}

func (g *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if g.level >= glogger.Info {
		g.logger.Info(fmt.Sprintf(msg, data...), zap.String("component", "gorm"))
	}
}

func (g *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if g.level >= glogger.Warn {
		g.logger.Warn(fmt.Sprintf(msg, data...), zap.String("component", "gorm"))
	}
}

func (g *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if g.level >= glogger.Error {
		g.logger.Error(fmt.Sprintf(msg, data...), zap.String("component", "gorm"))
	}
}

// Trace logs one statement. Missing rows are expected on menu lookups and are
// not reported as errors.
func (g *gormLogger) Trace(
	_ context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error,
) {
	if g.level <= glogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []zap.Field{
		zap.String("component", "gorm"),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= glogger.Error:
		g.logger.Error("sql error", append(fields, zap.Error(err))...)
	case g.slowThreshold != 0 && elapsed > g.slowThreshold && g.level >= glogger.Warn:
		g.logger.Warn("slow sql", append(fields, zap.Duration("threshold", g.slowThreshold))...)
	case g.level >= glogger.Info:
		g.logger.Info("sql trace", fields...)
	}
}
