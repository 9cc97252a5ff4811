// Package db opens the gorm connection to the mess database and routes gorm's
// SQL logging through the shared zap logger.
package db

import (
	"context"
	"strings"

	"github.com/blackpanther093/manage/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

// Database is the interface for the database
type Database interface {
	DB() (*gorm.DB, error)
	Ping(ctx context.Context) error
	Close() error
}

type database struct {
	logger logger.Logger
	db     *gorm.DB
}

// Open connects through dialector and applies the pool settings of cfg.
// Only the pool and logging fields of cfg are used; the dialector already
// knows where to connect.
func Open(log logger.Logger, dialector gorm.Dialector, cfg *Config) (Database, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.validateLogLevel(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 NewGormLogger(log, cfg),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, ErrConnection(err)
	}
	sqldb, err := gdb.DB()
	if err != nil {
		return nil, ErrConnection(err)
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqldb.Ping(); err != nil {
		return nil, ErrConnection(err)
	}

	log.Info("database connection established",
		zap.String("dialect", dialector.Name()),
		zap.String("database", cfg.Database),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
	)
	return &database{logger: log, db: gdb}, nil
}

func (d *database) DB() (*gorm.DB, error) {
	if d.db == nil {
		return nil, ErrConnectionNotEstablished
	}
	return d.db, nil
}

func (d *database) Ping(ctx context.Context) error {
	sqldb, err := d.db.DB()
	if err != nil {
		return ErrConnection(err)
	}
	return sqldb.PingContext(ctx)
}

func (d *database) Close() error {
	sqldb, err := d.db.DB()
	if err != nil {
		return ErrConnection(err)
	}
	return sqldb.Close()
}

func gormLevel(level string) glogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return glogger.Silent
	case "error":
		return glogger.Error
	case "info":
		return glogger.Info
	default:
		return glogger.Warn
	}
}
