package ch

import (
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// Config is the ClickHouse connection and writer configuration
type Config struct {
	// Enabled turns alert history on
	// default: false
	Enabled bool `mapstructure:"enabled"`
	// clickhouse connection config
	Hosts       []string      `mapstructure:"hosts"`
	Database    string        `mapstructure:"database"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Debug       bool          `mapstructure:"debug"`
	// server settings applied to every query
	Settings clickhouse.Settings `mapstructure:"settings"`
	// batch insert config; nil disables the writer
	WriterConfig *WriterConfig `mapstructure:"writer"`
}

// WriterConfig controls batching
type WriterConfig struct {
	// FlushInterval is how often buffered rows are considered for a flush
	// default: 10s
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	// FlushSize forces a flush once this many rows are buffered
	// default: 500
	FlushSize int `mapstructure:"flush_size"`
	// MinFlushSize is the smallest buffer a timed flush will send.
	// 0 flushes on every interval.
	// default: 0
	MinFlushSize int `mapstructure:"min_flush_size"`
	// MaxWaitTime forces a timed flush of a small buffer after this long.
	// 0 waits for MinFlushSize indefinitely.
	// default: 5m
	MaxWaitTime time.Duration `mapstructure:"max_wait_time"`
}

// DefaultConfig returns the default connection configuration
func DefaultConfig() *Config {
	return &Config{
		Database:    "mess",
		DialTimeout: 10 * time.Second,
	}
}

// DefaultWriterConfig returns the default writer config.
// Alerts arrive a few dozen per hour, so batches are small.
func DefaultWriterConfig() *WriterConfig {
	return &WriterConfig{
		FlushInterval: 10 * time.Second,
		FlushSize:     500,
		MaxWaitTime:   5 * time.Minute,
	}
}

// MergeDefaults fills empty fields with default values and returns the config
func (c *Config) MergeDefaults() *Config {
	d := DefaultConfig()
	if c.Database == "" {
		c.Database = d.Database
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = d.DialTimeout
	}
	if c.WriterConfig != nil {
		wd := DefaultWriterConfig()
		if c.WriterConfig.FlushInterval == 0 {
			c.WriterConfig.FlushInterval = wd.FlushInterval
		}
		if c.WriterConfig.FlushSize == 0 {
			c.WriterConfig.FlushSize = wd.FlushSize
		}
	}
	return c
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if len(c.Hosts) == 0 {
		return ErrInvalidConfig("hosts are required")
	}
	if c.Username == "" {
		return ErrInvalidConfig("username is required")
	}
	if c.WriterConfig != nil {
		return c.WriterConfig.Validate()
	}
	return nil
}

// Validate checks the writer configuration
func (w *WriterConfig) Validate() error {
	if w.FlushInterval <= 0 {
		return ErrInvalidConfig("writer.flush_interval is required")
	}
	if w.FlushSize <= 0 {
		return ErrInvalidConfig("writer.flush_size is required")
	}
	if w.MinFlushSize < 0 {
		return ErrInvalidConfig("writer.min_flush_size cannot be negative")
	}
	if w.MinFlushSize > w.FlushSize {
		return ErrInvalidConfig("writer.min_flush_size cannot be greater than writer.flush_size")
	}
	if w.MaxWaitTime < 0 {
		return ErrInvalidConfig("writer.max_wait_time cannot be negative")
	}
	return nil
}
