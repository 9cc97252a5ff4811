package db

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

var validLogLevels = []string{"silent", "error", "warn", "info"}

// Config is the configuration for the mess database
// It covers the connection pool, driver timeouts and SQL logging
type Config struct {
	// Host is the host of the database
	Host string `mapstructure:"host"`
	// Port is the port of the database
	// default: 3306
	Port int `mapstructure:"port"`
	// User is the user of the database
	User string `mapstructure:"user"`
	// Password is the password of the database
	Password string `mapstructure:"password"`
	// Database is the name of the database
	// default: "mess_management"
	Database string `mapstructure:"database"`
	// MaxOpenConns is the maximum number of open connections to the database
	// default: 10
	MaxOpenConns int `mapstructure:"max_open_conns"`
	// MaxIdleConns is the maximum number of idle connections to the database
	// default: 5
	MaxIdleConns int `mapstructure:"max_idle_conns"`
	// ConnMaxLifetime is the maximum lifetime of a connection
	// default: 1800 * time.Second
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	// ConnMaxIdleTime is the maximum idle time of a connection
	// default: 600 * time.Second
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	// DialTimeout bounds connection establishment
	// default: 5 * time.Second
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	// ReadTimeout bounds every query read; it is the only query timeout the
	// caches and the scheduler rely on
	// default: 10 * time.Second
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout bounds every query write
	// default: 10 * time.Second
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// LogLevel is the gorm log level, one of silent, error, warn, info
	// default: "warn"
	LogLevel string `mapstructure:"log_level"`
	// SlowThreshold is the threshold for slow queries
	// default: 1 * time.Second
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
	// Charset is the connection charset
	// default: "utf8mb4"
	Charset string `mapstructure:"charset"`
	// Loc is the zone DATETIME columns are read in. Menu dates and feedback
	// timestamps are stored in mess civil time.
	// default: "Asia/Kolkata"
	Loc string `mapstructure:"loc"`
}

// DSN renders the go-sql-driver data source name
func (c *Config) DSN() string {
	q := url.Values{}
	q.Set("charset", c.Charset)
	q.Set("parseTime", "True")
	q.Set("loc", c.Loc)
	q.Set("timeout", c.DialTimeout.String())
	q.Set("readTimeout", c.ReadTimeout.String())
	q.Set("writeTimeout", c.WriteTimeout.String())
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		c.User, c.Password, c.Host, c.Port, c.Database, q.Encode(),
	)
}

// DefaultConfig returns the default configuration for the database
func DefaultConfig() *Config {
	return &Config{
		Port:            3306,
		Database:        "mess_management",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 1800 * time.Second,
		ConnMaxIdleTime: 600 * time.Second,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		LogLevel:        "warn",
		SlowThreshold:   1 * time.Second,
		Charset:         "utf8mb4",
		Loc:             "Asia/Kolkata",
	}
}

// Validate validates the configuration for the database
func (c *Config) Validate() error {
	if c.Host == "" {
		return ErrInvalidConfig("host is required")
	}
	if c.Port <= 0 {
		return ErrInvalidConfig("port is required")
	}
	if c.User == "" {
		return ErrInvalidConfig("user is required")
	}
	if c.Database == "" {
		return ErrInvalidConfig("database is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return ErrInvalidConfig(fmt.Sprintf("max_idle_conns %d exceeds max_open_conns %d", c.MaxIdleConns, c.MaxOpenConns))
	}
	if _, err := time.LoadLocation(c.Loc); err != nil {
		return ErrInvalidConfig(fmt.Sprintf("loc %q: %v", c.Loc, err))
	}
	return c.validateLogLevel()
}

func (c *Config) validateLogLevel() error {
	if !slices.ContainsFunc(validLogLevels, func(level string) bool {
		return strings.EqualFold(c.LogLevel, level)
	}) {
		return ErrInvalidConfig(fmt.Sprintf("log_level %q must be one of: %s", c.LogLevel, strings.Join(validLogLevels, ", ")))
	}
	return nil
}

// MergeDefaults merges the default configuration with the given configuration
// It returns the merged configuration
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Port == 0 {
		c.Port = defaults.Port
	}
	if c.Database == "" {
		c.Database = defaults.Database
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = defaults.MaxOpenConns
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = defaults.MaxIdleConns
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = defaults.ConnMaxLifetime
	}
	if c.ConnMaxIdleTime == 0 {
		c.ConnMaxIdleTime = defaults.ConnMaxIdleTime
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaults.DialTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaults.ReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaults.WriteTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.SlowThreshold == 0 {
		c.SlowThreshold = defaults.SlowThreshold
	}
	if c.Charset == "" {
		c.Charset = defaults.Charset
	}
	if c.Loc == "" {
		c.Loc = defaults.Loc
	}
	return c
}
