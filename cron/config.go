package cron

import (
	"time"
	_ "time/tzdata"
)

// Config is the configuration for the cron manager
type Config struct {
	// TimeZone is the IANA zone cron specs are evaluated in
	// default: "Asia/Kolkata"
	TimeZone string `mapstructure:"time_zone"`
	// RunTimeout bounds one run of a chain; 0 means no bound
	// default: 10m
	RunTimeout time.Duration `mapstructure:"run_timeout"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		TimeZone:   "Asia/Kolkata",
		RunTimeout: 10 * time.Minute,
	}
}

// MergeDefaults fills empty fields with default values and returns the config
func (c *Config) MergeDefaults() *Config {
	d := DefaultConfig()
	if c.TimeZone == "" {
		c.TimeZone = d.TimeZone
	}
	if c.RunTimeout == 0 {
		c.RunTimeout = d.RunTimeout
	}
	return c
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return ErrInvalidTimeZone(c.TimeZone, err)
	}
	if c.RunTimeout < 0 {
		return ErrInvalidRunTimeout(c.RunTimeout)
	}
	return nil
}
