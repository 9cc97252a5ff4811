package scheduler

import (
	"fmt"
	"time"

	"github.com/blackpanther093/manage/cache"
	"github.com/blackpanther093/manage/digest"
	"github.com/blackpanther093/manage/store"
)

// Config is the configuration for the scheduler jobs
type Config struct {
	// CleanupSpec triggers the daily purge
	// default: "0 0 0 * * *"
	CleanupSpec string `mapstructure:"cleanup_spec"`
	// AggregateSpec triggers alert recomputation
	// default: "@every 1h"
	AggregateSpec string `mapstructure:"aggregate_spec"`
	// NotifyLead is how long before a meal ends its digest is sent
	// default: 5m
	NotifyLead time.Duration `mapstructure:"notify_lead"`
	// DisableNotifications skips registering the per-meal digest chains
	// default: false
	DisableNotifications bool `mapstructure:"disable_notifications"`
	// AlertWindowDays is the trailing window alerts are computed over
	// default: 7
	AlertWindowDays int `mapstructure:"alert_window_days"`
	// WasteThresholdKg is the per floor and day waste above which an alert is raised
	// default: 50
	WasteThresholdKg float64 `mapstructure:"waste_threshold_kg"`
	// RatingThreshold is the per meal and day average below which an alert is raised
	// default: 3.0
	RatingThreshold float64 `mapstructure:"rating_threshold"`
	// MaxDigestChars bounds a digest notification body
	// default: 400
	MaxDigestChars int `mapstructure:"max_digest_chars"`
	// Messes are the halls alerts and digests are produced for
	// default: store.DefaultMesses()
	Messes []store.Mess `mapstructure:"messes"`
	// Snapshot tunes the per-mess alert loads
	Snapshot cache.SnapshotConfig `mapstructure:"snapshot"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	snapshot := cache.DefaultSnapshotConfig()
	snapshot.Name = "alerts"
	return &Config{
		CleanupSpec:      "0 0 0 * * *",
		AggregateSpec:    "@every 1h",
		NotifyLead:       5 * time.Minute,
		AlertWindowDays:  7,
		WasteThresholdKg: 50,
		RatingThreshold:  3.0,
		MaxDigestChars:   digest.DefaultMaxChars,
		Messes:           store.DefaultMesses(),
		Snapshot:         *snapshot,
	}
}

// MergeDefaults fills empty fields with default values and returns the config
func (c *Config) MergeDefaults() *Config {
	d := DefaultConfig()
	if c.CleanupSpec == "" {
		c.CleanupSpec = d.CleanupSpec
	}
	if c.AggregateSpec == "" {
		c.AggregateSpec = d.AggregateSpec
	}
	if c.NotifyLead == 0 {
		c.NotifyLead = d.NotifyLead
	}
	if c.AlertWindowDays == 0 {
		c.AlertWindowDays = d.AlertWindowDays
	}
	if c.WasteThresholdKg == 0 {
		c.WasteThresholdKg = d.WasteThresholdKg
	}
	if c.RatingThreshold == 0 {
		c.RatingThreshold = d.RatingThreshold
	}
	if c.MaxDigestChars == 0 {
		c.MaxDigestChars = d.MaxDigestChars
	}
	if len(c.Messes) == 0 {
		c.Messes = d.Messes
	}
	if c.Snapshot.Name == "" {
		c.Snapshot.Name = "alerts"
	}
	c.Snapshot.MergeDefaults()
	return c
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.NotifyLead < time.Minute || c.NotifyLead >= 4*time.Hour {
		return ErrInvalidField("notify_lead", c.NotifyLead)
	}
	if c.AlertWindowDays < 1 {
		return ErrInvalidField("alert_window_days", c.AlertWindowDays)
	}
	if c.WasteThresholdKg < 0 {
		return ErrInvalidField("waste_threshold_kg", c.WasteThresholdKg)
	}
	if c.RatingThreshold < 0 {
		return ErrInvalidField("rating_threshold", c.RatingThreshold)
	}
	if c.MaxDigestChars < 4 {
		return ErrInvalidField("max_digest_chars", c.MaxDigestChars)
	}
	seen := make(map[string]bool, len(c.Messes))
	for _, m := range c.Messes {
		if m.Name == "" || seen[m.Name] {
			return ErrInvalidField("messes", fmt.Sprintf("%q", m.Name))
		}
		seen[m.Name] = true
	}
	return c.Snapshot.Validate()
}
