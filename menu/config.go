package menu

import (
	"fmt"

	"github.com/blackpanther093/manage/store"
)

// Config is the configuration for the menu resolver and read services
type Config struct {
	// DisableLookahead resolves only the requested meal
	// default: false
	DisableLookahead bool `mapstructure:"disable_lookahead"`
	// PaymentWindowDays is how far back payment summaries reach
	// default: 30
	PaymentWindowDays int `mapstructure:"payment_window_days"`
	// SummaryWindowDays is how far back waste and feedback summaries reach
	// default: 30
	SummaryWindowDays int `mapstructure:"summary_window_days"`
	// NotificationWindowDays is how far back notifications are listed
	// default: 7
	NotificationWindowDays int `mapstructure:"notification_window_days"`
	// Messes lists the halls poll and rating results are reported for
	// default: store.DefaultMesses()
	Messes []store.Mess `mapstructure:"messes"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		PaymentWindowDays:      30,
		SummaryWindowDays:      30,
		NotificationWindowDays: 7,
		Messes:                 store.DefaultMesses(),
	}
}

// MergeDefaults fills empty fields with default values and returns the config
func (c *Config) MergeDefaults() *Config {
	d := DefaultConfig()
	if c.PaymentWindowDays == 0 {
		c.PaymentWindowDays = d.PaymentWindowDays
	}
	if c.SummaryWindowDays == 0 {
		c.SummaryWindowDays = d.SummaryWindowDays
	}
	if c.NotificationWindowDays == 0 {
		c.NotificationWindowDays = d.NotificationWindowDays
	}
	if len(c.Messes) == 0 {
		c.Messes = d.Messes
	}
	return c
}

// Validate validates the configuration
func (c *Config) Validate() error {
	for name, v := range map[string]int{
		"payment_window_days":      c.PaymentWindowDays,
		"summary_window_days":      c.SummaryWindowDays,
		"notification_window_days": c.NotificationWindowDays,
	} {
		if v < 0 {
			return ErrInvalidWindow(name, v)
		}
	}
	seen := make(map[string]bool, len(c.Messes))
	for _, m := range c.Messes {
		if m.Name == "" || seen[m.Name] {
			return fmt.Errorf("%w: %q", ErrInvalidMess, m.Name)
		}
		seen[m.Name] = true
	}
	return nil
}
