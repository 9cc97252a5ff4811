package cache

import "time"

// Config holds the TTL of every Manager slot
type Config struct {
	// MenuTTL is the menu slot TTL. Zero means "until the next meal
	// boundary", measured once when the Manager is built.
	// default: 0
	MenuTTL time.Duration `mapstructure:"menu_ttl"`
	// default: 1h
	NonVegMenuTTL time.Duration `mapstructure:"non_veg_menu_ttl"`
	// default: 30m
	RatingTTL time.Duration `mapstructure:"rating_ttl"`
	// default: 1h
	PaymentTTL time.Duration `mapstructure:"payment_ttl"`
	// default: 24h
	FeedbackTTL time.Duration `mapstructure:"feedback_ttl"`
	// default: 24h
	WasteTTL time.Duration `mapstructure:"waste_ttl"`
	// default: 30m
	NotificationTTL time.Duration `mapstructure:"notification_ttl"`
	// default: 24h
	FeatureToggleTTL time.Duration `mapstructure:"feature_toggle_ttl"`
	// default: 1h
	PollTTL time.Duration `mapstructure:"poll_ttl"`
}

// DefaultConfig returns the default slot TTLs
func DefaultConfig() *Config {
	return &Config{
		NonVegMenuTTL:    time.Hour,
		RatingTTL:        30 * time.Minute,
		PaymentTTL:       time.Hour,
		FeedbackTTL:      24 * time.Hour,
		WasteTTL:         24 * time.Hour,
		NotificationTTL:  30 * time.Minute,
		FeatureToggleTTL: 24 * time.Hour,
		PollTTL:          time.Hour,
	}
}

// MergeDefaults fills zero TTLs with default values and returns the config
func (c *Config) MergeDefaults() *Config {
	d := DefaultConfig()
	fill := func(v *time.Duration, def time.Duration) {
		if *v == 0 {
			*v = def
		}
	}
	fill(&c.NonVegMenuTTL, d.NonVegMenuTTL)
	fill(&c.RatingTTL, d.RatingTTL)
	fill(&c.PaymentTTL, d.PaymentTTL)
	fill(&c.FeedbackTTL, d.FeedbackTTL)
	fill(&c.WasteTTL, d.WasteTTL)
	fill(&c.NotificationTTL, d.NotificationTTL)
	fill(&c.FeatureToggleTTL, d.FeatureToggleTTL)
	fill(&c.PollTTL, d.PollTTL)
	return c
}

// Validate rejects negative TTLs
func (c *Config) Validate() error {
	ttls := map[Slot]time.Duration{
		Menu:          c.MenuTTL,
		NonVegMenu:    c.NonVegMenuTTL,
		Rating:        c.RatingTTL,
		Payment:       c.PaymentTTL,
		Feedback:      c.FeedbackTTL,
		Waste:         c.WasteTTL,
		Notification:  c.NotificationTTL,
		FeatureToggle: c.FeatureToggleTTL,
		Poll:          c.PollTTL,
	}
	for slot, ttl := range ttls {
		if ttl < 0 {
			return ErrInvalidTTL(slot, ttl)
		}
	}
	return nil
}

// SnapshotConfig holds configuration for Snapshot
type SnapshotConfig struct {
	// Name is used for logging purposes to identify the snapshot (required)
	Name string `mapstructure:"name"`
	// LoadTimeout bounds each load attempt
	// default: 30 * time.Second
	LoadTimeout time.Duration `mapstructure:"load_timeout"`
	// MaxRetries is the maximum number of attempts per Load
	// default: 3
	MaxRetries int `mapstructure:"max_retries"`
	// RetryBackoff is the wait before the first retry, doubled on each later one
	// default: 1 * time.Second
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// DefaultSnapshotConfig returns the default configuration for Snapshot.
// Name has no default and must be set by the caller.
func DefaultSnapshotConfig() *SnapshotConfig {
	return &SnapshotConfig{
		LoadTimeout:  30 * time.Second,
		MaxRetries:   3,
		RetryBackoff: time.Second,
	}
}

// MergeDefaults fills empty fields with default values and returns the config
func (c *SnapshotConfig) MergeDefaults() *SnapshotConfig {
	d := DefaultSnapshotConfig()
	if c.LoadTimeout == 0 {
		c.LoadTimeout = d.LoadTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = d.RetryBackoff
	}
	return c
}

// Validate checks that all required fields are set and have valid values
func (c *SnapshotConfig) Validate() error {
	if c.Name == "" {
		return ErrInvalidName(c.Name)
	}
	if c.LoadTimeout <= 0 {
		return ErrInvalidLoadTimeout(c.LoadTimeout)
	}
	if c.MaxRetries < 1 {
		return ErrInvalidMaxRetries(c.MaxRetries)
	}
	if c.RetryBackoff < 0 {
		return ErrInvalidRetryBackoff(c.RetryBackoff)
	}
	return nil
}
