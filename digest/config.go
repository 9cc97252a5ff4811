package digest

import (
	"slices"
	"time"
)

const (
	ClassifierKeyword = "keyword"
	ClassifierLLM     = "llm"
)

var validClassifiers = []string{ClassifierKeyword, ClassifierLLM}

// Config is the configuration for the digest collaborators
type Config struct {
	// Classifier, keyword or llm
	// default: "keyword"
	Classifier string `mapstructure:"classifier"`
	// CriticalTerms override the keyword classifier's vocabulary
	CriticalTerms []string `mapstructure:"critical_terms"`
	// BaseURL of the OpenAI-compatible chat completion API
	// default: "https://api.groq.com/openai/v1"
	BaseURL string `mapstructure:"base_url"`
	// APIKey of the chat completion API. Empty disables the summarizer and
	// digests fall back to raw feedback text.
	APIKey string `mapstructure:"api_key"`
	// Model used for both summarizing and llm classification
	// default: "llama-3.3-70b-versatile"
	Model string `mapstructure:"model"`
	// MaxTokens of a summary completion
	// default: 150
	MaxTokens int `mapstructure:"max_tokens"`
	// Temperature of a summary completion
	// default: 0.7
	Temperature float32 `mapstructure:"temperature"`
	// MaxChars bounds the digest length
	// default: 400
	MaxChars int `mapstructure:"max_chars"`
	// Timeout of one completion request
	// default: 30s
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRetries is the number of attempts per request
	// default: 3
	MaxRetries int `mapstructure:"max_retries"`
	// RetryBackoff is the wait before the second attempt, doubled after each failure
	// default: 1s
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	// RatePerSecond caps outgoing requests, retries included
	// default: 1
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	// Burst is the number of requests allowed above the rate at once
	// default: 5
	Burst int `mapstructure:"burst"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Classifier:    ClassifierKeyword,
		BaseURL:       "https://api.groq.com/openai/v1",
		Model:         "llama-3.3-70b-versatile",
		MaxTokens:     150,
		Temperature:   0.7,
		MaxChars:      DefaultMaxChars,
		Timeout:       30 * time.Second,
		MaxRetries:    3,
		RetryBackoff:  time.Second,
		RatePerSecond: 1,
		Burst:         5,
	}
}

// MergeDefaults fills empty fields with default values and returns the config
func (c *Config) MergeDefaults() *Config {
	d := DefaultConfig()
	if c.Classifier == "" {
		c.Classifier = d.Classifier
	}
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.Temperature == 0 {
		c.Temperature = d.Temperature
	}
	if c.MaxChars == 0 {
		c.MaxChars = d.MaxChars
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = d.RetryBackoff
	}
	if c.RatePerSecond == 0 {
		c.RatePerSecond = d.RatePerSecond
	}
	if c.Burst == 0 {
		c.Burst = d.Burst
	}
	return c
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !slices.Contains(validClassifiers, c.Classifier) {
		return ErrInvalidClassifier(c.Classifier)
	}
	if c.Classifier == ClassifierLLM && c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.MaxTokens < 1 {
		return ErrInvalidField("max_tokens", c.MaxTokens)
	}
	if c.MaxChars < 4 {
		return ErrInvalidField("max_chars", c.MaxChars)
	}
	if c.MaxRetries < 1 {
		return ErrInvalidField("max_retries", c.MaxRetries)
	}
	if c.Timeout <= 0 {
		return ErrInvalidField("timeout", c.Timeout)
	}
	if c.RetryBackoff < 0 {
		return ErrInvalidField("retry_backoff", c.RetryBackoff)
	}
	if c.RatePerSecond <= 0 {
		return ErrInvalidField("rate_per_second", c.RatePerSecond)
	}
	if c.Burst < 1 {
		return ErrInvalidField("burst", c.Burst)
	}
	return nil
}
