package kafka

import (
	"slices"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

var validAcks = []string{"all", "-1", "0", "1"}

// ProducerConfig is the configuration for kafka producer
type ProducerConfig struct {
	// Enabled turns publishing on. When false no producer is built.
	// default: false
	Enabled bool `mapstructure:"enabled"`

	// kafka cluster brokers
	Brokers []string `mapstructure:"brokers"`

	// Topic receives admin notification events
	// default: "mess.notifications"
	Topic string `mapstructure:"topic"`

	// Optional: kafka client id, shown in broker logs and metrics
	// default: "messcore"
	ClientID string `mapstructure:"client_id"`

	// Acks is the number of broker acknowledgements required: all, -1, 0 or 1
	// default: "all"
	Acks string `mapstructure:"acks"`

	// Compression codec: none, gzip, snappy, lz4, zstd
	// default: "none"
	Compression string `mapstructure:"compression"`

	// LingerMs is how long the producer waits to fill a batch
	// default: 5
	LingerMs int `mapstructure:"linger_ms"`

	// Security protocol, only PLAINTEXT is supported for now
	// default: "PLAINTEXT"
	SecurityProtocol string `mapstructure:"security_protocol"`

	// MaxRetries is the client send retry count
	// default: 3
	MaxRetries int `mapstructure:"max_retries"`

	// FlushTimeoutMs bounds Close
	// default: 10000
	FlushTimeoutMs int `mapstructure:"flush_timeout_ms"`
}

// DefaultProducerConfig returns the default configuration for the producer
func DefaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		Topic:            "mess.notifications",
		ClientID:         "messcore",
		Acks:             "all",
		Compression:      "none",
		LingerMs:         5,
		SecurityProtocol: "PLAINTEXT",
		MaxRetries:       3,
		FlushTimeoutMs:   10000,
	}
}

// MergeDefaults fills empty fields with default values and returns the config
func (p *ProducerConfig) MergeDefaults() *ProducerConfig {
	d := DefaultProducerConfig()
	if p.Topic == "" {
		p.Topic = d.Topic
	}
	if p.ClientID == "" {
		p.ClientID = d.ClientID
	}
	if p.Acks == "" {
		p.Acks = d.Acks
	}
	if p.Compression == "" {
		p.Compression = d.Compression
	}
	if p.SecurityProtocol == "" {
		p.SecurityProtocol = d.SecurityProtocol
	}
	if p.MaxRetries == 0 {
		p.MaxRetries = d.MaxRetries
	}
	if p.FlushTimeoutMs == 0 {
		p.FlushTimeoutMs = d.FlushTimeoutMs
	}
	return p
}

// Validate checks the producer configuration
func (p *ProducerConfig) Validate() error {
	if len(p.Brokers) == 0 {
		return ErrInvalidConfig("brokers are required")
	}
	if p.Topic == "" {
		return ErrInvalidConfig("topic is required")
	}
	if !slices.Contains(validAcks, strings.ToLower(p.Acks)) {
		return ErrInvalidConfig("acks must be one of: " + strings.Join(validAcks, ", "))
	}
	if p.SecurityProtocol != "PLAINTEXT" {
		return ErrInvalidConfig("only PLAINTEXT security_protocol is supported")
	}
	return nil
}

// BuildConfigMap renders the librdkafka settings
func (p *ProducerConfig) BuildConfigMap() *kafka.ConfigMap {
	return &kafka.ConfigMap{
		"bootstrap.servers": strings.Join(p.Brokers, ","),
		"client.id":         p.ClientID,
		"compression.type":  strings.ToLower(p.Compression),
		"acks":              strings.ToLower(p.Acks),
		"linger.ms":         p.LingerMs,
		"retries":           p.MaxRetries,
		"security.protocol": p.SecurityProtocol,
	}
}
