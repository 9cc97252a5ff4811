package kafka

import "fmt"

// ErrProducerClosed is returned by Produce after Close
var ErrProducerClosed = fmt.Errorf("kafka: producer closed")

// ErrInvalidConfig Kafka configuration error
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("kafka: invalid config: %s", msg)
}

// ErrConnection Kafka connection error
func ErrConnection(err error) error {
	return fmt.Errorf("kafka: connection failed: %w", err)
}

// ErrProduce wraps an enqueue failure
func ErrProduce(topic string, err error) error {
	return fmt.Errorf("kafka: produce to %s failed: %w", topic, err)
}

// ErrEncode wraps an event serialization failure
func ErrEncode(err error) error {
	return fmt.Errorf("kafka: encode event failed: %w", err)
}
