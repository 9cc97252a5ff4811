// Package kafka publishes mess events, such as admin notifications, to a
// Kafka topic with confluent-kafka-go.
package kafka

import (
	"context"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Message is one record to publish
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Headers   []Header
}

// Header is a record header
type Header struct {
	Key   string
	Value []byte
}

// Producer is the interface for kafka producer
type Producer interface {
	Produce(ctx context.Context, msg *Message) error
	Close() error
}

// toKafka converts msg to the client's message type
func toKafka(msg *Message) *kafka.Message {
	topic := msg.Topic
	m := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            msg.Key,
		Value:          msg.Value,
		Timestamp:      msg.Timestamp,
	}
	for _, h := range msg.Headers {
		m.Headers = append(m.Headers, kafka.Header{Key: h.Key, Value: h.Value})
	}
	return m
}
