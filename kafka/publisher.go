package kafka

import (
	"context"
	"encoding/json"
	"time"
)

// Publisher writes JSON events to one topic
type Publisher struct {
	producer Producer
	topic    string
	now      func() time.Time
}

// NewPublisher creates a Publisher on topic
func NewPublisher(p Producer, topic string) *Publisher {
	return &Publisher{producer: p, topic: topic, now: time.Now}
}

// Publish encodes event as JSON and produces it under key, tagged with eventType
func (p *Publisher) Publish(ctx context.Context, eventType, key string, event any) error {
	value, err := json.Marshal(event)
	if err != nil {
		return ErrEncode(err)
	}
	return p.producer.Produce(ctx, &Message{
		Topic:     p.topic,
		Key:       []byte(key),
		Value:     value,
		Timestamp: p.now(),
		Headers: []Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "event-type", Value: []byte(eventType)},
		},
	})
}

// Topic returns the destination topic
func (p *Publisher) Topic() string {
	return p.topic
}
