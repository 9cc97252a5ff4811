package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeClient struct {
	mu       sync.Mutex
	sent     []*kafka.Message
	err      error
	events   chan kafka.Event
	flushed  bool
	closed   bool
	leftover int
}

func newFakeClient() *fakeClient {
	return &fakeClient{events: make(chan kafka.Event, 8)}
}

func (f *fakeClient) Produce(msg *kafka.Message, _ chan kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeClient) Events() chan kafka.Event { return f.events }

func (f *fakeClient) Flush(int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushed = true
	return f.leftover
}

func (f *fakeClient) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func TestProducerConfig(t *testing.T) {
	cfg := (&ProducerConfig{Brokers: []string{"k1:9092", "k2:9092"}}).MergeDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Topic != "mess.notifications" {
		t.Errorf("Topic = %q", cfg.Topic)
	}

	m := cfg.BuildConfigMap()
	if v, _ := m.Get("bootstrap.servers", ""); v != "k1:9092,k2:9092" {
		t.Errorf("bootstrap.servers = %v", v)
	}
	if v, _ := m.Get("acks", ""); v != "all" {
		t.Errorf("acks = %v", v)
	}

	bad := []*ProducerConfig{
		{},
		{Brokers: []string{"k"}, Topic: "t", Acks: "some", SecurityProtocol: "PLAINTEXT"},
		{Brokers: []string{"k"}, Topic: "t", Acks: "1", SecurityProtocol: "SASL_SSL"},
	}
	for i, c := range bad {
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestProducer_Produce(t *testing.T) {
	fc := newFakeClient()
	p := newProducer(zap.NewNop(), fc, 100)
	defer p.Close()

	err := p.Produce(context.Background(), &Message{
		Topic:   "mess.notifications",
		Key:     []byte("k"),
		Value:   []byte(`{}`),
		Headers: []Header{{Key: "event-type", Value: []byte("x")}},
	})
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if len(fc.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(fc.sent))
	}
	got := fc.sent[0]
	if *got.TopicPartition.Topic != "mess.notifications" || got.TopicPartition.Partition != kafka.PartitionAny {
		t.Errorf("topic partition = %v", got.TopicPartition)
	}
	if string(got.Key) != "k" || len(got.Headers) != 1 {
		t.Errorf("message = %+v", got)
	}
}

func TestProducer_ProduceValidation(t *testing.T) {
	fc := newFakeClient()
	p := newProducer(zap.NewNop(), fc, 100)
	defer p.Close()

	if err := p.Produce(context.Background(), &Message{Value: []byte("x")}); err == nil {
		t.Error("expected error for missing topic")
	}
	if err := p.Produce(context.Background(), &Message{Topic: "t"}); err == nil {
		t.Error("expected error for missing value")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Produce(ctx, &Message{Topic: "t", Value: []byte("x")}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}

	fc.err = errors.New("queue full")
	if err := p.Produce(context.Background(), &Message{Topic: "t", Value: []byte("x")}); err == nil {
		t.Error("expected client error to surface")
	}
}

func TestProducer_CloseFlushesOnce(t *testing.T) {
	fc := newFakeClient()
	fc.leftover = 2
	core, logs := observer.New(zapcore.WarnLevel)
	p := newProducer(zap.New(core), fc, 100)

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if !fc.flushed || !fc.closed {
		t.Error("Close should flush and close the client")
	}
	if logs.FilterMessage("messages left unflushed at shutdown").Len() != 1 {
		t.Error("expected one unflushed warning")
	}
	if err := p.Produce(context.Background(), &Message{Topic: "t", Value: []byte("x")}); !errors.Is(err, ErrProducerClosed) {
		t.Errorf("err = %v, want ErrProducerClosed", err)
	}
}

func TestProducer_LogsDeliveryFailures(t *testing.T) {
	fc := newFakeClient()
	core, logs := observer.New(zapcore.ErrorLevel)
	p := newProducer(zap.New(core), fc, 100)

	topic := "mess.notifications"
	fc.events <- &kafka.Message{TopicPartition: kafka.TopicPartition{Topic: &topic, Error: errors.New("broker down")}}

	deadline := time.Now().Add(time.Second)
	for logs.FilterMessage("failed to deliver message").Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	p.Close()

	if logs.FilterMessage("failed to deliver message").Len() != 1 {
		t.Error("delivery failure was not logged")
	}
}

type recordingProducer struct {
	msgs []*Message
}

func (r *recordingProducer) Produce(_ context.Context, msg *Message) error {
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingProducer) Close() error { return nil }

func TestPublisher_Publish(t *testing.T) {
	rp := &recordingProducer{}
	pub := NewPublisher(rp, "mess.notifications")

	event := struct {
		Mess    string `json:"mess"`
		Message string `json:"message"`
	}{"mess1", "cold food"}
	if err := pub.Publish(context.Background(), "admin_notification", "id-1", event); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(rp.msgs) != 1 {
		t.Fatalf("produced %d, want 1", len(rp.msgs))
	}
	msg := rp.msgs[0]
	if msg.Topic != "mess.notifications" || string(msg.Key) != "id-1" {
		t.Errorf("msg = %+v", msg)
	}
	var decoded map[string]string
	if err := json.Unmarshal(msg.Value, &decoded); err != nil || decoded["mess"] != "mess1" {
		t.Errorf("value = %s, err = %v", msg.Value, err)
	}
	if string(msg.Headers[1].Value) != "admin_notification" {
		t.Errorf("event-type header = %q", msg.Headers[1].Value)
	}
}

func TestPublisher_EncodeError(t *testing.T) {
	pub := NewPublisher(&recordingProducer{}, "t")
	if err := pub.Publish(context.Background(), "x", "k", make(chan int)); err == nil {
		t.Error("expected encode error")
	}
}
