package kafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/blackpanther093/manage/logger"
	"github.com/blackpanther093/manage/routine"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

// client is the part of *kafka.Producer used here
type client interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Events() chan kafka.Event
	Flush(timeoutMs int) int
	Close()
}

type defaultProducer struct {
	logger logger.Logger
	p      client

	flushTimeoutMs int

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
	runner routine.Runner
}

// NewProducer checks the brokers and creates a producer
func NewProducer(log logger.Logger, config *ProducerConfig) (Producer, error) {
	if config == nil {
		config = DefaultProducerConfig()
	} else {
		config = config.MergeDefaults()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if err := validateKafkaCluster(log, config.Brokers); err != nil {
		return nil, err
	}

	p, err := kafka.NewProducer(config.BuildConfigMap())
	if err != nil {
		return nil, ErrConnection(err)
	}

	kp := newProducer(log, p, config.FlushTimeoutMs)
	log.Info("kafka producer initialized",
		zap.Strings("brokers", config.Brokers),
		zap.String("topic", config.Topic),
	)
	return kp, nil
}

func newProducer(log logger.Logger, c client, flushTimeoutMs int) *defaultProducer {
	kp := &defaultProducer{
		logger:         log,
		p:              c,
		flushTimeoutMs: flushTimeoutMs,
		done:           make(chan struct{}),
		runner:         routine.New(log),
	}
	kp.runner.GoNamed("kafka-delivery-reports", kp.handleDeliveryReports)
	return kp
}

// handleDeliveryReports logs delivery results until Close
func (kp *defaultProducer) handleDeliveryReports() {
	for {
		select {
		case <-kp.done:
			return
		case e, ok := <-kp.p.Events():
			if !ok {
				return
			}
			switch ev := e.(type) {
			case *kafka.Message:
				topic := ""
				if ev.TopicPartition.Topic != nil {
					topic = *ev.TopicPartition.Topic
				}
				if ev.TopicPartition.Error != nil {
					kp.logger.Error("failed to deliver message",
						zap.Error(ev.TopicPartition.Error),
						zap.String("topic", topic),
					)
				} else {
					kp.logger.Debug("message delivered",
						zap.String("topic", topic),
						zap.Int32("partition", ev.TopicPartition.Partition),
						zap.Int64("offset", int64(ev.TopicPartition.Offset)),
					)
				}
			case kafka.Error:
				kp.logger.Error("kafka producer error",
					zap.Int("code", int(ev.Code())),
					zap.String("error", ev.String()),
				)
			default:
				kp.logger.Debug("received unknown event", zap.String("type", fmt.Sprintf("%T", ev)))
			}
		}
	}
}

// Produce enqueues msg. Delivery is reported asynchronously in the logs.
func (kp *defaultProducer) Produce(ctx context.Context, msg *Message) error {
	if msg == nil || msg.Topic == "" {
		return ErrInvalidConfig("topic is required")
	}
	if msg.Value == nil {
		return ErrInvalidConfig("value is required")
	}
	if err := ctx.Err(); err != nil {
		return ErrProduce(msg.Topic, err)
	}

	kp.mu.RLock()
	defer kp.mu.RUnlock()
	if kp.closed {
		return ErrProducerClosed
	}
	if err := kp.p.Produce(toKafka(msg), nil); err != nil {
		return ErrProduce(msg.Topic, err)
	}
	return nil
}

// Close flushes pending messages and releases the client. It is safe to call twice.
func (kp *defaultProducer) Close() error {
	kp.mu.Lock()
	if kp.closed {
		kp.mu.Unlock()
		return nil
	}
	kp.closed = true
	kp.mu.Unlock()

	remaining := kp.p.Flush(kp.flushTimeoutMs)
	if remaining > 0 {
		kp.logger.Warn("messages left unflushed at shutdown", zap.Int("remaining", remaining))
	}
	close(kp.done)
	kp.runner.Wait()
	kp.p.Close()
	return nil
}
