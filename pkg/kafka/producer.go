package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	kafka_config "tutorbook/pkg/kafka/config"
	"tutorbook/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
)

// Producer wraps a kafka-go writer with middleware and dead-letter fallback.
type Producer struct {
	writer     *kafka.Writer
	dlqWriter  *kafka.Writer
	topic      string
	middleware []ProducerMiddleware
	log        *logger.Logger
	closed     bool
	mu         sync.RWMutex
}

type PublishFunc func(ctx context.Context, msg Message) error

// ProducerMiddleware intercepts publish operations.
type ProducerMiddleware func(ctx context.Context, msg Message, next PublishFunc) error

var compressions = map[string]compress.Compression{
	"none":   0,
	"gzip":   compress.Gzip,
	"snappy": compress.Snappy,
	"lz4":    compress.Lz4,
	"zstd":   compress.Zstd,
}

var requiredAcks = map[int]kafka.RequiredAcks{
	-1: kafka.RequireAll,
	0:  kafka.RequireNone,
	1:  kafka.RequireOne,
}

func NewProducer(cfg *kafka_config.Config, topic, dlqTopic string, log *logger.Logger) (*Producer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	compression, ok := compressions[cfg.ProducerCompression]
	if !ok {
		compression = compress.Snappy
	}
	acks, ok := requiredAcks[cfg.ProducerRequireAcks]
	if !ok {
		acks = kafka.RequireAll
	}

	p := &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: acks,
			Compression:  compression,
			MaxAttempts:  cfg.ProducerMaxAttempts,
			BatchTimeout: cfg.ProducerBatchTimeout,
			Async:        cfg.ProducerAsync,
			ErrorLogger:  errorLogger(log),
		},
		topic: topic,
		log:   log,
	}

	if dlqTopic != "" {
		p.dlqWriter = newDLQWriter(cfg.Brokers, dlqTopic, log)
	}

	return p, nil
}

func newDLQWriter(brokers []string, topic string, log *logger.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  compress.Snappy,
		MaxAttempts:  3,
		ErrorLogger:  errorLogger(log),
	}
}

func errorLogger(log *logger.Logger) kafka.Logger {
	return kafka.LoggerFunc(func(msg string, args ...any) {
		log.Warn("kafka client error", "detail", fmt.Sprintf(msg, args...))
	})
}

func (p *Producer) Topic() string {
	return p.topic
}

func (p *Producer) Use(middleware ProducerMiddleware) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.middleware = append(p.middleware, middleware)
}

func (p *Producer) Publish(ctx context.Context, msg Message) error {
	p.mu.RLock()
	closed := p.closed
	chain := p.middleware
	p.mu.RUnlock()

	if closed {
		return ErrProducerClosed
	}
	if msg.Key == "" {
		return ErrEmptyKey
	}
	if len(msg.Value) == 0 {
		return ErrEmptyValue
	}
	msg.Topic = p.topic

	handler := PublishFunc(p.publish)
	for i := len(chain) - 1; i >= 0; i-- {
		mw, next := chain[i], handler
		handler = func(ctx context.Context, m Message) error {
			return mw(ctx, m, next)
		}
	}

	return handler(ctx, msg)
}

func (p *Producer) publish(ctx context.Context, msg Message) error {
	err := p.writer.WriteMessages(ctx, toKafkaMessage(msg, msg.Timestamp))
	if err == nil {
		return nil
	}

	if p.dlqWriter != nil {
		if dlqErr := writeDLQ(ctx, p.dlqWriter, msg, p.topic, "", err); dlqErr != nil {
			return fmt.Errorf("failed to send to DLQ: %v (original error: %w)", dlqErr, err)
		}
		p.log.Warn("Publish failed, message dead-lettered",
			"topic", p.topic,
			"key", msg.Key,
			"event_id", msg.GetEventID(),
			"error", err,
		)
	}
	return err
}

func writeDLQ(ctx context.Context, w *kafka.Writer, msg Message, topic, group string, cause error) error {
	headers := make(map[string]string, len(msg.Headers)+4)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[HeaderOriginalTopic] = topic
	headers[HeaderDLQError] = cause.Error()
	headers[HeaderDLQTimestamp] = time.Now().UTC().Format(time.RFC3339)
	if group != "" {
		headers[HeaderDLQGroup] = group
	}
	msg.Headers = headers

	return w.WriteMessages(ctx, toKafkaMessage(msg, time.Now()))
}

func toKafkaMessage(msg Message, ts time.Time) kafka.Message {
	km := kafka.Message{Key: []byte(msg.Key), Value: msg.Value, Time: ts}
	for k, v := range msg.Headers {
		km.Headers = append(km.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return km
}

func fromKafkaMessage(km kafka.Message) Message {
	msg := Message{
		Key:       string(km.Key),
		Value:     km.Value,
		Headers:   make(map[string]string, len(km.Headers)),
		Topic:     km.Topic,
		Partition: km.Partition,
		Offset:    km.Offset,
		Timestamp: km.Time,
	}
	for _, h := range km.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	err := p.writer.Close()
	if p.dlqWriter != nil {
		if dlqErr := p.dlqWriter.Close(); err == nil {
			err = dlqErr
		}
	}
	return err
}

func (p *Producer) Stats() kafka.WriterStats {
	return p.writer.Stats()
}
