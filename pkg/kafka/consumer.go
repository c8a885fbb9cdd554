package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	kafka_config "tutorbook/pkg/kafka/config"
	"tutorbook/pkg/logger"

	"github.com/segmentio/kafka-go"
)

type Consumer struct {
	reader     *kafka.Reader
	dlqWriter  *kafka.Writer
	topic      string
	groupID    string
	maxRetries int
	backoff    time.Duration
	handler    MessageHandler
	middleware []ConsumerMiddleware
	log        *logger.Logger
	closed     bool
	mu         sync.RWMutex
	wg         sync.WaitGroup
}

type ConsumerMiddleware func(ctx context.Context, msg Message, next MessageHandler) error

func NewConsumer(cfg *kafka_config.Config, topic, groupID, dlqTopic string, handler MessageHandler, log *logger.Logger) (*Consumer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if groupID == "" {
		return nil, fmt.Errorf("group ID cannot be empty")
	}
	if handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}

	c := &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           cfg.Brokers,
			Topic:             topic,
			GroupID:           groupID,
			MinBytes:          cfg.ConsumerMinBytes,
			MaxBytes:          cfg.ConsumerMaxBytes,
			MaxWait:           cfg.ConsumerMaxWait,
			CommitInterval:    cfg.ConsumerCommitInterval,
			HeartbeatInterval: cfg.ConsumerHeartbeatInterval,
			SessionTimeout:    cfg.ConsumerSessionTimeout,
			RebalanceTimeout:  cfg.ConsumerRebalanceTimeout,
			StartOffset:       cfg.ConsumerStartOffset,
			ErrorLogger:       errorLogger(log),
		}),
		topic:      topic,
		groupID:    groupID,
		maxRetries: cfg.ConsumerMaxRetries,
		backoff:    cfg.ConsumerRetryBackoff,
		handler:    handler,
		log:        log.With("topic", topic, "group_id", groupID),
	}

	if dlqTopic != "" {
		c.dlqWriter = newDLQWriter(cfg.Brokers, dlqTopic, log)
	}

	return c, nil
}

func (c *Consumer) Use(middleware ConsumerMiddleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware = append(c.middleware, middleware)
}

// Start consumes until ctx is cancelled. Offsets are committed after the handler
// succeeds or the message has been dead-lettered.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrConsumerClosed
	}
	c.wg.Add(1)
	c.mu.RUnlock()
	defer c.wg.Done()

	c.log.Info("Kafka consumer started")

	for {
		km, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			if errors.Is(err, ErrConsumerClosed) {
				return err
			}
			c.log.Warn("Failed to fetch message", "error", err)
			if !sleepCtx(ctx, time.Second) {
				return ctx.Err()
			}
			continue
		}

		if err := c.processMessage(ctx, fromKafkaMessage(km)); err != nil && ctx.Err() != nil {
			// Shutting down mid-retry: leave the offset uncommitted so the message is redelivered.
			return ctx.Err()
		}

		if err := c.reader.CommitMessages(ctx, km); err != nil {
			c.log.Warn("Failed to commit offset", "partition", km.Partition, "offset", km.Offset, "error", err)
		}
	}
}

func (c *Consumer) chain() MessageHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()

	handler := c.handler
	for i := len(c.middleware) - 1; i >= 0; i-- {
		mw, next := c.middleware[i], handler
		handler = func(ctx context.Context, m Message) error {
			return mw(ctx, m, next)
		}
	}
	return handler
}

// processMessage retries transient failures with linear backoff, then dead-letters.
func (c *Consumer) processMessage(ctx context.Context, msg Message) error {
	handler := c.chain()

	for {
		err := handler(ctx, msg)
		if err == nil {
			return nil
		}

		retries := msg.GetRetryCount()
		if ShouldRetry(err, retries, c.maxRetries) {
			msg.IncrementRetryCount()
			c.log.Warn("Retrying message",
				"attempt", retries+1,
				"max_retries", c.maxRetries,
				"event_id", msg.GetEventID(),
				"error", err,
			)
			if !sleepCtx(ctx, c.backoff*time.Duration(retries+1)) {
				return ctx.Err()
			}
			continue
		}

		if c.dlqWriter != nil {
			if dlqErr := writeDLQ(ctx, c.dlqWriter, msg, c.topic, c.groupID, err); dlqErr != nil {
				c.log.Error("Failed to send message to DLQ", "event_id", msg.GetEventID(), "error", dlqErr, "cause", err)
			} else {
				c.log.Warn("Message sent to DLQ", "event_id", msg.GetEventID(), "retries", retries, "error", err)
			}
		} else {
			c.log.Error("Dropping message after failure", "event_id", msg.GetEventID(), "error", err)
		}
		return err
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Close waits for Start to return; cancel its context first.
func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.wg.Wait()

	var err error
	if c.reader != nil {
		err = c.reader.Close()
	}
	if c.dlqWriter != nil {
		if dlqErr := c.dlqWriter.Close(); err == nil {
			err = dlqErr
		}
	}
	return err
}

func (c *Consumer) Stats() kafka.ReaderStats {
	return c.reader.Stats()
}
