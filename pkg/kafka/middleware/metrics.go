package kafka_middleware

import (
	"context"
	"time"

	"tutorbook/pkg/kafka"
)

const (
	DirectionPublish = "publish"
	DirectionConsume = "consume"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder receives one observation per message. *metrics.Metrics satisfies it.
type Recorder interface {
	KafkaMessage(direction, eventType, outcome string, duration time.Duration)
}

func MetricsProducerMiddleware(rec Recorder) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.PublishFunc) error {
		start := time.Now()
		err := next(ctx, msg)
		rec.KafkaMessage(DirectionPublish, msg.GetEventType(), outcome(err), time.Since(start))
		return err
	}
}

func MetricsConsumerMiddleware(rec Recorder) kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		rec.KafkaMessage(DirectionConsume, msg.GetEventType(), outcome(err), time.Since(start))
		return err
	}
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
