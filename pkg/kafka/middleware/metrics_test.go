package kafka_middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"tutorbook/pkg/kafka"

	"github.com/stretchr/testify/assert"
)

type recorded struct {
	direction, eventType, outcome string
}

type fakeRecorder struct {
	calls []recorded
}

func (f *fakeRecorder) KafkaMessage(direction, eventType, outcome string, _ time.Duration) {
	f.calls = append(f.calls, recorded{direction, eventType, outcome})
}

func TestMetricsMiddleware(t *testing.T) {
	rec := &fakeRecorder{}
	msg := kafka.Message{Headers: map[string]string{kafka.HeaderEventType: "booking.created"}}

	pub := MetricsProducerMiddleware(rec)
	_ = pub(context.Background(), msg, func(context.Context, kafka.Message) error { return nil })

	con := MetricsConsumerMiddleware(rec)
	_ = con(context.Background(), msg, func(context.Context, kafka.Message) error { return errors.New("boom") })

	assert.Equal(t, []recorded{
		{DirectionPublish, "booking.created", OutcomeSuccess},
		{DirectionConsume, "booking.created", OutcomeFailure},
	}, rec.calls)
}
