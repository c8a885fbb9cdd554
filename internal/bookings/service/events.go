package service

import (
	"context"
	"fmt"

	"tutorbook/pkg/kafka"
	"tutorbook/pkg/middleware"
	"tutorbook/pkg/model"
)

const (
	EventSource        = "bookings"
	EventSchemaVersion = "1"
)

// EventPublisher emits booking lifecycle events.
type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, event model.BookingEvent) error
}

// MessagePublisher is satisfied by *kafka.Producer.
type MessagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type kafkaEventPublisher struct {
	producer MessagePublisher
}

func NewKafkaEventPublisher(producer MessagePublisher) EventPublisher {
	return &kafkaEventPublisher{producer: producer}
}

// PublishBookingEvent keys by booking id so one booking's events stay ordered on a partition.
func (p *kafkaEventPublisher) PublishBookingEvent(ctx context.Context, event model.BookingEvent) error {
	msg, err := kafka.NewMessage().
		WithKey(event.BookingID).
		WithValue(event).
		WithEventID("").
		WithEventType(string(event.Type)).
		WithCorrelationID(middleware.RequestID(ctx)).
		WithSchemaVersion(EventSchemaVersion).
		WithSource(EventSource).
		WithTimestamp(event.OccurredAt).
		Build()
	if err != nil {
		return fmt.Errorf("build %s event: %w", event.Type, err)
	}
	return p.producer.Publish(ctx, msg)
}

type noopEventPublisher struct{}

// NewNoopEventPublisher is used when no broker is configured.
func NewNoopEventPublisher() EventPublisher {
	return noopEventPublisher{}
}

func (noopEventPublisher) PublishBookingEvent(context.Context, model.BookingEvent) error {
	return nil
}
