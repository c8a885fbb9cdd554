package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	notificationserrors "tutorbook/internal/notifications/errors"
	"tutorbook/internal/notifications/realtime"
	"tutorbook/internal/notifications/repository"
	"tutorbook/pkg/email"
	"tutorbook/pkg/kafka"
	"tutorbook/pkg/logger"
	"tutorbook/pkg/model"
)

const (
	ChannelRealtime = "realtime"
	ChannelEmail    = "email"
)

// DeliveryRecorder is satisfied by *metrics.Metrics.
type DeliveryRecorder interface {
	NotificationDelivered(channel, outcome string)
}

// Dispatcher turns booking events into stored notifications for the student and the
// teacher, then pushes them to open streams and email.
type Dispatcher struct {
	repo     repository.NotificationRepository
	contacts repository.ContactDirectory
	sessions realtime.SessionRegistry
	mailer   email.Sender
	metrics  DeliveryRecorder
	log      *logger.Logger
}

func NewDispatcher(
	repo repository.NotificationRepository,
	contacts repository.ContactDirectory,
	sessions realtime.SessionRegistry,
	mailer email.Sender,
	metrics DeliveryRecorder,
	log *logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		repo:     repo,
		contacts: contacts,
		sessions: sessions,
		mailer:   mailer,
		metrics:  metrics,
		log:      log,
	}
}

type recipient struct {
	userID  string
	contact repository.Contact
}

func (r recipient) name() string {
	if r.contact.Name != "" {
		return r.contact.Name
	}
	return r.userID
}

// HandleMessage is the booking events consumer handler. Storage failures are transient
// so the consumer retries; already stored recipients are skipped on redelivery.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var event model.BookingEvent
	if err := msg.DecodeValue(&event); err != nil {
		return err
	}
	if event.BookingID == "" {
		return kafka.NewPermanentError("booking event without booking_id", nil)
	}

	eventID := msg.GetEventID()
	if eventID == "" {
		eventID = fmt.Sprintf("%s-%s-%d", event.Type, event.BookingID, event.OccurredAt.UnixNano())
	}

	if err := d.Dispatch(ctx, eventID, event); err != nil {
		return kafka.NewTransientError("dispatch booking notifications", err)
	}
	return nil
}

func (d *Dispatcher) Dispatch(ctx context.Context, eventID string, event model.BookingEvent) error {
	kind, ok := notificationTypes[event.Type]
	if !ok {
		d.log.Warn("Ignoring booking event with unknown type", "type", event.Type, "booking_id", event.BookingID)
		return nil
	}

	student := d.resolve(ctx, event.StudentID)
	teacher := d.resolve(ctx, event.TeacherID)
	studentMsg, teacherMsg := messagesFor(event, student.name(), teacher.name())

	for _, out := range []struct {
		to   recipient
		text string
	}{
		{student, studentMsg},
		{teacher, teacherMsg},
	} {
		if out.to.userID == "" {
			continue
		}
		n := &model.Notification{
			UserID:    out.to.userID,
			BookingID: event.BookingID,
			EventID:   eventID,
			Type:      kind,
			Message:   out.text,
		}
		if err := d.repo.Create(ctx, n); err != nil {
			if errors.Is(err, notificationserrors.ErrDuplicate) {
				d.log.Debug("Notification already recorded", "event_id", eventID, "user_id", n.UserID)
				continue
			}
			return fmt.Errorf("store notification for %s: %w", n.UserID, err)
		}

		d.push(n)
		d.mail(ctx, out.to, n)
	}

	d.log.Info("Booking notifications dispatched", "type", event.Type, "booking_id", event.BookingID, "event_id", eventID)
	return nil
}

func (d *Dispatcher) resolve(ctx context.Context, userID string) recipient {
	r := recipient{userID: userID}
	if userID == "" || d.contacts == nil {
		return r
	}
	c, err := d.contacts.Lookup(ctx, userID)
	if err != nil {
		if !errors.Is(err, notificationserrors.ErrContactNotFound) {
			d.log.Warn("Failed to look up contact", "user_id", userID, "error", err)
		}
		return r
	}
	r.contact = c
	return r
}

func (d *Dispatcher) push(n *model.Notification) {
	if d.sessions == nil {
		return
	}
	outcome := "no_session"
	if d.sessions.Deliver(n.UserID, n) {
		outcome = "delivered"
	}
	d.record(ChannelRealtime, outcome)
}

// mail is best effort: failures are logged and recorded, never returned.
func (d *Dispatcher) mail(ctx context.Context, to recipient, n *model.Notification) {
	if d.mailer == nil {
		return
	}
	if to.contact.Email == "" {
		d.record(ChannelEmail, "no_address")
		return
	}

	msg := email.Message{
		To:      mail.Address{Name: to.contact.Name, Address: to.contact.Email},
		Subject: fmt.Sprintf("%s Notification", n.Type),
		Text:    n.Message,
	}
	if err := d.mailer.Send(ctx, msg); err != nil {
		d.log.Warn("Failed to send notification email", "user_id", n.UserID, "type", n.Type, "error", err)
		d.record(ChannelEmail, "error")
		return
	}
	d.record(ChannelEmail, "delivered")
}

func (d *Dispatcher) record(channel, outcome string) {
	if d.metrics != nil {
		d.metrics.NotificationDelivered(channel, outcome)
	}
}
