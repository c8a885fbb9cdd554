package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "tutorbook/internal/bookings/errors"
	"tutorbook/pkg/logger"
	"tutorbook/pkg/model"
)

// DispatchFunc delivers one reminder event under a stable event id.
type DispatchFunc func(ctx context.Context, eventID string, event model.BookingEvent) error

// BookingLookup reads the booking a reminder was scheduled for.
type BookingLookup interface {
	FindByID(ctx context.Context, id string) (*model.Booking, error)
}

// OutcomeRecorder is satisfied by *metrics.Metrics.
type OutcomeRecorder interface {
	ReminderDispatched(outcome string)
}

// Sweeper fires due reminders. It sweeps once on start, which picks up anything that
// came due while the process was down, then on every tick.
type Sweeper struct {
	repo     Repository
	bookings BookingLookup
	dispatch DispatchFunc
	interval time.Duration
	metrics  OutcomeRecorder
	log      *logger.Logger
	now      func() time.Time
}

func NewSweeper(repo Repository, bookings BookingLookup, dispatch DispatchFunc, interval time.Duration, metrics OutcomeRecorder, log *logger.Logger) *Sweeper {
	return &Sweeper{
		repo:     repo,
		bookings: bookings,
		dispatch: dispatch,
		interval: interval,
		metrics:  metrics,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run blocks until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	s.log.Info("Starting reminder sweeper", "interval", s.interval)

	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			s.log.Info("Reminder sweeper stopped")
			return nil
		}
	}
}

// Sweep drains every reminder due now and returns how many were dispatched.
func (s *Sweeper) Sweep(ctx context.Context) int {
	sent := 0
	for ctx.Err() == nil {
		now := s.now()
		rem, err := s.repo.ClaimDue(ctx, now)
		if errors.Is(err, ErrNoneDue) {
			break
		}
		if err != nil {
			s.log.Error("Failed to claim due reminder", "error", err)
			break
		}

		if !rem.StartsAt.After(now) {
			s.log.Info("Skipping reminder for class that already started", "booking_id", rem.BookingID)
			s.record("expired")
			continue
		}

		current, err := s.matchesBooking(ctx, rem, now)
		if err != nil {
			s.log.Warn("Failed to load booking for reminder, releasing", "booking_id", rem.BookingID, "error", err)
			s.record("error")
			s.release(ctx, rem.BookingID)
			break
		}
		if !current {
			s.record("stale")
			continue
		}

		eventID := fmt.Sprintf("reminder-%s-%d", rem.BookingID, rem.StartsAt.Unix())
		if err := s.dispatch(ctx, eventID, rem.Event(now)); err != nil {
			s.log.Warn("Failed to dispatch reminder, releasing", "booking_id", rem.BookingID, "error", err)
			s.record("error")
			s.release(ctx, rem.BookingID)
			break
		}

		s.record("sent")
		sent++
	}

	if sent > 0 {
		s.log.Info("Reminder sweep completed", "sent", sent)
	}
	return sent
}

// matchesBooking reports whether rem still describes its booking. A reminder for a
// cancelled or deleted booking is dropped; one left at an older time is rescheduled
// from the booking's current start.
func (s *Sweeper) matchesBooking(ctx context.Context, rem *model.Reminder, now time.Time) (bool, error) {
	b, err := s.bookings.FindByID(ctx, rem.BookingID)
	switch {
	case errors.Is(err, bookingserrors.ErrNotFound), errors.Is(err, bookingserrors.ErrInvalidID):
		b = nil
	case err != nil:
		return false, err
	}

	if b == nil || !b.Active() {
		s.log.Info("Dropping reminder for cancelled booking", "booking_id", rem.BookingID)
		if err := s.repo.Cancel(ctx, rem.BookingID); err != nil {
			s.log.Error("Failed to drop reminder", "booking_id", rem.BookingID, "error", err)
		}
		return false, nil
	}

	if !b.StartsAt.Equal(rem.StartsAt) {
		s.log.Info("Reminder out of date, rescheduling",
			"booking_id", rem.BookingID,
			"reminder_starts_at", rem.StartsAt,
			"booking_starts_at", b.StartsAt,
		)
		if err := s.repo.Schedule(ctx, model.NewReminder(b, rem.StartsAt.Sub(rem.FireAt), now)); err != nil {
			s.log.Error("Failed to reschedule reminder", "booking_id", rem.BookingID, "error", err)
		}
		return false, nil
	}
	return true, nil
}

func (s *Sweeper) release(ctx context.Context, bookingID string) {
	if err := s.repo.Release(context.WithoutCancel(ctx), bookingID); err != nil {
		s.log.Error("Failed to release reminder", "booking_id", bookingID, "error", err)
	}
}

func (s *Sweeper) record(outcome string) {
	if s.metrics != nil {
		s.metrics.ReminderDispatched(outcome)
	}
}
