package service

import (
	"context"
	"errors"
	"strings"
	"time"

	bookingserrors "tutorbook/internal/bookings/errors"
	"tutorbook/internal/bookings/repository"
	"tutorbook/pkg/auth"
	"tutorbook/pkg/config"
	apperrors "tutorbook/pkg/errors"
	"tutorbook/pkg/model"
	"tutorbook/pkg/slots"
)

// Reschedule moves a booking to another slot of the same teacher, mutating the one row.
// The stored day follows the new date's actual weekday; the slot supplies the times.
func (s *bookingService) Reschedule(ctx context.Context, actor auth.Actor, id string, req *model.RescheduleRequest) (*model.Booking, error) {
	if !actor.Is(config.RoleTeacher, config.RoleAdmin) {
		return nil, apperrors.Forbidden("Only teachers and admins can reschedule bookings")
	}

	req.NewDate = strings.TrimSpace(req.NewDate)
	req.NewSlotID = strings.ToLower(strings.TrimSpace(req.NewSlotID))
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError("Reschedule validation failed", err)
	}

	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == config.RoleTeacher && booking.TeacherID != actor.UserID {
		return nil, apperrors.Forbidden("You can only reschedule your own bookings")
	}
	if !booking.Active() {
		return nil, apperrors.Conflict("Cancelled bookings cannot be rescheduled")
	}

	slot, err := s.slots.ResolveSlot(ctx, booking.TeacherID, req.NewSlotID)
	if err != nil {
		return nil, err
	}

	change, err := rescheduleFor(booking.TeacherID, slot, req.NewDate, s.now())
	if err != nil {
		return nil, err
	}

	previous := *booking
	updated, err := s.moveBooking(ctx, booking, change)
	s.record("reschedule", err)
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking rescheduled",
		"id", id,
		"from_date", previous.Date,
		"from_start", previous.StartTime,
		"to_date", updated.Date,
		"to_start", updated.StartTime,
		"by", actor.UserID,
	)

	now := s.now()
	event := model.NewBookingEvent(model.EventBookingRescheduled, updated, now)
	event.PreviousDate = previous.Date
	event.PreviousStartTime = previous.StartTime
	reminder := model.NewReminder(updated, s.cfg.ReminderLeadTime, now)
	s.afterCommit(ctx, event, func(ctx context.Context) error {
		return s.reminders.Schedule(ctx, reminder)
	})
	return updated, nil
}

func rescheduleFor(teacherID string, slot model.Slot, date string, now time.Time) (repository.Reschedule, error) {
	day, err := slots.DayOfDate(date)
	if err != nil {
		return repository.Reschedule{}, apperrors.InvalidInput(err.Error())
	}
	startsAt, err := slots.Combine(date, slot.StartTime)
	if err != nil {
		return repository.Reschedule{}, apperrors.InvalidInput("Invalid date or slot time")
	}
	endsAt, err := slots.Combine(date, slot.EndTime)
	if err != nil {
		return repository.Reschedule{}, apperrors.InvalidInput("Invalid date or slot time")
	}

	return repository.Reschedule{
		Day:           day,
		Date:          date,
		StartTime:     slot.StartTime,
		EndTime:       slot.EndTime,
		StartsAt:      startsAt,
		EndsAt:        endsAt,
		SlotKey:       model.SlotKey(teacherID, day, slot.StartTime, date),
		RescheduledAt: now,
	}, nil
}

func (s *bookingService) moveBooking(ctx context.Context, booking *model.Booking, change repository.Reschedule) (*model.Booking, error) {
	if change.SlotKey != booking.SlotKey {
		release, err := s.acquireSlotLock(ctx, change.SlotKey)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	var updated *model.Booking
	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		holder, err := s.repo.FindActiveBySlotKey(txCtx, change.SlotKey)
		switch {
		case err == nil && holder.ID != booking.ID:
			return bookingserrors.ErrSlotTaken
		case err != nil && !errors.Is(err, bookingserrors.ErrNotFound):
			return err
		}

		updated, err = s.repo.Reschedule(txCtx, booking.ID, change)
		return err
	})
	if err != nil {
		return nil, s.mapRepoError(err, booking.ID, "Failed to reschedule booking")
	}
	return updated, nil
}
