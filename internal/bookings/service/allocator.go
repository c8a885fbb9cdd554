package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	bookingserrors "tutorbook/internal/bookings/errors"
	"tutorbook/pkg/auth"
	"tutorbook/pkg/config"
	apperrors "tutorbook/pkg/errors"
	"tutorbook/pkg/model"
	"tutorbook/pkg/slots"
)

// Create books a slot for a student. Students book for themselves; teachers assign
// students to their own slots; admins assign anyone.
func (s *bookingService) Create(ctx context.Context, actor auth.Actor, req *model.BookingRequest) (*model.Booking, error) {
	sanitizeRequest(req)

	switch actor.Role {
	case config.RoleStudent:
		req.StudentID = actor.UserID
	case config.RoleTeacher:
		if req.TeacherID != actor.UserID {
			return nil, apperrors.Forbidden("Teachers can only assign students to their own slots")
		}
	case config.RoleAdmin:
	default:
		return nil, apperrors.Forbidden("Access denied")
	}
	if req.StudentID == "" {
		return nil, apperrors.InvalidInput("student_id is required")
	}

	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Booking request validation failed", "error", err)
		return nil, validationError("Booking validation failed", err)
	}

	day, startTime, err := s.selectSlot(ctx, req)
	if err != nil {
		return nil, err
	}

	booking, err := s.allocate(ctx, req.TeacherID, req.StudentID, day, req.Date, startTime, actor.Role)
	s.record("create", err)
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"teacher_id", booking.TeacherID,
		"student_id", booking.StudentID,
		"date", booking.Date,
		"start_time", booking.StartTime,
		"booked_by", booking.BookedBy,
	)

	now := s.now()
	reminder := model.NewReminder(booking, s.cfg.ReminderLeadTime, now)
	s.afterCommit(ctx, model.NewBookingEvent(model.EventBookingCreated, booking, now), func(ctx context.Context) error {
		return s.reminders.Schedule(ctx, reminder)
	})
	return booking, nil
}

// selectSlot reads (day, start) from the request, either directly or from slot_id.
func (s *bookingService) selectSlot(ctx context.Context, req *model.BookingRequest) (config.Weekday, string, error) {
	if req.SlotID != "" {
		slot, err := s.slots.ResolveSlot(ctx, req.TeacherID, req.SlotID)
		if err != nil {
			return "", "", err
		}
		if req.Day != "" && !strings.EqualFold(string(req.Day), string(slot.Day)) {
			return "", "", apperrors.InvalidInput("day does not match the selected slot")
		}
		return slot.Day, slot.StartTime, nil
	}

	if req.Day == "" || req.StartTime == "" {
		return "", "", apperrors.InvalidInput("Either slot_id or both day and start_time are required")
	}
	day, err := slots.ParseWeekday(string(req.Day))
	if err != nil {
		return "", "", apperrors.InvalidInput(err.Error())
	}
	return day, req.StartTime, nil
}

// allocate is resolve, conflict-check, reserve-if-free. The lock serialises racing
// requests for one slot key and the unique slot_key index backs it up.
func (s *bookingService) allocate(ctx context.Context, teacherID, studentID string, day config.Weekday, date, startTime string, bookedBy config.Role) (*model.Booking, error) {
	if err := slots.CheckDay(date, day); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	list, err := s.slots.SlotsForDay(ctx, teacherID, day)
	if err != nil {
		return nil, err
	}

	booked, err := s.repo.BookedStartTimes(ctx, teacherID, day, date)
	if err != nil {
		s.cfg.Log.Error("Failed to load booked slots", "teacher_id", teacherID, "error", err)
		return nil, apperrors.Internal("Failed to check existing bookings", err)
	}

	slot, ok := firstFree(list, startTime, booked)
	if !ok {
		return nil, apperrors.Conflict(fmt.Sprintf("No free %s slot at %s on %s", day, startTime, date))
	}

	booking, err := newBooking(teacherID, studentID, slot, date, bookedBy)
	if err != nil {
		return nil, err
	}

	if err := s.reserve(ctx, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

// firstFree picks the first slot in list order matching start that is not booked.
func firstFree(list []model.Slot, start string, booked map[string]bool) (model.Slot, bool) {
	for _, slot := range list {
		if slot.StartTime == start && !booked[slot.StartTime] {
			return slot, true
		}
	}
	return model.Slot{}, false
}

func newBooking(teacherID, studentID string, slot model.Slot, date string, bookedBy config.Role) (*model.Booking, error) {
	startsAt, err := slots.Combine(date, slot.StartTime)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	endsAt, err := slots.Combine(date, slot.EndTime)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	return &model.Booking{
		StudentID: studentID,
		TeacherID: teacherID,
		Day:       slot.Day,
		Date:      date,
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
		StartsAt:  startsAt,
		EndsAt:    endsAt,
		Status:    config.Pending,
		BookedBy:  bookedBy,
		SlotKey:   model.SlotKey(teacherID, slot.Day, slot.StartTime, date),
	}, nil
}

func (s *bookingService) reserve(ctx context.Context, booking *model.Booking) error {
	if err := s.validator.ValidateBooking(booking); err != nil {
		return validationError("Booking validation failed", err)
	}

	release, err := s.acquireSlotLock(ctx, booking.SlotKey)
	if err != nil {
		return err
	}
	defer release()

	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindActiveBySlotKey(txCtx, booking.SlotKey)
		switch {
		case err == nil:
			s.cfg.Log.Debug("Slot held by active booking", "slot_key", booking.SlotKey, "holder", existing.ID)
			return bookingserrors.ErrSlotTaken
		case !errors.Is(err, bookingserrors.ErrNotFound):
			return err
		}
		return s.repo.Create(txCtx, booking)
	})
	if err != nil {
		return s.mapRepoError(err, booking.SlotKey, "Failed to create booking")
	}
	return nil
}

// acquireSlotLock returns the release func. Release runs detached from the request
// context so a cancelled request still frees the lock.
func (s *bookingService) acquireSlotLock(ctx context.Context, slotKey string) (func(), error) {
	if _, err := s.lockRepo.Acquire(ctx, slotKey); err != nil {
		if errors.Is(err, bookingserrors.ErrSlotLocked) {
			return nil, apperrors.Conflict("This slot is currently being booked by another request. Please try again.")
		}
		s.cfg.Log.Error("Failed to acquire booking lock", "slot_key", slotKey, "error", err)
		return nil, apperrors.Internal("Failed to acquire booking lock", err)
	}

	return func() {
		if err := s.lockRepo.Release(context.WithoutCancel(ctx), slotKey); err != nil {
			s.cfg.Log.Warn("Failed to release booking lock", "slot_key", slotKey, "error", err)
		}
	}, nil
}

func sanitizeRequest(req *model.BookingRequest) {
	req.TeacherID = strings.TrimSpace(req.TeacherID)
	req.StudentID = strings.TrimSpace(req.StudentID)
	req.Date = strings.TrimSpace(req.Date)
	req.StartTime = strings.TrimSpace(req.StartTime)
	req.SlotID = strings.ToLower(strings.TrimSpace(req.SlotID))
}
