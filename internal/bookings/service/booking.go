package service

import (
	"context"
	"errors"
	"sync"
	"time"

	bookingserrors "tutorbook/internal/bookings/errors"
	"tutorbook/internal/bookings/repository"
	"tutorbook/internal/bookings/validator"
	"tutorbook/pkg/auth"
	"tutorbook/pkg/config"
	apperrors "tutorbook/pkg/errors"
	"tutorbook/pkg/model"
	"tutorbook/pkg/validation"
)

// SlotResolver is the availability view the allocator books against.
type SlotResolver interface {
	SlotsForDay(ctx context.Context, teacherID string, day config.Weekday) ([]model.Slot, error)
	ResolveSlot(ctx context.Context, teacherID, slotID string) (model.Slot, error)
}

// ReminderScheduler keeps at most one pending reminder per booking.
type ReminderScheduler interface {
	Schedule(ctx context.Context, reminder *model.Reminder) error
	Cancel(ctx context.Context, bookingID string) error
}

// OperationRecorder is satisfied by *metrics.Metrics.
type OperationRecorder interface {
	BookingOperation(operation, outcome string)
}

type BookingService interface {
	Create(ctx context.Context, actor auth.Actor, req *model.BookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, actor auth.Actor, id string) (*model.Booking, error)
	List(ctx context.Context, actor auth.Actor, filter repository.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)
	Reschedule(ctx context.Context, actor auth.Actor, id string, req *model.RescheduleRequest) (*model.Booking, error)
	Cancel(ctx context.Context, actor auth.Actor, id string) (*model.Booking, error)
	UpdateStatus(ctx context.Context, id string, update *model.StatusUpdate) (*model.Booking, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, actor auth.Actor, role config.Role, userID string) (*model.BookingStats, error)

	// Drain waits for in-flight best-effort side effects.
	Drain()
}

type bookingService struct {
	repo      repository.BookingRepository
	lockRepo  repository.BookingLockRepository
	slots     SlotResolver
	events    EventPublisher
	reminders ReminderScheduler
	metrics   OperationRecorder
	validator *validator.BookingValidator
	cfg       *config.Config

	now      func() time.Time
	inflight sync.WaitGroup
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.BookingLockRepository,
	slots SlotResolver,
	events EventPublisher,
	reminders ReminderScheduler,
	metrics OperationRecorder,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		lockRepo:  lockRepo,
		slots:     slots,
		events:    events,
		reminders: reminders,
		metrics:   metrics,
		validator: validator,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *bookingService) GetByID(ctx context.Context, actor auth.Actor, id string) (*model.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, booking) {
		return nil, apperrors.Forbidden("You can only view your own bookings")
	}
	return booking, nil
}

// List scopes non-admin callers to their own bookings regardless of the filter passed.
func (s *bookingService) List(ctx context.Context, actor auth.Actor, filter repository.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	switch actor.Role {
	case config.RoleStudent:
		filter.StudentID = actor.UserID
	case config.RoleTeacher:
		filter.TeacherID = actor.UserID
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperrors.InvalidInput("Invalid status filter: " + string(filter.Status))
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.Find(ctx, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to retrieve bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return bookings, count, nil
}

// Cancel is repeatable: a second call succeeds and re-stamps the cancellation time.
func (s *bookingService) Cancel(ctx context.Context, actor auth.Actor, id string) (*model.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, booking) {
		return nil, apperrors.Forbidden("You can only cancel your own bookings")
	}

	cancelled, err := s.repo.Cancel(ctx, id, s.now())
	if err != nil {
		s.record("cancel", err)
		return nil, s.mapRepoError(err, id, "Failed to cancel booking")
	}
	s.record("cancel", nil)

	s.cfg.Log.Info("Booking cancelled", "id", id, "by", actor.UserID, "role", actor.Role)
	s.afterCommit(ctx, model.NewBookingEvent(model.EventBookingCancelled, cancelled, s.now()), func(ctx context.Context) error {
		return s.reminders.Cancel(ctx, id)
	})
	return cancelled, nil
}

func (s *bookingService) UpdateStatus(ctx context.Context, id string, update *model.StatusUpdate) (*model.Booking, error) {
	if err := s.validator.Validate(update); err != nil {
		return nil, validationError("Status update validation failed", err)
	}

	booking, err := s.repo.UpdateStatus(ctx, id, update.Status)
	if err != nil {
		s.record("update_status", err)
		return nil, s.mapRepoError(err, id, "Failed to update booking status")
	}
	s.record("update_status", nil)

	s.cfg.Log.Info("Booking status updated", "id", id, "status", update.Status)
	return booking, nil
}

// Delete is the admin hard removal; pending reminders go with it.
func (s *bookingService) Delete(ctx context.Context, id string) error {
	booking, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.record("delete", err)
		return s.mapRepoError(err, id, "Failed to delete booking")
	}
	s.record("delete", nil)

	s.cfg.Log.Info("Booking deleted", "id", id)
	s.afterCommit(ctx, model.NewBookingEvent(model.EventBookingDeleted, booking, s.now()), func(ctx context.Context) error {
		return s.reminders.Cancel(ctx, id)
	})
	return nil
}

func (s *bookingService) Drain() {
	s.inflight.Wait()
}

// --- Helpers ---

func canView(actor auth.Actor, b *model.Booking) bool {
	switch actor.Role {
	case config.RoleAdmin:
		return true
	case config.RoleTeacher:
		return b.TeacherID == actor.UserID
	case config.RoleStudent:
		return b.StudentID == actor.UserID
	}
	return false
}

func (s *bookingService) load(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, id, "Failed to retrieve booking")
	}
	return booking, nil
}

// afterCommit applies the reminder change before returning, so reminder writes land in
// the same order as the booking writes that caused them. The event publish runs detached
// from the request. Failures of either are logged and never reach the caller.
func (s *bookingService) afterCommit(ctx context.Context, event model.BookingEvent, reminder func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)

	if reminder != nil {
		rctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
		err := reminder(rctx)
		cancel()
		if err != nil {
			s.cfg.Log.Warn("Failed to update class reminder", "booking_id", event.BookingID, "error", err)
		}
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
		defer cancel()

		if err := s.events.PublishBookingEvent(ctx, event); err != nil {
			s.cfg.Log.Warn("Failed to publish booking event",
				"booking_id", event.BookingID,
				"type", event.Type,
				"error", err,
			)
		}
	}()
}

func (s *bookingService) record(operation string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, bookingserrors.ErrSlotTaken), errors.Is(err, bookingserrors.ErrSlotLocked),
		apperrors.HasCode(err, apperrors.CodeConflict):
		outcome = "conflict"
	default:
		outcome = "error"
	}
	s.metrics.BookingOperation(operation, outcome)
}

func (s *bookingService) mapRepoError(err error, id, msg string) error {
	switch {
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	case errors.Is(err, bookingserrors.ErrSlotTaken):
		return apperrors.Conflict("This slot is already booked for the selected date")
	case errors.Is(err, bookingserrors.ErrSlotLocked):
		return apperrors.Conflict("This slot is currently being booked by another request. Please try again.")
	case errors.Is(err, bookingserrors.ErrCancelled):
		return apperrors.Conflict("Booking is cancelled")
	}
	s.cfg.Log.Error(msg, "booking_id", id, "error", err)
	return apperrors.Internal(msg, err)
}

func validationError(msg string, err error) error {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(msg, verrs.Details())
	}
	return apperrors.Validation(msg, map[string]any{"error": err.Error()})
}
