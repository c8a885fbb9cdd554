package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	availabilityerrors "tutorbook/internal/availability/errors"
	"tutorbook/internal/availability/repository"
	"tutorbook/internal/availability/validator"
	"tutorbook/pkg/config"
	apperrors "tutorbook/pkg/errors"
	"tutorbook/pkg/model"
	"tutorbook/pkg/sanitizer"
	"tutorbook/pkg/slots"
	"tutorbook/pkg/validation"
)

// BookedSlotsReader reports which start times already carry a non-cancelled booking.
// An empty date means any date. Implemented by the bookings repository.
type BookedSlotsReader interface {
	BookedStartTimes(ctx context.Context, teacherID string, day config.Weekday, date string) (map[string]bool, error)
}

type AvailabilityService interface {
	CreateTeacher(ctx context.Context, teacher *model.Teacher) error
	GetTeacher(ctx context.Context, id string) (*model.Teacher, error)
	ListTeachers(ctx context.Context, limit int, offset int64) ([]*model.Teacher, int64, error)

	AssignSlots(ctx context.Context, teacherID string, day config.Weekday) ([]model.Slot, error)
	UpsertSlots(ctx context.Context, teacherID string, day config.Weekday, candidates []model.Slot) ([]model.Slot, error)
	DeleteSlot(ctx context.Context, teacherID string, day config.Weekday, startTime string) error
	// GetAvailableSlots marks a slot IsBooked when an active booking holds it. With a date
	// only that date's bookings count; with an empty date a booking on any date counts,
	// so callers after one concrete day must pass it.
	GetAvailableSlots(ctx context.Context, teacherID string, day config.Weekday, date string) ([]model.AvailableSlot, error)

	// SlotsForDay returns the stored slots for day, or the canonical template if none.
	SlotsForDay(ctx context.Context, teacherID string, day config.Weekday) ([]model.Slot, error)
	ResolveSlot(ctx context.Context, teacherID, slotID string) (model.Slot, error)
}

type availabilityService struct {
	repo      repository.TeacherRepository
	booked    BookedSlotsReader
	validator *validator.TeacherValidator
	cfg       *config.Config
}

func NewAvailabilityService(
	repo repository.TeacherRepository,
	booked BookedSlotsReader,
	validator *validator.TeacherValidator,
	cfg *config.Config,
) AvailabilityService {
	return &availabilityService{
		repo:      repo,
		booked:    booked,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *availabilityService) CreateTeacher(ctx context.Context, teacher *model.Teacher) error {
	teacher.ID = ""
	teacher.Name = sanitizer.NormalizeName(teacher.Name)
	teacher.Email = sanitizer.NormalizeEmail(teacher.Email)
	teacher.Subject = sanitizer.NormalizeSubject(teacher.Subject)
	if teacher.PhoneNumber != "" {
		phone := sanitizer.NormalizePhone(teacher.PhoneNumber)
		if phone == "" {
			return apperrors.Validation("Teacher validation failed", map[string]any{
				"phone_number": "phone_number is not a valid phone number",
			})
		}
		teacher.PhoneNumber = phone
	}
	teacher.AvailableSlots = []model.Slot{}

	if err := s.validator.Validate(teacher); err != nil {
		s.cfg.Log.Warn("Teacher validation failed", "error", err)
		return validationError("Teacher validation failed", err)
	}

	if err := s.repo.Create(ctx, teacher); err != nil {
		if errors.Is(err, availabilityerrors.ErrDuplicateEmail) {
			return apperrors.Conflict("A teacher with this email already exists")
		}
		s.cfg.Log.Error("Failed to create teacher", "error", err)
		return apperrors.Internal("Failed to create teacher", err)
	}

	s.cfg.Log.Info("Teacher created successfully", "id", teacher.ID)
	return nil
}

func (s *availabilityService) GetTeacher(ctx context.Context, id string) (*model.Teacher, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Teacher ID cannot be empty")
	}
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, id, "Failed to retrieve teacher")
	}
	return teacher, nil
}

func (s *availabilityService) ListTeachers(ctx context.Context, limit int, offset int64) ([]*model.Teacher, int64, error) {
	var count int64
	var teachers []*model.Teacher
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count teachers", "error", errCount)
			errCount = apperrors.Internal("Failed to count teachers", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		teachers, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list teachers", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve teachers", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return teachers, count, nil
}

func (s *availabilityService) AssignSlots(ctx context.Context, teacherID string, day config.Weekday) ([]model.Slot, error) {
	day, err := normalizeDay(day)
	if err != nil {
		return nil, err
	}

	template := slots.CanonicalSlots(day)
	if err := s.repo.AssignSlots(ctx, teacherID, day, template); err != nil {
		if errors.Is(err, availabilityerrors.ErrSlotsAlreadyAssigned) {
			return nil, apperrors.Conflict(fmt.Sprintf("Slots for %s are already assigned", day))
		}
		return nil, s.mapRepoError(err, teacherID, "Failed to assign slots")
	}

	s.cfg.Log.Info("Assigned template slots", "teacher_id", teacherID, "day", day, "count", len(template))
	return template, nil
}

func (s *availabilityService) UpsertSlots(ctx context.Context, teacherID string, day config.Weekday, candidates []model.Slot) ([]model.Slot, error) {
	day, err := normalizeDay(day)
	if err != nil {
		return nil, err
	}

	incoming := make([]model.Slot, 0, len(candidates))
	for _, c := range candidates {
		slot := slots.New(day, strings.TrimSpace(c.StartTime), strings.TrimSpace(c.EndTime))
		if err := s.validator.ValidateSlot(slot); err != nil {
			s.cfg.Log.Debug("Skipping invalid slot", "teacher_id", teacherID, "slot", c, "error", err)
			continue
		}
		incoming = append(incoming, slot)
	}
	if len(incoming) == 0 {
		return nil, apperrors.InvalidInput("No valid slots provided: each slot needs start_time and end_time in HH:MM with start before end")
	}

	teacher, err := s.repo.FindByID(ctx, teacherID)
	if err != nil {
		return nil, s.mapRepoError(err, teacherID, "Failed to load teacher")
	}

	merged := slots.Merge(teacher.SlotsFor(day), incoming)
	if err := s.repo.ReplaceDaySlots(ctx, teacherID, day, merged); err != nil {
		return nil, s.mapRepoError(err, teacherID, "Failed to save slots")
	}

	s.cfg.Log.Info("Upserted slots",
		"teacher_id", teacherID,
		"day", day,
		"accepted", len(incoming),
		"rejected", len(candidates)-len(incoming),
		"total", len(merged),
	)
	return merged, nil
}

func (s *availabilityService) DeleteSlot(ctx context.Context, teacherID string, day config.Weekday, startTime string) error {
	day, err := normalizeDay(day)
	if err != nil {
		return err
	}
	if !slots.ValidTime(startTime) {
		return apperrors.InvalidInput("start_time must be in HH:MM format")
	}

	if err := s.repo.PullSlot(ctx, teacherID, day, startTime); err != nil {
		return s.mapRepoError(err, teacherID, "Failed to delete slot")
	}

	s.cfg.Log.Info("Deleted slot", "teacher_id", teacherID, "day", day, "start_time", startTime)
	return nil
}

func (s *availabilityService) SlotsForDay(ctx context.Context, teacherID string, day config.Weekday) ([]model.Slot, error) {
	day, err := normalizeDay(day)
	if err != nil {
		return nil, err
	}

	teacher, err := s.repo.FindByID(ctx, teacherID)
	if err != nil {
		return nil, s.mapRepoError(err, teacherID, "Failed to load teacher")
	}

	if stored := teacher.SlotsFor(day); len(stored) > 0 {
		return stored, nil
	}
	return slots.CanonicalSlots(day), nil
}

func (s *availabilityService) GetAvailableSlots(ctx context.Context, teacherID string, day config.Weekday, date string) ([]model.AvailableSlot, error) {
	day, err := normalizeDay(day)
	if err != nil {
		return nil, err
	}
	if date != "" {
		if err := slots.CheckDay(date, day); err != nil {
			return nil, apperrors.InvalidInput(err.Error())
		}
	}

	list, err := s.SlotsForDay(ctx, teacherID, day)
	if err != nil {
		return nil, err
	}

	booked, err := s.booked.BookedStartTimes(ctx, teacherID, day, date)
	if err != nil {
		s.cfg.Log.Error("Failed to load booked slots", "teacher_id", teacherID, "day", day, "error", err)
		return nil, apperrors.Internal("Failed to load bookings", err)
	}

	out := make([]model.AvailableSlot, 0, len(list))
	for _, slot := range list {
		out = append(out, model.AvailableSlot{Slot: slot, IsBooked: booked[slot.StartTime]})
	}
	return out, nil
}

func (s *availabilityService) ResolveSlot(ctx context.Context, teacherID, slotID string) (model.Slot, error) {
	prefix, _, ok := strings.Cut(slotID, "-")
	if !ok {
		return model.Slot{}, apperrors.NotFoundWithID("Slot", slotID)
	}
	day, err := slots.ParseWeekday(prefix)
	if err != nil {
		return model.Slot{}, apperrors.NotFoundWithID("Slot", slotID)
	}

	list, err := s.SlotsForDay(ctx, teacherID, day)
	if err != nil {
		return model.Slot{}, err
	}

	slot, found := slots.FindByID(list, strings.ToLower(slotID))
	if !found {
		return model.Slot{}, apperrors.NotFoundWithID("Slot", slotID)
	}
	return slot, nil
}

// --- Helpers ---

func normalizeDay(day config.Weekday) (config.Weekday, error) {
	d, err := slots.ParseWeekday(string(day))
	if err != nil {
		return "", apperrors.InvalidInput(fmt.Sprintf("Invalid day %q: expected a weekday name such as Monday", day))
	}
	return d, nil
}

func (s *availabilityService) mapRepoError(err error, id, msg string) error {
	switch {
	case errors.Is(err, availabilityerrors.ErrNotFound):
		return apperrors.NotFoundWithID("Teacher", id)
	case errors.Is(err, availabilityerrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid teacher ID format")
	}
	s.cfg.Log.Error(msg, "teacher_id", id, "error", err)
	return apperrors.Internal(msg, err)
}

func validationError(msg string, err error) error {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(msg, verrs.Details())
	}
	return apperrors.Validation(msg, map[string]any{"error": err.Error()})
}
