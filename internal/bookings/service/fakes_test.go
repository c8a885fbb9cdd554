package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bookingserrors "tutorbook/internal/bookings/errors"
	"tutorbook/internal/bookings/repository"
	"tutorbook/internal/bookings/validator"
	"tutorbook/pkg/config"
	mongotx "tutorbook/pkg/db/mongo"
	apperrors "tutorbook/pkg/errors"
	"tutorbook/pkg/logger"
	"tutorbook/pkg/model"
	"tutorbook/pkg/slots"
)

const (
	teacherID      = "6650a1b2c3d4e5f601234567"
	otherTeacherID = "6650a1b2c3d4e5f601234568"
	studentID      = "student-1"
)

// memBookingRepo enforces slot key uniqueness the way the partial index does.
type memBookingRepo struct {
	mu       sync.Mutex
	seq      int
	bookings map[string]*model.Booking
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: map[string]*model.Booking{}}
}

func (r *memBookingRepo) keyHeldByOther(key, id string) bool {
	if key == "" {
		return false
	}
	for _, b := range r.bookings {
		if b.SlotKey == key && b.ID != id {
			return true
		}
	}
	return false
}

func (r *memBookingRepo) Create(_ context.Context, b *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.keyHeldByOther(b.SlotKey, "") {
		return bookingserrors.ErrSlotTaken
	}
	r.seq++
	b.ID = fmt.Sprintf("%024x", r.seq)
	b.CreatedAt = time.Now().UTC()
	cp := *b
	r.bookings[b.ID] = &cp
	return nil
}

func (r *memBookingRepo) FindByID(_ context.Context, id string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memBookingRepo) FindActiveBySlotKey(_ context.Context, key string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.SlotKey == key && b.Active() {
			cp := *b
			return &cp, nil
		}
	}
	return nil, bookingserrors.ErrNotFound
}

func (r *memBookingRepo) BookedStartTimes(_ context.Context, tid string, day config.Weekday, date string) (map[string]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]bool{}
	for _, b := range r.bookings {
		if b.TeacherID == tid && b.Day == day && b.Active() && (date == "" || b.Date == date) {
			out[b.StartTime] = true
		}
	}
	return out, nil
}

func (r *memBookingRepo) match(f repository.BookingFilter, b *model.Booking) bool {
	return (f.StudentID == "" || b.StudentID == f.StudentID) &&
		(f.TeacherID == "" || b.TeacherID == f.TeacherID) &&
		(f.Status == "" || b.Status == f.Status)
}

func (r *memBookingRepo) Find(_ context.Context, f repository.BookingFilter, _ int, _ int64) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Booking{}
	for _, b := range r.bookings {
		if r.match(f, b) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memBookingRepo) Count(_ context.Context, f repository.BookingFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, b := range r.bookings {
		if r.match(f, b) {
			n++
		}
	}
	return n, nil
}

func (r *memBookingRepo) CountNoShows(_ context.Context, f repository.BookingFilter, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, b := range r.bookings {
		if r.match(f, b) && model.IsNoShow(b, now) {
			n++
		}
	}
	return n, nil
}

func (r *memBookingRepo) Reschedule(_ context.Context, id string, rs repository.Reschedule) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	if !b.Active() {
		return nil, bookingserrors.ErrCancelled
	}
	if r.keyHeldByOther(rs.SlotKey, id) {
		return nil, bookingserrors.ErrSlotTaken
	}
	b.Day, b.Date, b.StartTime, b.EndTime = rs.Day, rs.Date, rs.StartTime, rs.EndTime
	b.StartsAt, b.EndsAt, b.SlotKey = rs.StartsAt, rs.EndsAt, rs.SlotKey
	at := rs.RescheduledAt
	b.RescheduledTime = &at
	cp := *b
	return &cp, nil
}

func (r *memBookingRepo) Cancel(_ context.Context, id string, at time.Time) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	b.Status = config.Cancelled
	b.CancellationTime = &at
	b.SlotKey = ""
	cp := *b
	return &cp, nil
}

func (r *memBookingRepo) UpdateStatus(_ context.Context, id string, status config.BookingStatus) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	if !b.Active() {
		return nil, bookingserrors.ErrCancelled
	}
	b.Status = status
	cp := *b
	return &cp, nil
}

func (r *memBookingRepo) Delete(_ context.Context, id string) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	delete(r.bookings, id)
	return b, nil
}

func (r *memBookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(ctx)
}

func (r *memBookingRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bookings)
}

type memLockRepo struct {
	mu    sync.Mutex
	locks map[string]bool
}

func newMemLockRepo() *memLockRepo {
	return &memLockRepo{locks: map[string]bool{}}
}

func (r *memLockRepo) Acquire(_ context.Context, id string) (*model.BookingLock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locks[id] {
		return nil, bookingserrors.ErrSlotLocked
	}
	r.locks[id] = true
	return &model.BookingLock{ID: id}, nil
}

func (r *memLockRepo) Release(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locks, id)
	return nil
}

func (r *memLockRepo) held() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}

// templateSlots serves canonical slots for known teachers.
type templateSlots struct {
	teachers map[string]bool
}

func (s templateSlots) SlotsForDay(_ context.Context, tid string, day config.Weekday) ([]model.Slot, error) {
	if !s.teachers[tid] {
		return nil, apperrors.NotFoundWithID("Teacher", tid)
	}
	return slots.CanonicalSlots(day), nil
}

func (s templateSlots) ResolveSlot(ctx context.Context, tid, slotID string) (model.Slot, error) {
	for _, day := range config.Weekdays {
		list, err := s.SlotsForDay(ctx, tid, day)
		if err != nil {
			return model.Slot{}, err
		}
		if slot, ok := slots.FindByID(list, slotID); ok {
			return slot, nil
		}
	}
	return model.Slot{}, apperrors.NotFoundWithID("Slot", slotID)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.BookingEvent
	err    error
}

func (p *recordingPublisher) PublishBookingEvent(_ context.Context, e model.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []model.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type memReminders struct {
	mu      sync.Mutex
	pending map[string]*model.Reminder
	// delay slows Schedule down to expose ordering between reminder writes.
	delay time.Duration
}

func (m *memReminders) Schedule(_ context.Context, r *model.Reminder) error {
	time.Sleep(m.delay)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[r.BookingID] = r
	return nil
}

func (m *memReminders) Cancel(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, id)
	return nil
}

func (m *memReminders) get(id string) (*model.Reminder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.pending[id]
	return r, ok
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (c *countingRecorder) BookingOperation(op, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes[op+":"+outcome]++
}

type fixture struct {
	svc       *bookingService
	repo      *memBookingRepo
	locks     *memLockRepo
	events    *recordingPublisher
	reminders *memReminders
	metrics   *countingRecorder
}

func newFixture() *fixture {
	log := logger.NewNop()
	cfg := &config.Config{
		Log:              log,
		WriteTimeout:     time.Second,
		ReminderLeadTime: 24 * time.Hour,
	}
	f := &fixture{
		repo:      newMemBookingRepo(),
		locks:     newMemLockRepo(),
		events:    &recordingPublisher{},
		reminders: &memReminders{pending: map[string]*model.Reminder{}},
		metrics:   &countingRecorder{outcomes: map[string]int{}},
	}
	f.svc = NewBookingService(
		f.repo,
		f.locks,
		templateSlots{teachers: map[string]bool{teacherID: true, otherTeacherID: true}},
		f.events,
		f.reminders,
		f.metrics,
		validator.NewBookingValidator(log),
		cfg,
	).(*bookingService)
	return f
}

var errBroker = errors.New("broker unavailable")
