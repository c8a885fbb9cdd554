package reminder

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	bookingserrors "tutorbook/internal/bookings/errors"
	"tutorbook/pkg/config"
	"tutorbook/pkg/logger"
	"tutorbook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu   sync.Mutex
	rems map[string]*model.Reminder
}

func newMemRepo() *memRepo {
	return &memRepo{rems: map[string]*model.Reminder{}}
}

func (m *memRepo) Schedule(_ context.Context, r *model.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	cp.Status = model.ReminderPending
	m.rems[r.BookingID] = &cp
	return nil
}

func (m *memRepo) Cancel(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rems, id)
	return nil
}

func (m *memRepo) ClaimDue(_ context.Context, now time.Time) (*model.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []*model.Reminder
	for _, r := range m.rems {
		if r.Status == model.ReminderPending && !r.FireAt.After(now) {
			due = append(due, r)
		}
	}
	if len(due) == 0 {
		return nil, ErrNoneDue
	}
	sort.Slice(due, func(i, j int) bool { return due[i].FireAt.Before(due[j].FireAt) })
	due[0].Status = model.ReminderSent
	cp := *due[0]
	return &cp, nil
}

func (m *memRepo) Release(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rems[id]; ok {
		r.Status = model.ReminderPending
	}
	return nil
}

func (m *memRepo) status(id string) model.ReminderStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rems[id].Status
}

func (m *memRepo) get(id string) (*model.Reminder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rems[id]
	return r, ok
}

// memBookings answers lookups from a map; ids not in it are not found.
type memBookings struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking
	err      error
}

func (m *memBookings) FindByID(_ context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	b, ok := m.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memBookings) put(b *model.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = b
}

type dispatched struct {
	mu     sync.Mutex
	ids    []string
	events []model.BookingEvent
	err    error
}

func (d *dispatched) fn(_ context.Context, eventID string, e model.BookingEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.ids = append(d.ids, eventID)
	d.events = append(d.events, e)
	return nil
}

var now = time.Date(2025, 4, 20, 9, 0, 0, 0, time.UTC)

func booking(id string, startsAt time.Time) *model.Booking {
	return &model.Booking{
		ID:        id,
		StudentID: "s-1",
		TeacherID: "t-1",
		Day:       "Monday",
		Date:      startsAt.Format("2006-01-02"),
		StartTime: startsAt.Format("15:04"),
		StartsAt:  startsAt,
		Status:    config.Pending,
	}
}

// schedule stores b and a reminder for it, as the booking service does on create.
func schedule(t *testing.T, repo *memRepo, lookup *memBookings, b *model.Booking) {
	t.Helper()
	lookup.put(b)
	require.NoError(t, repo.Schedule(context.Background(), model.NewReminder(b, 24*time.Hour, now)))
}

func newLookup() *memBookings {
	return &memBookings{bookings: map[string]*model.Booking{}}
}

func newTestSweeper(repo Repository, lookup BookingLookup, d *dispatched) *Sweeper {
	s := NewSweeper(repo, lookup, d.fn, time.Hour, nil, logger.NewNop())
	s.now = func() time.Time { return now }
	return s
}

func TestSweep_FiresOnlyDueReminders(t *testing.T) {
	repo, lookup := newMemRepo(), newLookup()
	ctx := context.Background()

	schedule(t, repo, lookup, booking("due", now.Add(23*time.Hour)))
	schedule(t, repo, lookup, booking("later", now.Add(48*time.Hour)))

	d := &dispatched{}
	s := newTestSweeper(repo, lookup, d)

	assert.Equal(t, 1, s.Sweep(ctx))
	require.Len(t, d.events, 1)
	assert.Equal(t, model.EventBookingReminder, d.events[0].Type)
	assert.Equal(t, "due", d.events[0].BookingID)
	assert.Equal(t, model.ReminderSent, repo.status("due"))
	assert.Equal(t, model.ReminderPending, repo.status("later"))

	// Nothing fires twice.
	assert.Zero(t, s.Sweep(ctx))
}

func TestSweep_RescheduleReplacesReminder(t *testing.T) {
	repo, lookup := newMemRepo(), newLookup()

	schedule(t, repo, lookup, booking("b", now.Add(time.Hour)))
	schedule(t, repo, lookup, booking("b", now.Add(72*time.Hour)))

	d := &dispatched{}
	assert.Zero(t, newTestSweeper(repo, lookup, d).Sweep(context.Background()))
}

func TestSweep_SkipsStartedClasses(t *testing.T) {
	repo, lookup := newMemRepo(), newLookup()
	schedule(t, repo, lookup, booking("past", now.Add(-time.Hour)))

	d := &dispatched{}
	assert.Zero(t, newTestSweeper(repo, lookup, d).Sweep(context.Background()))
	assert.Empty(t, d.events)
}

func TestSweep_DropsReminderOfCancelledBooking(t *testing.T) {
	repo, lookup := newMemRepo(), newLookup()
	ctx := context.Background()

	b := booking("cancelled", now.Add(2*time.Hour))
	schedule(t, repo, lookup, b)
	b.Status = config.Cancelled

	// The booking row is gone entirely.
	require.NoError(t, repo.Schedule(ctx, model.NewReminder(booking("deleted", now.Add(3*time.Hour)), 24*time.Hour, now)))

	d := &dispatched{}
	assert.Zero(t, newTestSweeper(repo, lookup, d).Sweep(ctx))
	assert.Empty(t, d.events)

	_, ok := repo.get("cancelled")
	assert.False(t, ok)
	_, ok = repo.get("deleted")
	assert.False(t, ok)
}

func TestSweep_OutdatedReminderFollowsBooking(t *testing.T) {
	repo, lookup := newMemRepo(), newLookup()
	ctx := context.Background()

	// The reminder still points at the old start; the booking has moved.
	schedule(t, repo, lookup, booking("b", now.Add(2*time.Hour)))
	lookup.put(booking("b", now.Add(5*time.Hour)))

	d := &dispatched{}
	s := newTestSweeper(repo, lookup, d)
	assert.Equal(t, 1, s.Sweep(ctx))

	require.Len(t, d.events, 1)
	assert.True(t, now.Add(5*time.Hour).Equal(d.events[0].StartsAt))
	assert.Equal(t, []string{"reminder-b-" + strconv.FormatInt(now.Add(5*time.Hour).Unix(), 10)}, d.ids)

	// Moved beyond the lead time: nothing fires, the reminder waits for the new time.
	schedule(t, repo, lookup, booking("c", now.Add(3*time.Hour)))
	lookup.put(booking("c", now.Add(72*time.Hour)))
	assert.Zero(t, s.Sweep(ctx))

	rem, ok := repo.get("c")
	require.True(t, ok)
	assert.Equal(t, model.ReminderPending, rem.Status)
	assert.True(t, now.Add(48*time.Hour).Equal(rem.FireAt))
}

func TestSweep_ReleasesWhenBookingLookupFails(t *testing.T) {
	repo, lookup := newMemRepo(), newLookup()
	schedule(t, repo, lookup, booking("b", now.Add(2*time.Hour)))
	lookup.err = errors.New("mongo down")

	d := &dispatched{}
	assert.Zero(t, newTestSweeper(repo, lookup, d).Sweep(context.Background()))
	assert.Equal(t, model.ReminderPending, repo.status("b"))
}

func TestSweep_ReleasesOnDispatchFailure(t *testing.T) {
	repo, lookup := newMemRepo(), newLookup()
	ctx := context.Background()
	schedule(t, repo, lookup, booking("b", now.Add(2*time.Hour)))

	d := &dispatched{err: errors.New("mongo down")}
	s := newTestSweeper(repo, lookup, d)
	assert.Zero(t, s.Sweep(ctx))
	assert.Equal(t, model.ReminderPending, repo.status("b"))

	d.err = nil
	assert.Equal(t, 1, s.Sweep(ctx))
	assert.Equal(t, []string{"reminder-b-" + strconv.FormatInt(now.Add(2*time.Hour).Unix(), 10)}, d.ids)
}

func TestRun_SweepsImmediatelyAndStops(t *testing.T) {
	repo, lookup := newMemRepo(), newLookup()
	ctx, cancel := context.WithCancel(context.Background())
	schedule(t, repo, lookup, booking("b", now.Add(2*time.Hour)))

	d := &dispatched{}
	s := newTestSweeper(repo, lookup, d)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return len(d.events) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
