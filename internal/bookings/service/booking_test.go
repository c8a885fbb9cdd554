package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"tutorbook/internal/bookings/repository"
	"tutorbook/pkg/auth"
	"tutorbook/pkg/config"
	apperrors "tutorbook/pkg/errors"
	"tutorbook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	student = auth.Actor{UserID: studentID, Role: config.RoleStudent}
	teacher = auth.Actor{UserID: teacherID, Role: config.RoleTeacher}
	admin   = auth.Actor{UserID: "admin-1", Role: config.RoleAdmin}
)

// 2025-04-21 is a Monday.
func mondayRequest() *model.BookingRequest {
	return &model.BookingRequest{
		TeacherID: teacherID,
		Date:      "2025-04-21",
		Day:       config.Monday,
		StartTime: "09:00",
	}
}

func TestCreate_DerivesSlotFields(t *testing.T) {
	f := newFixture()

	b, err := f.svc.Create(context.Background(), student, mondayRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, studentID, b.StudentID)
	assert.Equal(t, "09:40", b.EndTime)
	assert.Equal(t, config.Pending, b.Status)
	assert.Equal(t, config.RoleStudent, b.BookedBy)
	assert.Equal(t, time.Date(2025, 4, 21, 9, 40, 0, 0, time.UTC), b.EndsAt)
	assert.Equal(t, model.SlotKey(teacherID, config.Monday, "09:00", "2025-04-21"), b.SlotKey)
	assert.Zero(t, f.locks.held())

	f.svc.Drain()
	assert.Equal(t, []model.EventType{model.EventBookingCreated}, f.events.types())
	reminder, ok := f.reminders.get(b.ID)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 4, 20, 9, 0, 0, 0, time.UTC), reminder.FireAt)
}

func TestCreate_StudentCannotBookForSomeoneElse(t *testing.T) {
	f := newFixture()
	req := mondayRequest()
	req.StudentID = "someone-else"

	b, err := f.svc.Create(context.Background(), student, req)
	require.NoError(t, err)
	assert.Equal(t, studentID, b.StudentID)
}

func TestCreate_WeekdayMustMatchDate(t *testing.T) {
	f := newFixture()
	req := mondayRequest()
	req.Day = config.Tuesday

	_, err := f.svc.Create(context.Background(), student, req)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
	assert.Zero(t, f.repo.len())

	_, err = f.svc.Create(context.Background(), student, mondayRequest())
	assert.NoError(t, err)
}

func TestCreate_DuplicateConflicts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, student, mondayRequest())
	require.NoError(t, err)

	other := auth.Actor{UserID: "student-2", Role: config.RoleStudent}
	_, err = f.svc.Create(ctx, other, mondayRequest())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	assert.Equal(t, 1, f.repo.len())

	// Same slot on a different Monday is free.
	req := mondayRequest()
	req.Date = "2025-04-28"
	_, err = f.svc.Create(ctx, other, req)
	assert.NoError(t, err)
}

func TestCreate_UnknownStartTimeConflicts(t *testing.T) {
	f := newFixture()
	req := mondayRequest()
	req.StartTime = "13:00"

	_, err := f.svc.Create(context.Background(), student, req)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestCreate_BySlotID(t *testing.T) {
	f := newFixture()
	req := &model.BookingRequest{TeacherID: teacherID, Date: "2025-04-21", SlotID: "Monday-1400"}

	b, err := f.svc.Create(context.Background(), student, req)
	require.NoError(t, err)
	assert.Equal(t, "14:00", b.StartTime)
	assert.Equal(t, config.Monday, b.Day)
}

func TestCreate_TeacherAndAdminAssign(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	req := mondayRequest()
	_, err := f.svc.Create(ctx, teacher, req)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput), "student_id required")

	req = mondayRequest()
	req.StudentID = studentID
	b, err := f.svc.Create(ctx, teacher, req)
	require.NoError(t, err)
	assert.Equal(t, config.RoleTeacher, b.BookedBy)

	req = mondayRequest()
	req.TeacherID = otherTeacherID
	req.StudentID = studentID
	_, err = f.svc.Create(ctx, teacher, req)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = f.svc.Create(ctx, admin, req)
	assert.NoError(t, err)
}

func TestCreate_TeacherMissing(t *testing.T) {
	f := newFixture()
	req := mondayRequest()
	req.TeacherID = "6650a1b2c3d4e5f6ffffffff"

	_, err := f.svc.Create(context.Background(), student, req)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestCreate_ConcurrentRequestsLeaveOneBooking(t *testing.T) {
	f := newFixture()
	const n = 25

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, conflicts int
	start := make(chan struct{})

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			actor := auth.Actor{UserID: "student-" + string(rune('a'+i)), Role: config.RoleStudent}
			_, err := f.svc.Create(context.Background(), actor, mondayRequest())
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if apperrors.HasCode(err, apperrors.CodeConflict) {
				conflicts++
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
	assert.Equal(t, 1, f.repo.len())
	assert.Zero(t, f.locks.held())
}

func TestCreate_PublishFailureIsSwallowed(t *testing.T) {
	f := newFixture()
	f.events.err = errBroker

	_, err := f.svc.Create(context.Background(), student, mondayRequest())
	require.NoError(t, err)
	f.svc.Drain()
	assert.Len(t, f.events.types(), 1)
}

func TestCancel_TwiceSucceedsAndReleasesSlot(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	b, err := f.svc.Create(ctx, student, mondayRequest())
	require.NoError(t, err)

	f.svc.Drain()
	first := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return first }
	c1, err := f.svc.Cancel(ctx, student, b.ID)
	require.NoError(t, err)
	assert.Equal(t, config.Cancelled, c1.Status)
	require.NotNil(t, c1.CancellationTime)

	f.svc.Drain()
	second := first.Add(time.Hour)
	f.svc.now = func() time.Time { return second }
	c2, err := f.svc.Cancel(ctx, student, b.ID)
	require.NoError(t, err)
	assert.Equal(t, second, *c2.CancellationTime)

	f.svc.Drain()
	_, pending := f.reminders.get(b.ID)
	assert.False(t, pending)

	other := auth.Actor{UserID: "student-2", Role: config.RoleStudent}
	_, err = f.svc.Create(ctx, other, mondayRequest())
	assert.NoError(t, err, "cancelled booking must free the slot")
}

func TestCancel_OnlyParticipantsOrAdmin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	b, err := f.svc.Create(ctx, student, mondayRequest())
	require.NoError(t, err)

	stranger := auth.Actor{UserID: "student-9", Role: config.RoleStudent}
	_, err = f.svc.Cancel(ctx, stranger, b.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	otherTeacher := auth.Actor{UserID: otherTeacherID, Role: config.RoleTeacher}
	_, err = f.svc.Cancel(ctx, otherTeacher, b.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = f.svc.Cancel(ctx, teacher, b.ID)
	assert.NoError(t, err)

	_, err = f.svc.Cancel(ctx, admin, "6650a1b2c3d4e5f6ffffffff")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestRescheduleThenCancel_LeavesOneCancelledRow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	b, err := f.svc.Create(ctx, student, mondayRequest())
	require.NoError(t, err)

	moved, err := f.svc.Reschedule(ctx, teacher, b.ID, &model.RescheduleRequest{NewDate: "2025-04-22", NewSlotID: "tuesday-1100"})
	require.NoError(t, err)
	assert.Equal(t, b.ID, moved.ID)
	assert.Equal(t, config.Tuesday, moved.Day)
	assert.Equal(t, "11:00", moved.StartTime)
	assert.Equal(t, "11:40", moved.EndTime)
	require.NotNil(t, moved.RescheduledTime)

	cancelled, err := f.svc.Cancel(ctx, teacher, b.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, f.repo.len())
	assert.Equal(t, config.Cancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancellationTime)

	f.svc.Drain()
	assert.Equal(t, []model.EventType{
		model.EventBookingCreated,
		model.EventBookingRescheduled,
		model.EventBookingCancelled,
	}, orderedTypes(f.events))
}

func TestReschedule_DayFollowsDateNotSlot(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	b, err := f.svc.Create(ctx, student, mondayRequest())
	require.NoError(t, err)

	// monday-1000 placed on a Wednesday keeps the slot times and takes the date's weekday.
	moved, err := f.svc.Reschedule(ctx, admin, b.ID, &model.RescheduleRequest{NewDate: "2025-04-23", NewSlotID: "monday-1000"})
	require.NoError(t, err)
	assert.Equal(t, config.Wednesday, moved.Day)
	assert.Equal(t, "10:00", moved.StartTime)
	assert.Equal(t, model.SlotKey(teacherID, config.Wednesday, "10:00", "2025-04-23"), moved.SlotKey)

	f.svc.Drain()
	reminder, ok := f.reminders.get(b.ID)
	require.True(t, ok)
	assert.Equal(t, "2025-04-23", reminder.Date)
}

func TestReminderChanges_FollowBookingWriteOrder(t *testing.T) {
	f := newFixture()
	f.reminders.delay = 50 * time.Millisecond
	ctx := context.Background()

	b, err := f.svc.Create(ctx, student, mondayRequest())
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, student, b.ID)
	require.NoError(t, err)

	f.svc.Drain()
	_, ok := f.reminders.get(b.ID)
	assert.False(t, ok, "cancelled booking kept a pending reminder")

	req := mondayRequest()
	req.Date = "2025-04-28"
	b, err = f.svc.Create(ctx, student, req)
	require.NoError(t, err)
	_, err = f.svc.Reschedule(ctx, teacher, b.ID, &model.RescheduleRequest{NewDate: "2025-04-22", NewSlotID: "tuesday-1100"})
	require.NoError(t, err)
	_, err = f.svc.Reschedule(ctx, teacher, b.ID, &model.RescheduleRequest{NewDate: "2025-04-23", NewSlotID: "monday-1000"})
	require.NoError(t, err)

	f.svc.Drain()
	reminder, ok := f.reminders.get(b.ID)
	require.True(t, ok)
	assert.Equal(t, "2025-04-23", reminder.Date)
	assert.Equal(t, "10:00", reminder.StartTime)
}

func TestReschedule_Rules(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	b, err := f.svc.Create(ctx, student, mondayRequest())
	require.NoError(t, err)
	req := &model.RescheduleRequest{NewDate: "2025-04-22", NewSlotID: "tuesday-0900"}

	_, err = f.svc.Reschedule(ctx, student, b.ID, req)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	otherTeacher := auth.Actor{UserID: otherTeacherID, Role: config.RoleTeacher}
	_, err = f.svc.Reschedule(ctx, otherTeacher, b.ID, req)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = f.svc.Reschedule(ctx, teacher, b.ID, &model.RescheduleRequest{NewDate: "2025-04-22", NewSlotID: "tuesday-1300"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = f.svc.Reschedule(ctx, teacher, b.ID, &model.RescheduleRequest{NewDate: "22/04/2025", NewSlotID: "tuesday-0900"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	_, err = f.svc.Reschedule(ctx, teacher, "6650a1b2c3d4e5f6ffffffff", req)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = f.svc.Cancel(ctx, teacher, b.ID)
	require.NoError(t, err)
	_, err = f.svc.Reschedule(ctx, teacher, b.ID, req)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestReschedule_OntoTakenSlotConflicts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.Create(ctx, student, mondayRequest())
	require.NoError(t, err)

	req := mondayRequest()
	req.StartTime = "10:00"
	_, err = f.svc.Create(ctx, auth.Actor{UserID: "student-2", Role: config.RoleStudent}, req)
	require.NoError(t, err)

	_, err = f.svc.Reschedule(ctx, teacher, first.ID, &model.RescheduleRequest{NewDate: "2025-04-21", NewSlotID: "monday-1000"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	// Rescheduling onto its own current slot is allowed.
	_, err = f.svc.Reschedule(ctx, teacher, first.ID, &model.RescheduleRequest{NewDate: "2025-04-21", NewSlotID: "monday-0900"})
	assert.NoError(t, err)
}

func TestGetByIDAndList_AreScoped(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	b, err := f.svc.Create(ctx, student, mondayRequest())
	require.NoError(t, err)

	stranger := auth.Actor{UserID: "student-9", Role: config.RoleStudent}
	_, err = f.svc.GetByID(ctx, stranger, b.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	got, err := f.svc.GetByID(ctx, teacher, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	list, total, err := f.svc.List(ctx, stranger, repository.BookingFilter{StudentID: studentID}, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)

	_, total, err = f.svc.List(ctx, admin, repository.BookingFilter{}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, _, err = f.svc.List(ctx, admin, repository.BookingFilter{Status: "lost"}, 10, 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestUpdateStatusAndDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	b, err := f.svc.Create(ctx, student, mondayRequest())
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(ctx, b.ID, &model.StatusUpdate{Status: config.Confirmed})
	require.NoError(t, err)
	assert.Equal(t, config.Confirmed, updated.Status)

	_, err = f.svc.UpdateStatus(ctx, b.ID, &model.StatusUpdate{Status: config.Cancelled})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	require.NoError(t, f.svc.Delete(ctx, b.ID))
	assert.Zero(t, f.repo.len())

	err = f.svc.Delete(ctx, b.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	f.svc.Drain()
	_, pending := f.reminders.get(b.ID)
	assert.False(t, pending)
	assert.Equal(t, 1, f.metrics.outcomes["delete:success"])
	assert.Equal(t, 1, f.metrics.outcomes["delete:error"])
}

func orderedTypes(p *recordingPublisher) []model.EventType {
	types := p.types()
	rank := map[model.EventType]int{
		model.EventBookingCreated:     0,
		model.EventBookingRescheduled: 1,
		model.EventBookingCancelled:   2,
	}
	for i := 1; i < len(types); i++ {
		for j := i; j > 0 && rank[types[j]] < rank[types[j-1]]; j-- {
			types[j], types[j-1] = types[j-1], types[j]
		}
	}
	return types
}
