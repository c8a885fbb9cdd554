package model

import "time"

type ReminderStatus string

const (
	ReminderPending ReminderStatus = "pending"
	ReminderSent    ReminderStatus = "sent"
)

// Reminder is keyed by booking id, so a booking has at most one pending reminder.
type Reminder struct {
	BookingID string         `json:"booking_id" bson:"_id"`
	StudentID string         `json:"student_id" bson:"student_id"`
	TeacherID string         `json:"teacher_id" bson:"teacher_id"`
	Day       string         `json:"day" bson:"day"`
	Date      string         `json:"date" bson:"date"`
	StartTime string         `json:"start_time" bson:"start_time"`
	EndTime   string         `json:"end_time" bson:"end_time"`
	StartsAt  time.Time      `json:"starts_at" bson:"starts_at"`
	FireAt    time.Time      `json:"fire_at" bson:"fire_at"`
	Status    ReminderStatus `json:"status" bson:"status"`
	SentAt    *time.Time     `json:"sent_at,omitempty" bson:"sent_at,omitempty"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
}

func NewReminder(b *Booking, lead time.Duration, now time.Time) *Reminder {
	return &Reminder{
		BookingID: b.ID,
		StudentID: b.StudentID,
		TeacherID: b.TeacherID,
		Day:       string(b.Day),
		Date:      b.Date,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		StartsAt:  b.StartsAt,
		FireAt:    b.StartsAt.Add(-lead),
		Status:    ReminderPending,
		CreatedAt: now,
	}
}

func (r *Reminder) Event(now time.Time) BookingEvent {
	return BookingEvent{
		Type:       EventBookingReminder,
		BookingID:  r.BookingID,
		StudentID:  r.StudentID,
		TeacherID:  r.TeacherID,
		Day:        r.Day,
		Date:       r.Date,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		StartsAt:   r.StartsAt,
		OccurredAt: now,
	}
}
