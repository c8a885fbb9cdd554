package model

import "time"

type EventType string

const (
	EventBookingCreated     EventType = "booking.created"
	EventBookingRescheduled EventType = "booking.rescheduled"
	EventBookingCancelled   EventType = "booking.cancelled"
	EventBookingDeleted     EventType = "booking.deleted"
	EventBookingReminder    EventType = "booking.reminder"
)

// BookingEvent is the payload on the booking events topic. Previous* fields are set
// only for reschedules.
type BookingEvent struct {
	Type              EventType `json:"type"`
	BookingID         string    `json:"booking_id"`
	StudentID         string    `json:"student_id"`
	TeacherID         string    `json:"teacher_id"`
	Day               string    `json:"day"`
	Date              string    `json:"date"`
	StartTime         string    `json:"start_time"`
	EndTime           string    `json:"end_time"`
	StartsAt          time.Time `json:"starts_at"`
	PreviousDate      string    `json:"previous_date,omitempty"`
	PreviousStartTime string    `json:"previous_start_time,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

func NewBookingEvent(t EventType, b *Booking, now time.Time) BookingEvent {
	return BookingEvent{
		Type:       t,
		BookingID:  b.ID,
		StudentID:  b.StudentID,
		TeacherID:  b.TeacherID,
		Day:        string(b.Day),
		Date:       b.Date,
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		StartsAt:   b.StartsAt,
		OccurredAt: now,
	}
}
