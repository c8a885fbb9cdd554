package model

import (
	"strings"
	"time"

	"tutorbook/pkg/config"
)

type Booking struct {
	ID               string               `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	StudentID        string               `json:"student_id" bson:"student_id" validate:"required,max=64"`
	TeacherID        string               `json:"teacher_id" bson:"teacher_id" validate:"required,mongodb"`
	Day              config.Weekday       `json:"day" bson:"day" validate:"required,weekday"`
	Date             string               `json:"date" bson:"date" validate:"required,iso_date"`
	StartTime        string               `json:"start_time" bson:"start_time" validate:"required,hhmm"`
	EndTime          string               `json:"end_time" bson:"end_time" validate:"required,hhmm"`
	StartsAt         time.Time            `json:"starts_at" bson:"starts_at"`
	EndsAt           time.Time            `json:"ends_at" bson:"ends_at"`
	Status           config.BookingStatus `json:"status" bson:"status" validate:"required,oneof=pending confirmed completed cancelled"`
	BookedBy         config.Role          `json:"booked_by" bson:"booked_by" validate:"required,oneof=student teacher admin"`
	SlotKey          string               `json:"-" bson:"slot_key,omitempty"`
	RescheduledTime  *time.Time           `json:"rescheduled_time,omitempty" bson:"rescheduled_time,omitempty"`
	CancellationTime *time.Time           `json:"cancellation_time,omitempty" bson:"cancellation_time,omitempty"`
	CreatedAt        time.Time            `json:"created_at" bson:"created_at"`
}

// SlotKey identifies one concrete occurrence of a teacher's slot. Only non-cancelled
// bookings carry it, and storage enforces it as unique.
func SlotKey(teacherID string, day config.Weekday, startTime, date string) string {
	return strings.Join([]string{teacherID, string(day), startTime, date}, "|")
}

func (b *Booking) Active() bool {
	return b.Status != config.Cancelled
}

// IsNoShow: confirmed, never cancelled, and the class has already ended.
func IsNoShow(b *Booking, now time.Time) bool {
	return b.Status == config.Confirmed &&
		b.CancellationTime == nil &&
		!b.EndsAt.IsZero() &&
		now.After(b.EndsAt)
}

// BookingRequest is the create payload. Either SlotID or Day+StartTime selects the slot.
type BookingRequest struct {
	TeacherID string         `json:"teacher_id" validate:"required,mongodb"`
	StudentID string         `json:"student_id,omitempty" validate:"omitempty,max=64"`
	Date      string         `json:"date" validate:"required,iso_date"`
	Day       config.Weekday `json:"day,omitempty" validate:"omitempty,weekday"`
	StartTime string         `json:"start_time,omitempty" validate:"omitempty,hhmm"`
	SlotID    string         `json:"slot_id,omitempty" validate:"omitempty,max=32"`
}

type RescheduleRequest struct {
	NewDate   string `json:"new_date" validate:"required"`
	NewSlotID string `json:"new_slot_id" validate:"required,max=32"`
}

type StatusUpdate struct {
	Status config.BookingStatus `json:"status" validate:"required,oneof=pending confirmed completed"`
}

type BookingStats struct {
	Role          config.Role                    `json:"role"`
	UserID        string                         `json:"user_id"`
	Total         int64                          `json:"total_bookings"`
	ByStatus      map[config.BookingStatus]int64 `json:"by_status"`
	Cancellations int64                          `json:"total_cancellations"`
	NoShows       int64                          `json:"total_no_shows"`
}
