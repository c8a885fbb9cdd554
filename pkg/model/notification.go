package model

import "time"

type NotificationType string

const (
	NotificationBookingConfirmation NotificationType = "Booking Confirmation"
	NotificationBookingRescheduled  NotificationType = "Booking Rescheduled"
	NotificationBookingCancellation NotificationType = "Booking Cancellation"
	NotificationBookingDeleted      NotificationType = "Booking Removed"
	NotificationReminder            NotificationType = "Reminder"
)

type Notification struct {
	ID        string           `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    string           `json:"user_id" bson:"user_id"`
	BookingID string           `json:"booking_id,omitempty" bson:"booking_id,omitempty"`
	EventID   string           `json:"-" bson:"event_id,omitempty"`
	Type      NotificationType `json:"type" bson:"type"`
	Message   string           `json:"message" bson:"message"`
	Read      bool             `json:"read" bson:"read"`
	CreatedAt time.Time        `json:"created_at" bson:"created_at"`
}
