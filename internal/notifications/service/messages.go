package service

import (
	"fmt"

	"tutorbook/pkg/model"
)

var notificationTypes = map[model.EventType]model.NotificationType{
	model.EventBookingCreated:     model.NotificationBookingConfirmation,
	model.EventBookingRescheduled: model.NotificationBookingRescheduled,
	model.EventBookingCancelled:   model.NotificationBookingCancellation,
	model.EventBookingDeleted:     model.NotificationBookingDeleted,
	model.EventBookingReminder:    model.NotificationReminder,
}

func when(day, date, start string) string {
	return fmt.Sprintf("%s %s at %s", day, date, start)
}

// messagesFor returns the student-facing and teacher-facing texts.
func messagesFor(e model.BookingEvent, studentName, teacherName string) (string, string) {
	at := when(e.Day, e.Date, e.StartTime)

	switch e.Type {
	case model.EventBookingCreated:
		return fmt.Sprintf("Your class with teacher %s has been successfully booked for %s.", teacherName, at),
			fmt.Sprintf("You have a new class booked with student %s for %s.", studentName, at)
	case model.EventBookingRescheduled:
		return fmt.Sprintf("Your class with teacher %s has been rescheduled to %s.", teacherName, at),
			fmt.Sprintf("Your class with student %s has been rescheduled to %s.", studentName, at)
	case model.EventBookingCancelled:
		return fmt.Sprintf("Your class with teacher %s scheduled for %s has been cancelled.", teacherName, at),
			fmt.Sprintf("Your class with student %s scheduled for %s has been cancelled.", studentName, at)
	case model.EventBookingDeleted:
		return fmt.Sprintf("Your class with teacher %s scheduled for %s has been removed.", teacherName, at),
			fmt.Sprintf("Your class with student %s scheduled for %s has been removed.", studentName, at)
	case model.EventBookingReminder:
		return fmt.Sprintf("Reminder: Your class with %s is coming up tomorrow at %s.", teacherName, e.StartTime),
			fmt.Sprintf("Reminder: Your class with %s is coming up tomorrow at %s.", studentName, e.StartTime)
	}
	return "", ""
}
