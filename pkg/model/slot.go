package model

import "tutorbook/pkg/config"

// Slot is one recurring weekly availability entry. Times are HH:MM, 24h clock.
type Slot struct {
	ID        string         `json:"id" bson:"id"`
	Day       config.Weekday `json:"day" bson:"day" validate:"required,weekday"`
	StartTime string         `json:"start_time" bson:"start_time" validate:"required,hhmm"`
	EndTime   string         `json:"end_time" bson:"end_time" validate:"required,hhmm"`
}

// AvailableSlot is a Slot annotated for a query; never stored.
type AvailableSlot struct {
	Slot     `bson:",inline"`
	IsBooked bool `json:"is_booked" bson:"-"`
}
