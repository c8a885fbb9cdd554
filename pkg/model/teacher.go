package model

import (
	"time"

	"tutorbook/pkg/config"
)

type Teacher struct {
	ID             string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name           string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Email          string    `json:"email" bson:"email" validate:"required,email"`
	Subject        string    `json:"subject" bson:"subject" validate:"required,min=2,max=100"`
	PhoneNumber    string    `json:"phone_number,omitempty" bson:"phone_number,omitempty" validate:"omitempty,e164"`
	AvailableSlots []Slot    `json:"available_slots" bson:"available_slots"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}

// SlotsFor returns the stored slots for day, in stored order.
func (t *Teacher) SlotsFor(day config.Weekday) []Slot {
	var out []Slot
	for _, s := range t.AvailableSlots {
		if s.Day == day {
			out = append(out, s)
		}
	}
	return out
}
