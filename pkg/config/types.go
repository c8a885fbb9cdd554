package config

import "strings"

type Weekday string

const (
	Sunday    Weekday = "Sunday"
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
)

// Weekdays is indexed by time.Weekday.
var Weekdays = []Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

type BookingStatus string

const (
	Pending   BookingStatus = "pending"
	Confirmed BookingStatus = "confirmed"
	Completed BookingStatus = "completed"
	Cancelled BookingStatus = "cancelled"
)

var BookingStatuses = []BookingStatus{Pending, Confirmed, Completed, Cancelled}

func (s BookingStatus) Valid() bool {
	for _, st := range BookingStatuses {
		if s == st {
			return true
		}
	}
	return false
}

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// NormalizeRole lower-cases and trims a role claim.
func NormalizeRole(r string) Role {
	return Role(strings.ToLower(strings.TrimSpace(r)))
}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}
