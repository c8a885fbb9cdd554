// Package slots holds the canonical weekly slot template and the calendar helpers
// that map weekday slots onto concrete dates.
//
// Dates are YYYY-MM-DD and times HH:MM; both are interpreted in UTC.
package slots

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"tutorbook/pkg/config"
	"tutorbook/pkg/model"
)

const DateLayout = "2006-01-02"

var (
	ErrInvalidWeekday = errors.New("invalid weekday")
	ErrInvalidDate    = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidTime    = errors.New("invalid time, expected HH:MM")
	ErrDayMismatch    = errors.New("date does not fall on the given day")
)

var hhmmRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

var canonical = []struct{ start, end string }{
	{"09:00", "09:40"},
	{"10:00", "10:40"},
	{"11:00", "11:40"},
	{"12:00", "12:40"},
	{"14:00", "14:40"},
}

// CanonicalSlots returns the default template for day. A fresh slice on every call.
func CanonicalSlots(day config.Weekday) []model.Slot {
	out := make([]model.Slot, 0, len(canonical))
	for _, c := range canonical {
		out = append(out, New(day, c.start, c.end))
	}
	return out
}

func New(day config.Weekday, start, end string) model.Slot {
	return model.Slot{
		ID:        SlotID(day, start),
		Day:       day,
		StartTime: start,
		EndTime:   end,
	}
}

// SlotID is deterministic in (day, start), e.g. "monday-0900".
func SlotID(day config.Weekday, start string) string {
	return strings.ToLower(string(day)) + "-" + strings.ReplaceAll(start, ":", "")
}

func ParseWeekday(s string) (config.Weekday, error) {
	s = strings.TrimSpace(s)
	for _, d := range config.Weekdays {
		if strings.EqualFold(s, string(d)) {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

func WeekdayOf(t time.Time) config.Weekday {
	return config.Weekdays[t.UTC().Weekday()]
}

// DayOfDate returns the weekday a YYYY-MM-DD date falls on.
func DayOfDate(date string) (config.Weekday, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return WeekdayOf(t), nil
}

// CheckDay fails with ErrDayMismatch when date is not a day.
func CheckDay(date string, day config.Weekday) error {
	actual, err := DayOfDate(date)
	if err != nil {
		return err
	}
	if actual != day {
		return fmt.Errorf("%w: %s is a %s, not a %s", ErrDayMismatch, date, actual, day)
	}
	return nil
}

func ValidTime(s string) bool {
	return hhmmRegex.MatchString(s)
}

// ValidRange requires both times well-formed and start strictly before end.
func ValidRange(start, end string) bool {
	// zero-padded HH:MM sorts lexically
	return ValidTime(start) && ValidTime(end) && start < end
}

// Combine joins a date and an HH:MM time into a UTC instant.
func Combine(date, hhmm string) (time.Time, error) {
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	if !ValidTime(hhmm) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, hhmm)
	}
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, hhmm)
	}
	return d.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute), nil
}

func FindByID(list []model.Slot, id string) (model.Slot, bool) {
	for _, s := range list {
		if s.ID == id {
			return s, true
		}
	}
	return model.Slot{}, false
}

// Merge replaces entries in existing that share (day, start) with incoming ones and
// appends the rest. Later incoming entries win over earlier ones.
func Merge(existing, incoming []model.Slot) []model.Slot {
	type key struct {
		day   config.Weekday
		start string
	}
	pos := make(map[key]int, len(existing)+len(incoming))
	out := make([]model.Slot, 0, len(existing)+len(incoming))

	for _, s := range append(append([]model.Slot{}, existing...), incoming...) {
		k := key{s.Day, s.StartTime}
		if i, ok := pos[k]; ok {
			out[i] = s
			continue
		}
		pos[k] = len(out)
		out = append(out, s)
	}
	return out
}
