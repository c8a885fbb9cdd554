package validation

import (
	"errors"
	"testing"

	"tutorbook/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Day   string `json:"day" validate:"required,weekday"`
	Date  string `json:"date" validate:"required,iso_date"`
	Start string `json:"start_time" validate:"required,hhmm"`
}

func TestCalendarTags(t *testing.T) {
	v := New(logger.NewNop())

	require.NoError(t, Struct(v, sample{Day: "monday", Date: "2026-03-09", Start: "09:00"}))

	err := Struct(v, sample{Day: "Funday", Date: "2026-02-30", Start: "9:00"})
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 3)

	details := verrs.Details()
	assert.Contains(t, details["day"], "weekday")
	assert.Contains(t, details["date"], "YYYY-MM-DD")
	assert.Contains(t, details["start_time"], "HH:MM")
}

func TestRequiredUsesJSONName(t *testing.T) {
	v := New(logger.NewNop())

	err := Struct(v, sample{})
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "day is required", verrs[0].Message)
}
