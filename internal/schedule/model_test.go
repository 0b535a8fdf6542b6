package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWeekday(t *testing.T) {
	cases := []struct {
		raw  string
		want Weekday
	}{
		{"monday", Monday},
		{"Monday", Monday},
		{" Monday ", Monday},
		{"\tFRIDAY", Friday},
		{"sunday", Sunday},
	}
	for _, tc := range cases {
		got, err := NormalizeWeekday(tc.raw)
		require.NoError(t, err, "raw=%q", tc.raw)
		assert.Equal(t, tc.want, got)
	}

	_, err := NormalizeWeekday("someday")
	assert.ErrorIs(t, err, ErrUnknownWeekday)
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(9*60+30), got)
	assert.Equal(t, "09:30", got.String())

	_, err = ParseTimeOfDay("25:00")
	assert.ErrorIs(t, err, ErrInvalidTime)

	_, err = ParseTimeOfDay("9am")
	assert.ErrorIs(t, err, ErrInvalidTime)
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("09:00-09:30")
	require.NoError(t, err)
	assert.Equal(t, "09:00-09:30", w.Identity())
	assert.True(t, w.Available)

	_, err = ParseWindow("09:30-09:00")
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = ParseWindow("09:00")
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestWeekdayOfDate(t *testing.T) {
	// 2025-06-02 is a Monday.
	day, err := WeekdayOfDate("2025-06-02")
	require.NoError(t, err)
	assert.Equal(t, Monday, day)

	day, err = WeekdayOfDate("2025-06-08")
	require.NoError(t, err)
	assert.Equal(t, Sunday, day)

	_, err = WeekdayOfDate("02/06/2025")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestValidateWeekly(t *testing.T) {
	mustWindow := func(raw string) TimeWindow {
		w, err := ParseWindow(raw)
		require.NoError(t, err)
		return w
	}

	ok := []DayAvailability{
		{Day: Monday, Windows: []TimeWindow{mustWindow("09:00-09:30"), mustWindow("09:30-10:00")}},
		{Day: Tuesday, Windows: []TimeWindow{mustWindow("09:00-09:30")}},
	}
	assert.NoError(t, ValidateWeekly(ok))

	dupDay := []DayAvailability{
		{Day: Monday}, {Day: Monday},
	}
	assert.Error(t, ValidateWeekly(dupDay))

	dupWindow := []DayAvailability{
		{Day: Monday, Windows: []TimeWindow{mustWindow("09:00-09:30"), mustWindow("09:00-09:30")}},
	}
	assert.Error(t, ValidateWeekly(dupWindow))

	badWindow := []DayAvailability{
		{Day: Monday, Windows: []TimeWindow{{Start: 600, End: 540, Available: true}}},
	}
	assert.ErrorIs(t, ValidateWeekly(badWindow), ErrInvalidWindow)
}
