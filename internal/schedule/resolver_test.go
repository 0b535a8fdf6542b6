package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2025-06-02 is a Monday, 2025-06-03 a Tuesday, 2025-06-09 the next Monday.
const (
	monday     = "2025-06-02"
	tuesday    = "2025-06-03"
	nextMonday = "2025-06-09"
)

func window(raw string, available bool) TimeWindow {
	w, err := ParseWindow(raw)
	if err != nil {
		panic(err)
	}
	w.Available = available
	return w
}

func TestResolveMatchedDay(t *testing.T) {
	weekly := []DayAvailability{
		{Day: Monday, Windows: []TimeWindow{window("09:00-09:30", true)}},
	}

	got, err := Resolve(weekly, monday, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "09:00-09:30", got[0].Identity())
}

func TestResolveDayNotConfigured(t *testing.T) {
	weekly := []DayAvailability{
		{Day: Monday, Windows: []TimeWindow{window("09:00-09:30", true)}},
	}

	got, err := Resolve(weekly, tuesday, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolveExcludesDisabledWindows(t *testing.T) {
	weekly := []DayAvailability{
		{Day: Monday, Windows: []TimeWindow{
			window("09:00-09:30", true),
			window("11:00-11:30", false), // lunch break, structurally disabled
			window("11:30-12:00", true),
		}},
	}

	got, err := Resolve(weekly, monday, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "09:00-09:30", got[0].Identity())
	assert.Equal(t, "11:30-12:00", got[1].Identity())
}

func TestResolveExcludesConsumedOnThatDateOnly(t *testing.T) {
	weekly := []DayAvailability{
		{Day: Monday, Windows: []TimeWindow{
			window("09:00-09:30", true),
			window("09:30-10:00", true),
		}},
	}

	consumed := map[string]bool{"09:00-09:30": true}

	got, err := Resolve(weekly, monday, consumed)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "09:30-10:00", got[0].Identity())

	// A different Monday has its own consumption set.
	got, err = Resolve(weekly, nextMonday, nil)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestResolveAllConsumedLooksLikeUnconfigured(t *testing.T) {
	weekly := []DayAvailability{
		{Day: Monday, Windows: []TimeWindow{window("09:00-09:30", true)}},
	}

	consumed := map[string]bool{"09:00-09:30": true}

	fullyBooked, err := Resolve(weekly, monday, consumed)
	require.NoError(t, err)

	unconfigured, err := Resolve(weekly, tuesday, nil)
	require.NoError(t, err)

	// Same observable shape either way.
	assert.Equal(t, unconfigured, fullyBooked)
	assert.Empty(t, fullyBooked)
}

func TestResolvePreservesConfiguredOrder(t *testing.T) {
	weekly := []DayAvailability{
		{Day: Monday, Windows: []TimeWindow{
			window("14:00-14:30", true),
			window("09:00-09:30", true),
			window("11:00-11:30", true),
		}},
	}

	got, err := Resolve(weekly, monday, nil)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "14:00-14:30", got[0].Identity())
	assert.Equal(t, "09:00-09:30", got[1].Identity())
	assert.Equal(t, "11:00-11:30", got[2].Identity())
}

func TestResolveBadDate(t *testing.T) {
	_, err := Resolve(nil, "not-a-date", nil)
	assert.ErrorIs(t, err, ErrInvalidDate)
}
