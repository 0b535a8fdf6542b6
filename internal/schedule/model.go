package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidDate    = errors.New("date must be a valid YYYY-MM-DD calendar date")
	ErrInvalidTime    = errors.New("time must be a valid HH:MM wall-clock value")
	ErrInvalidWindow  = errors.New("window start must be before window end")
	ErrUnknownWeekday = errors.New("unknown weekday name")
)

// Weekday is the closed 7-value day enumeration used by weekly availability.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

var weekdayByName = map[string]Weekday{
	"monday":    Monday,
	"tuesday":   Tuesday,
	"wednesday": Wednesday,
	"thursday":  Thursday,
	"friday":    Friday,
	"saturday":  Saturday,
	"sunday":    Sunday,
}

// NormalizeWeekday trims and case-folds a stored weekday name. Upstream
// storage is known to carry entries like " Monday ".
func NormalizeWeekday(raw string) (Weekday, error) {
	d, ok := weekdayByName[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownWeekday, raw)
	}
	return d, nil
}

const dateLayout = "2006-01-02"

// ParseDate validates and canonicalizes a civil date string.
func ParseDate(raw string) (string, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return t.Format(dateLayout), nil
}

// WeekdayOfDate derives the weekday from the calendar date itself, with no
// timezone reinterpretation beyond what the date value encodes.
func WeekdayOfDate(date string) (Weekday, error) {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	switch t.Weekday() {
	case time.Monday:
		return Monday, nil
	case time.Tuesday:
		return Tuesday, nil
	case time.Wednesday:
		return Wednesday, nil
	case time.Thursday:
		return Thursday, nil
	case time.Friday:
		return Friday, nil
	case time.Saturday:
		return Saturday, nil
	default:
		return Sunday, nil
	}
}

// TimeOfDay is a wall-clock time as minutes since midnight. It deliberately
// carries no timezone; windows are local to wherever the clinic is.
type TimeOfDay int

func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// TimeWindow is one bookable start-end range within a day. Identity within a
// day is the (Start, End) pair.
type TimeWindow struct {
	Start     TimeOfDay `json:"startTime"`
	End       TimeOfDay `json:"endTime"`
	Available bool      `json:"isAvailable"`
}

// Identity is the "HH:MM-HH:MM" form the rest of the system keys on.
func (w TimeWindow) Identity() string {
	return w.Start.String() + "-" + w.End.String()
}

func (w TimeWindow) Validate() error {
	if w.Start >= w.End {
		return fmt.Errorf("%w: %s", ErrInvalidWindow, w.Identity())
	}
	return nil
}

// ParseWindow parses a "HH:MM-HH:MM" identity into an available window.
func ParseWindow(raw string) (TimeWindow, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), "-", 2)
	if len(parts) != 2 {
		return TimeWindow{}, fmt.Errorf("%w: %q", ErrInvalidWindow, raw)
	}
	start, err := ParseTimeOfDay(parts[0])
	if err != nil {
		return TimeWindow{}, err
	}
	end, err := ParseTimeOfDay(parts[1])
	if err != nil {
		return TimeWindow{}, err
	}
	w := TimeWindow{Start: start, End: end, Available: true}
	if err := w.Validate(); err != nil {
		return TimeWindow{}, err
	}
	return w, nil
}

// DayAvailability is the configured window list for one weekday, in the
// order the clinic configured it.
type DayAvailability struct {
	Day     Weekday      `json:"day"`
	Windows []TimeWindow `json:"slots"`
}

type Clinician struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	FeeCents  int64
	Weekly    []DayAvailability
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateWeekly enforces the schedule invariants: known weekday names, no
// duplicate weekday entries, no duplicate window identity within a day,
// start before end.
func ValidateWeekly(weekly []DayAvailability) error {
	seenDays := make(map[Weekday]bool, len(weekly))
	for _, day := range weekly {
		if _, ok := weekdayByName[string(day.Day)]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownWeekday, day.Day)
		}
		if seenDays[day.Day] {
			return fmt.Errorf("duplicate weekday entry: %s", day.Day)
		}
		seenDays[day.Day] = true

		seenWindows := make(map[string]bool, len(day.Windows))
		for _, w := range day.Windows {
			if err := w.Validate(); err != nil {
				return err
			}
			if seenWindows[w.Identity()] {
				return fmt.Errorf("duplicate window %s on %s", w.Identity(), day.Day)
			}
			seenWindows[w.Identity()] = true
		}
	}
	return nil
}
