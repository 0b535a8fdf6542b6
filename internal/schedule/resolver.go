package schedule

// Resolve maps a weekly availability plus a concrete calendar date onto the
// windows currently bookable on that date. consumed holds the window
// identities already held by a non-cancelled appointment on that exact date.
//
// A date whose weekday has no configured entry resolves to an empty list,
// as does a configured day whose windows are all consumed; callers cannot
// and need not tell the two apart.
func Resolve(weekly []DayAvailability, date string, consumed map[string]bool) ([]TimeWindow, error) {
	day, err := WeekdayOfDate(date)
	if err != nil {
		return nil, err
	}

	var match *DayAvailability
	for i := range weekly {
		if weekly[i].Day == day {
			match = &weekly[i]
			break
		}
	}
	if match == nil {
		return []TimeWindow{}, nil
	}

	// Configured order is preserved; no re-sorting.
	out := make([]TimeWindow, 0, len(match.Windows))
	for _, w := range match.Windows {
		if !w.Available {
			// Structurally disabled (lunch break etc), never a candidate.
			continue
		}
		if consumed[w.Identity()] {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}
