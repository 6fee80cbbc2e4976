package schedule

import "time"

// Exclusion reports whether a candidate slot must be skipped.
type Exclusion func(day time.Time) bool

// Weekends excludes Saturdays and Sundays.
func Weekends(day time.Time) bool {
	wd := day.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// DefaultExclusions returns the exclusions every request of kind gets.
// Only daily series skip weekends by default.
func DefaultExclusions(kind Kind) []Exclusion {
	if kind == KindDaily {
		return []Exclusion{Weekends}
	}
	return nil
}

// NonWorkingDays excludes every weekday not listed in working.
func NonWorkingDays(working []time.Weekday) Exclusion {
	var set [7]bool
	for _, d := range working {
		if d >= time.Sunday && d <= time.Saturday {
			set[d] = true
		}
	}
	return func(day time.Time) bool {
		return !set[day.Weekday()]
	}
}

// OnDates excludes slots whose calendar date (in the slot's location)
// matches one of dates, given as YYYY-MM-DD.
func OnDates(dates []string) Exclusion {
	set := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}
	return func(day time.Time) bool {
		_, ok := set[day.Format(DateLayout)]
		return ok
	}
}

// Excluded reports whether any of exclusions rejects day.
func Excluded(day time.Time, exclusions []Exclusion) bool {
	for _, ex := range exclusions {
		if ex != nil && ex(day) {
			return true
		}
	}
	return false
}

// FirstOnOrAfter returns the first date on or after startDate that falls on
// wd, as YYYY-MM-DD. startDate accepts the same forms as GenerateRecurrence.
func FirstOnOrAfter(startDate string, wd time.Weekday) (string, error) {
	year, month, day, err := ParseStartDate(startDate)
	if err != nil {
		return "", err
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	ahead := (int(wd) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, ahead).Format(DateLayout), nil
}
