// Package schedule expands recurrence requests into concrete session instants.
// It performs no I/O; availability rules arrive as Exclusion predicates.
package schedule

import (
	"alcyxob/coach-scheduler/internal/domain"
	"fmt"
	"log"
	"strings"
	"time"
)

// Kind is the recurrence pattern of a request.
type Kind string

const (
	KindNone     Kind = "none"
	KindDaily    Kind = "daily"
	KindWeekly   Kind = "weekly"
	KindBiweekly Kind = "biweekly"
	KindMonthly  Kind = "monthly"
)

const (
	// DateLayout is the accepted start date format.
	DateLayout = "2006-01-02"
	// TimeLayout is the accepted time-of-day format.
	TimeLayout = "15:04"

	// DefaultMaxCount caps a single request when Options.MaxCount is unset.
	DefaultMaxCount = 365

	// monthDays is the fixed length of a "monthly" step.
	monthDays = 30
)

// ParseKind maps a request string onto a Kind. Empty means KindNone.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindNone, nil
	case KindNone, KindDaily, KindWeekly, KindBiweekly, KindMonthly:
		return k, nil
	}
	return "", domain.NewValidationError("recurrence", fmt.Sprintf("unsupported recurrence kind %q", s))
}

// stepDays returns the number of days between consecutive slots.
func (k Kind) stepDays() int {
	switch k {
	case KindDaily:
		return 1
	case KindWeekly:
		return 7
	case KindBiweekly:
		return 14
	case KindMonthly:
		return monthDays
	}
	return 0
}

// Request describes a series of sessions to generate.
type Request struct {
	ClientID        string `json:"clientId"`
	StartDate       string `json:"startDate"` // YYYY-MM-DD, or an ISO datetime whose date part is used
	TimeOfDay       string `json:"time"`      // HH:MM
	Kind            string `json:"recurrence"`
	Count           int    `json:"count"`
	DurationMinutes int    `json:"durationMinutes"`
}

// Options tune generation. The zero value is usable.
type Options struct {
	// Location the dates and time-of-day are interpreted in. Nil means UTC.
	Location *time.Location

	// MaxCount caps the number of instants produced. <= 0 means DefaultMaxCount.
	MaxCount int

	// MaxScan bounds how many slots are examined. <= 0 derives a bound from the count.
	MaxScan int

	// Exclusions are applied on top of DefaultExclusions(kind).
	Exclusions []Exclusion

	// CalendarMonthly makes "monthly" advance by calendar month (clamped to
	// the month's last day) instead of a fixed 30 days.
	CalendarMonthly bool
}

// GenerateRecurrence returns the ordered instants for req. Excluded slots are
// skipped and do not count, so the result has exactly req.Count entries
// unless MaxCount truncated it.
func GenerateRecurrence(req Request, opts Options) ([]time.Time, error) {
	// 1. Validate Inputs
	kind, err := ParseKind(req.Kind)
	if err != nil {
		return nil, err
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	year, month, day, err := ParseStartDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	hour, minute, err := ParseTimeOfDay(req.TimeOfDay)
	if err != nil {
		return nil, err
	}
	if req.Count <= 0 {
		return []time.Time{}, nil
	}

	// 2. Single session
	if kind == KindNone {
		return []time.Time{time.Date(year, month, day, hour, minute, 0, 0, loc)}, nil
	}

	// 3. Apply cap
	count := req.Count
	maxCount := opts.MaxCount
	if maxCount <= 0 {
		maxCount = DefaultMaxCount
	}
	if count > maxCount {
		log.Printf("WARN: recurrence request for %d sessions capped at %d", count, maxCount)
		count = maxCount
	}

	maxScan := opts.MaxScan
	if maxScan <= 0 {
		maxScan = count*7 + 366
	}
	exclusions := append(DefaultExclusions(kind), opts.Exclusions...)

	// 4. Walk the slots
	instants := make([]time.Time, 0, count)
	for i := 0; len(instants) < count; i++ {
		if i >= maxScan {
			return nil, domain.NewValidationError("recurrence",
				fmt.Sprintf("only %d of %d sessions fit within %d slots after exclusions", len(instants), count, maxScan))
		}
		var slot time.Time
		if kind == KindMonthly && opts.CalendarMonthly {
			slot = addCalendarMonths(year, month, day, i, hour, minute, loc)
		} else {
			slot = time.Date(year, month, day+i*kind.stepDays(), hour, minute, 0, 0, loc)
		}
		if Excluded(slot, exclusions) {
			continue
		}
		instants = append(instants, slot)
	}
	return instants, nil
}

// ParseStartDate extracts the calendar date from a YYYY-MM-DD string or from
// an ISO-8601 datetime.
func ParseStartDate(s string) (int, time.Month, int, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.Year(), t.Month(), t.Day(), nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Year(), t.Month(), t.Day(), nil
		}
	}
	return 0, 0, 0, domain.NewValidationError("startDate", fmt.Sprintf("cannot parse %q as a date", s))
}

// ParseTimeOfDay parses HH:MM (seconds are tolerated and dropped).
func ParseTimeOfDay(s string) (int, int, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		t, err = time.Parse("15:04:05", s)
	}
	if err != nil {
		return 0, 0, domain.NewValidationError("time", fmt.Sprintf("cannot parse %q as HH:MM", s))
	}
	return t.Hour(), t.Minute(), nil
}

func addCalendarMonths(year int, month time.Month, day, n, hour, minute int, loc *time.Location) time.Time {
	first := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, hour, minute, 0, 0, loc)
}
