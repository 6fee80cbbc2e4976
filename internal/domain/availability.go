package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultWorkingDays is Monday through Friday.
var DefaultWorkingDays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// DefaultAvailabilityRecurrence is the label stored on lazily created profiles.
const DefaultAvailabilityRecurrence = "weekly"

// AvailabilityProfile holds the working days of one coach.
// There is at most one per coach and updates replace it wholesale.
type AvailabilityProfile struct {
	CoachID        primitive.ObjectID `bson:"coachId" json:"coachId"`
	WorkingDays    []time.Weekday     `bson:"workingDays" json:"workingDays"` // 0=Sunday .. 6=Saturday
	RecurrenceType string             `bson:"recurrenceType" json:"recurrenceType"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// NewDefaultAvailability returns the Mon-Fri profile used when a coach has none stored.
func NewDefaultAvailability(coachID primitive.ObjectID, now time.Time) *AvailabilityProfile {
	days := make([]time.Weekday, len(DefaultWorkingDays))
	copy(days, DefaultWorkingDays)
	return &AvailabilityProfile{
		CoachID:        coachID,
		WorkingDays:    days,
		RecurrenceType: DefaultAvailabilityRecurrence,
		UpdatedAt:      now,
	}
}

// Works reports whether d is one of the profile's working days.
func (p *AvailabilityProfile) Works(d time.Weekday) bool {
	for _, wd := range p.WorkingDays {
		if wd == d {
			return true
		}
	}
	return false
}

// Holiday is a calendar day on which a coach does not take sessions.
type Holiday struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CoachID primitive.ObjectID `bson:"coachId" json:"coachId"`
	Date    string             `bson:"date" json:"date"` // YYYY-MM-DD
	Reason  string             `bson:"reason,omitempty" json:"reason,omitempty"`
}

// HolidayDateFormat is the layout of Holiday.Date.
const HolidayDateFormat = "2006-01-02"

// Matches reports whether day falls on this holiday, using day's own location.
func (h *Holiday) Matches(day time.Time) bool {
	return day.Format(HolidayDateFormat) == h.Date
}
