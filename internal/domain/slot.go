package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Slot location types
const (
	SlotOnline  = "online"
	SlotOffline = "offline"
)

// TimeSlot is a weekly window a coach offers, e.g. Tuesdays 09:00-10:00.
// Clients are assigned to it as a weekly series of sessions.
type TimeSlot struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CoachID         primitive.ObjectID `bson:"coachId" json:"coachId"`
	DayOfWeek       time.Weekday       `bson:"dayOfWeek" json:"dayOfWeek"` // 0=Sunday .. 6=Saturday
	StartTime       string             `bson:"startTime" json:"startTime"` // HH:MM
	EndTime         string             `bson:"endTime" json:"endTime"`     // HH:MM
	DurationMinutes int                `bson:"durationMinutes" json:"durationMinutes"`
	LocationType    string             `bson:"locationType" json:"locationType"`
	LocationAddress string             `bson:"locationAddress,omitempty" json:"locationAddress,omitempty"`
	MaxClients      int                `bson:"maxClients" json:"maxClients"` // informational; not enforced
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}

// Name is the display label, e.g. "Tue 09:00-10:00".
func (s *TimeSlot) Name() string {
	return fmt.Sprintf("%s %s-%s", s.DayOfWeek.String()[:3], s.StartTime, s.EndTime)
}

// SessionLocation is what sessions created from the slot record as location.
func (s *TimeSlot) SessionLocation() string {
	if s.LocationType == SlotOffline && s.LocationAddress != "" {
		return s.LocationAddress
	}
	return s.LocationType
}
