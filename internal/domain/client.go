package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgressCheckFrequency is how often a client is expected to submit a progress check.
type ProgressCheckFrequency string

const (
	CheckWeekly   ProgressCheckFrequency = "weekly"
	CheckBiweekly ProgressCheckFrequency = "biweekly"
	CheckMonthly  ProgressCheckFrequency = "monthly"
)

// CadenceDays returns the number of days between expected progress checks.
// Unknown or empty values fall back to monthly.
func (f ProgressCheckFrequency) CadenceDays() int {
	switch f {
	case CheckWeekly:
		return 7
	case CheckBiweekly:
		return 14
	default:
		return 30
	}
}

// ClientProfile is the free-form profile document stored on a client.
type ClientProfile struct {
	Goals                  []string               `bson:"goals,omitempty" json:"goals,omitempty"`
	MedicalNotes           string                 `bson:"medicalNotes,omitempty" json:"medicalNotes,omitempty"`
	ProgressCheckFrequency ProgressCheckFrequency `bson:"progressCheckFrequency,omitempty" json:"progressCheckFrequency,omitempty"`
	PreferredContact       string                 `bson:"preferredContact,omitempty" json:"preferredContact,omitempty"`

	// CoachTag is the legacy soft ownership reference (coach ObjectID hex)
	// written by older callers. New records use Client.CoachID; both are
	// honored by the scope resolver.
	CoachTag string `bson:"coachTag,omitempty" json:"coachTag,omitempty"`
}

// Client is a person receiving coaching. Clients are soft-deleted.
type Client struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name      string              `bson:"name" json:"name"`
	Email     string              `bson:"email,omitempty" json:"email,omitempty"`
	Phone     string              `bson:"phone,omitempty" json:"phone,omitempty"`
	CoachID   *primitive.ObjectID `bson:"coachId,omitempty" json:"coachId,omitempty"`
	Profile   ClientProfile       `bson:"profile" json:"profile"`
	DeletedAt *time.Time          `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// IsDeleted reports whether the client has been soft-deleted.
func (c *Client) IsDeleted() bool {
	return c.DeletedAt != nil
}

// OwnerHex returns the owning coach as hex, preferring the explicit field
// over the legacy profile tag. Empty when the client has no owner.
func (c *Client) OwnerHex() string {
	if c.CoachID != nil && *c.CoachID != primitive.NilObjectID {
		return c.CoachID.Hex()
	}
	return c.Profile.CoachTag
}
