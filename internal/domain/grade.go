package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionGrade is the coach's assessment of a client in one session.
// There is at most one per (session, client); regrading overwrites it.
type SessionGrade struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID          primitive.ObjectID `bson:"sessionId" json:"sessionId"`
	ClientID           primitive.ObjectID `bson:"clientId" json:"clientId"`
	CoachID            primitive.ObjectID `bson:"coachId" json:"coachId"`
	SessionScheduledAt time.Time          `bson:"sessionScheduledAt" json:"sessionScheduledAt"`
	GradeValue         string             `bson:"gradeValue" json:"gradeValue"` // e.g. "A", "B+"
	NumericScore       float64            `bson:"numericScore" json:"numericScore"`
	Comments           string             `bson:"comments,omitempty" json:"comments,omitempty"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
}
