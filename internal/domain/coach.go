package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between caller roles
type Role string

const (
	RoleCoach  Role = "coach"
	RoleClient Role = "client"
)

// Coach is the principal that owns clients and sessions.
// Coaches are never deleted, only deactivated.
type Coach struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name"`
	Email           string             `bson:"email" json:"email"` // Unique
	Phone           string             `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash    string             `bson:"passwordHash" json:"-"` // Never expose this via JSON
	Specialization  string             `bson:"specialization,omitempty" json:"specialization,omitempty"`
	Bio             string             `bson:"bio,omitempty" json:"bio,omitempty"`
	ExperienceYears int                `bson:"experienceYears,omitempty" json:"experienceYears,omitempty"`
	IsActive        bool               `bson:"isActive" json:"isActive"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}
