package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutItem is one exercise line inside a workout.
type WorkoutItem struct {
	Name  string `bson:"name" json:"name"`
	Sets  *int   `bson:"sets,omitempty" json:"sets,omitempty"`
	Reps  string `bson:"reps,omitempty" json:"reps,omitempty"`
	Notes string `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Workout is authored outside this service. Sessions only reference it
// and it is fetched read-only when a session starts.
type Workout struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CoachID     primitive.ObjectID `bson:"coachId" json:"coachId"`
	Name        string             `bson:"name" json:"name"` // e.g., "Day 1: Upper Body"
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Exercises   []WorkoutItem      `bson:"exercises,omitempty" json:"exercises,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
