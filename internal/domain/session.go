package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionStatus type for the session lifecycle
type SessionStatus string

const (
	StatusScheduled  SessionStatus = "scheduled"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusNoShow     SessionStatus = "no_show"
	StatusCancelled  SessionStatus = "cancelled"
)

// transitions lists the modeled moves out of each non-terminal status.
// Terminal statuses have no entry.
var transitions = map[SessionStatus][]SessionStatus{
	StatusScheduled:  {StatusInProgress, StatusNoShow, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusNoShow, StatusCancelled},
}

// ParseSessionStatus validates a status string.
func ParseSessionStatus(s string) (SessionStatus, error) {
	switch st := SessionStatus(s); st {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusNoShow, StatusCancelled:
		return st, nil
	}
	return "", NewValidationError("status", fmt.Sprintf("unknown session status %q", s))
}

// IsTerminal reports whether no further transitions leave this status.
func (s SessionStatus) IsTerminal() bool {
	_, ok := transitions[s]
	return !ok
}

// CanTransition reports whether from -> to is a modeled transition.
// Re-applying the current status is not a transition; callers treat it as a no-op.
func CanTransition(from, to SessionStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ActorRole identifies who triggered a cancellation.
type ActorRole string

const (
	ActorCoach  ActorRole = "coach"
	ActorClient ActorRole = "client"
)

// AttendanceStatus is what the coach recorded when marking attendance.
type AttendanceStatus string

const (
	AttendanceAttended AttendanceStatus = "attended"
	AttendanceLate     AttendanceStatus = "late"
	AttendanceAbsent   AttendanceStatus = "absent"
)

// Cancellation is the audit record written on the first cancel.
type Cancellation struct {
	CancelledBy ActorRole `bson:"cancelledBy" json:"cancelledBy"`
	Reason      string    `bson:"reason" json:"reason"`
	CancelledAt time.Time `bson:"cancelledAt" json:"cancelledAt"`
}

// Attendance is the detail recorded when attendance is marked.
type Attendance struct {
	Status      AttendanceStatus `bson:"status" json:"status"`
	Notes       string           `bson:"notes,omitempty" json:"notes,omitempty"`
	LateMinutes *int             `bson:"lateMinutes,omitempty" json:"lateMinutes,omitempty"`
	MarkedAt    time.Time        `bson:"markedAt" json:"markedAt"`
}

// CompletedExercise is one workout item the client finished during a session.
type CompletedExercise struct {
	Name  string `bson:"name" json:"name"`
	Sets  *int   `bson:"sets,omitempty" json:"sets,omitempty"`
	Reps  string `bson:"reps,omitempty" json:"reps,omitempty"`
	Notes string `bson:"notes,omitempty" json:"notes,omitempty"`
}

// RecurrenceInfo ties a session to the batch that generated it.
type RecurrenceInfo struct {
	Kind     string `bson:"kind" json:"kind"`
	BatchID  string `bson:"batchId" json:"batchId"`
	Sequence int    `bson:"sequence" json:"sequence"` // 1-based
	Total    int    `bson:"total" json:"total"`

	// Fingerprint describes the request that created the batch; a replay
	// under the same batch id must match it.
	Fingerprint string `bson:"fingerprint,omitempty" json:"fingerprint,omitempty"`
}

// SessionMetadata holds lifecycle side-data.
type SessionMetadata struct {
	Cancellation       *Cancellation       `bson:"cancellation,omitempty" json:"cancellation,omitempty"`
	Attendance         *Attendance         `bson:"attendance,omitempty" json:"attendance,omitempty"`
	CompletedExercises []CompletedExercise `bson:"completedExercises,omitempty" json:"completedExercises,omitempty"`
	Recurrence         *RecurrenceInfo     `bson:"recurrence,omitempty" json:"recurrence,omitempty"`
}

// Session is one scheduled engagement between a coach and a client.
type Session struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	CoachID         primitive.ObjectID  `bson:"coachId" json:"coachId"`
	ClientID        primitive.ObjectID  `bson:"clientId" json:"clientId"`
	WorkoutID       *primitive.ObjectID `bson:"workoutId,omitempty" json:"workoutId,omitempty"`
	ScheduledAt     time.Time           `bson:"scheduledAt" json:"scheduledAt"`
	DurationMinutes int                 `bson:"durationMinutes" json:"durationMinutes"`
	Location        string              `bson:"location,omitempty" json:"location,omitempty"`
	Status          SessionStatus       `bson:"status" json:"status"`
	Notes           string              `bson:"notes,omitempty" json:"notes,omitempty"`
	CompletedAt     *time.Time          `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	Metadata        SessionMetadata     `bson:"metadata" json:"metadata"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// ScheduleLocked reports whether ScheduledAt may no longer change.
func (s *Session) ScheduleLocked() bool {
	return s.Status != StatusScheduled
}

// CheckTransition validates moving s to target. A nil error with
// noop=true means s is already in target and nothing should be written.
func (s *Session) CheckTransition(target SessionStatus) (noop bool, err error) {
	if s.Status == target {
		return true, nil
	}
	if !CanTransition(s.Status, target) {
		return false, NewValidationError("status",
			fmt.Sprintf("cannot transition session from %s to %s", s.Status, target))
	}
	return false, nil
}
