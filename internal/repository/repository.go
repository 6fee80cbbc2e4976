package repository

import (
	"alcyxob/coach-scheduler/internal/domain" // Import our defined domain models
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicate    = RepositoryError("duplicate key")
	ErrUpdateFailed = RepositoryError("update failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// CoachRepository defines the interface for interacting with coach data.
type CoachRepository interface {
	Create(ctx context.Context, coach *domain.Coach) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Coach, error)
	GetByEmail(ctx context.Context, email string) (*domain.Coach, error)
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error
}

// ClientFilter narrows ListClients. A nil CoachID means every coach.
type ClientFilter struct {
	// CoachID matches the explicit coachId field or the legacy profile tag.
	CoachID        *primitive.ObjectID
	IncludeDeleted bool
}

// ClientRepository defines the interface for interacting with client data.
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) (primitive.ObjectID, error)
	// GetByID returns soft-deleted clients too; callers check IsDeleted.
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Client, error)
	List(ctx context.Context, filter ClientFilter) ([]domain.Client, error)
	SoftDelete(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// SessionFilter narrows session queries. Zero values do not filter.
type SessionFilter struct {
	CoachID  *primitive.ObjectID
	ClientID *primitive.ObjectID
	Statuses []domain.SessionStatus
	From     *time.Time // inclusive, on scheduledAt
	To       *time.Time // inclusive, on scheduledAt

	// IncludeCancelled keeps cancelled sessions when Statuses is empty.
	IncludeCancelled bool
}

// SessionRepository defines the interface for interacting with session data.
type SessionRepository interface {
	// Create returns ErrDuplicate when (batchId, sequence) already exists.
	Create(ctx context.Context, session *domain.Session) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Session, error)
	GetByBatchID(ctx context.Context, batchID string) ([]domain.Session, error)
	List(ctx context.Context, filter SessionFilter) ([]domain.Session, error)
	// Update overwrites every mutable field of the stored session.
	Update(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// AvailabilityRepository stores one profile per coach.
type AvailabilityRepository interface {
	GetByCoachID(ctx context.Context, coachID primitive.ObjectID) (*domain.AvailabilityProfile, error)
	Upsert(ctx context.Context, profile *domain.AvailabilityProfile) error
}

// HolidayRepository defines the interface for interacting with coach holidays.
type HolidayRepository interface {
	Create(ctx context.Context, holiday *domain.Holiday) (primitive.ObjectID, error)
	ListByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.Holiday, error)
	Delete(ctx context.Context, id, coachID primitive.ObjectID) error // Ensure coach owns the holiday
}

// ProgressRepository defines the interface for interacting with progress records.
type ProgressRepository interface {
	Create(ctx context.Context, record *domain.ProgressRecord) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ProgressRecord, error)
	ListByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.ProgressRecord, error)
	// Summary returns the all-time record count and the newest createdAt (nil when count is 0).
	Summary(ctx context.Context, clientID primitive.ObjectID) (int64, *time.Time, error)
	SetAttachmentKey(ctx context.Context, id primitive.ObjectID, key string) error
}

// WorkoutRepository is read-only; workouts are authored elsewhere.
type WorkoutRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error)
}

// TimeSlotRepository defines the interface for interacting with coach time slots.
type TimeSlotRepository interface {
	Create(ctx context.Context, slot *domain.TimeSlot) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TimeSlot, error)
	// ListByCoachID orders by day of week, then start time.
	ListByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.TimeSlot, error)
	Delete(ctx context.Context, id, coachID primitive.ObjectID) error
}

// GradeRepository defines the interface for interacting with session grades.
type GradeRepository interface {
	// Upsert writes the grade for (sessionId, clientId), replacing an earlier
	// one, and fills in the stored ID and timestamps.
	Upsert(ctx context.Context, grade *domain.SessionGrade) error
	// ListByClientID returns the newest session first.
	ListByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.SessionGrade, error)
}
