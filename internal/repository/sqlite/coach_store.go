package sqlite

import (
	"alcyxob/coach-scheduler/internal/domain"
	"alcyxob/coach-scheduler/internal/repository"
	"context"
	"database/sql"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const coachColumns = "id, name, email, phone, password_hash, specialization, bio, experience_years, is_active, created_at, updated_at"

// CoachStore implements repository.CoachRepository using SQLite.
type CoachStore struct {
	db *sql.DB
}

// NewCoachStore creates a new CoachStore.
func NewCoachStore(db *sql.DB) *CoachStore {
	return &CoachStore{db: db}
}

// Create inserts a coach, assigning a fresh ID and timestamps.
func (s *CoachStore) Create(ctx context.Context, coach *domain.Coach) (primitive.ObjectID, error) {
	if coach.Email == "" || coach.PasswordHash == "" {
		return primitive.NilObjectID, errors.New("coach email and password hash are required")
	}
	coach.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	coach.CreatedAt = now
	coach.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO coaches ("+coachColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		coach.ID.Hex(), coach.Name, coach.Email, coach.Phone, coach.PasswordHash, coach.Specialization,
		coach.Bio, coach.ExperienceYears, coach.IsActive, formatTime(now), formatTime(now),
	)
	if err != nil {
		if isConstraintError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	return coach.ID, nil
}

// GetByID retrieves a coach, active or not.
func (s *CoachStore) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Coach, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+coachColumns+" FROM coaches WHERE id = ?", id.Hex())
	return scanCoach(row)
}

// GetByEmail retrieves a coach by email.
func (s *CoachStore) GetByEmail(ctx context.Context, email string) (*domain.Coach, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+coachColumns+" FROM coaches WHERE email = ?", email)
	return scanCoach(row)
}

// SetActive flips the active flag.
func (s *CoachStore) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	res, err := s.db.ExecContext(ctx, "UPDATE coaches SET is_active = ?, updated_at = ? WHERE id = ?",
		active, formatTime(time.Now()), id.Hex())
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func scanCoach(row *sql.Row) (*domain.Coach, error) {
	var c domain.Coach
	var id, createdAt, updatedAt string
	err := row.Scan(&id, &c.Name, &c.Email, &c.Phone, &c.PasswordHash, &c.Specialization,
		&c.Bio, &c.ExperienceYears, &c.IsActive, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if c.ID, err = primitive.ObjectIDFromHex(id); err != nil {
		return nil, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// requireAffected maps a zero-row update or delete to ErrNotFound.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
