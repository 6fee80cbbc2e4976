package sqlite

import (
	"alcyxob/coach-scheduler/internal/domain"
	"alcyxob/coach-scheduler/internal/repository"
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AvailabilityStore implements repository.AvailabilityRepository using SQLite.
type AvailabilityStore struct {
	db *sql.DB
}

// NewAvailabilityStore creates a new AvailabilityStore.
func NewAvailabilityStore(db *sql.DB) *AvailabilityStore {
	return &AvailabilityStore{db: db}
}

func (s *AvailabilityStore) GetByCoachID(ctx context.Context, coachID primitive.ObjectID) (*domain.AvailabilityProfile, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT working_days, recurrence_type, updated_at FROM availability WHERE coach_id = ?", coachID.Hex())
	var days, updatedAt string
	profile := domain.AvailabilityProfile{CoachID: coachID}
	err := row.Scan(&days, &profile.RecurrenceType, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(days), &profile.WorkingDays); err != nil {
		return nil, err
	}
	if profile.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Upsert replaces the profile wholesale.
func (s *AvailabilityStore) Upsert(ctx context.Context, profile *domain.AvailabilityProfile) error {
	days, err := json.Marshal(profile.WorkingDays)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO availability (coach_id, working_days, recurrence_type, updated_at) VALUES (?, ?, ?, ?) ON CONFLICT(coach_id) DO UPDATE SET working_days=excluded.working_days, recurrence_type=excluded.recurrence_type, updated_at=excluded.updated_at",
		profile.CoachID.Hex(), string(days), profile.RecurrenceType, formatTime(profile.UpdatedAt),
	)
	return err
}

// HolidayStore implements repository.HolidayRepository using SQLite.
type HolidayStore struct {
	db *sql.DB
}

// NewHolidayStore creates a new HolidayStore.
func NewHolidayStore(db *sql.DB) *HolidayStore {
	return &HolidayStore{db: db}
}

func (s *HolidayStore) Create(ctx context.Context, holiday *domain.Holiday) (primitive.ObjectID, error) {
	if holiday.CoachID == primitive.NilObjectID || holiday.Date == "" {
		return primitive.NilObjectID, errors.New("holiday requires coachId and date")
	}
	id := primitive.NewObjectID()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO holidays (id, coach_id, date, reason) VALUES (?, ?, ?, ?)",
		id.Hex(), holiday.CoachID.Hex(), holiday.Date, holiday.Reason,
	)
	if err != nil {
		if isConstraintError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	holiday.ID = id
	return id, nil
}

// ListByCoachID returns a coach's holidays ordered by date.
func (s *HolidayStore) ListByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.Holiday, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, date, reason FROM holidays WHERE coach_id = ? ORDER BY date", coachID.Hex())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	holidays := []domain.Holiday{}
	for rows.Next() {
		h := domain.Holiday{CoachID: coachID}
		var id string
		if err := rows.Scan(&id, &h.Date, &h.Reason); err != nil {
			return nil, err
		}
		if h.ID, err = primitive.ObjectIDFromHex(id); err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// Delete removes a holiday owned by coachID.
func (s *HolidayStore) Delete(ctx context.Context, id, coachID primitive.ObjectID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ? AND coach_id = ?", id.Hex(), coachID.Hex())
	if err != nil {
		return err
	}
	return requireAffected(res)
}
