package sqlite

import (
	"alcyxob/coach-scheduler/internal/domain"
	"alcyxob/coach-scheduler/internal/repository"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutStore implements repository.WorkoutRepository using SQLite.
type WorkoutStore struct {
	db *sql.DB
}

// NewWorkoutStore creates a new WorkoutStore.
func NewWorkoutStore(db *sql.DB) *WorkoutStore {
	return &WorkoutStore{db: db}
}

func (s *WorkoutStore) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT coach_id, name, description, exercises, created_at, updated_at FROM workouts WHERE id = ?", id.Hex())
	w := domain.Workout{ID: id}
	var coachID, exercises, createdAt, updatedAt string
	err := row.Scan(&coachID, &w.Name, &w.Description, &exercises, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if w.CoachID, err = primitive.ObjectIDFromHex(coachID); err != nil {
		return nil, err
	}
	if err = json.Unmarshal([]byte(exercises), &w.Exercises); err != nil {
		return nil, err
	}
	if w.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if w.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

// Save inserts or replaces a workout. Workouts are authored by another
// service; this exists for imports into the embedded backend.
func (s *WorkoutStore) Save(ctx context.Context, w *domain.Workout) error {
	if w.ID == primitive.NilObjectID {
		w.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now
	exercises, err := json.Marshal(w.Exercises)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO workouts (id, coach_id, name, description, exercises, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO UPDATE SET coach_id=excluded.coach_id, name=excluded.name, description=excluded.description, exercises=excluded.exercises, updated_at=excluded.updated_at",
		w.ID.Hex(), w.CoachID.Hex(), w.Name, w.Description, string(exercises), formatTime(w.CreatedAt), formatTime(w.UpdatedAt),
	)
	return err
}
