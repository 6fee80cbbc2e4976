package sqlite

import (
	"alcyxob/coach-scheduler/internal/domain"
	"alcyxob/coach-scheduler/internal/repository"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const sessionColumns = "id, coach_id, client_id, workout_id, scheduled_at, duration_minutes, location, status, notes, completed_at, metadata, created_at, updated_at"

// SessionStore implements repository.SessionRepository using SQLite.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create inserts a session. Recurrence batch id and sequence are copied
// into their own columns, where UNIQUE(batch_id, batch_seq) rejects replays.
func (s *SessionStore) Create(ctx context.Context, session *domain.Session) (primitive.ObjectID, error) {
	if session.CoachID == primitive.NilObjectID || session.ClientID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("session requires coachId and clientId")
	}
	if session.Status == "" {
		session.Status = domain.StatusScheduled
	}
	metadata, err := json.Marshal(session.Metadata)
	if err != nil {
		return primitive.NilObjectID, err
	}
	var batchID sql.NullString
	var batchSeq sql.NullInt64
	if rec := session.Metadata.Recurrence; rec != nil && rec.BatchID != "" {
		batchID = sql.NullString{String: rec.BatchID, Valid: true}
		batchSeq = sql.NullInt64{Int64: int64(rec.Sequence), Valid: true}
	}

	id := primitive.NewObjectID()
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO sessions ("+sessionColumns+", batch_id, batch_seq) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		id.Hex(), session.CoachID.Hex(), session.ClientID.Hex(), formatNullID(session.WorkoutID),
		formatTime(session.ScheduledAt), session.DurationMinutes, session.Location, string(session.Status),
		session.Notes, formatNullTime(session.CompletedAt), string(metadata), formatTime(now), formatTime(now),
		batchID, batchSeq,
	)
	if err != nil {
		if isConstraintError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	session.ID = id
	session.CreatedAt = now
	session.UpdatedAt = now
	return id, nil
}

// GetByID retrieves a session.
func (s *SessionStore) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id.Hex())
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return session, err
}

// GetByBatchID returns a recurrence batch in sequence order.
func (s *SessionStore) GetByBatchID(ctx context.Context, batchID string) ([]domain.Session, error) {
	return s.query(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE batch_id = ? ORDER BY batch_seq", batchID)
}

// List returns sessions matching f ordered by scheduled_at.
func (s *SessionStore) List(ctx context.Context, f repository.SessionFilter) ([]domain.Session, error) {
	var where []string
	var args []any
	if f.CoachID != nil {
		where = append(where, "coach_id = ?")
		args = append(args, f.CoachID.Hex())
	}
	if f.ClientID != nil {
		where = append(where, "client_id = ?")
		args = append(args, f.ClientID.Hex())
	}
	switch {
	case len(f.Statuses) > 0:
		marks := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
	case !f.IncludeCancelled:
		where = append(where, "status <> ?")
		args = append(args, string(domain.StatusCancelled))
	}
	if f.From != nil {
		where = append(where, "scheduled_at >= ?")
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		where = append(where, "scheduled_at <= ?")
		args = append(args, formatTime(*f.To))
	}

	query := "SELECT " + sessionColumns + " FROM sessions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY scheduled_at, id"
	return s.query(ctx, query, args...)
}

func (s *SessionStore) query(ctx context.Context, query string, args ...any) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []domain.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

// Update overwrites the mutable fields of a session.
func (s *SessionStore) Update(ctx context.Context, session *domain.Session) error {
	metadata, err := json.Marshal(session.Metadata)
	if err != nil {
		return err
	}
	session.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET workout_id = ?, scheduled_at = ?, duration_minutes = ?, location = ?,
			status = ?, notes = ?, completed_at = ?, metadata = ?, updated_at = ?
		WHERE id = ?`,
		formatNullID(session.WorkoutID), formatTime(session.ScheduledAt), session.DurationMinutes, session.Location,
		string(session.Status), session.Notes, formatNullTime(session.CompletedAt), string(metadata),
		formatTime(session.UpdatedAt), session.ID.Hex(),
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Delete hard-deletes a session.
func (s *SessionStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id.Hex())
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func scanSession(sc scanner) (*domain.Session, error) {
	var session domain.Session
	var id, coachID, clientID, scheduledAt, status, metadata, createdAt, updatedAt string
	var workoutID, completedAt sql.NullString
	err := sc.Scan(&id, &coachID, &clientID, &workoutID, &scheduledAt, &session.DurationMinutes,
		&session.Location, &status, &session.Notes, &completedAt, &metadata, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	session.Status = domain.SessionStatus(status)
	if session.ID, err = primitive.ObjectIDFromHex(id); err != nil {
		return nil, err
	}
	if session.CoachID, err = primitive.ObjectIDFromHex(coachID); err != nil {
		return nil, err
	}
	if session.ClientID, err = primitive.ObjectIDFromHex(clientID); err != nil {
		return nil, err
	}
	if session.WorkoutID, err = parseNullID(workoutID); err != nil {
		return nil, err
	}
	if session.ScheduledAt, err = parseTime(scheduledAt); err != nil {
		return nil, err
	}
	if session.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, err
	}
	if err = json.Unmarshal([]byte(metadata), &session.Metadata); err != nil {
		return nil, err
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &session, nil
}
