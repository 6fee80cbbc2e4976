package sqlite

import (
	"alcyxob/coach-scheduler/internal/domain"
	"context"
	"database/sql"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const gradeColumns = "id, session_id, client_id, coach_id, session_scheduled_at, grade_value, numeric_score, comments, created_at, updated_at"

// GradeStore implements repository.GradeRepository using SQLite.
type GradeStore struct {
	db *sql.DB
}

// NewGradeStore creates a new GradeStore.
func NewGradeStore(db *sql.DB) *GradeStore {
	return &GradeStore{db: db}
}

// Upsert writes the grade for (session_id, client_id). A regrade keeps the
// original id and created_at.
func (s *GradeStore) Upsert(ctx context.Context, grade *domain.SessionGrade) error {
	if grade.SessionID == primitive.NilObjectID || grade.ClientID == primitive.NilObjectID {
		return errors.New("grade requires sessionId and clientId")
	}
	now := formatTime(time.Now().UTC())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_grades (`+gradeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, client_id) DO UPDATE SET
			coach_id = excluded.coach_id,
			session_scheduled_at = excluded.session_scheduled_at,
			grade_value = excluded.grade_value,
			numeric_score = excluded.numeric_score,
			comments = excluded.comments,
			updated_at = excluded.updated_at`,
		primitive.NewObjectID().Hex(), grade.SessionID.Hex(), grade.ClientID.Hex(), grade.CoachID.Hex(),
		formatTime(grade.SessionScheduledAt), grade.GradeValue, grade.NumericScore, grade.Comments, now, now,
	)
	if err != nil {
		return err
	}

	row := s.db.QueryRowContext(ctx, "SELECT "+gradeColumns+" FROM session_grades WHERE session_id = ? AND client_id = ?",
		grade.SessionID.Hex(), grade.ClientID.Hex())
	stored, err := scanGrade(row)
	if err != nil {
		return err
	}
	*grade = *stored
	return nil
}

// ListByClientID returns the newest session first.
func (s *GradeStore) ListByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.SessionGrade, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+gradeColumns+" FROM session_grades WHERE client_id = ? ORDER BY session_scheduled_at DESC", clientID.Hex())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grades := []domain.SessionGrade{}
	for rows.Next() {
		g, err := scanGrade(rows)
		if err != nil {
			return nil, err
		}
		grades = append(grades, *g)
	}
	return grades, rows.Err()
}

func scanGrade(sc scanner) (*domain.SessionGrade, error) {
	var g domain.SessionGrade
	var id, sessionID, clientID, coachID, scheduledAt, createdAt, updatedAt string
	if err := sc.Scan(&id, &sessionID, &clientID, &coachID, &scheduledAt, &g.GradeValue, &g.NumericScore,
		&g.Comments, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	for _, f := range []struct {
		hex string
		dst *primitive.ObjectID
	}{{id, &g.ID}, {sessionID, &g.SessionID}, {clientID, &g.ClientID}, {coachID, &g.CoachID}} {
		if *f.dst, err = primitive.ObjectIDFromHex(f.hex); err != nil {
			return nil, err
		}
	}
	if g.SessionScheduledAt, err = parseTime(scheduledAt); err != nil {
		return nil, err
	}
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if g.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}
