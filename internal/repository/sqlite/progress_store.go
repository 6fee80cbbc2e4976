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

const progressColumns = "id, client_id, session_id, entry_type, notes, attachment_key, created_at"

// ProgressStore implements repository.ProgressRepository using SQLite.
type ProgressStore struct {
	db *sql.DB
}

// NewProgressStore creates a new ProgressStore.
func NewProgressStore(db *sql.DB) *ProgressStore {
	return &ProgressStore{db: db}
}

// Create inserts a record. A zero CreatedAt is stamped with the current time.
func (s *ProgressStore) Create(ctx context.Context, record *domain.ProgressRecord) (primitive.ObjectID, error) {
	if record.ClientID == primitive.NilObjectID || record.EntryType == "" {
		return primitive.NilObjectID, errors.New("progress record requires clientId and entryType")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	id := primitive.NewObjectID()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO progress ("+progressColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		id.Hex(), record.ClientID.Hex(), formatNullID(record.SessionID), record.EntryType,
		record.Notes, record.AttachmentKey, formatTime(record.CreatedAt),
	)
	if err != nil {
		return primitive.NilObjectID, err
	}
	record.ID = id
	return id, nil
}

func (s *ProgressStore) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ProgressRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+progressColumns+" FROM progress WHERE id = ?", id.Hex())
	record, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return record, err
}

// ListByClientID returns a client's records, newest first.
func (s *ProgressStore) ListByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.ProgressRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+progressColumns+" FROM progress WHERE client_id = ? ORDER BY created_at DESC", clientID.Hex())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []domain.ProgressRecord{}
	for rows.Next() {
		record, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// Summary returns the record count and newest created_at for a client.
func (s *ProgressStore) Summary(ctx context.Context, clientID primitive.ObjectID) (int64, *time.Time, error) {
	var count int64
	var latest sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), MAX(created_at) FROM progress WHERE client_id = ?", clientID.Hex(),
	).Scan(&count, &latest)
	if err != nil {
		return 0, nil, err
	}
	last, err := parseNullTime(latest)
	if err != nil {
		return 0, nil, err
	}
	return count, last, nil
}

func (s *ProgressStore) SetAttachmentKey(ctx context.Context, id primitive.ObjectID, key string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE progress SET attachment_key = ? WHERE id = ?", key, id.Hex())
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func scanProgress(sc scanner) (*domain.ProgressRecord, error) {
	var r domain.ProgressRecord
	var id, clientID, createdAt string
	var sessionID sql.NullString
	err := sc.Scan(&id, &clientID, &sessionID, &r.EntryType, &r.Notes, &r.AttachmentKey, &createdAt)
	if err != nil {
		return nil, err
	}
	if r.ID, err = primitive.ObjectIDFromHex(id); err != nil {
		return nil, err
	}
	if r.ClientID, err = primitive.ObjectIDFromHex(clientID); err != nil {
		return nil, err
	}
	if r.SessionID, err = parseNullID(sessionID); err != nil {
		return nil, err
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &r, nil
}
