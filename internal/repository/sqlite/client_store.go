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

const clientColumns = "id, name, email, phone, coach_id, profile, deleted_at, created_at, updated_at"

// ClientStore implements repository.ClientRepository using SQLite.
type ClientStore struct {
	db *sql.DB
}

// NewClientStore creates a new ClientStore.
func NewClientStore(db *sql.DB) *ClientStore {
	return &ClientStore{db: db}
}

// Create inserts a client. The legacy profile tag is copied into its own
// column so ownership filters can use it.
func (s *ClientStore) Create(ctx context.Context, client *domain.Client) (primitive.ObjectID, error) {
	if client.Name == "" {
		return primitive.NilObjectID, errors.New("client requires a name")
	}
	client.Profile.CoachTag = strings.ToLower(strings.TrimSpace(client.Profile.CoachTag))
	profile, err := json.Marshal(client.Profile)
	if err != nil {
		return primitive.NilObjectID, err
	}
	client.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	client.CreatedAt = now
	client.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO clients (id, name, email, phone, coach_id, coach_tag, profile, deleted_at, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		client.ID.Hex(), client.Name, client.Email, client.Phone, formatNullID(client.CoachID),
		client.Profile.CoachTag, string(profile), formatNullTime(client.DeletedAt), formatTime(now), formatTime(now),
	)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return client.ID, nil
}

// GetByID retrieves a client, including soft-deleted ones.
func (s *ClientStore) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Client, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+clientColumns+" FROM clients WHERE id = ?", id.Hex())
	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return c, err
}

// List returns clients ordered by name. The legacy tag only counts for
// clients without an explicit coach_id, as in service.OwnsClient.
func (s *ClientStore) List(ctx context.Context, f repository.ClientFilter) ([]domain.Client, error) {
	var where []string
	var args []any
	if f.CoachID != nil {
		where = append(where, "(coach_id = ? OR (coach_id IS NULL AND lower(coach_tag) = ?))")
		args = append(args, f.CoachID.Hex(), f.CoachID.Hex())
	}
	if !f.IncludeDeleted {
		where = append(where, "deleted_at IS NULL")
	}
	query := "SELECT " + clientColumns + " FROM clients"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := []domain.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

// SoftDelete stamps deleted_at.
func (s *ClientStore) SoftDelete(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	res, err := s.db.ExecContext(ctx, "UPDATE clients SET deleted_at = ?, updated_at = ? WHERE id = ?",
		formatTime(at), formatTime(at), id.Hex())
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanClient(sc scanner) (*domain.Client, error) {
	var c domain.Client
	var id, profile, createdAt, updatedAt string
	var coachID, deletedAt sql.NullString
	if err := sc.Scan(&id, &c.Name, &c.Email, &c.Phone, &coachID, &profile, &deletedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if c.ID, err = primitive.ObjectIDFromHex(id); err != nil {
		return nil, err
	}
	if c.CoachID, err = parseNullID(coachID); err != nil {
		return nil, err
	}
	if err = json.Unmarshal([]byte(profile), &c.Profile); err != nil {
		return nil, err
	}
	if c.DeletedAt, err = parseNullTime(deletedAt); err != nil {
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
