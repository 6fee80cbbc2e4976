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

const timeSlotColumns = "id, coach_id, day_of_week, start_time, end_time, duration_minutes, location_type, location_address, max_clients, created_at"

// TimeSlotStore implements repository.TimeSlotRepository using SQLite.
type TimeSlotStore struct {
	db *sql.DB
}

// NewTimeSlotStore creates a new TimeSlotStore.
func NewTimeSlotStore(db *sql.DB) *TimeSlotStore {
	return &TimeSlotStore{db: db}
}

func (s *TimeSlotStore) Create(ctx context.Context, slot *domain.TimeSlot) (primitive.ObjectID, error) {
	if slot.CoachID == primitive.NilObjectID || slot.StartTime == "" {
		return primitive.NilObjectID, errors.New("time slot requires coachId and startTime")
	}
	slot.ID = primitive.NewObjectID()
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO time_slots ("+timeSlotColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		slot.ID.Hex(), slot.CoachID.Hex(), int(slot.DayOfWeek), slot.StartTime, slot.EndTime,
		slot.DurationMinutes, slot.LocationType, slot.LocationAddress, slot.MaxClients, formatTime(slot.CreatedAt),
	)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return slot.ID, nil
}

func (s *TimeSlotStore) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TimeSlot, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+timeSlotColumns+" FROM time_slots WHERE id = ?", id.Hex())
	slot, err := scanTimeSlot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return slot, err
}

// ListByCoachID orders by day of week, then start time.
func (s *TimeSlotStore) ListByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.TimeSlot, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+timeSlotColumns+" FROM time_slots WHERE coach_id = ? ORDER BY day_of_week, start_time", coachID.Hex())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := []domain.TimeSlot{}
	for rows.Next() {
		slot, err := scanTimeSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *slot)
	}
	return slots, rows.Err()
}

// Delete removes a slot owned by coachID.
func (s *TimeSlotStore) Delete(ctx context.Context, id, coachID primitive.ObjectID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM time_slots WHERE id = ? AND coach_id = ?", id.Hex(), coachID.Hex())
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func scanTimeSlot(sc scanner) (*domain.TimeSlot, error) {
	var slot domain.TimeSlot
	var id, coachID, createdAt string
	var day int
	if err := sc.Scan(&id, &coachID, &day, &slot.StartTime, &slot.EndTime, &slot.DurationMinutes,
		&slot.LocationType, &slot.LocationAddress, &slot.MaxClients, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if slot.ID, err = primitive.ObjectIDFromHex(id); err != nil {
		return nil, err
	}
	if slot.CoachID, err = primitive.ObjectIDFromHex(coachID); err != nil {
		return nil, err
	}
	slot.DayOfWeek = time.Weekday(day)
	if slot.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &slot, nil
}
