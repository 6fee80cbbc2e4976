package service

import (
	"alcyxob/coach-scheduler/internal/domain"
	"alcyxob/coach-scheduler/internal/repository"
	"alcyxob/coach-scheduler/internal/schedule"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultSessionMinutes is used when a request leaves the duration unset.
const DefaultSessionMinutes = 60

// CreateSessionInput describes one explicitly timed session.
type CreateSessionInput struct {
	ClientID        primitive.ObjectID
	WorkoutID       *primitive.ObjectID
	ScheduledAt     time.Time
	DurationMinutes int
	Location        string
	Notes           string
}

// RecurringSessionsInput describes a generated series.
type RecurringSessionsInput struct {
	ClientID        primitive.ObjectID
	WorkoutID       *primitive.ObjectID
	StartDate       string // YYYY-MM-DD
	TimeOfDay       string // HH:MM
	Recurrence      string // none|daily|weekly|biweekly|monthly
	Count           int
	DurationMinutes int
	Location        string
	Notes           string

	// RespectAvailability also skips the coach's non-working days and holidays.
	RespectAvailability bool

	// IdempotencyKey makes a replayed request return the batch it created
	// the first time instead of creating a second one.
	IdempotencyKey string
}

// RecurringSessionsResult is what CreateRecurringSessions persisted.
type RecurringSessionsResult struct {
	BatchID  string           `json:"batchId"`
	Sessions []domain.Session `json:"sessions"`
	Capped   bool             `json:"capped"`   // the request asked for more than the configured maximum
	Replayed bool             `json:"replayed"` // at least one session already existed under this key
}

// SessionQuery filters ListSessions.
type SessionQuery struct {
	ClientID         *primitive.ObjectID
	Status           *domain.SessionStatus
	From             *time.Time
	To               *time.Time
	IncludeCancelled bool
}

// ScheduleService creates and queries sessions.
type ScheduleService interface {
	PreviewRecurrence(ctx context.Context, scope CoachScope, in RecurringSessionsInput) ([]time.Time, error)
	CreateSession(ctx context.Context, scope CoachScope, in CreateSessionInput) (*domain.Session, error)
	CreateRecurringSessions(ctx context.Context, scope CoachScope, in RecurringSessionsInput) (*RecurringSessionsResult, error)
	ListSessions(ctx context.Context, scope CoachScope, q SessionQuery) ([]domain.Session, error)
	GetSession(ctx context.Context, scope CoachScope, id primitive.ObjectID) (*domain.Session, error)
}

// ScheduleOptions carries the configured scheduling limits.
type ScheduleOptions struct {
	Location           *time.Location
	MaxRecurrenceCount int
}

type scheduleService struct {
	sessionRepo  repository.SessionRepository
	clientRepo   repository.ClientRepository
	availability AvailabilityService
	opts         ScheduleOptions
}

// NewScheduleService creates a new instance of scheduleService.
func NewScheduleService(
	sessionRepo repository.SessionRepository,
	clientRepo repository.ClientRepository,
	availability AvailabilityService,
	opts ScheduleOptions,
) ScheduleService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.MaxRecurrenceCount <= 0 {
		opts.MaxRecurrenceCount = schedule.DefaultMaxCount
	}
	return &scheduleService{
		sessionRepo:  sessionRepo,
		clientRepo:   clientRepo,
		availability: availability,
		opts:         opts,
	}
}

// PreviewRecurrence generates instants without writing anything. Availability
// is only applied for a scoped caller, since it is per coach.
func (s *scheduleService) PreviewRecurrence(ctx context.Context, scope CoachScope, in RecurringSessionsInput) ([]time.Time, error) {
	instants, _, err := s.generate(ctx, scope, in)
	return instants, err
}

func (s *scheduleService) generate(ctx context.Context, scope CoachScope, in RecurringSessionsInput) ([]time.Time, bool, error) {
	req := schedule.Request{
		ClientID:        in.ClientID.Hex(),
		StartDate:       in.StartDate,
		TimeOfDay:       in.TimeOfDay,
		Kind:            in.Recurrence,
		Count:           in.Count,
		DurationMinutes: in.DurationMinutes,
	}
	opts := schedule.Options{
		Location: s.opts.Location,
		MaxCount: s.opts.MaxRecurrenceCount,
	}
	if coachID, ok := scope.CoachID(); ok && in.RespectAvailability && s.availability != nil {
		exclusions, err := s.availability.Exclusions(ctx, coachID)
		if err != nil {
			return nil, false, err
		}
		opts.Exclusions = exclusions
	}

	instants, err := schedule.GenerateRecurrence(req, opts)
	if err != nil {
		return nil, false, err
	}
	// A single session is never capped, whatever count was sent.
	kind, _ := schedule.ParseKind(in.Recurrence)
	capped := kind != schedule.KindNone && in.Count > s.opts.MaxRecurrenceCount
	return instants, capped, nil
}

// requestFingerprint identifies what a recurring request asked for, so a
// reused idempotency key can be told apart from a genuine replay. Inputs
// must already have passed generate.
func requestFingerprint(in RecurringSessionsInput) string {
	kind, _ := schedule.ParseKind(in.Recurrence)
	year, month, day, _ := schedule.ParseStartDate(in.StartDate)
	hour, minute, _ := schedule.ParseTimeOfDay(in.TimeOfDay)
	workout := ""
	if in.WorkoutID != nil {
		workout = in.WorkoutID.Hex()
	}
	return fmt.Sprintf("%s|%s|%s|%04d-%02d-%02d|%02d:%02d|%d|%d|%t",
		in.ClientID.Hex(), workout, kind, year, month, day, hour, minute, in.Count, in.DurationMinutes, in.RespectAvailability)
}

// checkBatch rejects a batch id already used for a different request.
func checkBatch(stored []domain.Session, fingerprint string) error {
	for _, session := range stored {
		rec := session.Metadata.Recurrence
		if rec != nil && rec.Fingerprint != fingerprint {
			return &domain.ConflictError{Reason: "idempotency key was already used for a different recurring request"}
		}
	}
	return nil
}

// CreateSession schedules one session for a client of the calling coach.
func (s *scheduleService) CreateSession(ctx context.Context, scope CoachScope, in CreateSessionInput) (*domain.Session, error) {
	// 1. Validate Inputs
	coachID, err := scope.requireCoach()
	if err != nil {
		return nil, err
	}
	if in.ScheduledAt.IsZero() {
		return nil, domain.NewValidationError("scheduledAt", "is required")
	}
	if in.DurationMinutes < 0 {
		return nil, domain.NewValidationError("durationMinutes", "must not be negative")
	}

	// 2. Client must exist, be live and belong to the coach
	if _, err := loadClient(ctx, s.clientRepo, scope, in.ClientID); err != nil {
		return nil, err
	}

	// 3. Persist
	session := s.newSession(coachID, in.ClientID, in.WorkoutID, in.ScheduledAt, in.DurationMinutes, in.Location, in.Notes)
	if _, err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, domain.NewStorageError("create session", err)
	}
	return session, nil
}

// CreateRecurringSessions generates a series and persists one session per
// instant. Sessions are written one at a time; a storage failure part way
// leaves the earlier sessions in place, and retrying with the same
// idempotency key fills in the rest.
func (s *scheduleService) CreateRecurringSessions(ctx context.Context, scope CoachScope, in RecurringSessionsInput) (*RecurringSessionsResult, error) {
	// 1. Validate caller and client
	coachID, err := scope.requireCoach()
	if err != nil {
		return nil, err
	}
	if _, err := loadClient(ctx, s.clientRepo, scope, in.ClientID); err != nil {
		return nil, err
	}

	// 2. Generate instants
	instants, capped, err := s.generate(ctx, scope, in)
	if err != nil {
		return nil, err
	}
	if capped {
		log.Printf("WARN: Recurring request from %s for client %s capped at %d sessions", scope, in.ClientID.Hex(), len(instants))
	}
	kind, _ := schedule.ParseKind(in.Recurrence) // already validated by generate

	// 3. Pick the batch id. Keys are namespaced per coach, and a key may
	// only be replayed with the request that first used it.
	batchID := uuid.NewString()
	fingerprint := requestFingerprint(in)
	if in.IdempotencyKey != "" {
		batchID = coachID.Hex() + ":" + in.IdempotencyKey
		stored, err := s.sessionRepo.GetByBatchID(ctx, batchID)
		if err != nil {
			return nil, domain.NewStorageError("get session batch", err)
		}
		if err := checkBatch(stored, fingerprint); err != nil {
			log.Printf("WARN: Idempotency key %q from %s reused for a different request", in.IdempotencyKey, scope)
			return nil, err
		}
	}

	// 4. Persist each instant
	result := &RecurringSessionsResult{BatchID: batchID, Capped: capped, Sessions: []domain.Session{}}
	for i, at := range instants {
		session := s.newSession(coachID, in.ClientID, in.WorkoutID, at, in.DurationMinutes, in.Location, in.Notes)
		session.Metadata.Recurrence = &domain.RecurrenceInfo{
			Kind:     string(kind),
			BatchID:     batchID,
			Sequence:    i + 1,
			Total:       len(instants),
			Fingerprint: fingerprint,
		}
		if _, err := s.sessionRepo.Create(ctx, session); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				result.Replayed = true
				continue
			}
			log.Printf("ERROR: Creating session %d/%d of batch %s: %v", i+1, len(instants), batchID, err)
			return nil, domain.NewStorageError("create recurring session", err)
		}
		result.Sessions = append(result.Sessions, *session)
	}

	// 5. A replay returns the batch as stored.
	if result.Replayed {
		stored, err := s.sessionRepo.GetByBatchID(ctx, batchID)
		if err != nil {
			return nil, domain.NewStorageError("get session batch", err)
		}
		// A concurrent request with the same key but different content can
		// slip past the check above; report it rather than a mixed batch.
		if err := checkBatch(stored, fingerprint); err != nil {
			return nil, err
		}
		result.Sessions = stored
	}
	return result, nil
}

func (s *scheduleService) newSession(coachID, clientID primitive.ObjectID, workoutID *primitive.ObjectID, at time.Time, minutes int, location, notes string) *domain.Session {
	if minutes <= 0 {
		minutes = DefaultSessionMinutes
	}
	return &domain.Session{
		CoachID:         coachID,
		ClientID:        clientID,
		WorkoutID:       workoutID,
		ScheduledAt:     at.UTC(),
		DurationMinutes: minutes,
		Location:        location,
		Status:          domain.StatusScheduled,
		Notes:           notes,
	}
}

// ListSessions returns the caller's sessions, or every coach's when unscoped.
func (s *scheduleService) ListSessions(ctx context.Context, scope CoachScope, q SessionQuery) ([]domain.Session, error) {
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return nil, domain.NewValidationError("to", "must not be before from")
	}
	filter := repository.SessionFilter{
		CoachID:          scope.coachFilter(),
		ClientID:         q.ClientID,
		From:             q.From,
		To:               q.To,
		IncludeCancelled: q.IncludeCancelled,
	}
	if q.Status != nil {
		filter.Statuses = []domain.SessionStatus{*q.Status}
	}
	sessions, err := s.sessionRepo.List(ctx, filter)
	if err != nil {
		return nil, domain.NewStorageError("list sessions", err)
	}
	return sessions, nil
}

func (s *scheduleService) GetSession(ctx context.Context, scope CoachScope, id primitive.ObjectID) (*domain.Session, error) {
	return loadSession(ctx, s.sessionRepo, scope, id)
}
