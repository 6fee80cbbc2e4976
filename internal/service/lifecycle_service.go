package service

import (
	"alcyxob/coach-scheduler/internal/domain"
	"alcyxob/coach-scheduler/internal/repository"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutCatalog is the read-only view of workouts owned by another service.
type WorkoutCatalog interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error)
}

// TransitionPayload carries the optional data a transition records.
type TransitionPayload struct {
	// Cancel
	Reason      string
	CancelledBy domain.ActorRole

	// Complete / attendance
	Notes              string
	CompletedExercises []domain.CompletedExercise
	Attendance         domain.AttendanceStatus
	LateMinutes        *int
}

// TransitionResult is a session after a transition. Workout is only set by Start.
type TransitionResult struct {
	Session *domain.Session `json:"session"`
	Workout *domain.Workout `json:"workout,omitempty"`
}

// BulkCancelResult reports the outcome for one id of a bulk cancel.
type BulkCancelResult struct {
	SessionID string               `json:"sessionId"`
	Success   bool                 `json:"success"`
	Status    domain.SessionStatus `json:"status,omitempty"`
	Error     string               `json:"error,omitempty"`
}

// LifecycleService moves sessions through their state machine.
// Re-applying a session's current status succeeds without writing.
// Concurrent transitions on one session are not coordinated: the last write wins.
type LifecycleService interface {
	Transition(ctx context.Context, scope CoachScope, id primitive.ObjectID, target domain.SessionStatus, payload TransitionPayload) (*TransitionResult, error)
	Start(ctx context.Context, scope CoachScope, id primitive.ObjectID) (*TransitionResult, error)
	Complete(ctx context.Context, scope CoachScope, id primitive.ObjectID, notes string, exercises []domain.CompletedExercise) (*domain.Session, error)
	MarkAttendance(ctx context.Context, scope CoachScope, id primitive.ObjectID, status domain.AttendanceStatus, notes string, lateMinutes *int) (*domain.Session, error)
	Cancel(ctx context.Context, scope CoachScope, id primitive.ObjectID, reason string, by domain.ActorRole) (*domain.Session, error)
	BulkCancel(ctx context.Context, scope CoachScope, ids []primitive.ObjectID, reason string, by domain.ActorRole) []BulkCancelResult
	Reschedule(ctx context.Context, scope CoachScope, id primitive.ObjectID, at time.Time, durationMinutes int) (*domain.Session, error)
	Purge(ctx context.Context, scope CoachScope, id primitive.ObjectID) error
}

type lifecycleService struct {
	sessionRepo repository.SessionRepository
	workouts    WorkoutCatalog
	now         Clock
}

// NewLifecycleService creates a new instance of lifecycleService.
func NewLifecycleService(sessionRepo repository.SessionRepository, workouts WorkoutCatalog, now Clock) LifecycleService {
	if now == nil {
		now = SystemClock
	}
	return &lifecycleService{
		sessionRepo: sessionRepo,
		workouts:    workouts,
		now:         now,
	}
}

// Transition dispatches to the operation that reaches target.
func (s *lifecycleService) Transition(ctx context.Context, scope CoachScope, id primitive.ObjectID, target domain.SessionStatus, payload TransitionPayload) (*TransitionResult, error) {
	var session *domain.Session
	var err error
	switch target {
	case domain.StatusInProgress:
		return s.Start(ctx, scope, id)
	case domain.StatusCompleted:
		if payload.Attendance != "" {
			session, err = s.MarkAttendance(ctx, scope, id, payload.Attendance, payload.Notes, payload.LateMinutes)
		} else {
			session, err = s.Complete(ctx, scope, id, payload.Notes, payload.CompletedExercises)
		}
	case domain.StatusNoShow:
		session, err = s.MarkAttendance(ctx, scope, id, domain.AttendanceAbsent, payload.Notes, nil)
	case domain.StatusCancelled:
		session, err = s.Cancel(ctx, scope, id, payload.Reason, payload.CancelledBy)
	case domain.StatusScheduled:
		// Only reachable as a no-op.
		session, err = loadSession(ctx, s.sessionRepo, scope, id)
		if err == nil {
			_, err = session.CheckTransition(target)
		}
	default:
		err = domain.NewValidationError("status", fmt.Sprintf("unknown session status %q", target))
	}
	if err != nil {
		return nil, err
	}
	return &TransitionResult{Session: session}, nil
}

// Start moves a scheduled session to in_progress and returns it together
// with its workout. A failed workout fetch is logged and does not fail the start.
func (s *lifecycleService) Start(ctx context.Context, scope CoachScope, id primitive.ObjectID) (*TransitionResult, error) {
	session, noop, err := s.prepare(ctx, scope, id, domain.StatusInProgress)
	if err != nil {
		return nil, err
	}
	if !noop {
		session.Status = domain.StatusInProgress
		if err := s.save(ctx, session); err != nil {
			return nil, err
		}
	}

	result := &TransitionResult{Session: session}
	if session.WorkoutID != nil && s.workouts != nil {
		workout, err := s.workouts.GetByID(ctx, *session.WorkoutID)
		if err != nil {
			log.Printf("WARN: Session %s started but workout %s could not be loaded: %v", id.Hex(), session.WorkoutID.Hex(), err)
		} else {
			result.Workout = workout
		}
	}
	return result, nil
}

// Complete closes an in-progress session.
func (s *lifecycleService) Complete(ctx context.Context, scope CoachScope, id primitive.ObjectID, notes string, exercises []domain.CompletedExercise) (*domain.Session, error) {
	session, noop, err := s.prepare(ctx, scope, id, domain.StatusCompleted)
	if err != nil || noop {
		return session, err
	}

	now := s.now()
	session.Status = domain.StatusCompleted
	session.CompletedAt = &now
	if notes != "" {
		session.Notes = notes
	}
	session.Metadata.CompletedExercises = exercises
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// MarkAttendance records attendance. Absent moves the session to no_show;
// attended and late complete it, which requires it to be in progress.
func (s *lifecycleService) MarkAttendance(ctx context.Context, scope CoachScope, id primitive.ObjectID, status domain.AttendanceStatus, notes string, lateMinutes *int) (*domain.Session, error) {
	// 1. Validate Inputs
	var target domain.SessionStatus
	switch status {
	case domain.AttendanceAbsent:
		target = domain.StatusNoShow
	case domain.AttendanceAttended, domain.AttendanceLate:
		target = domain.StatusCompleted
	default:
		return nil, domain.NewValidationError("attendance", fmt.Sprintf("unknown attendance status %q", status))
	}
	if lateMinutes != nil && *lateMinutes < 0 {
		return nil, domain.NewValidationError("lateMinutes", "must not be negative")
	}
	if status != domain.AttendanceLate {
		lateMinutes = nil
	}

	// 2. Load and check the transition
	session, noop, err := s.prepare(ctx, scope, id, target)
	if err != nil || noop {
		return session, err
	}

	// 3. Apply
	now := s.now()
	session.Status = target
	session.Metadata.Attendance = &domain.Attendance{
		Status:      status,
		Notes:       notes,
		LateMinutes: lateMinutes,
		MarkedAt:    now,
	}
	if target == domain.StatusCompleted {
		session.CompletedAt = &now
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Cancel records who cancelled and why. scheduledAt is kept.
func (s *lifecycleService) Cancel(ctx context.Context, scope CoachScope, id primitive.ObjectID, reason string, by domain.ActorRole) (*domain.Session, error) {
	switch by {
	case "":
		by = domain.ActorCoach
	case domain.ActorCoach, domain.ActorClient:
	default:
		return nil, domain.NewValidationError("cancelledBy", fmt.Sprintf("unknown actor %q", by))
	}

	session, noop, err := s.prepare(ctx, scope, id, domain.StatusCancelled)
	if err != nil || noop {
		return session, err
	}

	session.Status = domain.StatusCancelled
	session.Metadata.Cancellation = &domain.Cancellation{
		CancelledBy: by,
		Reason:      reason,
		CancelledAt: s.now(),
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// BulkCancel cancels each id independently and reports per-id outcomes.
func (s *lifecycleService) BulkCancel(ctx context.Context, scope CoachScope, ids []primitive.ObjectID, reason string, by domain.ActorRole) []BulkCancelResult {
	results := make([]BulkCancelResult, 0, len(ids))
	for _, id := range ids {
		r := BulkCancelResult{SessionID: id.Hex()}
		session, err := s.Cancel(ctx, scope, id, reason, by)
		if err != nil {
			r.Error = err.Error()
		} else {
			r.Success = true
			r.Status = session.Status
		}
		results = append(results, r)
	}
	return results
}

// Reschedule moves a session that has not started yet.
func (s *lifecycleService) Reschedule(ctx context.Context, scope CoachScope, id primitive.ObjectID, at time.Time, durationMinutes int) (*domain.Session, error) {
	if at.IsZero() {
		return nil, domain.NewValidationError("scheduledAt", "is required")
	}
	if durationMinutes < 0 {
		return nil, domain.NewValidationError("durationMinutes", "must not be negative")
	}
	session, err := loadSession(ctx, s.sessionRepo, scope, id)
	if err != nil {
		return nil, err
	}
	if session.ScheduleLocked() {
		return nil, domain.NewValidationError("scheduledAt",
			fmt.Sprintf("session is %s; only scheduled sessions can be rescheduled", session.Status))
	}

	session.ScheduledAt = at.UTC()
	if durationMinutes > 0 {
		session.DurationMinutes = durationMinutes
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Purge hard-deletes a session. It is administrative and only allowed for
// the owning coach; unscoped callers are refused.
func (s *lifecycleService) Purge(ctx context.Context, scope CoachScope, id primitive.ObjectID) error {
	if _, err := scope.requireCoach(); err != nil {
		return err
	}
	if _, err := loadSession(ctx, s.sessionRepo, scope, id); err != nil {
		return err
	}
	if err := s.sessionRepo.Delete(ctx, id); err != nil {
		return translateRepoError("delete session", "session", id, err)
	}
	log.Printf("INFO: Session %s purged by %s", id.Hex(), scope)
	return nil
}

// prepare loads the session and validates moving it to target.
func (s *lifecycleService) prepare(ctx context.Context, scope CoachScope, id primitive.ObjectID, target domain.SessionStatus) (*domain.Session, bool, error) {
	session, err := loadSession(ctx, s.sessionRepo, scope, id)
	if err != nil {
		return nil, false, err
	}
	noop, err := session.CheckTransition(target)
	if err != nil {
		return nil, false, err
	}
	return session, noop, nil
}

func (s *lifecycleService) save(ctx context.Context, session *domain.Session) error {
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Purged between read and write.
			return domain.NewNotFoundError("session", session.ID.Hex())
		}
		return domain.NewStorageError("update session", err)
	}
	return nil
}
