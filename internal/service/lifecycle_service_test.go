package service

import (
	"alcyxob/coach-scheduler/internal/domain"
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTransition_Matrix(t *testing.T) {
	tests := []struct {
		from    domain.SessionStatus
		to      domain.SessionStatus
		wantErr bool
	}{
		{domain.StatusScheduled, domain.StatusInProgress, false},
		{domain.StatusScheduled, domain.StatusNoShow, false},
		{domain.StatusScheduled, domain.StatusCancelled, false},
		{domain.StatusScheduled, domain.StatusCompleted, true},
		{domain.StatusInProgress, domain.StatusCompleted, false},
		{domain.StatusInProgress, domain.StatusNoShow, false},
		{domain.StatusInProgress, domain.StatusCancelled, false},
		{domain.StatusInProgress, domain.StatusScheduled, true},
		{domain.StatusCompleted, domain.StatusCancelled, true},
		{domain.StatusNoShow, domain.StatusInProgress, true},
		{domain.StatusCancelled, domain.StatusScheduled, true},
		{domain.StatusCompleted, domain.StatusCompleted, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			ctx := context.Background()
			env := newTestEnv(t)
			coach := env.seedCoach(t, "a@example.com", true)
			id := env.seedSession(t, coach, env.seedClient(t, coach, ""), fixedNow, tt.from)

			res, err := env.lifecycleService().Transition(ctx, ScopedTo(coach), id, tt.to, TransitionPayload{})
			if tt.wantErr {
				if !domain.IsValidation(err) {
					t.Fatalf("Transition() error = %v, want ValidationError", err)
				}
				stored, _ := env.sessions.GetByID(ctx, id)
				if stored.Status != tt.from {
					t.Errorf("rejected transition changed status to %s", stored.Status)
				}
				return
			}
			if err != nil {
				t.Fatalf("Transition() error = %v", err)
			}
			if res.Session.Status != tt.to {
				t.Errorf("status = %s, want %s", res.Session.Status, tt.to)
			}
		})
	}
}

func TestComplete_RequiresStart(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	coach := env.seedCoach(t, "a@example.com", true)
	id := env.seedSession(t, coach, env.seedClient(t, coach, ""), fixedNow, domain.StatusScheduled)
	svc := env.lifecycleService()

	if _, err := svc.Complete(ctx, ScopedTo(coach), id, "", nil); !domain.IsValidation(err) {
		t.Fatalf("Complete() on scheduled error = %v, want ValidationError", err)
	}
	if _, err := svc.Start(ctx, ScopedTo(coach), id); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	sets := 3
	session, err := svc.Complete(ctx, ScopedTo(coach), id, "strong day", []domain.CompletedExercise{{Name: "squat", Sets: &sets, Reps: "5"}})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if session.CompletedAt == nil || !session.CompletedAt.Equal(fixedNow) || session.Notes != "strong day" {
		t.Errorf("Complete() = %+v", session)
	}
	stored, _ := env.sessions.GetByID(ctx, id)
	if len(stored.Metadata.CompletedExercises) != 1 || *stored.Metadata.CompletedExercises[0].Sets != 3 {
		t.Errorf("stored exercises = %+v", stored.Metadata.CompletedExercises)
	}
}

func TestCancel_Idempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	coach := env.seedCoach(t, "a@example.com", true)
	at := day(2026, 3, 25, 9)
	id := env.seedSession(t, coach, env.seedClient(t, coach, ""), at, domain.StatusScheduled)

	first, err := env.lifecycleService().Cancel(ctx, ScopedTo(coach), id, "sick", domain.ActorClient)
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if !first.ScheduledAt.Equal(at) {
		t.Errorf("Cancel() moved scheduledAt to %v", first.ScheduledAt)
	}

	// A later clock must not overwrite the original audit record.
	later := NewLifecycleService(env.sessions, nil, func() time.Time { return fixedNow.Add(48 * time.Hour) })
	second, err := later.Cancel(ctx, ScopedTo(coach), id, "different", domain.ActorCoach)
	if err != nil {
		t.Fatalf("second Cancel() error = %v", err)
	}
	c := second.Metadata.Cancellation
	if c == nil || c.Reason != "sick" || c.CancelledBy != domain.ActorClient || !c.CancelledAt.Equal(fixedNow) {
		t.Errorf("cancellation after re-cancel = %+v", c)
	}
}

func TestCancel_DefaultsAndValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	coach := env.seedCoach(t, "a@example.com", true)
	client := env.seedClient(t, coach, "")
	svc := env.lifecycleService()

	id := env.seedSession(t, coach, client, fixedNow, domain.StatusScheduled)
	session, err := svc.Cancel(ctx, ScopedTo(coach), id, "", "")
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if session.Metadata.Cancellation.CancelledBy != domain.ActorCoach {
		t.Errorf("CancelledBy = %s, want coach", session.Metadata.Cancellation.CancelledBy)
	}

	other := env.seedSession(t, coach, client, fixedNow, domain.StatusScheduled)
	if _, err := svc.Cancel(ctx, ScopedTo(coach), other, "", "admin"); !domain.IsValidation(err) {
		t.Errorf("unknown actor error = %v, want ValidationError", err)
	}
}

func TestMarkAttendance(t *testing.T) {
	late := 10
	tests := []struct {
		name       string
		from       domain.SessionStatus
		status     domain.AttendanceStatus
		lateMins   *int
		wantStatus domain.SessionStatus
		wantErr    func(error) bool
	}{
		{"absent from scheduled", domain.StatusScheduled, domain.AttendanceAbsent, nil, domain.StatusNoShow, nil},
		{"absent from in_progress", domain.StatusInProgress, domain.AttendanceAbsent, nil, domain.StatusNoShow, nil},
		{"attended", domain.StatusInProgress, domain.AttendanceAttended, nil, domain.StatusCompleted, nil},
		{"late", domain.StatusInProgress, domain.AttendanceLate, &late, domain.StatusCompleted, nil},
		{"attended before start", domain.StatusScheduled, domain.AttendanceAttended, nil, "", domain.IsValidation},
		{"unknown attendance", domain.StatusInProgress, "excused", nil, "", domain.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			env := newTestEnv(t)
			coach := env.seedCoach(t, "a@example.com", true)
			id := env.seedSession(t, coach, env.seedClient(t, coach, ""), fixedNow, tt.from)

			session, err := env.lifecycleService().MarkAttendance(ctx, ScopedTo(coach), id, tt.status, "note", tt.lateMins)
			if tt.wantErr != nil {
				if !tt.wantErr(err) {
					t.Fatalf("MarkAttendance() error = %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("MarkAttendance() error = %v", err)
			}
			if session.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", session.Status, tt.wantStatus)
			}
			a := session.Metadata.Attendance
			if a == nil || a.Status != tt.status || !a.MarkedAt.Equal(fixedNow) {
				t.Fatalf("attendance = %+v", a)
			}
			if (a.LateMinutes != nil) != (tt.status == domain.AttendanceLate) {
				t.Errorf("lateMinutes = %v for %s", a.LateMinutes, tt.status)
			}
		})
	}
}

func TestStart_ReturnsWorkout(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	coach := env.seedCoach(t, "a@example.com", true)
	client := env.seedClient(t, coach, "")
	workout := &domain.Workout{CoachID: coach, Name: "Legs", Exercises: []domain.WorkoutItem{{Name: "squat"}}}
	if err := env.workouts.Save(ctx, workout); err != nil {
		t.Fatal(err)
	}
	id, err := env.sessions.Create(ctx, &domain.Session{
		CoachID: coach, ClientID: client, WorkoutID: &workout.ID, ScheduledAt: fixedNow, Status: domain.StatusScheduled,
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := env.lifecycleService().Start(ctx, ScopedTo(coach), id)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if res.Workout == nil || res.Workout.Name != "Legs" {
		t.Errorf("Start() workout = %+v", res.Workout)
	}
}

func TestStart_WorkoutFetchFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	coach := env.seedCoach(t, "a@example.com", true)
	workoutID := primitive.NewObjectID()
	id, err := env.sessions.Create(ctx, &domain.Session{
		CoachID: coach, ClientID: env.seedClient(t, coach, ""), WorkoutID: &workoutID, ScheduledAt: fixedNow,
	})
	if err != nil {
		t.Fatal(err)
	}

	svc := NewLifecycleService(env.sessions, failingWorkouts{}, fixedClock)
	res, err := svc.Start(ctx, ScopedTo(coach), id)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if res.Workout != nil {
		t.Errorf("workout = %+v, want nil", res.Workout)
	}
	stored, _ := env.sessions.GetByID(ctx, id)
	if stored.Status != domain.StatusInProgress {
		t.Errorf("stored status = %s, want in_progress", stored.Status)
	}
}

func TestLifecycle_ForeignSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.seedCoach(t, "a@example.com", true)
	b := env.seedCoach(t, "b@example.com", true)
	id := env.seedSession(t, a, env.seedClient(t, a, ""), fixedNow, domain.StatusScheduled)
	svc := env.lifecycleService()

	if _, err := svc.Start(ctx, ScopedTo(b), id); !domain.IsNotFound(err) {
		t.Errorf("Start() by other coach error = %v, want NotFoundError", err)
	}
	if _, err := svc.Cancel(ctx, ScopedTo(a), primitive.NewObjectID(), "", ""); !domain.IsNotFound(err) {
		t.Errorf("Cancel() of unknown session error = %v, want NotFoundError", err)
	}
}

func TestBulkCancel(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	coach := env.seedCoach(t, "a@example.com", true)
	client := env.seedClient(t, coach, "")
	open := env.seedSession(t, coach, client, fixedNow, domain.StatusScheduled)
	done := env.seedSession(t, coach, client, fixedNow, domain.StatusCompleted)
	missing := primitive.NewObjectID()

	results := env.lifecycleService().BulkCancel(ctx, ScopedTo(coach), []primitive.ObjectID{open, done, missing}, "gym closed", "")
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if !results[0].Success || results[0].Status != domain.StatusCancelled {
		t.Errorf("open session result = %+v", results[0])
	}
	if results[1].Success || results[1].Error == "" {
		t.Errorf("completed session result = %+v", results[1])
	}
	if results[2].Success || results[2].SessionID != missing.Hex() {
		t.Errorf("missing session result = %+v", results[2])
	}
}

func TestReschedule(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	coach := env.seedCoach(t, "a@example.com", true)
	client := env.seedClient(t, coach, "")
	svc := env.lifecycleService()

	id := env.seedSession(t, coach, client, fixedNow, domain.StatusScheduled)
	moved := day(2026, 4, 1, 18)
	session, err := svc.Reschedule(ctx, ScopedTo(coach), id, moved, 45)
	if err != nil {
		t.Fatalf("Reschedule() error = %v", err)
	}
	if !session.ScheduledAt.Equal(moved) || session.DurationMinutes != 45 {
		t.Errorf("Reschedule() = %v / %d", session.ScheduledAt, session.DurationMinutes)
	}

	started := env.seedSession(t, coach, client, fixedNow, domain.StatusInProgress)
	if _, err := svc.Reschedule(ctx, ScopedTo(coach), started, moved, 0); !domain.IsValidation(err) {
		t.Errorf("Reschedule() of in-progress error = %v, want ValidationError", err)
	}
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	coach := env.seedCoach(t, "a@example.com", true)
	other := env.seedCoach(t, "b@example.com", true)
	id := env.seedSession(t, coach, env.seedClient(t, coach, ""), fixedNow, domain.StatusScheduled)
	svc := env.lifecycleService()

	if err := svc.Purge(ctx, Unscoped(), id); !domain.IsValidation(err) {
		t.Errorf("unscoped Purge() error = %v, want ValidationError", err)
	}
	if err := svc.Purge(ctx, ScopedTo(other), id); !domain.IsNotFound(err) {
		t.Errorf("foreign Purge() error = %v, want NotFoundError", err)
	}
	if err := svc.Purge(ctx, ScopedTo(coach), id); err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if _, err := env.sessions.GetByID(ctx, id); err == nil {
		t.Error("session still stored after Purge()")
	}
}
