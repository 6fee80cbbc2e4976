package service

import (
	"alcyxob/coach-scheduler/internal/domain"
	"alcyxob/coach-scheduler/internal/repository"
	"alcyxob/coach-scheduler/internal/repository/sqlite"
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fixedNow is the pinned clock used across service tests: Wed 2026-03-18 12:00 UTC.
var fixedNow = time.Date(2026, 3, 18, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// testEnv bundles real SQLite-backed stores for one test.
type testEnv struct {
	coaches  *sqlite.CoachStore
	clients  *sqlite.ClientStore
	sessions *sqlite.SessionStore
	avail    *sqlite.AvailabilityStore
	holidays *sqlite.HolidayStore
	progress *sqlite.ProgressStore
	workouts *sqlite.WorkoutStore
	slots    *sqlite.TimeSlotStore
	grades   *sqlite.GradeStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &testEnv{
		coaches:  sqlite.NewCoachStore(db),
		clients:  sqlite.NewClientStore(db),
		sessions: sqlite.NewSessionStore(db),
		avail:    sqlite.NewAvailabilityStore(db),
		holidays: sqlite.NewHolidayStore(db),
		progress: sqlite.NewProgressStore(db),
		workouts: sqlite.NewWorkoutStore(db),
		slots:    sqlite.NewTimeSlotStore(db),
		grades:   sqlite.NewGradeStore(db),
	}
}

func (e *testEnv) seedCoach(t *testing.T, email string, active bool) primitive.ObjectID {
	t.Helper()
	id, err := e.coaches.Create(context.Background(), &domain.Coach{
		Name: email, Email: email, PasswordHash: "x", IsActive: active,
	})
	if err != nil {
		t.Fatalf("seed coach: %v", err)
	}
	return id
}

func (e *testEnv) seedClient(t *testing.T, coachID primitive.ObjectID, freq domain.ProgressCheckFrequency) primitive.ObjectID {
	t.Helper()
	id, err := e.clients.Create(context.Background(), &domain.Client{
		Name:    "client of " + coachID.Hex(),
		CoachID: &coachID,
		Profile: domain.ClientProfile{ProgressCheckFrequency: freq},
	})
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return id
}

func (e *testEnv) seedSession(t *testing.T, coachID, clientID primitive.ObjectID, at time.Time, status domain.SessionStatus) primitive.ObjectID {
	t.Helper()
	id, err := e.sessions.Create(context.Background(), &domain.Session{
		CoachID: coachID, ClientID: clientID, ScheduledAt: at, DurationMinutes: 60, Status: status,
	})
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return id
}

func (e *testEnv) scheduleService() ScheduleService {
	return NewScheduleService(e.sessions, e.clients,
		NewAvailabilityService(e.avail, e.holidays, fixedClock),
		ScheduleOptions{Location: time.UTC, MaxRecurrenceCount: 50})
}

func (e *testEnv) lifecycleService() LifecycleService {
	return NewLifecycleService(e.sessions, e.workouts, fixedClock)
}

// failingSessions fails selected SessionRepository calls.
type failingSessions struct {
	repository.SessionRepository
	failList   bool
	failCreate int // fail the nth Create (1-based); 0 never
	creates    int
}

var errInjected = errors.New("injected storage failure")

func (f *failingSessions) List(ctx context.Context, filter repository.SessionFilter) ([]domain.Session, error) {
	if f.failList {
		return nil, errInjected
	}
	return f.SessionRepository.List(ctx, filter)
}

func (f *failingSessions) Create(ctx context.Context, s *domain.Session) (primitive.ObjectID, error) {
	f.creates++
	if f.creates == f.failCreate {
		return primitive.NilObjectID, errInjected
	}
	return f.SessionRepository.Create(ctx, s)
}

// failingCoaches fails every lookup.
type failingCoaches struct {
	repository.CoachRepository
}

func (failingCoaches) GetByID(context.Context, primitive.ObjectID) (*domain.Coach, error) {
	return nil, errInjected
}

// failingWorkouts fails every lookup.
type failingWorkouts struct{}

func (failingWorkouts) GetByID(context.Context, primitive.ObjectID) (*domain.Workout, error) {
	return nil, errInjected
}

// fakeStorage records calls instead of signing against S3.
type fakeStorage struct {
	deleted []string
	failPut bool
}

func (f *fakeStorage) GeneratePresignedUploadURL(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	if f.failPut {
		return "", errInjected
	}
	return "https://uploads.test/" + key, nil
}

func (f *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://downloads.test/" + key, nil
}

func (f *fakeStorage) DeleteObject(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func day(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}
