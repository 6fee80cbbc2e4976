package service

import (
	"alcyxob/coach-scheduler/internal/domain"
	"alcyxob/coach-scheduler/internal/repository"
	"context"
	"log"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ConsistencyReport summarises a client's attendance and progress-check habits.
type ConsistencyReport struct {
	ClientID           string                        `json:"client_id"`
	WindowDays         int                           `json:"window_days"`
	SessionsScheduled  int                           `json:"sessions_scheduled"`
	SessionsAttended   int                           `json:"sessions_attended"`
	AttendanceRate     int                           `json:"attendance_rate"` // percent, rounded half away from zero
	ProgressChecks     int64                         `json:"progress_checks"`
	DaysSinceLastCheck *int                          `json:"days_since_last_check"`
	ProgressCheckDue   bool                          `json:"progress_check_due"`
	CheckFrequency     domain.ProgressCheckFrequency `json:"check_frequency"`
	Degraded           bool                          `json:"degraded,omitempty"` // storage failed; counts are zero
}

// AnalyticsService is read-only.
type AnalyticsService interface {
	ComputeConsistency(ctx context.Context, scope CoachScope, clientID primitive.ObjectID, windowDays int) (*ConsistencyReport, error)
}

type analyticsService struct {
	clientRepo        repository.ClientRepository
	sessionRepo       repository.SessionRepository
	progressRepo      repository.ProgressRepository
	defaultWindowDays int
	now               Clock
}

// NewAnalyticsService creates a new instance of analyticsService.
func NewAnalyticsService(
	clientRepo repository.ClientRepository,
	sessionRepo repository.SessionRepository,
	progressRepo repository.ProgressRepository,
	defaultWindowDays int,
	now Clock,
) AnalyticsService {
	if defaultWindowDays <= 0 {
		defaultWindowDays = 30
	}
	if now == nil {
		now = SystemClock
	}
	return &analyticsService{
		clientRepo:        clientRepo,
		sessionRepo:       sessionRepo,
		progressRepo:      progressRepo,
		defaultWindowDays: defaultWindowDays,
		now:               now,
	}
}

// countedStatuses are the statuses that make up sessions_scheduled.
// Cancelled and in-progress sessions are not counted.
var countedStatuses = []domain.SessionStatus{domain.StatusScheduled, domain.StatusCompleted, domain.StatusNoShow}

// ComputeConsistency reports over [now - windowDays, now]. Storage failures
// after the client is known are logged and produce a zero report marked Degraded.
func (s *analyticsService) ComputeConsistency(ctx context.Context, scope CoachScope, clientID primitive.ObjectID, windowDays int) (*ConsistencyReport, error) {
	if windowDays <= 0 {
		windowDays = s.defaultWindowDays
	}
	report := &ConsistencyReport{
		ClientID:       clientID.Hex(),
		WindowDays:     windowDays,
		CheckFrequency: domain.CheckMonthly,
	}

	// 1. Resolve the client
	client, err := loadClient(ctx, s.clientRepo, scope, clientID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, err
		}
		log.Printf("ERROR: Consistency for client %s: loading client: %v", clientID.Hex(), err)
		return degraded(report), nil
	}
	if client.Profile.ProgressCheckFrequency != "" {
		report.CheckFrequency = client.Profile.ProgressCheckFrequency
	}

	// 2. Sessions in the window
	now := s.now()
	from := now.AddDate(0, 0, -windowDays)
	sessions, err := s.sessionRepo.List(ctx, repository.SessionFilter{
		CoachID:  scope.coachFilter(),
		ClientID: &clientID,
		Statuses: countedStatuses,
		From:     &from,
		To:       &now,
	})
	if err != nil {
		log.Printf("ERROR: Consistency for client %s: listing sessions: %v", clientID.Hex(), err)
		return degraded(report), nil
	}
	report.SessionsScheduled = len(sessions)
	for _, session := range sessions {
		if session.Status == domain.StatusCompleted {
			report.SessionsAttended++
		}
	}
	report.AttendanceRate = AttendanceRate(report.SessionsAttended, report.SessionsScheduled)

	// 3. Progress checks (all time)
	count, last, err := s.progressRepo.Summary(ctx, clientID)
	if err != nil {
		log.Printf("ERROR: Consistency for client %s: progress summary: %v", clientID.Hex(), err)
		return degraded(report), nil
	}
	report.ProgressChecks = count
	if last == nil {
		report.ProgressCheckDue = true
		return report, nil
	}
	days := DaysBetween(*last, now)
	report.DaysSinceLastCheck = &days
	report.ProgressCheckDue = days >= report.CheckFrequency.CadenceDays()
	return report, nil
}

// AttendanceRate is attended/scheduled as a whole percentage, 0 when nothing was scheduled.
func AttendanceRate(attended, scheduled int) int {
	if scheduled <= 0 {
		return 0
	}
	return int(math.Round(float64(attended) / float64(scheduled) * 100))
}

// DaysBetween counts whole elapsed days from then to now, never negative.
func DaysBetween(then, now time.Time) int {
	d := now.Sub(then)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

func degraded(r *ConsistencyReport) *ConsistencyReport {
	return &ConsistencyReport{
		ClientID:       r.ClientID,
		WindowDays:     r.WindowDays,
		CheckFrequency: r.CheckFrequency,
		Degraded:       true,
	}
}
