package service

import (
	"alcyxob/coach-scheduler/internal/domain"
	"alcyxob/coach-scheduler/internal/repository"
	"context"
	"math"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxNumericScore bounds SessionGrade.NumericScore.
const MaxNumericScore = 100

// GradeSessionInput is a coach's grade for one session.
type GradeSessionInput struct {
	SessionID primitive.ObjectID
	// ClientID is optional; when set it must be the session's client.
	ClientID     *primitive.ObjectID
	GradeValue   string
	NumericScore float64
	Comments     string
}

// GradingService records and lists per-session grades.
type GradingService interface {
	GradeSession(ctx context.Context, scope CoachScope, in GradeSessionInput) (*domain.SessionGrade, error)
	ListClientGrades(ctx context.Context, scope CoachScope, clientID primitive.ObjectID) ([]domain.SessionGrade, error)
}

type gradingService struct {
	gradeRepo   repository.GradeRepository
	sessionRepo repository.SessionRepository
	clientRepo  repository.ClientRepository
}

// NewGradingService creates a new instance of gradingService.
func NewGradingService(gradeRepo repository.GradeRepository, sessionRepo repository.SessionRepository, clientRepo repository.ClientRepository) GradingService {
	return &gradingService{
		gradeRepo:   gradeRepo,
		sessionRepo: sessionRepo,
		clientRepo:  clientRepo,
	}
}

// GradeSession writes the grade for the session's client, replacing any
// earlier grade. Cancelled sessions cannot be graded.
func (s *gradingService) GradeSession(ctx context.Context, scope CoachScope, in GradeSessionInput) (*domain.SessionGrade, error) {
	// 1. Validate Inputs
	if _, err := scope.requireCoach(); err != nil {
		return nil, err
	}
	value := strings.TrimSpace(in.GradeValue)
	if value == "" {
		return nil, domain.NewValidationError("gradeValue", "is required")
	}
	if math.IsNaN(in.NumericScore) || in.NumericScore < 0 || in.NumericScore > MaxNumericScore {
		return nil, domain.NewValidationError("numericScore", "must be between 0 and 100")
	}

	// 2. Session must be visible and gradable
	session, err := loadSession(ctx, s.sessionRepo, scope, in.SessionID)
	if err != nil {
		return nil, err
	}
	if in.ClientID != nil && *in.ClientID != session.ClientID {
		return nil, domain.NewValidationError("clientId", "does not match the session's client")
	}
	if session.Status == domain.StatusCancelled {
		return nil, domain.NewValidationError("sessionId", "cancelled sessions cannot be graded")
	}

	// 3. Upsert
	grade := &domain.SessionGrade{
		SessionID:          session.ID,
		ClientID:           session.ClientID,
		CoachID:            session.CoachID,
		SessionScheduledAt: session.ScheduledAt,
		GradeValue:         value,
		NumericScore:       in.NumericScore,
		Comments:           in.Comments,
	}
	if err := s.gradeRepo.Upsert(ctx, grade); err != nil {
		return nil, domain.NewStorageError("save grade", err)
	}
	return grade, nil
}

// ListClientGrades returns the client's grades, newest session first.
func (s *gradingService) ListClientGrades(ctx context.Context, scope CoachScope, clientID primitive.ObjectID) ([]domain.SessionGrade, error) {
	if _, err := loadClient(ctx, s.clientRepo, scope, clientID); err != nil {
		return nil, err
	}
	grades, err := s.gradeRepo.ListByClientID(ctx, clientID)
	if err != nil {
		return nil, domain.NewStorageError("list grades", err)
	}
	return grades, nil
}
