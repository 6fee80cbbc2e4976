package service

import (
	"alcyxob/coach-scheduler/internal/domain"
	"alcyxob/coach-scheduler/internal/repository"
	"alcyxob/coach-scheduler/internal/schedule"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AvailabilityService manages a coach's working days and holidays.
type AvailabilityService interface {
	GetProfile(ctx context.Context, scope CoachScope) (*domain.AvailabilityProfile, error)
	ReplaceWorkingDays(ctx context.Context, scope CoachScope, days []time.Weekday, recurrenceType string) (*domain.AvailabilityProfile, error)
	AddHoliday(ctx context.Context, scope CoachScope, date, reason string) (*domain.Holiday, error)
	DeleteHoliday(ctx context.Context, scope CoachScope, holidayID primitive.ObjectID) error
	ListHolidays(ctx context.Context, scope CoachScope) ([]domain.Holiday, error)

	// Exclusions returns predicates rejecting the coach's non-working days and holidays.
	Exclusions(ctx context.Context, coachID primitive.ObjectID) ([]schedule.Exclusion, error)
}

type availabilityService struct {
	availabilityRepo repository.AvailabilityRepository
	holidayRepo      repository.HolidayRepository
	now              Clock
}

// NewAvailabilityService creates a new instance of availabilityService.
func NewAvailabilityService(availabilityRepo repository.AvailabilityRepository, holidayRepo repository.HolidayRepository, now Clock) AvailabilityService {
	if now == nil {
		now = SystemClock
	}
	return &availabilityService{
		availabilityRepo: availabilityRepo,
		holidayRepo:      holidayRepo,
		now:              now,
	}
}

// GetProfile returns the stored profile or the Mon-Fri default. The default
// is not persisted until the coach replaces it.
func (s *availabilityService) GetProfile(ctx context.Context, scope CoachScope) (*domain.AvailabilityProfile, error) {
	coachID, err := scope.requireCoach()
	if err != nil {
		return nil, err
	}
	return s.profile(ctx, coachID)
}

func (s *availabilityService) profile(ctx context.Context, coachID primitive.ObjectID) (*domain.AvailabilityProfile, error) {
	profile, err := s.availabilityRepo.GetByCoachID(ctx, coachID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NewDefaultAvailability(coachID, s.now()), nil
	}
	if err != nil {
		return nil, domain.NewStorageError("get availability", err)
	}
	return profile, nil
}

// ReplaceWorkingDays overwrites the coach's profile.
func (s *availabilityService) ReplaceWorkingDays(ctx context.Context, scope CoachScope, days []time.Weekday, recurrenceType string) (*domain.AvailabilityProfile, error) {
	coachID, err := scope.requireCoach()
	if err != nil {
		return nil, err
	}

	// 1. Validate and normalize days
	if len(days) == 0 {
		return nil, domain.NewValidationError("workingDays", "at least one working day is required")
	}
	seen := make(map[time.Weekday]bool, len(days))
	normalized := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday {
			return nil, domain.NewValidationError("workingDays", fmt.Sprintf("invalid weekday %d", d))
		}
		if !seen[d] {
			seen[d] = true
			normalized = append(normalized, d)
		}
	}
	sort.Slice(normalized, func(i, j int) bool { return normalized[i] < normalized[j] })

	if recurrenceType == "" {
		recurrenceType = domain.DefaultAvailabilityRecurrence
	}

	// 2. Replace wholesale
	profile := &domain.AvailabilityProfile{
		CoachID:        coachID,
		WorkingDays:    normalized,
		RecurrenceType: recurrenceType,
		UpdatedAt:      s.now(),
	}
	if err := s.availabilityRepo.Upsert(ctx, profile); err != nil {
		return nil, domain.NewStorageError("save availability", err)
	}
	return profile, nil
}

func (s *availabilityService) AddHoliday(ctx context.Context, scope CoachScope, date, reason string) (*domain.Holiday, error) {
	coachID, err := scope.requireCoach()
	if err != nil {
		return nil, err
	}
	day, err := time.Parse(domain.HolidayDateFormat, date)
	if err != nil {
		return nil, domain.NewValidationError("date", fmt.Sprintf("cannot parse %q as YYYY-MM-DD", date))
	}

	holiday := &domain.Holiday{
		CoachID: coachID,
		Date:    day.Format(domain.HolidayDateFormat),
		Reason:  reason,
	}
	id, err := s.holidayRepo.Create(ctx, holiday)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &domain.ConflictError{Reason: "holiday already recorded for " + holiday.Date}
		}
		return nil, domain.NewStorageError("create holiday", err)
	}
	holiday.ID = id
	return holiday, nil
}

func (s *availabilityService) DeleteHoliday(ctx context.Context, scope CoachScope, holidayID primitive.ObjectID) error {
	coachID, err := scope.requireCoach()
	if err != nil {
		return err
	}
	if err := s.holidayRepo.Delete(ctx, holidayID, coachID); err != nil {
		return translateRepoError("delete holiday", "holiday", holidayID, err)
	}
	return nil
}

func (s *availabilityService) ListHolidays(ctx context.Context, scope CoachScope) ([]domain.Holiday, error) {
	coachID, err := scope.requireCoach()
	if err != nil {
		return nil, err
	}
	holidays, err := s.holidayRepo.ListByCoachID(ctx, coachID)
	if err != nil {
		return nil, domain.NewStorageError("list holidays", err)
	}
	return holidays, nil
}

func (s *availabilityService) Exclusions(ctx context.Context, coachID primitive.ObjectID) ([]schedule.Exclusion, error) {
	profile, err := s.profile(ctx, coachID)
	if err != nil {
		return nil, err
	}
	holidays, err := s.holidayRepo.ListByCoachID(ctx, coachID)
	if err != nil {
		return nil, domain.NewStorageError("list holidays", err)
	}

	dates := make([]string, len(holidays))
	for i, h := range holidays {
		dates[i] = h.Date
	}
	return []schedule.Exclusion{
		schedule.NonWorkingDays(profile.WorkingDays),
		schedule.OnDates(dates),
	}, nil
}
