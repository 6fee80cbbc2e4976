package service

import (
	"alcyxob/coach-scheduler/internal/domain"
	"alcyxob/coach-scheduler/internal/repository"
	"alcyxob/coach-scheduler/internal/schedule"
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultSlotSessions is the number of weekly sessions an assignment creates
// when the request does not say.
const DefaultSlotSessions = 4

// CreateTimeSlotInput describes a weekly window offered by the calling coach.
type CreateTimeSlotInput struct {
	DayOfWeek       time.Weekday
	StartTime       string // HH:MM
	EndTime         string // HH:MM
	LocationType    string // online|offline, empty means online
	LocationAddress string
	MaxClients      int
}

// AssignToSlotInput books a client into a slot for a number of weeks.
type AssignToSlotInput struct {
	TimeSlotID  primitive.ObjectID
	ClientID    primitive.ObjectID
	WorkoutID   *primitive.ObjectID
	StartDate   string // first candidate date; the series begins on the slot's next weekday
	NumSessions int
	Notes       string

	RespectAvailability bool
	IdempotencyKey      string
}

// SlotService manages coach time slots and assigns clients to them.
type SlotService interface {
	CreateTimeSlot(ctx context.Context, scope CoachScope, in CreateTimeSlotInput) (*domain.TimeSlot, error)
	ListTimeSlots(ctx context.Context, scope CoachScope) ([]domain.TimeSlot, error)
	DeleteTimeSlot(ctx context.Context, scope CoachScope, id primitive.ObjectID) error
	AssignClientToSlot(ctx context.Context, scope CoachScope, in AssignToSlotInput) (*RecurringSessionsResult, error)
}

type slotService struct {
	slotRepo        repository.TimeSlotRepository
	scheduleService ScheduleService
	now             Clock
}

// NewSlotService creates a new instance of slotService. Assignments are
// written through scheduleService so they get the same validation,
// availability and idempotency handling as any recurring series.
func NewSlotService(slotRepo repository.TimeSlotRepository, scheduleService ScheduleService, now Clock) SlotService {
	if now == nil {
		now = SystemClock
	}
	return &slotService{
		slotRepo:        slotRepo,
		scheduleService: scheduleService,
		now:             now,
	}
}

func (s *slotService) CreateTimeSlot(ctx context.Context, scope CoachScope, in CreateTimeSlotInput) (*domain.TimeSlot, error) {
	coachID, err := scope.requireCoach()
	if err != nil {
		return nil, err
	}

	// 1. Validate Inputs
	if in.DayOfWeek < time.Sunday || in.DayOfWeek > time.Saturday {
		return nil, domain.NewValidationError("dayOfWeek", fmt.Sprintf("invalid weekday %d", in.DayOfWeek))
	}
	startH, startM, err := schedule.ParseTimeOfDay(in.StartTime)
	if err != nil {
		return nil, domain.NewValidationError("startTime", fmt.Sprintf("cannot parse %q as HH:MM", in.StartTime))
	}
	endH, endM, err := schedule.ParseTimeOfDay(in.EndTime)
	if err != nil {
		return nil, domain.NewValidationError("endTime", fmt.Sprintf("cannot parse %q as HH:MM", in.EndTime))
	}
	duration := (endH*60 + endM) - (startH*60 + startM)
	if duration <= 0 {
		return nil, domain.NewValidationError("endTime", "must be after startTime")
	}
	locationType := strings.ToLower(strings.TrimSpace(in.LocationType))
	switch locationType {
	case "":
		locationType = domain.SlotOnline
	case domain.SlotOnline, domain.SlotOffline:
	default:
		return nil, domain.NewValidationError("locationType", fmt.Sprintf("unknown location type %q", in.LocationType))
	}
	maxClients := in.MaxClients
	if maxClients < 0 {
		return nil, domain.NewValidationError("maxClients", "must not be negative")
	}
	if maxClients == 0 {
		maxClients = 1
	}

	// 2. Persist
	slot := &domain.TimeSlot{
		CoachID:         coachID,
		DayOfWeek:       in.DayOfWeek,
		StartTime:       fmt.Sprintf("%02d:%02d", startH, startM),
		EndTime:         fmt.Sprintf("%02d:%02d", endH, endM),
		DurationMinutes: duration,
		LocationType:    locationType,
		LocationAddress: strings.TrimSpace(in.LocationAddress),
		MaxClients:      maxClients,
		CreatedAt:       s.now(),
	}
	if _, err := s.slotRepo.Create(ctx, slot); err != nil {
		return nil, domain.NewStorageError("create time slot", err)
	}
	return slot, nil
}

func (s *slotService) ListTimeSlots(ctx context.Context, scope CoachScope) ([]domain.TimeSlot, error) {
	coachID, err := scope.requireCoach()
	if err != nil {
		return nil, err
	}
	slots, err := s.slotRepo.ListByCoachID(ctx, coachID)
	if err != nil {
		return nil, domain.NewStorageError("list time slots", err)
	}
	return slots, nil
}

// DeleteTimeSlot removes the slot. Sessions already assigned from it stay.
func (s *slotService) DeleteTimeSlot(ctx context.Context, scope CoachScope, id primitive.ObjectID) error {
	coachID, err := scope.requireCoach()
	if err != nil {
		return err
	}
	if err := s.slotRepo.Delete(ctx, id, coachID); err != nil {
		return translateRepoError("delete time slot", "time slot", id, err)
	}
	return nil
}

// AssignClientToSlot creates NumSessions weekly sessions at the slot's start
// time, beginning on the first slot weekday on or after StartDate.
func (s *slotService) AssignClientToSlot(ctx context.Context, scope CoachScope, in AssignToSlotInput) (*RecurringSessionsResult, error) {
	coachID, err := scope.requireCoach()
	if err != nil {
		return nil, err
	}

	// 1. Slot must exist and belong to the coach
	slot, err := s.slotRepo.GetByID(ctx, in.TimeSlotID)
	if err != nil {
		return nil, translateRepoError("get time slot", "time slot", in.TimeSlotID, err)
	}
	if slot.CoachID != coachID {
		return nil, domain.NewNotFoundError("time slot", in.TimeSlotID.Hex())
	}

	// 2. Resolve the series
	count := in.NumSessions
	if count < 0 {
		return nil, domain.NewValidationError("numSessions", "must not be negative")
	}
	if count == 0 {
		count = DefaultSlotSessions
	}
	first, err := schedule.FirstOnOrAfter(in.StartDate, slot.DayOfWeek)
	if err != nil {
		return nil, err
	}

	// 3. Delegate to the recurring scheduler
	return s.scheduleService.CreateRecurringSessions(ctx, scope, RecurringSessionsInput{
		ClientID:            in.ClientID,
		WorkoutID:           in.WorkoutID,
		StartDate:           first,
		TimeOfDay:           slot.StartTime,
		Recurrence:          string(schedule.KindWeekly),
		Count:               count,
		DurationMinutes:     slot.DurationMinutes,
		Location:            slot.SessionLocation(),
		Notes:               in.Notes,
		RespectAvailability: in.RespectAvailability,
		IdempotencyKey:      in.IdempotencyKey,
	})
}
