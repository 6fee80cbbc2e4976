package service

import (
	"alcyxob/coach-scheduler/internal/domain"
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreateTimeSlot(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	coach := env.seedCoach(t, "a@example.com", true)
	svc := NewSlotService(env.slots, env.scheduleService(), fixedClock)

	slot, err := svc.CreateTimeSlot(ctx, ScopedTo(coach), CreateTimeSlotInput{
		DayOfWeek: time.Tuesday, StartTime: "9:00", EndTime: "09:45",
	})
	if err != nil {
		t.Fatalf("CreateTimeSlot() error = %v", err)
	}
	if slot.StartTime != "09:00" || slot.DurationMinutes != 45 || slot.LocationType != domain.SlotOnline || slot.MaxClients != 1 {
		t.Errorf("CreateTimeSlot() = %+v", slot)
	}

	tests := []struct {
		name  string
		scope CoachScope
		in    CreateTimeSlotInput
	}{
		{"unscoped", Unscoped(), CreateTimeSlotInput{DayOfWeek: time.Monday, StartTime: "09:00", EndTime: "10:00"}},
		{"bad weekday", ScopedTo(coach), CreateTimeSlotInput{DayOfWeek: 7, StartTime: "09:00", EndTime: "10:00"}},
		{"bad start", ScopedTo(coach), CreateTimeSlotInput{DayOfWeek: time.Monday, StartTime: "nine", EndTime: "10:00"}},
		{"end before start", ScopedTo(coach), CreateTimeSlotInput{DayOfWeek: time.Monday, StartTime: "10:00", EndTime: "09:00"}},
		{"empty window", ScopedTo(coach), CreateTimeSlotInput{DayOfWeek: time.Monday, StartTime: "10:00", EndTime: "10:00"}},
		{"unknown location", ScopedTo(coach), CreateTimeSlotInput{DayOfWeek: time.Monday, StartTime: "09:00", EndTime: "10:00", LocationType: "moon"}},
		{"negative capacity", ScopedTo(coach), CreateTimeSlotInput{DayOfWeek: time.Monday, StartTime: "09:00", EndTime: "10:00", MaxClients: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateTimeSlot(ctx, tt.scope, tt.in); !domain.IsValidation(err) {
				t.Errorf("error = %v, want ValidationError", err)
			}
		})
	}

	slots, err := svc.ListTimeSlots(ctx, ScopedTo(coach))
	if err != nil || len(slots) != 1 {
		t.Errorf("ListTimeSlots() = %d slots, %v; want 1", len(slots), err)
	}
}

func TestDeleteTimeSlot_Scope(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.seedCoach(t, "a@example.com", true)
	b := env.seedCoach(t, "b@example.com", true)
	svc := NewSlotService(env.slots, env.scheduleService(), fixedClock)

	slot, err := svc.CreateTimeSlot(ctx, ScopedTo(a), CreateTimeSlotInput{DayOfWeek: time.Friday, StartTime: "17:00", EndTime: "18:00"})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteTimeSlot(ctx, ScopedTo(b), slot.ID); !domain.IsNotFound(err) {
		t.Errorf("foreign delete error = %v, want NotFoundError", err)
	}
	if err := svc.DeleteTimeSlot(ctx, ScopedTo(a), slot.ID); err != nil {
		t.Fatalf("DeleteTimeSlot() error = %v", err)
	}
	if err := svc.DeleteTimeSlot(ctx, ScopedTo(a), slot.ID); !domain.IsNotFound(err) {
		t.Errorf("second delete error = %v, want NotFoundError", err)
	}
}

func TestAssignClientToSlot(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	coach := env.seedCoach(t, "a@example.com", true)
	other := env.seedCoach(t, "b@example.com", true)
	client := env.seedClient(t, coach, "")
	svc := NewSlotService(env.slots, env.scheduleService(), fixedClock)

	slot, err := svc.CreateTimeSlot(ctx, ScopedTo(coach), CreateTimeSlotInput{
		DayOfWeek: time.Thursday, StartTime: "18:30", EndTime: "19:15", LocationType: "offline", LocationAddress: "Studio B",
	})
	if err != nil {
		t.Fatal(err)
	}

	// 2026-03-02 is a Monday; the first Thursday on or after it is 03-05.
	res, err := svc.AssignClientToSlot(ctx, ScopedTo(coach), AssignToSlotInput{
		TimeSlotID: slot.ID, ClientID: client, StartDate: "2026-03-02",
	})
	if err != nil {
		t.Fatalf("AssignClientToSlot() error = %v", err)
	}
	want := []time.Time{
		time.Date(2026, 3, 5, 18, 30, 0, 0, time.UTC),
		time.Date(2026, 3, 12, 18, 30, 0, 0, time.UTC),
		time.Date(2026, 3, 19, 18, 30, 0, 0, time.UTC),
		time.Date(2026, 3, 26, 18, 30, 0, 0, time.UTC),
	}
	if len(res.Sessions) != len(want) {
		t.Fatalf("created %d sessions, want %d (default)", len(res.Sessions), len(want))
	}
	for i, s := range res.Sessions {
		if !s.ScheduledAt.Equal(want[i]) {
			t.Errorf("session %d at %v, want %v", i, s.ScheduledAt, want[i])
		}
		if s.DurationMinutes != 45 || s.Location != "Studio B" || s.ClientID != client {
			t.Errorf("session %d = %+v", i, s)
		}
	}

	tests := []struct {
		name    string
		scope   CoachScope
		in      AssignToSlotInput
		wantErr func(error) bool
	}{
		{"unknown slot", ScopedTo(coach), AssignToSlotInput{TimeSlotID: primitive.NewObjectID(), ClientID: client, StartDate: "2026-03-02"}, domain.IsNotFound},
		{"foreign slot", ScopedTo(other), AssignToSlotInput{TimeSlotID: slot.ID, ClientID: client, StartDate: "2026-03-02"}, domain.IsNotFound},
		{"unscoped", Unscoped(), AssignToSlotInput{TimeSlotID: slot.ID, ClientID: client, StartDate: "2026-03-02"}, domain.IsValidation},
		{"bad start date", ScopedTo(coach), AssignToSlotInput{TimeSlotID: slot.ID, ClientID: client, StartDate: "soon"}, domain.IsValidation},
		{"negative count", ScopedTo(coach), AssignToSlotInput{TimeSlotID: slot.ID, ClientID: client, StartDate: "2026-03-02", NumSessions: -2}, domain.IsValidation},
		{"foreign client", ScopedTo(coach), AssignToSlotInput{TimeSlotID: slot.ID, ClientID: env.seedClient(t, other, ""), StartDate: "2026-03-02"}, domain.IsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.AssignClientToSlot(ctx, tt.scope, tt.in); !tt.wantErr(err) {
				t.Errorf("error = %v", err)
			}
		})
	}
}

func TestAssignClientToSlot_Idempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	coach := env.seedCoach(t, "a@example.com", true)
	client := env.seedClient(t, coach, "")
	svc := NewSlotService(env.slots, env.scheduleService(), fixedClock)
	slot, err := svc.CreateTimeSlot(ctx, ScopedTo(coach), CreateTimeSlotInput{DayOfWeek: time.Monday, StartTime: "07:00", EndTime: "08:00"})
	if err != nil {
		t.Fatal(err)
	}
	in := AssignToSlotInput{TimeSlotID: slot.ID, ClientID: client, StartDate: "2026-03-02", NumSessions: 2, IdempotencyKey: "slot-1"}

	if _, err := svc.AssignClientToSlot(ctx, ScopedTo(coach), in); err != nil {
		t.Fatal(err)
	}
	again, err := svc.AssignClientToSlot(ctx, ScopedTo(coach), in)
	if err != nil || !again.Replayed || len(again.Sessions) != 2 {
		t.Errorf("replay = %+v, %v", again, err)
	}
	in.NumSessions = 6
	if _, err := svc.AssignClientToSlot(ctx, ScopedTo(coach), in); !domain.IsConflict(err) {
		t.Errorf("key reuse error = %v, want ConflictError", err)
	}
}
