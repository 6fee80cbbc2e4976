package service

import (
	"alcyxob/coach-scheduler/internal/domain"
	"alcyxob/coach-scheduler/internal/schedule"
	"context"
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAvailability_DefaultAndReplace(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	coach := env.seedCoach(t, "a@example.com", true)
	svc := NewAvailabilityService(env.avail, env.holidays, fixedClock)

	profile, err := svc.GetProfile(ctx, ScopedTo(coach))
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if !reflect.DeepEqual(profile.WorkingDays, domain.DefaultWorkingDays) {
		t.Errorf("default days = %v", profile.WorkingDays)
	}

	replaced, err := svc.ReplaceWorkingDays(ctx, ScopedTo(coach), []time.Weekday{time.Saturday, time.Monday, time.Saturday}, "")
	if err != nil {
		t.Fatalf("ReplaceWorkingDays() error = %v", err)
	}
	want := []time.Weekday{time.Monday, time.Saturday}
	if !reflect.DeepEqual(replaced.WorkingDays, want) || replaced.RecurrenceType != domain.DefaultAvailabilityRecurrence {
		t.Errorf("ReplaceWorkingDays() = %+v", replaced)
	}

	profile, _ = svc.GetProfile(ctx, ScopedTo(coach))
	if !reflect.DeepEqual(profile.WorkingDays, want) {
		t.Errorf("stored days = %v, want %v", profile.WorkingDays, want)
	}
}

func TestAvailability_Validation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	coach := env.seedCoach(t, "a@example.com", true)
	svc := NewAvailabilityService(env.avail, env.holidays, fixedClock)

	tests := []struct {
		name string
		call func() error
	}{
		{"no days", func() error {
			_, err := svc.ReplaceWorkingDays(ctx, ScopedTo(coach), nil, "")
			return err
		}},
		{"out of range day", func() error {
			_, err := svc.ReplaceWorkingDays(ctx, ScopedTo(coach), []time.Weekday{7}, "")
			return err
		}},
		{"bad holiday date", func() error {
			_, err := svc.AddHoliday(ctx, ScopedTo(coach), "25/12/2026", "")
			return err
		}},
		{"unscoped profile", func() error {
			_, err := svc.GetProfile(ctx, Unscoped())
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !domain.IsValidation(err) {
				t.Errorf("error = %v, want ValidationError", err)
			}
		})
	}
}

func TestAvailability_Holidays(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.seedCoach(t, "a@example.com", true)
	b := env.seedCoach(t, "b@example.com", true)
	svc := NewAvailabilityService(env.avail, env.holidays, fixedClock)

	h, err := svc.AddHoliday(ctx, ScopedTo(a), "2026-12-25", "Christmas")
	if err != nil {
		t.Fatalf("AddHoliday() error = %v", err)
	}
	if _, err := svc.AddHoliday(ctx, ScopedTo(a), "2026-12-25", "again"); !domain.IsConflict(err) {
		t.Errorf("duplicate AddHoliday() error = %v, want ConflictError", err)
	}
	if _, err := svc.AddHoliday(ctx, ScopedTo(b), "2026-12-25", ""); err != nil {
		t.Errorf("other coach AddHoliday() error = %v", err)
	}

	list, _ := svc.ListHolidays(ctx, ScopedTo(a))
	if len(list) != 1 || list[0].Date != "2026-12-25" {
		t.Errorf("ListHolidays() = %+v", list)
	}

	if err := svc.DeleteHoliday(ctx, ScopedTo(b), h.ID); !domain.IsNotFound(err) {
		t.Errorf("foreign DeleteHoliday() error = %v, want NotFoundError", err)
	}
	if err := svc.DeleteHoliday(ctx, ScopedTo(a), h.ID); err != nil {
		t.Errorf("DeleteHoliday() error = %v", err)
	}
	if err := svc.DeleteHoliday(ctx, ScopedTo(a), primitive.NewObjectID()); !domain.IsNotFound(err) {
		t.Errorf("unknown DeleteHoliday() error = %v, want NotFoundError", err)
	}
}

func TestAvailability_Exclusions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	coach := env.seedCoach(t, "a@example.com", true)
	svc := NewAvailabilityService(env.avail, env.holidays, fixedClock)
	if _, err := svc.AddHoliday(ctx, ScopedTo(coach), "2026-03-10", ""); err != nil {
		t.Fatal(err)
	}

	exclusions, err := svc.Exclusions(ctx, coach)
	if err != nil {
		t.Fatalf("Exclusions() error = %v", err)
	}
	tests := []struct {
		name string
		day  time.Time
		want bool
	}{
		{"working monday", day(2026, 3, 9, 9), false},
		{"holiday", day(2026, 3, 10, 9), true},
		{"saturday", day(2026, 3, 14, 9), true},
	}
	for _, tt := range tests {
		if got := schedule.Excluded(tt.day, exclusions); got != tt.want {
			t.Errorf("%s: Excluded() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
