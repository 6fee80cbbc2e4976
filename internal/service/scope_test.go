package service

import (
	"alcyxob/coach-scheduler/internal/domain"
	"context"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestResolveCoachScope(t *testing.T) {
	env := newTestEnv(t)
	active := env.seedCoach(t, "active@example.com", true)
	inactive := env.seedCoach(t, "inactive@example.com", false)
	resolver := NewScopeResolver(env.coaches)

	tests := []struct {
		name       string
		caller     string
		wantScoped bool
	}{
		{"active coach", active.Hex(), true},
		{"active coach with padding", "  " + active.Hex() + " ", true},
		{"empty", "", false},
		{"malformed", "not-an-id", false},
		{"unknown coach", primitive.NewObjectID().Hex(), false},
		{"inactive coach", inactive.Hex(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, err := resolver.ResolveCoachScope(context.Background(), tt.caller)
			if err != nil {
				t.Fatalf("ResolveCoachScope() error = %v", err)
			}
			if scope.IsScoped() != tt.wantScoped {
				t.Fatalf("IsScoped() = %v, want %v", scope.IsScoped(), tt.wantScoped)
			}
			if got, ok := scope.CoachID(); tt.wantScoped && (!ok || got != active) {
				t.Errorf("CoachID() = %v, %v; want %v", got, ok, active)
			}
		})
	}
}

func TestResolveCoachScope_StorageFailure(t *testing.T) {
	resolver := NewScopeResolver(failingCoaches{})
	scope, err := resolver.ResolveCoachScope(context.Background(), primitive.NewObjectID().Hex())
	if !domain.IsStorage(err) {
		t.Fatalf("error = %v, want StorageError", err)
	}
	if scope.IsScoped() {
		t.Error("failed resolution returned a scoped scope")
	}
}

func TestOwnsClient(t *testing.T) {
	coach := primitive.NewObjectID()
	other := primitive.NewObjectID()

	tests := []struct {
		name   string
		scope  CoachScope
		client domain.Client
		want   bool
	}{
		{"explicit owner", ScopedTo(coach), domain.Client{CoachID: &coach}, true},
		{"explicit other", ScopedTo(coach), domain.Client{CoachID: &other}, false},
		{"legacy tag", ScopedTo(coach), domain.Client{Profile: domain.ClientProfile{CoachTag: coach.Hex()}}, true},
		{"legacy tag case-insensitive", ScopedTo(coach), domain.Client{Profile: domain.ClientProfile{CoachTag: strings.ToUpper(coach.Hex())}}, true},
		{"explicit beats tag", ScopedTo(coach), domain.Client{CoachID: &other, Profile: domain.ClientProfile{CoachTag: coach.Hex()}}, false},
		{"no owner", ScopedTo(coach), domain.Client{}, false},
		{"unscoped sees all", Unscoped(), domain.Client{CoachID: &other}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OwnsClient(tt.scope, &tt.client); got != tt.want {
				t.Errorf("OwnsClient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCoachScope_String(t *testing.T) {
	id := primitive.NewObjectID()
	if got := Unscoped().String(); got != "unscoped" {
		t.Errorf("Unscoped().String() = %q", got)
	}
	if got := ScopedTo(id).String(); got != "coach:"+id.Hex() {
		t.Errorf("ScopedTo().String() = %q", got)
	}
}
