package service

import (
	"alcyxob/coach-scheduler/internal/domain"
	"alcyxob/coach-scheduler/internal/repository"
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

// SystemClock is the production Clock.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// CoachScope is the validated identity of the calling coach, or "unscoped".
//
// Unscoped callers see and act on every coach's data. That is the
// deliberate behaviour for anonymous/administrative callers and is the
// weak point of tenant isolation: anything that reaches the service layer
// without a resolvable coach id gets full visibility.
type CoachScope struct {
	coachID primitive.ObjectID
}

// Unscoped returns the scope of a caller with no resolvable coach.
func Unscoped() CoachScope {
	return CoachScope{}
}

// ScopedTo returns a scope bound to coachID. Callers outside this package
// should obtain scopes from ScopeResolver; this exists for tests and wiring.
func ScopedTo(coachID primitive.ObjectID) CoachScope {
	return CoachScope{coachID: coachID}
}

// IsScoped reports whether the scope is bound to a coach.
func (s CoachScope) IsScoped() bool {
	return s.coachID != primitive.NilObjectID
}

// CoachID returns the bound coach; ok is false when unscoped.
func (s CoachScope) CoachID() (id primitive.ObjectID, ok bool) {
	return s.coachID, s.IsScoped()
}

func (s CoachScope) String() string {
	if !s.IsScoped() {
		return "unscoped"
	}
	return "coach:" + s.coachID.Hex()
}

// coachFilter returns the coach to filter on, nil when unscoped.
func (s CoachScope) coachFilter() *primitive.ObjectID {
	if !s.IsScoped() {
		return nil
	}
	id := s.coachID
	return &id
}

// requireCoach rejects unscoped callers for operations that act on behalf of one coach.
func (s CoachScope) requireCoach() (primitive.ObjectID, error) {
	if !s.IsScoped() {
		return primitive.NilObjectID, domain.NewValidationError("coachId", "operation requires an identified coach")
	}
	return s.coachID, nil
}

// OwnsClient checks the explicit coachId first and falls back to the legacy
// profile tag. Unscoped always passes.
func OwnsClient(scope CoachScope, client *domain.Client) bool {
	if !scope.IsScoped() {
		return true
	}
	if client.CoachID != nil && *client.CoachID != primitive.NilObjectID {
		return *client.CoachID == scope.coachID
	}
	return strings.EqualFold(client.Profile.CoachTag, scope.coachID.Hex())
}

// OwnsSession checks the session's structural coach reference. Unscoped always passes.
func OwnsSession(scope CoachScope, session *domain.Session) bool {
	return !scope.IsScoped() || session.CoachID == scope.coachID
}

// ScopeResolver maps an opaque caller identifier onto a CoachScope.
type ScopeResolver interface {
	ResolveCoachScope(ctx context.Context, callerCoachID string) (CoachScope, error)
}

type scopeResolver struct {
	coachRepo repository.CoachRepository
}

// NewScopeResolver creates a ScopeResolver backed by the coach store.
func NewScopeResolver(coachRepo repository.CoachRepository) ScopeResolver {
	return &scopeResolver{coachRepo: coachRepo}
}

// ResolveCoachScope returns a scope bound to the caller when the id names an
// active coach. Empty, malformed, unknown and inactive ids resolve to
// Unscoped. A storage failure is returned as a StorageError rather than
// widening the caller to unscoped visibility.
func (r *scopeResolver) ResolveCoachScope(ctx context.Context, callerCoachID string) (CoachScope, error) {
	callerCoachID = strings.TrimSpace(callerCoachID)
	if callerCoachID == "" {
		return Unscoped(), nil
	}
	id, err := primitive.ObjectIDFromHex(callerCoachID)
	if err != nil {
		return Unscoped(), nil
	}

	coach, err := r.coachRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Unscoped(), nil
		}
		log.Printf("ERROR: Resolving coach scope for %s: %v", callerCoachID, err)
		return Unscoped(), domain.NewStorageError("resolve coach scope", err)
	}
	if !coach.IsActive {
		return Unscoped(), nil
	}
	return ScopedTo(coach.ID), nil
}

// loadClient fetches a client visible to scope. Missing, soft-deleted and
// foreign clients are all reported as not found.
func loadClient(ctx context.Context, repo repository.ClientRepository, scope CoachScope, id primitive.ObjectID) (*domain.Client, error) {
	client, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError("get client", "client", id, err)
	}
	if client.IsDeleted() || !OwnsClient(scope, client) {
		return nil, domain.NewNotFoundError("client", id.Hex())
	}
	return client, nil
}

// loadSession fetches a session visible to scope.
func loadSession(ctx context.Context, repo repository.SessionRepository, scope CoachScope, id primitive.ObjectID) (*domain.Session, error) {
	session, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError("get session", "session", id, err)
	}
	if !OwnsSession(scope, session) {
		return nil, domain.NewNotFoundError("session", id.Hex())
	}
	return session, nil
}

// translateRepoError maps repository.ErrNotFound to a NotFoundError and
// anything else to a StorageError.
func translateRepoError(op, resource string, id primitive.ObjectID, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NewNotFoundError(resource, id.Hex())
	}
	return domain.NewStorageError(op, err)
}
