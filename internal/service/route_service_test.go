package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"persona-gateway/internal/domain"
)

type fakeSessionStateRepo struct {
	states   map[uuid.UUID]domain.SessionState
	getCalls int
	upserts  []domain.SessionState
}

func newFakeSessionStateRepo() *fakeSessionStateRepo {
	return &fakeSessionStateRepo{states: make(map[uuid.UUID]domain.SessionState)}
}

func (f *fakeSessionStateRepo) Get(_ context.Context, conversationID uuid.UUID) (domain.SessionState, error) {
	f.getCalls++
	state, ok := f.states[conversationID]
	if !ok {
		return domain.SessionState{}, pgx.ErrNoRows
	}
	return state, nil
}

func (f *fakeSessionStateRepo) Upsert(_ context.Context, state domain.SessionState) error {
	f.states[state.ConversationID] = state
	f.upserts = append(f.upserts, state)
	return nil
}

func TestRouteServiceStateDefaultsToUnset(t *testing.T) {
	repo := newFakeSessionStateRepo()
	svc := NewRouteService(repo, nil, 5, 3)

	state, err := svc.State(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.CurrentRoute != domain.RouteUnset {
		t.Fatalf("expected UNSET, got %s", state.CurrentRoute)
	}
}

func TestRouteServiceDecidePersistsState(t *testing.T) {
	repo := newFakeSessionStateRepo()
	cache := NewMemorySessionStateCache()
	svc := NewRouteService(repo, cache, 5, 3)
	convID := uuid.New()

	state, action, err := svc.Decide(context.Background(), convID, domain.Classification{Label: domain.LabelSafe}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action != domain.ActionProceed {
		t.Fatalf("expected PROCEED, got %s", action)
	}
	if state.CurrentRoute != domain.RouteNormal {
		t.Fatalf("expected NORMAL, got %s", state.CurrentRoute)
	}
	if len(repo.upserts) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(repo.upserts))
	}
	if cached, ok := cache.Get(convID); !ok || cached.CurrentRoute != domain.RouteNormal {
		t.Fatal("expected decision cached")
	}
}

func TestRouteServiceStateUsesCache(t *testing.T) {
	repo := newFakeSessionStateRepo()
	cache := NewMemorySessionStateCache()
	svc := NewRouteService(repo, cache, 5, 3)
	convID := uuid.New()

	cache.Set(domain.SessionState{ConversationID: convID, CurrentRoute: domain.RouteRomance})

	state, err := svc.State(context.Background(), convID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.CurrentRoute != domain.RouteRomance {
		t.Fatalf("expected ROMANCE from cache, got %s", state.CurrentRoute)
	}
	if repo.getCalls != 0 {
		t.Fatalf("expected no store reads on cache hit, got %d", repo.getCalls)
	}
}

func TestRouteServiceVerifyAgeConfirm(t *testing.T) {
	repo := newFakeSessionStateRepo()
	svc := NewRouteService(repo, nil, 5, 3)
	convID := uuid.New()
	repo.states[convID] = domain.SessionState{
		ConversationID:          convID,
		CurrentRoute:            domain.RouteGatePending,
		AgeVerificationAttempts: 1,
	}

	state, err := svc.VerifyAge(context.Background(), convID, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !state.AgeVerified {
		t.Fatal("expected age_verified true")
	}
	if state.CurrentRoute != domain.RouteNormal {
		t.Fatalf("expected GATE_PENDING cleared to NORMAL, got %s", state.CurrentRoute)
	}
	if len(repo.upserts) != 1 {
		t.Fatalf("expected persisted state, got %d upserts", len(repo.upserts))
	}
}

func TestRouteServiceVerifyAgeDeclineCounts(t *testing.T) {
	repo := newFakeSessionStateRepo()
	svc := NewRouteService(repo, nil, 5, 3)
	convID := uuid.New()
	repo.states[convID] = domain.SessionState{
		ConversationID:          convID,
		CurrentRoute:            domain.RouteGatePending,
		AgeVerificationAttempts: 1,
	}

	state, err := svc.VerifyAge(context.Background(), convID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.AgeVerified {
		t.Fatal("expected age_verified false")
	}
	if state.AgeVerificationAttempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", state.AgeVerificationAttempts)
	}
	if state.CurrentRoute != domain.RouteGatePending {
		t.Fatalf("expected route to stay GATE_PENDING, got %s", state.CurrentRoute)
	}
}
