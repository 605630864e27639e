package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"persona-gateway/internal/domain"
)

type fakePersonaRepo struct {
	items    map[string]domain.Persona
	getCalls int
}

func newFakePersonaRepo() *fakePersonaRepo {
	return &fakePersonaRepo{items: make(map[string]domain.Persona)}
}

func (f *fakePersonaRepo) Upsert(_ context.Context, persona domain.Persona) error {
	name := strings.ToLower(strings.TrimSpace(persona.Name))
	if existing, ok := f.items[name]; ok {
		// Igual que ON CONFLICT: el id original se conserva.
		persona.ID = existing.ID
		persona.CreatedAt = existing.CreatedAt
	}
	persona.Name = name
	f.items[name] = persona
	return nil
}

func (f *fakePersonaRepo) GetByName(_ context.Context, name string) (domain.Persona, error) {
	f.getCalls++
	persona, ok := f.items[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return domain.Persona{}, pgx.ErrNoRows
	}
	return persona, nil
}

func (f *fakePersonaRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Persona, error) {
	for _, persona := range f.items {
		if persona.ID == id {
			return persona, nil
		}
	}
	return domain.Persona{}, pgx.ErrNoRows
}

func (f *fakePersonaRepo) List(_ context.Context) ([]domain.Persona, error) {
	out := make([]domain.Persona, 0, len(f.items))
	for _, persona := range f.items {
		out = append(out, persona)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func TestPersonaSeedKeepsExistingIDs(t *testing.T) {
	repo := newFakePersonaRepo()
	existingID := uuid.New()
	repo.items["luna"] = domain.Persona{ID: existingID, Name: "luna", Archetype: "old"}

	svc := NewPersonaService(zap.NewNop(), repo, nil)
	if err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	persona, err := svc.Resolve(context.Background(), "luna")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if persona.ID != existingID {
		t.Fatalf("expected seeded upsert to keep id %s, got %s", existingID, persona.ID)
	}
	if persona.Archetype != "companion" {
		t.Fatalf("expected archetype refreshed by seed, got %q", persona.Archetype)
	}

	for _, name := range []string{"luna", "elara", "nova"} {
		if _, err := svc.Resolve(context.Background(), name); err != nil {
			t.Fatalf("resolve %s after seed: %v", name, err)
		}
	}
}

func TestPersonaResolveDefaultsWhenUnnamed(t *testing.T) {
	repo := newFakePersonaRepo()
	svc := NewPersonaService(zap.NewNop(), repo, nil)
	if err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	persona, err := svc.Resolve(context.Background(), "")
	if err != nil {
		t.Fatalf("resolve default: %v", err)
	}
	if persona.Name != DefaultPersonaName {
		t.Fatalf("expected default persona %q, got %q", DefaultPersonaName, persona.Name)
	}
}

func TestPersonaResolveNormalizesName(t *testing.T) {
	repo := newFakePersonaRepo()
	svc := NewPersonaService(zap.NewNop(), repo, nil)
	if err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	persona, err := svc.Resolve(context.Background(), "  ELARA ")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if persona.Name != "elara" {
		t.Fatalf("expected elara, got %q", persona.Name)
	}
}

func TestPersonaResolveUnknown(t *testing.T) {
	svc := NewPersonaService(zap.NewNop(), newFakePersonaRepo(), nil)

	if _, err := svc.Resolve(context.Background(), "ghost"); !errors.Is(err, ErrPersonaNotFound) {
		t.Fatalf("expected ErrPersonaNotFound, got %v", err)
	}
}

func TestPersonaResolveHitsCacheAfterFirstLoad(t *testing.T) {
	repo := newFakePersonaRepo()
	repo.items["nova"] = domain.Persona{ID: uuid.New(), Name: "nova"}
	svc := NewPersonaService(zap.NewNop(), repo, nil)

	if _, err := svc.Resolve(context.Background(), "nova"); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	calls := repo.getCalls
	if _, err := svc.Resolve(context.Background(), "nova"); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if repo.getCalls != calls {
		t.Fatalf("expected cache hit, repo was queried again (%d -> %d)", calls, repo.getCalls)
	}
}
