package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"persona-gateway/internal/domain"
	"persona-gateway/internal/repository"
)

// DefaultPersonaName es la persona usada cuando el request no nombra ninguna.
const DefaultPersonaName = "luna"

var ErrPersonaNotFound = errors.New("persona not found")

// PersonaCache acelera la resolucion de personas por nombre. Un miss nunca
// es error: el servicio cae al repositorio.
type PersonaCache interface {
	Get(name string) (domain.Persona, bool)
	Set(persona domain.Persona)
}

// PersonaService resuelve y mantiene el catalogo global de personas.
type PersonaService struct {
	logger   *zap.Logger
	personas repository.PersonaRepository
	cache    PersonaCache
}

func NewPersonaService(logger *zap.Logger, personas repository.PersonaRepository, cache PersonaCache) *PersonaService {
	if cache == nil {
		cache = NewMemoryPersonaCache()
	}
	return &PersonaService{
		logger:   logger,
		personas: personas,
		cache:    cache,
	}
}

// SeedCatalog devuelve las personas que se garantizan al arrancar.
// El upsert conserva el id de filas existentes, asi que los ids aqui solo
// aplican a instalaciones nuevas.
func SeedCatalog() []domain.Persona {
	now := time.Now().UTC()
	return []domain.Persona{
		{
			ID:        uuid.New(),
			Name:      "luna",
			Archetype: "companion",
			Traits:    map[string]int{"humor": 6, "formality": 3, "enthusiasm": 6, "empathy": 9},
			BasePrompt: "You are Luna, a warm and attentive companion. You listen closely, remember what matters " +
				"to the person you talk with, and answer with gentle honesty. You speak naturally, never like a manual.",
			CreatedAt: now,
		},
		{
			ID:        uuid.New(),
			Name:      "elara",
			Archetype: "storyteller",
			Traits:    map[string]int{"humor": 4, "formality": 6, "enthusiasm": 5, "empathy": 7},
			BasePrompt: "You are Elara, a thoughtful storyteller with a calm, slightly formal voice. You enjoy " +
				"weaving what you know about the other person into vivid, grounded conversation.",
			CreatedAt: now,
		},
		{
			ID:        uuid.New(),
			Name:      "nova",
			Archetype: "spark",
			Traits:    map[string]int{"humor": 8, "formality": 2, "enthusiasm": 9, "empathy": 6},
			BasePrompt: "You are Nova, quick, playful and endlessly curious. You tease lightly, celebrate small " +
				"wins loudly, and keep the energy of the conversation up without steamrolling the other person.",
			CreatedAt: now,
		},
	}
}

// Seed asegura el catalogo en el repositorio y precalienta la cache.
func (s *PersonaService) Seed(ctx context.Context) error {
	if s.personas == nil {
		return errors.New("persona service not configured")
	}
	for _, persona := range SeedCatalog() {
		if err := s.personas.Upsert(ctx, persona); err != nil {
			return fmt.Errorf("seed persona %s: %w", persona.Name, err)
		}
		// Releer para quedarnos con el id real de la fila (upsert no lo pisa).
		stored, err := s.personas.GetByName(ctx, persona.Name)
		if err != nil {
			return fmt.Errorf("load seeded persona %s: %w", persona.Name, err)
		}
		s.cache.Set(stored)
	}
	if s.logger != nil {
		s.logger.Info("persona catalog seeded", zap.Int("count", len(SeedCatalog())))
	}
	return nil
}

// Resolve devuelve la persona por nombre, o la default si name viene vacio.
func (s *PersonaService) Resolve(ctx context.Context, name string) (domain.Persona, error) {
	if s.personas == nil {
		return domain.Persona{}, errors.New("persona service not configured")
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultPersonaName
	}

	if persona, ok := s.cache.Get(name); ok {
		return persona, nil
	}

	persona, err := s.personas.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Persona{}, ErrPersonaNotFound
		}
		return domain.Persona{}, err
	}
	s.cache.Set(persona)
	return persona, nil
}

// GetByID carga una persona ya resuelta antes, por ejemplo la que quedo
// fijada en una conversacion. No pasa por la cache de nombres.
func (s *PersonaService) GetByID(ctx context.Context, id uuid.UUID) (domain.Persona, error) {
	if s.personas == nil {
		return domain.Persona{}, errors.New("persona service not configured")
	}
	persona, err := s.personas.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Persona{}, ErrPersonaNotFound
		}
		return domain.Persona{}, err
	}
	s.cache.Set(persona)
	return persona, nil
}

func (s *PersonaService) List(ctx context.Context) ([]domain.Persona, error) {
	if s.personas == nil {
		return nil, errors.New("persona service not configured")
	}
	return s.personas.List(ctx)
}

type memoryPersonaCache struct {
	mu    sync.RWMutex
	items map[string]domain.Persona
}

func NewMemoryPersonaCache() PersonaCache {
	return &memoryPersonaCache{items: make(map[string]domain.Persona)}
}

func (c *memoryPersonaCache) Get(name string) (domain.Persona, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	persona, ok := c.items[name]
	return persona, ok
}

func (c *memoryPersonaCache) Set(persona domain.Persona) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[persona.Name] = persona
}

type redisPersonaCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisPersonaCache(client *redis.Client) PersonaCache {
	if client == nil {
		return nil
	}
	return &redisPersonaCache{
		client: client,
		prefix: "persona:",
		ttl:    12 * time.Hour,
	}
}

func (c *redisPersonaCache) Get(name string) (domain.Persona, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	raw, err := c.client.Get(ctx, c.prefix+name).Bytes()
	if err != nil {
		return domain.Persona{}, false
	}
	var persona domain.Persona
	if err := json.Unmarshal(raw, &persona); err != nil {
		return domain.Persona{}, false
	}
	return persona, true
}

func (c *redisPersonaCache) Set(persona domain.Persona) {
	raw, err := json.Marshal(persona)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	c.client.Set(ctx, c.prefix+persona.Name, raw, c.ttl)
}
