package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"

	"persona-gateway/internal/domain"
	"persona-gateway/internal/repository"
)

type embeddingProvider interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type promptRunner interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// MemoryParams son los pesos y umbrales del ranking y la deduplicacion.
type MemoryParams struct {
	TopK             int
	MinSimilarity    float64
	SimilarityWeight float64
	ImportanceWeight float64
	DedupSimilarity  float64
}

func (p MemoryParams) withDefaults() MemoryParams {
	if p.TopK <= 0 {
		p.TopK = 5
	}
	if p.MinSimilarity <= 0 {
		p.MinSimilarity = 0.15
	}
	if p.SimilarityWeight <= 0 {
		p.SimilarityWeight = 0.7
	}
	if p.ImportanceWeight <= 0 {
		p.ImportanceWeight = 0.3
	}
	if p.DedupSimilarity <= 0 {
		p.DedupSimilarity = 0.92
	}
	return p
}

// MemoryService recupera y extrae memorias de largo plazo. Toda consulta va
// acotada al par (user, persona): cada persona es un universo aislado.
type MemoryService struct {
	memories      repository.MemoryRepository
	conversations repository.ConversationRepository
	embedder      embeddingProvider
	generator     promptRunner
	params        MemoryParams
}

func NewMemoryService(
	memories repository.MemoryRepository,
	conversations repository.ConversationRepository,
	embedder embeddingProvider,
	generator promptRunner,
	params MemoryParams,
) *MemoryService {
	return &MemoryService{
		memories:      memories,
		conversations: conversations,
		embedder:      embedder,
		generator:     generator,
		params:        params.withDefaults(),
	}
}

// Retrieve devuelve hasta TopK memorias del par (user, persona) rankeadas
// por score combinado. Query vacia no busca nada.
func (s *MemoryService) Retrieve(ctx context.Context, userID, personaID uuid.UUID, queryText string) ([]domain.ScoredMemory, error) {
	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return nil, nil
	}

	embed, err := s.embedder.CreateEmbedding(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("create query embedding: %w", err)
	}

	results, err := s.memories.Search(ctx, repository.SearchParams{
		UserID:           userID,
		PersonaID:        personaID,
		Embedding:        pgvector.NewVector(embed),
		K:                s.params.TopK,
		MinSimilarity:    s.params.MinSimilarity,
		SimilarityWeight: s.params.SimilarityWeight,
		ImportanceWeight: s.params.ImportanceWeight,
	})
	if err != nil {
		return nil, fmt.Errorf("search memories: %w", err)
	}
	return results, nil
}

type memoryCandidate struct {
	Kind       string  `json:"kind"`
	Content    string  `json:"content"`
	Importance float64 `json:"importance"`
}

type extractionResponse struct {
	Memories []memoryCandidate `json:"memories"`
}

// ExtractAndStore corre el extractor sobre el par (mensaje, respuesta) y
// persiste los candidatos que sobreviven la deduplicacion. Devuelve cuantos
// se guardaron.
func (s *MemoryService) ExtractAndStore(ctx context.Context, conversationID, userID, personaID uuid.UUID, userMessage, assistantMessage string) (int, error) {
	prompt := fmt.Sprintf(memoryExtractionPrompt, strings.TrimSpace(userMessage), strings.TrimSpace(assistantMessage))
	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return 0, fmt.Errorf("llm generate: %w", err)
	}

	cleaned := cleanLLMJSONResponse(raw)
	jsonObj := extractFirstJSONObject(cleaned)
	if jsonObj == "" {
		return 0, fmt.Errorf("extraction response has no json object: %q", truncateForError(raw))
	}

	var parsed extractionResponse
	if err := json.Unmarshal([]byte(jsonObj), &parsed); err != nil {
		return 0, fmt.Errorf("parse extraction response: %w", err)
	}

	stored := 0
	now := time.Now().UTC()
	for _, candidate := range parsed.Memories {
		kind := strings.ToLower(strings.TrimSpace(candidate.Kind))
		content := strings.TrimSpace(candidate.Content)
		if content == "" || !domain.ValidMemoryKind(kind) {
			continue
		}
		importance := candidate.Importance
		if importance < 0 {
			importance = 0
		}
		if importance > 1 {
			importance = 1
		}

		embed, err := s.embedder.CreateEmbedding(ctx, content)
		if err != nil {
			return stored, fmt.Errorf("create memory embedding: %w", err)
		}
		vector := pgvector.NewVector(embed)

		maxSim, err := s.memories.MaxSimilarity(ctx, userID, personaID, kind, vector)
		if err != nil {
			return stored, fmt.Errorf("dedup check: %w", err)
		}
		if maxSim >= s.params.DedupSimilarity {
			continue
		}

		entry := domain.MemoryEntry{
			ID:             uuid.New(),
			ConversationID: conversationID,
			UserID:         userID,
			PersonaID:      personaID,
			Content:        content,
			Embedding:      vector,
			Kind:           kind,
			Importance:     importance,
			CreatedAt:      now,
		}
		if err := s.memories.Create(ctx, entry); err != nil {
			return stored, fmt.Errorf("store memory: %w", err)
		}
		stored++
	}
	return stored, nil
}

// FoldSummary integra los turnos desalojados del buffer al resumen de la
// conversacion y lo persiste. Devuelve el resumen actualizado.
func (s *MemoryService) FoldSummary(ctx context.Context, conversationID uuid.UUID, previousSummary string, evicted []domain.Message) (string, error) {
	if len(evicted) == 0 {
		return previousSummary, nil
	}

	var turns strings.Builder
	for _, msg := range evicted {
		turns.WriteString(msg.Role)
		turns.WriteString(": ")
		turns.WriteString(msg.Content)
		turns.WriteString("\n")
	}

	prompt := fmt.Sprintf(summaryFoldPrompt, strings.TrimSpace(previousSummary), turns.String())
	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("llm generate: %w", err)
	}

	summary := strings.TrimSpace(raw)
	if summary == "" {
		return previousSummary, nil
	}

	if err := s.conversations.UpdateSummary(ctx, conversationID, summary, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("update summary: %w", err)
	}
	return summary, nil
}

// Forget borra todas las memorias que una conversacion genero para su dueño.
func (s *MemoryService) Forget(ctx context.Context, conversationID, userID uuid.UUID) (int64, error) {
	deleted, err := s.memories.DeleteByConversation(ctx, conversationID, userID)
	if err != nil {
		return 0, fmt.Errorf("delete memories: %w", err)
	}
	return deleted, nil
}
