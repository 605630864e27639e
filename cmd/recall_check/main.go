package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"persona-gateway/internal/config"
	"persona-gateway/internal/db"
	"persona-gateway/internal/domain"
	"persona-gateway/internal/llm"
	"persona-gateway/internal/repository"
	"persona-gateway/internal/service"
)

// Scenario siembra una memoria real (embedding incluido) y sondea la
// recuperacion con un mensaje de usuario. ShouldMatch false es el control
// de falso positivo: la memoria no debe superar el umbral de similitud.
type Scenario struct {
	Name        string
	MemoryText  string
	MemoryKind  string
	Importance  float64
	UserInput   string
	ShouldMatch bool
}

func main() {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatalf("db pool: %v", err)
	}
	defer pool.Close()

	if err := db.Ping(ctx, pool); err != nil {
		log.Fatalf("db ping: %v", err)
	}

	userRepo := repository.NewPgUserRepository(pool)
	personaRepo := repository.NewPgPersonaRepository(pool)
	conversationRepo := repository.NewPgConversationRepository(pool)
	memoryRepo := repository.NewPgMemoryRepository(pool)

	embeddingBase := cfg.EmbeddingBaseURL
	embeddingKey := cfg.EmbeddingAPIKey
	if embeddingBase == "" {
		embeddingBase = cfg.PrimaryLLMBaseURL
		embeddingKey = cfg.PrimaryLLMAPIKey
	}
	embedder := llm.NewEmbeddingClient(embeddingBase, embeddingKey, cfg.EmbeddingModel, cfg.LLMTimeout)
	primary := llm.NewHTTPClient(cfg.PrimaryLLMBaseURL, cfg.PrimaryLLMAPIKey, cfg.PrimaryLLMModel, cfg.LLMTimeout, cfg.LLMConnectTimeout, nil)

	personaSvc := service.NewPersonaService(zap.NewNop(), personaRepo, service.NewMemoryPersonaCache())
	if err := personaSvc.Seed(ctx); err != nil {
		log.Fatalf("persona seed: %v", err)
	}
	persona, err := personaSvc.Resolve(ctx, "")
	if err != nil {
		log.Fatalf("resolve persona: %v", err)
	}

	memorySvc := service.NewMemoryService(memoryRepo, conversationRepo, embedder, primary, service.MemoryParams{
		TopK:             cfg.RetrievalTopK,
		MinSimilarity:    cfg.MinSimilarity,
		SimilarityWeight: cfg.SimilarityWeight,
		ImportanceWeight: cfg.ImportanceWeight,
		DedupSimilarity:  cfg.DedupSimilarity,
	})

	scenarios := []Scenario{
		{
			Name:        "Recuerdo directo",
			MemoryText:  "My sister Clara lives in Barcelona",
			MemoryKind:  domain.MemoryKindFact,
			Importance:  0.8,
			UserInput:   "tell me about my sister",
			ShouldMatch: true,
		},
		{
			Name:        "Enlace tematico",
			MemoryText:  "I am allergic to peanuts",
			MemoryKind:  domain.MemoryKindFact,
			Importance:  0.9,
			UserInput:   "what snacks should I avoid?",
			ShouldMatch: true,
		},
		{
			Name:        "Preferencia de trato",
			MemoryText:  "I prefer short and direct answers",
			MemoryKind:  domain.MemoryKindPreference,
			Importance:  0.7,
			UserInput:   "how should you talk to me?",
			ShouldMatch: true,
		},
		{
			Name:        "Control de falso positivo",
			MemoryText:  "I love chocolate ice cream",
			MemoryKind:  domain.MemoryKindPreference,
			Importance:  0.5,
			UserInput:   "I hate the city traffic",
			ShouldMatch: false,
		},
	}

	passed := 0
	total := len(scenarios)

	for _, sc := range scenarios {
		fmt.Printf("=== Ejecutando: %s ===\n", sc.Name)

		userID := uuid.New()
		conversationID := uuid.New()
		now := time.Now().UTC()

		user := domain.User{
			ID:           userID,
			ExternalID:   fmt.Sprintf("recall_%s", userID),
			DisplayName:  sc.Name,
			CreatedAt:    now,
			LastActiveAt: now,
		}
		if err := userRepo.Create(ctx, user); err != nil {
			fmt.Printf("❌ FAIL [%s] create user: %v\n\n", sc.Name, err)
			continue
		}

		personaID := persona.ID
		conversation := domain.Conversation{
			ID:        conversationID,
			UserID:    userID,
			PersonaID: &personaID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := conversationRepo.Create(ctx, conversation); err != nil {
			fmt.Printf("❌ FAIL [%s] create conversation: %v\n\n", sc.Name, err)
			continue
		}

		embed, err := embedder.CreateEmbedding(ctx, sc.MemoryText)
		if err != nil {
			fmt.Printf("❌ FAIL [%s] embed memory: %v\n\n", sc.Name, err)
			continue
		}
		entry := domain.MemoryEntry{
			ID:             uuid.New(),
			ConversationID: conversationID,
			UserID:         userID,
			PersonaID:      persona.ID,
			Content:        sc.MemoryText,
			Embedding:      pgvector.NewVector(embed),
			Kind:           sc.MemoryKind,
			Importance:     sc.Importance,
			CreatedAt:      now,
		}
		if err := memoryRepo.Create(ctx, entry); err != nil {
			fmt.Printf("❌ FAIL [%s] seed memory: %v\n\n", sc.Name, err)
			continue
		}

		runCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		results, err := memorySvc.Retrieve(runCtx, userID, persona.ID, sc.UserInput)
		cancel()
		if err != nil {
			fmt.Printf("❌ FAIL [%s] retrieve: %v\n\n", sc.Name, err)
			continue
		}

		fmt.Println("--- Memorias recuperadas ---")
		matched := false
		for _, r := range results {
			fmt.Printf("score=%.3f sim=%.3f imp=%.2f  %s\n", r.Score, r.Similarity, r.Importance, r.Content)
			if strings.EqualFold(r.Content, sc.MemoryText) {
				matched = true
			}
		}
		if len(results) == 0 {
			fmt.Println("(ninguna supero el umbral)")
		}
		fmt.Println("----------------------------")

		if matched == sc.ShouldMatch {
			fmt.Printf("✅ PASS [%s] esperado=%t matched=%t\n\n", sc.Name, sc.ShouldMatch, matched)
			passed++
		} else {
			fmt.Printf("❌ FAIL [%s] esperado=%t matched=%t\n\n", sc.Name, sc.ShouldMatch, matched)
		}
	}

	fmt.Printf("Tests: %d/%d pasaron\n", passed, total)
	if passed != total {
		os.Exit(1)
	}
	os.Exit(0)
}
