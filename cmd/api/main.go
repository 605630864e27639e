package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"persona-gateway/internal/config"
	"persona-gateway/internal/db"
	apihttp "persona-gateway/internal/http"
	"persona-gateway/internal/llm"
	"persona-gateway/internal/repository"
	"persona-gateway/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	personaRepo := repository.NewPgPersonaRepository(pool)
	conversationRepo := repository.NewPgConversationRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)
	memoryRepo := repository.NewPgMemoryRepository(pool)
	stateRepo := repository.NewPgSessionStateRepository(pool)

	primary := llm.NewHTTPClient(cfg.PrimaryLLMBaseURL, cfg.PrimaryLLMAPIKey, cfg.PrimaryLLMModel, cfg.LLMTimeout, cfg.LLMConnectTimeout, logger)
	secondary := llm.NewHTTPClient(cfg.SecondaryLLMBaseURL, cfg.SecondaryLLMAPIKey, cfg.SecondaryLLMModel, cfg.LLMTimeout, cfg.LLMConnectTimeout, logger)
	dispatcher := llm.NewDispatcher(primary, secondary)

	embeddingBase := cfg.EmbeddingBaseURL
	embeddingKey := cfg.EmbeddingAPIKey
	if embeddingBase == "" {
		embeddingBase = cfg.PrimaryLLMBaseURL
		embeddingKey = cfg.PrimaryLLMAPIKey
	}
	embedder := llm.NewEmbeddingClient(embeddingBase, embeddingKey, cfg.EmbeddingModel, cfg.LLMTimeout)

	// Redis es opcional: sin el, caches, refresh tokens y rate limit viven
	// en memoria del proceso.
	personaCache := service.NewMemoryPersonaCache()
	stateCache := service.NewMemorySessionStateCache()
	tokenStore := service.NewMemoryRefreshTokenStore()
	limiter := service.NewChatRateLimiter(cfg.ChatRateWindow, cfg.ChatRateLimit)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			personaCache = service.NewRedisPersonaCache(redisClient)
			stateCache = service.NewRedisSessionStateCache(redisClient)
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
			limiter = service.NewRedisChatRateLimiter(redisClient, cfg.ChatRateWindow, cfg.ChatRateLimit)
		}
		cancel()
	}

	jwtSvc := service.NewJWTServiceWithStore(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, tokenStore)
	userSvc := service.NewUserService(logger, userRepo)

	personaSvc := service.NewPersonaService(logger, personaRepo, personaCache)
	if err := personaSvc.Seed(ctx); err != nil {
		logger.Fatal("persona seed", zap.Error(err))
	}

	bufferSvc := service.NewBufferService(messageRepo, cfg.BufferSize)
	memorySvc := service.NewMemoryService(memoryRepo, conversationRepo, embedder, primary, service.MemoryParams{
		TopK:             cfg.RetrievalTopK,
		MinSimilarity:    cfg.MinSimilarity,
		SimilarityWeight: cfg.SimilarityWeight,
		ImportanceWeight: cfg.ImportanceWeight,
		DedupSimilarity:  cfg.DedupSimilarity,
	})
	conversationSvc := service.NewConversationService(conversationRepo, bufferSvc, memorySvc)
	messageSvc := service.NewMessageService(messageRepo)
	preferenceSvc := service.NewPreferenceService(userRepo)
	routeSvc := service.NewRouteService(stateRepo, stateCache, cfg.RouteLockWindow, cfg.AgeGateMaxAttempts)

	auditOut := os.Stdout
	if cfg.AuditLogPath != "" {
		f, err := os.OpenFile(cfg.AuditLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Warn("audit log open failed, falling back to stdout", zap.Error(err))
		} else {
			auditOut = f
			defer f.Close()
		}
	}
	auditSink := service.NewJSONLinesAuditSink(auditOut, logger)

	extractionPool := service.NewExtractionPool(cfg.ExtractionWorkers, cfg.ExtractionQueueSize, memorySvc, logger)
	defer extractionPool.Close()

	chatSvc := service.NewChatService(service.ChatDeps{
		Logger:        logger,
		Users:         userSvc,
		Personas:      personaSvc,
		Conversations: conversationSvc,
		Messages:      messageSvc,
		Buffer:        bufferSvc,
		Memory:        memorySvc,
		Preferences:   preferenceSvc,
		Routes:        routeSvc,
		Prompts:       service.PromptBuilder{},
		Dispatcher:    dispatcher,
		Lease:         service.NewConversationLease(),
		Limiter:       limiter,
		Audit:         auditSink,
		Pool:          extractionPool,
	})

	router := apihttp.NewRouter(
		logger,
		apihttp.AuthMiddleware(logger, jwtSvc, userSvc, cfg.AllowHeaderAuth),
		apihttp.NewUserHandler(logger, userSvc, jwtSvc),
		apihttp.NewChatHandler(logger, chatSvc),
		apihttp.NewContentHandler(logger, routeSvc, conversationSvc),
		apihttp.NewPreferenceHandler(logger, preferenceSvc),
		apihttp.NewConversationHandler(logger, conversationSvc, personaSvc),
		apihttp.NewPersonaHandler(logger, personaSvc),
		apihttp.NewHealthHandler(pool, primary),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Apagado ordenado: se deja de aceptar trafico, se drenan los streams en
	// vuelo y recien despues los workers de extraccion (via defer).
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
}
