package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	JWTSecret       string        `env:"JWT_SECRET,required"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`
	AllowHeaderAuth bool          `env:"ALLOW_HEADER_AUTH" envDefault:"false"`

	// Proveedor primario (general) y secundario (contenido explicito).
	PrimaryLLMBaseURL   string `env:"PRIMARY_LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	PrimaryLLMAPIKey    string `env:"PRIMARY_LLM_API_KEY"`
	PrimaryLLMModel     string `env:"PRIMARY_LLM_MODEL" envDefault:"gpt-4o-mini"`
	SecondaryLLMBaseURL string `env:"SECONDARY_LLM_BASE_URL" envDefault:"http://localhost:11434/v1"`
	SecondaryLLMAPIKey  string `env:"SECONDARY_LLM_API_KEY"`
	SecondaryLLMModel   string `env:"SECONDARY_LLM_MODEL" envDefault:"dolphin-mistral"`
	EmbeddingBaseURL    string `env:"EMBEDDING_BASE_URL"` // vacio: usa el primario
	EmbeddingAPIKey     string `env:"EMBEDDING_API_KEY"`
	EmbeddingModel      string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`

	LLMTimeout        time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	LLMConnectTimeout time.Duration `env:"LLM_CONNECT_TIMEOUT" envDefault:"5s"`
	StoreTimeout      time.Duration `env:"STORE_TIMEOUT" envDefault:"10s"`

	BufferSize       int     `env:"BUFFER_SIZE" envDefault:"20"`
	RetrievalTopK    int     `env:"RETRIEVAL_TOP_K" envDefault:"5"`
	SimilarityWeight float64 `env:"SIMILARITY_WEIGHT" envDefault:"0.7"`
	ImportanceWeight float64 `env:"IMPORTANCE_WEIGHT" envDefault:"0.3"`
	MinSimilarity    float64 `env:"MIN_SIMILARITY" envDefault:"0.15"`
	DedupSimilarity  float64 `env:"DEDUP_SIMILARITY" envDefault:"0.92"`

	RouteLockWindow    int `env:"ROUTE_LOCK_WINDOW" envDefault:"5"`
	AgeGateMaxAttempts int `env:"AGE_GATE_MAX_ATTEMPTS" envDefault:"3"`

	ExtractionWorkers   int `env:"EXTRACTION_WORKERS" envDefault:"8"`
	ExtractionQueueSize int `env:"EXTRACTION_QUEUE_SIZE" envDefault:"64"`

	ChatRateLimit  int           `env:"CHAT_RATE_LIMIT" envDefault:"30"`
	ChatRateWindow time.Duration `env:"CHAT_RATE_WINDOW" envDefault:"1m"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	AuditLogPath string `env:"AUDIT_LOG_PATH"` // vacio: stdout
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
