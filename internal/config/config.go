package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Rag      RagConfig
	Cache    CacheConfig
	Storage  StorageConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	IngestTopic        string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini string
	HuggingFace  string
	Jina         string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini", "ollama" or "jina"
	OllamaBaseURL     string
	OllamaModel       string
	HuggingFaceURL    string

	// ModelPriority is the default ordered list of "provider:model" entries.
	ModelPriority []string
	// BranchPriority overrides ModelPriority per branch (MODEL_PRIORITY_<BRANCH>).
	BranchPriority map[string][]string
	QuickModel     string
	ModelTimeout   time.Duration
}

type RagConfig struct {
	RetrievalTimeout    time.Duration
	EmbedTimeout        time.Duration
	SimilarityThreshold float64
	TopK                int
	HistoryWindow       int

	ChunkFixedWidth int
	ChunkMaxLen     int
	ChunkMinLen     int
	BatchSize       int
	MaxBookBytes    int64
}

type CacheConfig struct {
	Backend string // "postgres", "redis", "memory" or "tiered"
	TTL     time.Duration
}

type StorageConfig struct {
	Backend   string // "local" or "gcs"
	LocalRoot string
	GCSBucket string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	defaultPriority := getEnvAsList("MODEL_PRIORITY", []string{
		"gemini:gemini-2.0-flash",
		"huggingface:meta-llama/Llama-3.1-8B-Instruct",
		"ollama:llama3",
	})

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			IngestTopic:        getEnv("INGEST_TOPIC", "INGEST_BOOK"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			HuggingFace:  getEnv("HUGGINGFACE_API_KEY", ""),
			Jina:         getEnv("JINA_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			HuggingFaceURL:    getEnv("HUGGINGFACE_BASE_URL", ""),
			ModelPriority:     defaultPriority,
			BranchPriority:    branchPriorities(os.Environ()),
			QuickModel:        getEnv("QUICK_MODEL", defaultPriority[0]),
			ModelTimeout:      getEnvAsDuration("MODEL_TIMEOUT", 45*time.Second),
		},
		Rag: RagConfig{
			RetrievalTimeout:    getEnvAsDuration("RETRIEVAL_TIMEOUT", 8*time.Second),
			EmbedTimeout:        getEnvAsDuration("EMBED_TIMEOUT", 4*time.Second),
			SimilarityThreshold: getEnvAsFloat("SIMILARITY_THRESHOLD", 0.3),
			TopK:                getEnvAsInt("RETRIEVAL_TOP_K", 5),
			HistoryWindow:       getEnvAsInt("HISTORY_WINDOW", 6),
			ChunkFixedWidth:     getEnvAsInt("CHUNK_FIXED_WIDTH", 2000),
			ChunkMaxLen:         getEnvAsInt("CHUNK_MAX_LEN", 4000),
			ChunkMinLen:         getEnvAsInt("CHUNK_MIN_LEN", 50),
			BatchSize:           getEnvAsInt("INGEST_BATCH_SIZE", 10),
			MaxBookBytes:        int64(getEnvAsInt("MAX_BOOK_BYTES", 50*1024*1024)),
		},
		Cache: CacheConfig{
			Backend: getEnv("CACHE_BACKEND", "postgres"),
			TTL:     getEnvAsDuration("CACHE_TTL", 0),
		},
		Storage: StorageConfig{
			Backend:   getEnv("STORAGE_BACKEND", "local"),
			LocalRoot: getEnv("STORAGE_LOCAL_ROOT", "./uploads"),
			GCSBucket: getEnv("GCS_BUCKET", ""),
		},
	}
}

// PriorityFor returns the model priority list for a branch, falling back to
// the default list.
func (c AIConfig) PriorityFor(branch string) []string {
	if list, ok := c.BranchPriority[strings.ToLower(strings.TrimSpace(branch))]; ok && len(list) > 0 {
		return list
	}
	return c.ModelPriority
}

func branchPriorities(environ []string) map[string][]string {
	const prefix = "MODEL_PRIORITY_"
	out := make(map[string][]string)
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		branch := strings.ToLower(strings.TrimPrefix(key, prefix))
		if list := splitList(value); len(list) > 0 {
			out[branch] = list
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	if list := splitList(getEnv(key, "")); len(list) > 0 {
		return list
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
