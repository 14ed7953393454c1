package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by DOUBTS_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("DOUBTS_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// KnowledgeBackend selects where doubts and the knowledge graph live.
// Valid values: postgres, neo4j. Defaults to "postgres".
func KnowledgeBackend() string {
	b := os.Getenv("KNOWLEDGE_BACKEND")
	if b == "" {
		return "postgres"
	}
	return b
}

func Neo4jURI() string {
	return os.Getenv("NEO4J_URI")
}

func Neo4jUser() string {
	u := os.Getenv("NEO4J_USER")
	if u == "" {
		return "neo4j"
	}
	return u
}

func Neo4jPassword() string {
	return os.Getenv("NEO4J_PASSWORD")
}

func Neo4jDatabase() string {
	return os.Getenv("NEO4J_DATABASE")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

// EmbeddingProvider returns the configured embedding provider.
// Defaults to "service" if not set.
// Valid values: service, openai, mock
func EmbeddingProvider() string {
	p := os.Getenv("EMBEDDING_PROVIDER")
	if p == "" {
		return "service"
	}
	return p
}

func EmbeddingServiceURL() string {
	u := os.Getenv("EMBEDDING_SERVICE_URL")
	if u == "" {
		return "http://localhost:8001/embed"
	}
	return u
}

// EmbeddingAPIKey returns the API key for the configured embedding provider.
func EmbeddingAPIKey() string {
	switch EmbeddingProvider() {
	case "openai":
		return OpenAIAPIKey()
	default:
		return ""
	}
}

// EmbeddingDimensions is the vector size used when creating vector indexes.
// Defaults to 384.
func EmbeddingDimensions() int {
	d, err := strconv.Atoi(os.Getenv("EMBEDDING_DIMENSIONS"))
	if err != nil || d <= 0 {
		return 384
	}
	return d
}

// TutorProvider returns the configured generative tutor provider.
// Defaults to "groq" if not set.
// Valid values: groq, openai, cerebras, mock
func TutorProvider() string {
	p := os.Getenv("TUTOR_PROVIDER")
	if p == "" {
		return "groq"
	}
	return p
}

// AdmissionTimeout bounds one background doubt/knowledge write.
// Defaults to 30 seconds.
func AdmissionTimeout() time.Duration {
	secs, err := strconv.Atoi(os.Getenv("ADMISSION_TIMEOUT_SECONDS"))
	if err != nil || secs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(secs) * time.Second
}

// DoubtEscalationAge is how long a doubt may stay below the cache threshold
// before it is flagged for a human. Defaults to 7 days.
func DoubtEscalationAge() time.Duration {
	days, err := strconv.Atoi(os.Getenv("DOUBT_ESCALATION_DAYS"))
	if err != nil || days <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(days) * 24 * time.Hour
}

func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}

// RateLimitRPS returns requests per second limit.
// Defaults to 10 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 10
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
