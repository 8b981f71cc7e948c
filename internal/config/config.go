package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreBackendMemory   = "memory"
	StoreBackendPostgres = "postgres"
)

// Load reads the .env file specified by DIALOGREPLY_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("DIALOGREPLY_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Missing files are fine: the environment may already be populated.
	_ = godotenv.Load(envFile)
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

// StoreBackend returns "memory" or "postgres".
// Defaults to postgres when DATABASE_URL is set, memory otherwise.
func StoreBackend() string {
	switch b := os.Getenv("STORE_BACKEND"); b {
	case StoreBackendMemory, StoreBackendPostgres:
		return b
	}
	if DatabaseURL() != "" {
		return StoreBackendPostgres
	}
	return StoreBackendMemory
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

func GeminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

func CerebrasAPIKey() string {
	return os.Getenv("CEREBRAS_API_KEY")
}

// LLMProvider returns the configured LLM provider.
// Defaults to "openai" if not set.
// Valid values: openai, anthropic, gemini, cerebras, mock
func LLMProvider() string {
	p := os.Getenv("LLM_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// LLMAPIKey returns the API key for the configured LLM provider.
func LLMAPIKey() string {
	switch LLMProvider() {
	case "anthropic":
		return AnthropicAPIKey()
	case "gemini":
		return GeminiAPIKey()
	case "cerebras":
		return CerebrasAPIKey()
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// ReplyWaitTimeout bounds the wait for the reply inference sub-agent.
// Defaults to 30s.
func ReplyWaitTimeout() time.Duration {
	ms, err := strconv.Atoi(os.Getenv("REPLY_WAIT_TIMEOUT_MS"))
	if err != nil || ms <= 0 {
		return 30 * time.Second
	}
	return time.Duration(ms) * time.Millisecond
}

// DispatchWorkers returns the number of concurrent handlers per agent.
// Defaults to 8.
func DispatchWorkers() int {
	n, err := strconv.Atoi(os.Getenv("DISPATCH_WORKERS"))
	if err != nil || n <= 0 {
		return 8
	}
	return n
}

// DatabaseMaxConns sizes the Postgres pool. Defaults to one connection per
// dispatch worker of each agent plus headroom for the listener and the API.
func DatabaseMaxConns() int32 {
	n, err := strconv.Atoi(os.Getenv("DB_MAX_CONNS"))
	if err != nil || n <= 0 {
		return int32(2*DispatchWorkers() + 4)
	}
	return int32(n)
}

// APIKey is the shared bearer token for /v1 routes. Empty disables auth.
func APIKey() string {
	return os.Getenv("API_KEY")
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
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
