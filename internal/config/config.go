package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server settings
	ServerPort string
	CORSOrigin string
	DevMode    bool

	// Document store
	DataDir      string
	UsersDir     string
	ToolsDir     string
	ReviewsFile  string
	RequestsFile string

	// Moderation audit log
	AuditDBPath string

	// Search oracle
	LLMAPIURL  string
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout time.Duration
}

// Load reads .env when present, then the environment. Paths left unset
// are derived from DATA_DIR.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: .env: %v", err)
	}

	dataDir := getEnv("DATA_DIR", "./data")

	return &Config{
		// Server
		ServerPort: getEnv("SERVER_PORT", ":8080"),
		CORSOrigin: getEnv("CORS_ORIGIN", "*"),
		DevMode:    getEnv("DEV_MODE", "false") == "true",

		// Documents
		DataDir:      dataDir,
		UsersDir:     getEnv("USERS_DIR", filepath.Join(dataDir, "users")),
		ToolsDir:     getEnv("TOOLS_DIR", filepath.Join(dataDir, "tools")),
		ReviewsFile:  getEnv("REVIEWS_FILE", filepath.Join(dataDir, "reviews.json")),
		RequestsFile: getEnv("REQUESTS_FILE", filepath.Join(dataDir, "tool-requests.json")),

		// Audit
		AuditDBPath: getEnv("AUDIT_DB_PATH", filepath.Join(dataDir, "audit.db")),

		// LLM
		LLMAPIURL:  getEnv("LLM_API_URL", "https://api.openai.com/v1/chat/completions"),
		LLMAPIKey:  os.Getenv("LLM_API_KEY"),
		LLMModel:   getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout: getDuration("LLM_TIMEOUT", 15*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration accepts a Go duration ("10s") or a number of seconds
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("config: invalid %s=%q, using %s", key, value, defaultValue)
	return defaultValue
}
