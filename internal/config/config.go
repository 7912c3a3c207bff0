package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey string
	DatabaseURL  string
	HTTPPort     string
	LogLevel     string
	JWTSecret    string

	ChatModel      string
	EmbeddingModel string

	// EmbeddingDim is the expected vector length for the configured embedding
	// model. Chunk writes are validated against it. Zero disables the check
	// and the dimension is pinned from the first stored vector instead.
	EmbeddingDim int

	UploadDir string

	EmbedTimeout time.Duration
	ChatTimeout  time.Duration
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		DatabaseURL:    getEnv("DATABASE_URL", "studybuddy.db"),
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		ChatModel:      getEnv("CHAT_MODEL", "gemini-1.5-flash-latest"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		EmbeddingDim:   getEnvAsInt("EMBEDDING_DIM", 768),
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		EmbedTimeout:   time.Duration(getEnvAsInt("EMBED_TIMEOUT_SECONDS", 30)) * time.Second,
		ChatTimeout:    time.Duration(getEnvAsInt("CHAT_TIMEOUT_SECONDS", 60)) * time.Second,
	}

	if AppConfig.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable is required")
	}

	if AppConfig.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
