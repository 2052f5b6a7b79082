package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort      string
	DatabaseType    string
	DatabasePath    string
	DatabaseURL     string
	MigrationsPath  string
	RedisURL        string
	JWTSecret       string
	MaxLives        int
	LivesCooldown   time.Duration
	QuizSessionTTL  time.Duration
	CORSOrigins     []string
	RateLimitRPS    float64
	RateLimitBurst  int
	LogLevel        string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:      getEnv("PORT", "8080"),
		DatabaseType:    getEnv("DB_TYPE", "sqlite"),
		DatabasePath:    getEnv("DB_PATH", "./heritagequest.db"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "./migrations"),
		RedisURL:        getEnv("REDIS_URL", ""),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		MaxLives:        getEnvInt("MAX_LIVES", 5),
		LivesCooldown:   getEnvDuration("LIVES_COOLDOWN", time.Hour),
		QuizSessionTTL:  getEnvDuration("QUIZ_SESSION_TTL", 2*time.Hour),
		CORSOrigins:     getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		RateLimitRPS:    getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 20),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvList splits a comma separated variable, dropping empty entries
func getEnvList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
