package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wordroom/wordroom-server/internal/store"
)

type Config struct {
	Port           string
	Environment    string
	AllowedOrigins []string
	JWTSecret      string

	Redis       store.RedisConfig
	PostgresDSN string

	// WaitingTTL expires rooms that never started; FinishedTTL expires rooms
	// nobody revisits after the game ends.
	WaitingTTL  time.Duration
	FinishedTTL time.Duration
	SweepSpec   string
}

func Load() *Config {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	originsStr := getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	origins := strings.Split(originsStr, ",")

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		AllowedOrigins: origins,
		JWTSecret:      getEnv("JWT_SECRET", "change-me-in-production"),
		Redis: store.RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		PostgresDSN: getEnv("POSTGRES_DSN",
			"host=localhost user=wordroom password=wordroom dbname=wordroom port=5432 sslmode=disable"),
		WaitingTTL:  getEnvDuration("ROOM_WAITING_TTL", time.Hour),
		FinishedTTL: getEnvDuration("ROOM_FINISHED_TTL", 10*time.Minute),
		SweepSpec:   getEnv("SWEEP_SCHEDULE", "@every 5m"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
