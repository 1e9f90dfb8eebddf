package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the process configuration, sourced from the environment with an
// optional .env file on top.
type Config struct {
	Port          string
	LogLevel      string
	DatabaseURL   string
	DataPath      string
	RedisAddr     string
	WorkerCount   int
	DraftTTLHours int
	NightWeight   float64
	WeekendWeight float64
}

// Load reads .env (if present in the usual spots) and the environment.
func Load() Config {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			break
		}
	}

	return Config{
		Port:          getEnv("PORT", "8000"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		DataPath:      getEnv("DATA_PATH", "roster.db"),
		RedisAddr:     os.Getenv("ROSTER_REDIS_ADDR"),
		WorkerCount:   getEnvInt("WORKER_COUNT", 2),
		DraftTTLHours: getEnvInt("DRAFT_TTL_HOURS", 24*14),
		NightWeight:   getEnvFloat("NIGHT_WEIGHT", 2.0),
		WeekendWeight: getEnvFloat("WEEKEND_WEIGHT", 1.5),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
