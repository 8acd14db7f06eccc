package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env             string
	HTTPPort        string
	DBPath          string
	RedisAddr       string
	BusBackend      string
	BusChannel      string
	CORSOrigins     []string
	RateLimitPerMin int
}

// Load returns application config populated from environment variables
// with sensible defaults.
func Load() App {
	return App{
		Env:             getEnv("APP_ENV", "dev"),
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		DBPath:          getEnv("DB_PATH", "data/classtrack.db"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		BusBackend:      getEnv("BUS_BACKEND", "memory"),
		BusChannel:      getEnv("BUS_CHANNEL", "classtrack:events"),
		CORSOrigins:     listEnv("CORS_ORIGINS", []string{"*"}),
		RateLimitPerMin: intEnv("RATE_LIMIT_PER_MIN", 120),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}

func listEnv(key string, fallback []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
