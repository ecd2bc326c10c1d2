package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr          string
	DBPath        string
	RedisURL      string
	CacheTTL      time.Duration
	SweepInterval string
	MapPool       []string
	DefaultBestOf int
}

var defaultMapPool = []string{"Ascent", "Bind", "Haven", "Lotus", "Split", "Sunset", "Icebox"}

// Load reads .env when present and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg := &Config{
		Addr:          getenv("ADDR", ":8080"),
		DBPath:        getenv("DB_PATH", "tournaments.db"),
		RedisURL:      os.Getenv("REDIS_URL"),
		SweepInterval: getenv("SWEEP_INTERVAL", "@every 30s"),
		MapPool:       defaultMapPool,
	}

	ttl, err := time.ParseDuration(getenv("CACHE_TTL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	cfg.CacheTTL = ttl

	bestOf, err := strconv.Atoi(getenv("DEFAULT_BEST_OF", "1"))
	if err != nil || (bestOf != 1 && bestOf != 3 && bestOf != 5) {
		return nil, fmt.Errorf("invalid DEFAULT_BEST_OF %q", os.Getenv("DEFAULT_BEST_OF"))
	}
	cfg.DefaultBestOf = bestOf

	if raw := os.Getenv("MAP_POOL"); raw != "" {
		cfg.MapPool = SplitList(raw)
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
