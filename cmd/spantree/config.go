package main

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// config holds the demo settings. Environment variables provide the
// defaults; flags override them.
type config struct {
	Delay    time.Duration // simulated work per child span
	Format   string        // iso8601 or timespan
	Lookup   string        // indexed or roots
	Source   string        // native or otel
	LogLevel string
	Simulate bool // advance a fake clock instead of sleeping
}

// loadConfig reads SPANTREE_* variables, loading a .env file first when one
// exists in the working directory.
func loadConfig() config {
	_ = godotenv.Load()

	return config{
		Delay:    parseDuration(getEnv("SPANTREE_DELAY", "2500ms")),
		Format:   getEnv("SPANTREE_FORMAT", "iso8601"),
		Lookup:   getEnv("SPANTREE_LOOKUP", "indexed"),
		Source:   getEnv("SPANTREE_SOURCE", "native"),
		LogLevel: getEnv("SPANTREE_LOG_LEVEL", "warn"),
		Simulate: parseBool(getEnv("SPANTREE_SIMULATE", "false")),
	}
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return 2500 * time.Millisecond
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelWarn
	}
	return level
}
