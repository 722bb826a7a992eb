package config

import (
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables and .env file.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, reading from environment variables")
	}

	// A helper function to get a required env var. It will fail if the env var is not set.
	getEnv := func(key string) string {
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		log.Fatalf("Error: Required environment variable %s is not set.", key)
		return "" // This line is never reached
	}
	optional := func(key, fallback string) string {
		if value, ok := os.LookupEnv(key); ok && value != "" {
			return value
		}
		return fallback
	}

	cfg := Config{
		DBName:        getEnv("DB_NAME"),
		MigrationsDir: optional("MIGRATIONS_DIR", "./migrations"),
		Slack: SlackConfig{
			Token:     optional("SLACK_BOT_TOKEN", ""),
			ChannelID: optional("SLACK_CHANNEL_ID", ""),
		},
		Port: getEnv("PORT"),
		Turso: TursoConfig{
			PrimaryURL: optional("TURSO_PRIMARY_URL", ""),
			AuthToken:  optional("TURSO_AUTH_TOKEN", ""),
		},
		ProjectID: optional("GCP_PROJECT", ""),
		RedisURL:  optional("REDIS_URL", ""),
		Rating:    loadRating(os.LookupEnv),
	}
	return cfg
}

// LoadRating reads only the rating constants, for tools that do not serve HTTP.
func LoadRating() RatingConfig {
	return loadRating(os.LookupEnv)
}

// loadRating overlays RATING_* variables on top of DefaultRating. Malformed values are fatal:
// silently falling back would change rating history.
func loadRating(lookup func(string) (string, bool)) RatingConfig {
	rc := DefaultRating()

	floatVar := func(key string, dst *float64) {
		if raw, ok := lookup(key); ok && raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				log.Fatalf("Error: %s must be a number, got %q", key, raw)
			}
			*dst = v
		}
	}
	intVar := func(key string, dst *int) {
		if raw, ok := lookup(key); ok && raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 0 {
				log.Fatalf("Error: %s must be a non-negative integer, got %q", key, raw)
			}
			*dst = v
		}
	}

	if raw, ok := lookup("SKILL_MODEL"); ok && raw != "" {
		rc.Model = raw
	}
	intVar("RATING_CASCADE_LIMIT", &rc.CascadeLimit)
	intVar("RATING_DETAILED_THRESHOLD", &rc.DetailedThreshold)
	floatVar("RATING_DEFAULT_MU", &rc.DefaultMu)
	floatVar("RATING_DEFAULT_SIGMA", &rc.DefaultSigma)
	floatVar("RATING_BETA", &rc.Beta)
	floatVar("RATING_TAU", &rc.Tau)
	floatVar("RATING_DRAW_PROBABILITY", &rc.DrawProbability)
	floatVar("RATING_ELO_K", &rc.EloK)

	if raw, ok := lookup("RATING_COMMIT_TIMEOUT"); ok && raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("Error: RATING_COMMIT_TIMEOUT must be a duration, got %q", raw)
		}
		rc.CommitTimeout = d
	}
	retries := int(rc.CommitRetries)
	intVar("RATING_COMMIT_RETRIES", &retries)
	rc.CommitRetries = uint64(retries)

	return rc
}
