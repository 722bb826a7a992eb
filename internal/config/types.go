package config

import "time"

// Config holds all configuration for the application.
type Config struct {
	DBName        string
	MigrationsDir string
	Port          string
	Slack         SlackConfig
	Turso         TursoConfig
	ProjectID     string
	RedisURL      string
	Rating        RatingConfig
}
type SlackConfig struct {
	Token     string
	ChannelID string
}
type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}

// RatingConfig carries the normative rating constants. Historical rating values are only
// reproducible while these stay fixed.
type RatingConfig struct {
	Model             string
	CascadeLimit      int
	DetailedThreshold int
	DefaultMu         float64
	DefaultSigma      float64
	Beta              float64
	Tau               float64
	DrawProbability   float64
	EloK              float64
	CommitTimeout     time.Duration
	CommitRetries     uint64
}

const (
	ModelTrueSkill = "trueskill"
	ModelElo       = "elo"
)

// DefaultRating returns the rating constants used when nothing is overridden.
func DefaultRating() RatingConfig {
	return RatingConfig{
		Model:             ModelTrueSkill,
		CascadeLimit:      10,
		DetailedThreshold: 10,
		DefaultMu:         25.0,
		DefaultSigma:      25.0 / 3.0,
		Beta:              25.0 / 6.0,
		Tau:               25.0 / 300.0,
		DrawProbability:   0.10,
		EloK:              32,
		CommitTimeout:     5 * time.Second,
		CommitRetries:     3,
	}
}
