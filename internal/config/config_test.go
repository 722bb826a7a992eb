package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadRating_Defaults(t *testing.T) {
	rc := loadRating(func(string) (string, bool) { return "", false })

	assert.Equal(t, DefaultRating(), rc)
	assert.Equal(t, 10, rc.CascadeLimit)
	assert.Equal(t, 10, rc.DetailedThreshold)
	assert.Equal(t, 25.0, rc.DefaultMu)
	assert.InDelta(t, 8.333, rc.DefaultSigma, 0.001)
	assert.Equal(t, ModelTrueSkill, rc.Model)
}

func TestLoadRating_Overrides(t *testing.T) {
	env := map[string]string{
		"SKILL_MODEL":           "elo",
		"RATING_CASCADE_LIMIT":  "5",
		"RATING_DEFAULT_MU":     "1500",
		"RATING_COMMIT_TIMEOUT": "250ms",
		"RATING_COMMIT_RETRIES": "0",
	}
	rc := loadRating(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})

	assert.Equal(t, ModelElo, rc.Model)
	assert.Equal(t, 5, rc.CascadeLimit)
	assert.Equal(t, 1500.0, rc.DefaultMu)
	assert.Equal(t, 250*time.Millisecond, rc.CommitTimeout)
	assert.Equal(t, uint64(0), rc.CommitRetries)
	// untouched values keep their defaults
	assert.Equal(t, 10, rc.DetailedThreshold)
}

func TestLoadRating_Environment(t *testing.T) {
	t.Setenv("SKILL_MODEL", "elo")
	t.Setenv("RATING_ELO_K", "24")

	rc := LoadRating()

	assert.Equal(t, ModelElo, rc.Model)
	assert.Equal(t, 24.0, rc.EloK)
}
