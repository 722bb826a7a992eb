package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/mauv0809/pickup-ratings/internal/config"
	"github.com/mauv0809/pickup-ratings/internal/database"
	"github.com/mauv0809/pickup-ratings/internal/metrics"
	"github.com/mauv0809/pickup-ratings/internal/pickup"
	"github.com/mauv0809/pickup-ratings/internal/rating"
	"github.com/mauv0809/pickup-ratings/internal/skill"
)

type seederConfig struct {
	dbName        string
	primaryURL    string
	authToken     string
	migrationsDir string
	tenantID      string
	teamSize      int
	numPlayers    int
	numMatches    int
	seed          int64
}

// Simplified config loading for the script
func loadConfig() seederConfig {
	err := godotenv.Load()
	if err != nil {
		log.Warn("No .env file found, reading from environment variables")
	}

	optional := func(key, fallback string) string {
		if value, ok := os.LookupEnv(key); ok && value != "" {
			return value
		}
		return fallback
	}
	number := func(key string, fallback int) int {
		raw := optional(key, "")
		if raw == "" {
			return fallback
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			log.Fatalf("Error: %s must be a positive integer, got %q", key, raw)
		}
		return v
	}

	return seederConfig{
		dbName:        optional("DB_NAME", "seed.db"),
		primaryURL:    optional("TURSO_PRIMARY_URL", ""),
		authToken:     optional("TURSO_AUTH_TOKEN", ""),
		migrationsDir: optional("MIGRATIONS_DIR", "./migrations"),
		tenantID:      optional("SEED_TENANT", "seed-tenant"),
		teamSize:      number("SEED_TEAM_SIZE", 2),
		numPlayers:    number("SEED_PLAYERS", 12),
		numMatches:    number("SEED_MATCHES", 200),
		seed:          int64(number("SEED_RANDOM", 1)),
	}
}

func main() {
	log.Info("Starting database seeder...")
	cfg := loadConfig()
	if cfg.numPlayers < 2*cfg.teamSize {
		log.Fatalf("SEED_PLAYERS (%d) must be at least twice SEED_TEAM_SIZE (%d)", cfg.numPlayers, cfg.teamSize)
	}

	db, teardown, err := database.InitDB(cfg.dbName, cfg.primaryURL, cfg.authToken, cfg.migrationsDir)
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer teardown()

	ratingCfg := config.LoadRating()
	model, err := skill.New(ratingCfg)
	if err != nil {
		log.Fatalf("Failed to initialize skill model: %s", err)
	}
	store := pickup.New(db, pickup.WithCommitTimeout(ratingCfg.CommitTimeout), pickup.WithCommitRetries(ratingCfg.CommitRetries))
	svc := rating.NewService(store, model, rating.NewLocalLocker(), metrics.NewService(), nil, ratingCfg)

	ctx := context.Background()
	qt := &pickup.QueueType{
		TenantID:  cfg.tenantID,
		Name:      fmt.Sprintf("%dv%d", cfg.teamSize, cfg.teamSize),
		TeamCount: 2,
		TeamSize:  cfg.teamSize,
	}
	if err := store.CreateQueueType(ctx, qt); err != nil {
		log.Fatalf("Failed to create queue type: %s", err)
	}
	log.Info("Created queue type", "id", qt.ID, "name", qt.Name)

	rng := rand.New(rand.NewSource(cfg.seed))
	players := make([]pickup.Player, cfg.numPlayers)
	for i := range players {
		players[i] = pickup.Player{ID: fmt.Sprintf("seed-player-%d", i+1), Name: fmt.Sprintf("Seeder Player %d", i+1)}
	}
	if err := store.UpsertPlayers(ctx, players); err != nil {
		log.Fatalf("Failed to insert players: %s", err)
	}

	// Hidden strength per player so that the seeded leaderboard has some shape.
	strength := make(map[string]float64, len(players))
	for _, p := range players {
		strength[p.ID] = rng.NormFloat64()
	}

	log.Info("Seeding matches...", "total", cfg.numMatches)
	startTime := time.Now()
	start := time.Now().Add(-time.Duration(cfg.numMatches) * time.Hour)
	for i := 0; i < cfg.numMatches; i++ {
		order := rng.Perm(len(players))
		m := &pickup.Match{
			TenantID:    cfg.tenantID,
			QueueTypeID: qt.ID,
			StartedAt:   start.Add(time.Duration(i) * time.Hour).Unix(),
		}
		sums := [2]float64{}
		for t := 0; t < 2; t++ {
			var team pickup.Team
			for _, idx := range order[t*cfg.teamSize : (t+1)*cfg.teamSize] {
				p := players[idx]
				team.Players = append(team.Players, pickup.PlayerRef{PlayerID: p.ID, Name: p.Name})
				sums[t] += strength[p.ID]
			}
			m.Teams = append(m.Teams, team)
		}
		if err := store.CreateMatch(ctx, m); err != nil {
			log.Fatalf("Failed to create match: %s", err)
		}

		if _, err := svc.Rate(ctx, cfg.tenantID, m.ID, seededOutcomes(rng, sums[0]-sums[1])); err != nil {
			log.Fatalf("Failed to rate match %d: %s", m.ID, err)
		}
		if (i+1)%50 == 0 {
			log.Info("Rated matches", "completed", i+1, "total", cfg.numMatches)
		}
	}

	duration := time.Since(startTime)
	log.Info("Successfully seeded and rated all matches.", "duration", duration)
}

// seededOutcomes picks a result for a two team match given the strength difference of team 0.
func seededOutcomes(rng *rand.Rand, diff float64) []pickup.Outcome {
	roll := rng.NormFloat64() + diff
	switch {
	case roll > 0.3:
		return []pickup.Outcome{pickup.OutcomeWin, pickup.OutcomeLoss}
	case roll < -0.3:
		return []pickup.Outcome{pickup.OutcomeLoss, pickup.OutcomeWin}
	default:
		return []pickup.Outcome{pickup.OutcomeDraw, pickup.OutcomeDraw}
	}
}
