package skill

import (
	"fmt"

	"github.com/mauv0809/pickup-ratings/internal/config"
)

// New builds the model selected by cfg.Model.
func New(cfg config.RatingConfig) (Model, error) {
	switch cfg.Model {
	case "", config.ModelTrueSkill:
		return NewTrueSkill(cfg.Beta, cfg.Tau, cfg.DrawProbability), nil
	case config.ModelElo:
		return NewElo(cfg.EloK, cfg.DefaultMu), nil
	default:
		return nil, fmt.Errorf("unknown skill model %q", cfg.Model)
	}
}
