package skill

import "math"

// eloBase is the Elo rating the default mu is mapped to.
const eloBase = 1500.0

// Elo rates each team by the mean mu of its players and applies a K-factor
// update against every opponent. Sigma is carried through unchanged.
type Elo struct {
	k     float64
	scale float64
}

// NewElo returns an Elo model whose points are scaled so that defaultMu corresponds to 1500.
func NewElo(k, defaultMu float64) *Elo {
	scale := 1.0
	if defaultMu > 0 {
		scale = eloBase / defaultMu
	}
	return &Elo{k: k, scale: scale}
}

func (e *Elo) Name() string {
	return "elo"
}

func (e *Elo) Update(teamPriors [][]Rating, teamRanks []int) ([][]Rating, error) {
	if err := validate(teamPriors, teamRanks); err != nil {
		return nil, err
	}

	means := make([]float64, len(teamPriors))
	for i, team := range teamPriors {
		var sum float64
		for _, r := range team {
			sum += r.Mu
		}
		means[i] = sum / float64(len(team)) * e.scale
	}

	opponents := float64(len(teamPriors) - 1)
	out := make([][]Rating, len(teamPriors))
	for i, team := range teamPriors {
		var change float64
		for q := range teamPriors {
			if q == i {
				continue
			}
			expected := 1 / (1 + math.Pow(10, (means[q]-means[i])/400))
			change += e.k * (actualScore(teamRanks[i], teamRanks[q]) - expected)
		}
		change /= opponents

		out[i] = make([]Rating, len(team))
		for j, r := range team {
			out[i][j] = Rating{Mu: r.Mu + change/e.scale, Sigma: r.Sigma}
		}
	}
	return out, nil
}

func actualScore(rank, opponentRank int) float64 {
	switch {
	case rank < opponentRank:
		return 1
	case rank > opponentRank:
		return 0
	default:
		return 0.5
	}
}
