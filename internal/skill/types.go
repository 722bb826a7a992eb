package skill

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when the shape of the priors does not describe a rateable match.
var ErrInvalidInput = errors.New("invalid skill update input")

// Rating is a Gaussian skill estimate.
type Rating struct {
	Mu    float64 `json:"mu" msgpack:"mu"`
	Sigma float64 `json:"sigma" msgpack:"sigma"`
}

// Ordinal is the conservative estimate used for leaderboards.
func (r Rating) Ordinal() float64 {
	return r.Mu - 3*r.Sigma
}

func (r Rating) String() string {
	return fmt.Sprintf("%.2f±%.2f", r.Mu, r.Sigma)
}

func validate(teamPriors [][]Rating, teamRanks []int) error {
	if len(teamPriors) < 2 {
		return fmt.Errorf("%w: need at least two teams, got %d", ErrInvalidInput, len(teamPriors))
	}
	if len(teamPriors) != len(teamRanks) {
		return fmt.Errorf("%w: %d teams but %d ranks", ErrInvalidInput, len(teamPriors), len(teamRanks))
	}
	for i, team := range teamPriors {
		if len(team) == 0 {
			return fmt.Errorf("%w: team %d has no players", ErrInvalidInput, i)
		}
	}
	return nil
}
