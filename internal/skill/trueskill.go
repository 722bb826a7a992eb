package skill

import "math"

const kappa = 0.0001

// TrueSkill is a Bayesian Gaussian rating model. Each team is compared against
// every other team (Thurstone-Mosteller full pairing) and the truncated-Gaussian
// corrections are accumulated before being split across the team's players by
// their share of the team variance.
type TrueSkill struct {
	beta            float64
	tau             float64
	drawProbability float64
}

func NewTrueSkill(beta, tau, drawProbability float64) *TrueSkill {
	return &TrueSkill{
		beta:            beta,
		tau:             tau,
		drawProbability: drawProbability,
	}
}

func (t *TrueSkill) Name() string {
	return "trueskill"
}

type teamStats struct {
	mu      float64
	sigmaSq float64
	size    int
}

func (t *TrueSkill) Update(teamPriors [][]Rating, teamRanks []int) ([][]Rating, error) {
	if err := validate(teamPriors, teamRanks); err != nil {
		return nil, err
	}

	// Dynamics: uncertainty grows a little between matches.
	priors := make([][]Rating, len(teamPriors))
	teams := make([]teamStats, len(teamPriors))
	for i, team := range teamPriors {
		priors[i] = make([]Rating, len(team))
		for j, r := range team {
			sigma := math.Sqrt(r.Sigma*r.Sigma + t.tau*t.tau)
			priors[i][j] = Rating{Mu: r.Mu, Sigma: sigma}
			teams[i].mu += r.Mu
			teams[i].sigmaSq += sigma * sigma
		}
		teams[i].size = len(team)
	}

	betaSq := t.beta * t.beta
	out := make([][]Rating, len(priors))
	for i, ti := range teams {
		var omega, delta float64
		for q, tq := range teams {
			if q == i {
				continue
			}
			c := math.Sqrt(ti.sigmaSq + tq.sigmaSq + 2*betaSq)
			margin := t.drawMargin(ti.size+tq.size) / c
			diff := (ti.mu - tq.mu) / c
			sigSqToC := ti.sigmaSq / c
			gamma := math.Sqrt(ti.sigmaSq) / c

			switch {
			case teamRanks[i] < teamRanks[q]:
				omega += sigSqToC * vWin(diff, margin)
				delta += gamma * sigSqToC / c * wWin(diff, margin)
			case teamRanks[i] > teamRanks[q]:
				omega -= sigSqToC * vWin(-diff, margin)
				delta += gamma * sigSqToC / c * wWin(-diff, margin)
			default:
				omega += sigSqToC * vDraw(diff, margin)
				delta += gamma * sigSqToC / c * wDraw(diff, margin)
			}
		}

		out[i] = make([]Rating, len(priors[i]))
		for j, p := range priors[i] {
			share := p.Sigma * p.Sigma / ti.sigmaSq
			out[i][j] = Rating{
				Mu:    p.Mu + share*omega,
				Sigma: p.Sigma * math.Sqrt(math.Max(1-share*delta, kappa)),
			}
		}
	}
	return out, nil
}

func (t *TrueSkill) drawMargin(players int) float64 {
	if t.drawProbability <= 0 {
		return 0
	}
	return ppf((t.drawProbability+1)/2) * math.Sqrt(float64(players)) * t.beta
}
