package skill

// Model turns prior ratings and an observed placement into posterior ratings.
//
// teamPriors[i][j] is the prior of player j on team i. teamRanks[i] is the placement of team i:
// lower is better and equal ranks are a draw between those teams. The returned slice has the
// same shape as teamPriors. Implementations must be pure and deterministic.
type Model interface {
	Update(teamPriors [][]Rating, teamRanks []int) ([][]Rating, error)
	// Name identifies the model in logs and metrics.
	Name() string
}
