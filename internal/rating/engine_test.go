package rating_test

import (
	"context"
	"testing"

	"github.com/mauv0809/pickup-ratings/internal/config"
	"github.com/mauv0809/pickup-ratings/internal/pickup"
	"github.com/mauv0809/pickup-ratings/internal/rating"
	"github.com/mauv0809/pickup-ratings/internal/skill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oneVsOne(id int64, a, b string, outcomes ...pickup.Outcome) *pickup.Match {
	m := &pickup.Match{
		ID:          id,
		TenantID:    tenant,
		QueueTypeID: 1,
		Teams: []pickup.Team{
			{Index: 0, Players: []pickup.PlayerRef{{PlayerID: a}}},
			{Index: 1, Players: []pickup.PlayerRef{{PlayerID: b}}},
		},
	}
	if len(outcomes) == 2 {
		m.Rated = true
		m.Teams[0].Outcome = outcomes[0]
		m.Teams[1].Outcome = outcomes[1]
	}
	return m
}

func newEngine(store pickup.Store) *rating.Engine {
	cfg := config.DefaultRating()
	return rating.NewEngine(store, skill.NewTrueSkill(cfg.Beta, cfg.Tau, cfg.DrawProbability), cfg)
}

func TestGenerateRatings_RefusesPastCascadeLimit(t *testing.T) {
	store := pickup.NewMock()
	store.GetFollowingRatedMatchesFunc = func(ctx context.Context, queueTypeID, afterMatchID int64, limit int) ([]*pickup.Match, error) {
		var ms []*pickup.Match
		for i := 0; i < limit; i++ {
			ms = append(ms, oneVsOne(afterMatchID+int64(i)+1, "a", "b", pickup.OutcomeWin, pickup.OutcomeLoss))
		}
		return ms, nil
	}

	_, err := newEngine(store).GenerateRatings(context.Background(), 1, oneVsOne(1, "a", "b"), win, false)
	assert.ErrorIs(t, err, rating.ErrCascadeLimitExceeded)

	require.Len(t, store.GetFollowingRatedMatchesCalls, 1)
	assert.Equal(t, 11, store.GetFollowingRatedMatchesCalls[0].Limit, "asks for one more than the limit")
	assert.Empty(t, store.GetLatestPriorRatingsCalls, "no further reads once refused")
}

func TestGenerateRatings_UsesEachPlayersOwnPrior(t *testing.T) {
	store := pickup.NewMock()
	store.GetFollowingRatedMatchesFunc = func(ctx context.Context, queueTypeID, afterMatchID int64, limit int) ([]*pickup.Match, error) {
		return []*pickup.Match{oneVsOne(5, "a", "c", pickup.OutcomeLoss, pickup.OutcomeWin)}, nil
	}
	cPrior := pickup.PlayerSkill{PlayerID: "c", QueueTypeID: 1, Mu: 31, Sigma: 3, LastMatchID: 2}
	store.GetLatestPriorRatingsFunc = func(ctx context.Context, queueTypeID, beforeMatchID int64, playerIDs []string) (map[string]pickup.PlayerSkill, error) {
		assert.Equal(t, int64(3), beforeMatchID)
		assert.ElementsMatch(t, []string{"a", "b", "c"}, playerIDs)
		return map[string]pickup.PlayerSkill{"c": cPrior}, nil
	}

	batch, err := newEngine(store).GenerateRatings(context.Background(), 1, oneVsOne(3, "a", "b"), win, false)
	require.NoError(t, err)

	require.Len(t, batch.Updates, 2)
	assert.Equal(t, int64(3), batch.Updates[0].MatchID)
	assert.Equal(t, int64(5), batch.Updates[1].MatchID)

	target := batch.Updates[0].Snapshots
	assert.Equal(t, skill.Rating{Mu: 25, Sigma: 25.0 / 3.0}, target[0].Before, "first-time player gets the default prior")

	replayed := batch.Updates[1].Snapshots
	assert.Equal(t, target[0].After, replayed[0].Before, "a carries its target posterior forward")
	assert.Equal(t, cPrior.Rating(), replayed[1].Before, "c enters with its own last rating")

	require.Len(t, batch.Skills, 3)
	assert.Equal(t, int64(5), batch.Skills["a"].LastMatchID)
	assert.Equal(t, int64(3), batch.Skills["b"].LastMatchID)
	assert.Equal(t, replayed[1].After.Mu, batch.Skills["c"].Mu)
	assert.Equal(t, pickup.OperationRate, batch.Operation)
	assert.Equal(t, win, batch.Outcomes)
}

func TestGenerateRatings_UnrateWithoutFollowingRestoresEnteringState(t *testing.T) {
	store := pickup.NewMock()
	prior := pickup.PlayerSkill{PlayerID: "a", QueueTypeID: 1, Mu: 27, Sigma: 6, LastMatchID: 1}
	store.GetLatestPriorRatingsFunc = func(ctx context.Context, queueTypeID, beforeMatchID int64, playerIDs []string) (map[string]pickup.PlayerSkill, error) {
		return map[string]pickup.PlayerSkill{"a": prior}, nil
	}

	batch, err := newEngine(store).GenerateRatings(context.Background(), 1, oneVsOne(4, "a", "b", pickup.OutcomeWin, pickup.OutcomeLoss), nil, true)
	require.NoError(t, err)

	assert.Equal(t, pickup.OperationUnrate, batch.Operation)
	assert.Empty(t, batch.Updates)
	require.Contains(t, batch.Skills, "a")
	require.Contains(t, batch.Skills, "b")
	assert.Equal(t, prior, *batch.Skills["a"])
	assert.Nil(t, batch.Skills["b"], "players without an entering rating are cleared")
}

func TestGenerateRatings_UnrateReplaysFollowingWithoutTarget(t *testing.T) {
	store := pickup.NewMock()
	store.GetFollowingRatedMatchesFunc = func(ctx context.Context, queueTypeID, afterMatchID int64, limit int) ([]*pickup.Match, error) {
		return []*pickup.Match{oneVsOne(6, "a", "c", pickup.OutcomeWin, pickup.OutcomeLoss)}, nil
	}

	batch, err := newEngine(store).GenerateRatings(context.Background(), 1, oneVsOne(4, "a", "b", pickup.OutcomeWin, pickup.OutcomeLoss), nil, true)
	require.NoError(t, err)

	require.Len(t, batch.Updates, 1)
	assert.Equal(t, int64(6), batch.Updates[0].MatchID)
	assert.Equal(t, skill.Rating{Mu: 25, Sigma: 25.0 / 3.0}, batch.Updates[0].Snapshots[0].Before)
	assert.Nil(t, batch.Skills["b"])
	assert.NotNil(t, batch.Skills["a"])
	assert.Equal(t, int64(6), batch.Skills["c"].LastMatchID)
}

func TestGenerateRatings_RejectsFollowingMatchWithoutOutcome(t *testing.T) {
	store := pickup.NewMock()
	store.GetFollowingRatedMatchesFunc = func(ctx context.Context, queueTypeID, afterMatchID int64, limit int) ([]*pickup.Match, error) {
		broken := oneVsOne(9, "a", "c")
		broken.Rated = true
		return []*pickup.Match{broken}, nil
	}

	_, err := newEngine(store).GenerateRatings(context.Background(), 1, oneVsOne(4, "a", "b"), win, false)
	assert.ErrorIs(t, err, rating.ErrInvalidState)
}
