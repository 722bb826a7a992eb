package pickup_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/mauv0809/pickup-ratings/internal/database"
	"github.com/mauv0809/pickup-ratings/internal/pickup"
	"github.com/mauv0809/pickup-ratings/internal/skill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a temporary in-memory SQLite database for testing.
func setupTestDB(t *testing.T) (pickup.Store, *sql.DB, func()) {
	t.Helper()

	db, dbTeardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)

	return pickup.New(db), db, dbTeardown
}

func createQueueType(t *testing.T, store pickup.Store, tenant, name string) *pickup.QueueType {
	t.Helper()
	qt := &pickup.QueueType{TenantID: tenant, Name: name, TeamCount: 2, TeamSize: 1}
	require.NoError(t, store.CreateQueueType(context.Background(), qt))
	return qt
}

func createMatch(t *testing.T, store pickup.Store, qt *pickup.QueueType, teams ...[]string) *pickup.Match {
	t.Helper()
	m := &pickup.Match{TenantID: qt.TenantID, QueueTypeID: qt.ID}
	for _, players := range teams {
		var team pickup.Team
		for _, id := range players {
			team.Players = append(team.Players, pickup.PlayerRef{PlayerID: id, Name: "Player " + id})
		}
		m.Teams = append(m.Teams, team)
	}
	require.NoError(t, store.CreateMatch(context.Background(), m))
	return m
}

func rateBatch(match *pickup.Match, outcomes []pickup.Outcome, after map[string]skill.Rating) *pickup.RatingBatch {
	batch := &pickup.RatingBatch{
		QueueTypeID:   match.QueueTypeID,
		TargetMatchID: match.ID,
		Operation:     pickup.OperationRate,
		Outcomes:      outcomes,
		Skills:        map[string]*pickup.PlayerSkill{},
	}
	update := pickup.MatchUpdate{MatchID: match.ID}
	for _, id := range match.PlayerIDs() {
		r := after[id]
		update.Snapshots = append(update.Snapshots, pickup.PlayerSnapshot{
			PlayerID: id,
			Before:   skill.Rating{Mu: 25, Sigma: 8},
			After:    r,
		})
		batch.Skills[id] = &pickup.PlayerSkill{PlayerID: id, Mu: r.Mu, Sigma: r.Sigma, LastMatchID: match.ID}
	}
	batch.Updates = []pickup.MatchUpdate{update}
	return batch
}

func TestCreateAndGetMatch(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	qt := createQueueType(t, store, "t1", "1v1")
	m := createMatch(t, store, qt, []string{"a"}, []string{"b"})
	assert.NotZero(t, m.ID)

	got, err := store.GetMatch(ctx, "t1", m.ID)
	require.NoError(t, err)
	assert.False(t, got.Rated)
	require.Len(t, got.Teams, 2)
	assert.Equal(t, "Team 1", got.Teams[0].Name)
	assert.Equal(t, pickup.OutcomeUnset, got.Teams[0].Outcome)
	require.Len(t, got.Teams[1].Players, 1)
	assert.Equal(t, "b", got.Teams[1].Players[0].PlayerID)
	assert.Equal(t, "Player b", got.Teams[1].Players[0].Name)
	assert.Nil(t, got.Teams[1].Players[0].Before)
	assert.Nil(t, got.Teams[1].Players[0].After)
}

func TestGetMatch_ScopedByTenant(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	qt := createQueueType(t, store, "t1", "1v1")
	m := createMatch(t, store, qt, []string{"a"}, []string{"b"})

	_, err := store.GetMatch(context.Background(), "other", m.ID)
	assert.ErrorIs(t, err, pickup.ErrMatchNotFound)

	_, err = store.GetMatch(context.Background(), "t1", m.ID+100)
	assert.ErrorIs(t, err, pickup.ErrMatchNotFound)
}

func TestGetQueueType(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()

	qt := createQueueType(t, store, "t1", "2v2")
	got, err := store.GetQueueType(context.Background(), qt.ID)
	require.NoError(t, err)
	assert.Equal(t, "2v2", got.Name)

	_, err = store.GetQueueType(context.Background(), qt.ID+1)
	assert.ErrorIs(t, err, pickup.ErrQueueTypeNotFound)

	err = store.CreateQueueType(context.Background(), &pickup.QueueType{TenantID: "t1", Name: "bad", TeamCount: 1, TeamSize: 1})
	assert.Error(t, err)
}

func TestCommit_RateWritesEverything(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	qt := createQueueType(t, store, "t1", "1v1")
	m := createMatch(t, store, qt, []string{"a"}, []string{"b"})
	require.NoError(t, store.AddRatingReport(ctx, &pickup.RatingReport{MatchID: m.ID, ReporterID: "a", TeamIndex: 0, Outcome: pickup.OutcomeWin}))

	reports, err := store.ListRatingReports(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.NotEmpty(t, reports[0].ID)

	batch := rateBatch(m, []pickup.Outcome{pickup.OutcomeWin, pickup.OutcomeLoss}, map[string]skill.Rating{
		"a": {Mu: 29, Sigma: 7},
		"b": {Mu: 21, Sigma: 7},
	})
	require.NoError(t, store.Commit(ctx, batch))

	got, err := store.GetMatch(ctx, "t1", m.ID)
	require.NoError(t, err)
	assert.True(t, got.Rated)
	assert.Equal(t, []pickup.Outcome{pickup.OutcomeWin, pickup.OutcomeLoss}, got.Outcomes())
	require.NotNil(t, got.Teams[0].Players[0].After)
	assert.Equal(t, 29.0, got.Teams[0].Players[0].After.Mu)
	assert.Equal(t, 25.0, got.Teams[0].Players[0].Before.Mu)

	ps, err := store.GetPlayerSkill(ctx, "a", qt.ID)
	require.NoError(t, err)
	assert.Equal(t, 29.0, ps.Mu)
	assert.Equal(t, m.ID, ps.LastMatchID)
	assert.Equal(t, "Player a", ps.PlayerName)

	skills, err := store.ListPlayerSkills(ctx, qt.ID)
	require.NoError(t, err)
	require.Len(t, skills, 2)
	assert.Equal(t, "a", skills[0].PlayerID, "ordered by ordinal")

	reports, err = store.ListRatingReports(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestCommit_UnrateClearsTarget(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	qt := createQueueType(t, store, "t1", "1v1")
	m := createMatch(t, store, qt, []string{"a"}, []string{"b"})
	require.NoError(t, store.Commit(ctx, rateBatch(m, []pickup.Outcome{pickup.OutcomeWin, pickup.OutcomeLoss}, map[string]skill.Rating{
		"a": {Mu: 29, Sigma: 7},
		"b": {Mu: 21, Sigma: 7},
	})))

	err := store.Commit(ctx, &pickup.RatingBatch{
		QueueTypeID:   qt.ID,
		TargetMatchID: m.ID,
		Operation:     pickup.OperationUnrate,
		Skills:        map[string]*pickup.PlayerSkill{"a": nil, "b": nil},
	})
	require.NoError(t, err)

	got, err := store.GetMatch(ctx, "t1", m.ID)
	require.NoError(t, err)
	assert.False(t, got.Rated)
	assert.Equal(t, []pickup.Outcome{pickup.OutcomeUnset, pickup.OutcomeUnset}, got.Outcomes())
	assert.Nil(t, got.Teams[0].Players[0].After)

	_, err = store.GetPlayerSkill(ctx, "a", qt.ID)
	assert.ErrorIs(t, err, pickup.ErrSkillNotFound)
}

func TestCommit_RollsBackOnFailure(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	qt := createQueueType(t, store, "t1", "1v1")
	m := createMatch(t, store, qt, []string{"a"}, []string{"b"})
	batch := rateBatch(m, []pickup.Outcome{pickup.OutcomeWin, pickup.OutcomeLoss}, map[string]skill.Rating{
		"a": {Mu: 29, Sigma: 7},
		"b": {Mu: 21, Sigma: 7},
	})
	// A snapshot for someone who did not play aborts the whole batch.
	batch.Updates[0].Snapshots = append(batch.Updates[0].Snapshots, pickup.PlayerSnapshot{PlayerID: "ghost"})

	require.Error(t, store.Commit(ctx, batch))

	got, err := store.GetMatch(ctx, "t1", m.ID)
	require.NoError(t, err)
	assert.False(t, got.Rated)
	assert.Nil(t, got.Teams[0].Players[0].After)
	skills, err := store.ListPlayerSkills(ctx, qt.ID)
	require.NoError(t, err)
	assert.Empty(t, skills)
}

func TestGetFollowingRatedMatchesAndPriors(t *testing.T) {
	store, _, teardown := setupTestDB(t)
	defer teardown()
	ctx := context.Background()

	qt := createQueueType(t, store, "t1", "1v1")
	other := createQueueType(t, store, "t1", "other")

	m1 := createMatch(t, store, qt, []string{"a"}, []string{"b"})
	m2 := createMatch(t, store, qt, []string{"a"}, []string{"c"})
	m3 := createMatch(t, store, other, []string{"a"}, []string{"b"})
	m4 := createMatch(t, store, qt, []string{"b"}, []string{"c"})
	createMatch(t, store, qt, []string{"a"}, []string{"b"}) // never rated

	win := []pickup.Outcome{pickup.OutcomeWin, pickup.OutcomeLoss}
	require.NoError(t, store.Commit(ctx, rateBatch(m1, win, map[string]skill.Rating{"a": {Mu: 28, Sigma: 7}, "b": {Mu: 22, Sigma: 7}})))
	require.NoError(t, store.Commit(ctx, rateBatch(m2, win, map[string]skill.Rating{"a": {Mu: 30, Sigma: 6}, "c": {Mu: 20, Sigma: 7}})))
	require.NoError(t, store.Commit(ctx, rateBatch(m3, win, map[string]skill.Rating{"a": {Mu: 40, Sigma: 6}, "b": {Mu: 10, Sigma: 7}})))
	require.NoError(t, store.Commit(ctx, rateBatch(m4, win, map[string]skill.Rating{"b": {Mu: 24, Sigma: 6}, "c": {Mu: 18, Sigma: 6}})))

	following, err := store.GetFollowingRatedMatches(ctx, qt.ID, m1.ID, 10)
	require.NoError(t, err)
	require.Len(t, following, 2)
	assert.Equal(t, m2.ID, following[0].ID)
	assert.Equal(t, m4.ID, following[1].ID)
	assert.Len(t, following[1].Teams, 2)

	limited, err := store.GetFollowingRatedMatches(ctx, qt.ID, m1.ID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	priors, err := store.GetLatestPriorRatings(ctx, qt.ID, m4.ID, []string{"a", "b", "c", "d"})
	require.NoError(t, err)
	assert.Equal(t, 30.0, priors["a"].Mu)
	assert.Equal(t, m2.ID, priors["a"].LastMatchID)
	assert.Equal(t, 22.0, priors["b"].Mu, "other queue types do not leak")
	assert.Equal(t, 20.0, priors["c"].Mu)
	assert.NotContains(t, priors, "d")

	priors, err = store.GetLatestPriorRatings(ctx, qt.ID, m1.ID, []string{"a", "b"})
	require.NoError(t, err)
	assert.Empty(t, priors)
}

func TestParseOutcome(t *testing.T) {
	o, err := pickup.ParseOutcome(" win ")
	require.NoError(t, err)
	assert.Equal(t, pickup.OutcomeWin, o)

	_, err = pickup.ParseOutcome("forfeit")
	assert.Error(t, err)

	assert.Less(t, pickup.OutcomeWin.Rank(), pickup.OutcomeDraw.Rank())
	assert.Less(t, pickup.OutcomeDraw.Rank(), pickup.OutcomeLoss.Rank())
}
