package pickup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/mauv0809/pickup-ratings/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBusy(t *testing.T) {
	assert.True(t, isBusy(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.True(t, isBusy(fmt.Errorf("commit: %w", sqlite3.Error{Code: sqlite3.ErrLocked})))
	assert.False(t, isBusy(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	assert.False(t, isBusy(errors.New("boom")))
	assert.False(t, isBusy(nil))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}

// setupRetryStore returns a store over an in-memory database holding one unrated 1v1 match.
func setupRetryStore(t *testing.T, opts ...Option) (*store, *Match) {
	t.Helper()
	db, teardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)
	t.Cleanup(func() {
		if teardown != nil {
			teardown()
		}
		db.Close()
	})

	s := New(db, opts...).(*store)
	ctx := context.Background()
	qt := &QueueType{TenantID: "t1", Name: "1v1", TeamCount: 2, TeamSize: 1}
	require.NoError(t, s.CreateQueueType(ctx, qt))
	m := &Match{TenantID: "t1", QueueTypeID: qt.ID, Teams: []Team{
		{Players: []PlayerRef{{PlayerID: "a", Name: "A"}}},
		{Players: []PlayerRef{{PlayerID: "b", Name: "B"}}},
	}}
	require.NoError(t, s.CreateMatch(ctx, m))
	return s, m
}

// failBegin makes the first n transactions fail with err before delegating to the database.
func failBegin(s *store, n int, err error) *int {
	attempts := 0
	begin := s.beginTx
	s.beginTx = func(ctx context.Context) (*sql.Tx, error) {
		attempts++
		if attempts <= n {
			return nil, err
		}
		return begin(ctx)
	}
	return &attempts
}

func rateOnly(m *Match) *RatingBatch {
	return &RatingBatch{
		QueueTypeID:   m.QueueTypeID,
		TargetMatchID: m.ID,
		Operation:     OperationRate,
		Outcomes:      []Outcome{OutcomeWin, OutcomeLoss},
	}
}

func TestCommit_RetriesBusyDatabase(t *testing.T) {
	s, m := setupRetryStore(t, WithCommitRetries(3))
	attempts := failBegin(s, 1, sqlite3.Error{Code: sqlite3.ErrBusy})

	require.NoError(t, s.Commit(context.Background(), rateOnly(m)))
	assert.Equal(t, 2, *attempts, "one failed attempt and one retry")

	got, err := s.GetMatch(context.Background(), "t1", m.ID)
	require.NoError(t, err)
	assert.True(t, got.Rated)
	assert.Equal(t, []Outcome{OutcomeWin, OutcomeLoss}, got.Outcomes())
}

func TestCommit_GivesUpAfterMaxRetries(t *testing.T) {
	s, m := setupRetryStore(t, WithCommitRetries(2))
	attempts := failBegin(s, 100, sqlite3.Error{Code: sqlite3.ErrLocked})

	err := s.Commit(context.Background(), rateOnly(m))
	require.Error(t, err)
	assert.True(t, isBusy(err))
	assert.Equal(t, 3, *attempts)

	got, err := s.GetMatch(context.Background(), "t1", m.ID)
	require.NoError(t, err)
	assert.False(t, got.Rated)
}

func TestCommit_DoesNotRetryOtherErrors(t *testing.T) {
	s, m := setupRetryStore(t)
	dbErr := errors.New("disk I/O error")
	attempts := failBegin(s, 1, dbErr)

	err := s.Commit(context.Background(), rateOnly(m))
	assert.ErrorIs(t, err, dbErr)
	assert.Equal(t, 1, *attempts)
}
