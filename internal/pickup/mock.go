package pickup

import (
	"context"
	"sync"
)

// MockStore is a mock implementation of the Store interface for testing.
// It is safe for concurrent use.
type MockStore struct {
	mu sync.Mutex

	GetFollowingRatedMatchesFunc func(ctx context.Context, queueTypeID, afterMatchID int64, limit int) ([]*Match, error)
	GetLatestPriorRatingsFunc    func(ctx context.Context, queueTypeID, beforeMatchID int64, playerIDs []string) (map[string]PlayerSkill, error)
	CommitFunc                   func(ctx context.Context, batch *RatingBatch) error
	CreateQueueTypeFunc          func(ctx context.Context, qt *QueueType) error
	GetQueueTypeFunc             func(ctx context.Context, queueTypeID int64) (*QueueType, error)
	UpsertPlayersFunc            func(ctx context.Context, players []Player) error
	CreateMatchFunc              func(ctx context.Context, match *Match) error
	GetMatchFunc                 func(ctx context.Context, tenantID string, matchID int64) (*Match, error)
	ListPlayerSkillsFunc         func(ctx context.Context, queueTypeID int64) ([]PlayerSkill, error)
	GetPlayerSkillFunc           func(ctx context.Context, playerID string, queueTypeID int64) (*PlayerSkill, error)
	AddRatingReportFunc          func(ctx context.Context, report *RatingReport) error
	ListRatingReportsFunc        func(ctx context.Context, matchID int64) ([]RatingReport, error)

	// Call records
	CommitCalls                []*RatingBatch
	GetLatestPriorRatingsCalls []struct {
		QueueTypeID   int64
		BeforeMatchID int64
		PlayerIDs     []string
	}
	GetFollowingRatedMatchesCalls []struct {
		QueueTypeID  int64
		AfterMatchID int64
		Limit        int
	}
}

// NewMock creates a new mock instance.
func NewMock() *MockStore {
	return &MockStore{}
}

func (m *MockStore) GetFollowingRatedMatches(ctx context.Context, queueTypeID, afterMatchID int64, limit int) ([]*Match, error) {
	m.mu.Lock()
	m.GetFollowingRatedMatchesCalls = append(m.GetFollowingRatedMatchesCalls, struct {
		QueueTypeID  int64
		AfterMatchID int64
		Limit        int
	}{queueTypeID, afterMatchID, limit})
	m.mu.Unlock()
	if m.GetFollowingRatedMatchesFunc != nil {
		return m.GetFollowingRatedMatchesFunc(ctx, queueTypeID, afterMatchID, limit)
	}
	return nil, nil
}

func (m *MockStore) GetLatestPriorRatings(ctx context.Context, queueTypeID, beforeMatchID int64, playerIDs []string) (map[string]PlayerSkill, error) {
	m.mu.Lock()
	m.GetLatestPriorRatingsCalls = append(m.GetLatestPriorRatingsCalls, struct {
		QueueTypeID   int64
		BeforeMatchID int64
		PlayerIDs     []string
	}{queueTypeID, beforeMatchID, playerIDs})
	m.mu.Unlock()
	if m.GetLatestPriorRatingsFunc != nil {
		return m.GetLatestPriorRatingsFunc(ctx, queueTypeID, beforeMatchID, playerIDs)
	}
	return map[string]PlayerSkill{}, nil
}

func (m *MockStore) Commit(ctx context.Context, batch *RatingBatch) error {
	m.mu.Lock()
	m.CommitCalls = append(m.CommitCalls, batch)
	m.mu.Unlock()
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx, batch)
	}
	return nil
}

func (m *MockStore) CreateQueueType(ctx context.Context, qt *QueueType) error {
	if m.CreateQueueTypeFunc != nil {
		return m.CreateQueueTypeFunc(ctx, qt)
	}
	return nil
}

func (m *MockStore) GetQueueType(ctx context.Context, queueTypeID int64) (*QueueType, error) {
	if m.GetQueueTypeFunc != nil {
		return m.GetQueueTypeFunc(ctx, queueTypeID)
	}
	return &QueueType{ID: queueTypeID, TeamCount: 2, TeamSize: 1}, nil
}

func (m *MockStore) UpsertPlayers(ctx context.Context, players []Player) error {
	if m.UpsertPlayersFunc != nil {
		return m.UpsertPlayersFunc(ctx, players)
	}
	return nil
}

func (m *MockStore) CreateMatch(ctx context.Context, match *Match) error {
	if m.CreateMatchFunc != nil {
		return m.CreateMatchFunc(ctx, match)
	}
	return nil
}

func (m *MockStore) GetMatch(ctx context.Context, tenantID string, matchID int64) (*Match, error) {
	if m.GetMatchFunc != nil {
		return m.GetMatchFunc(ctx, tenantID, matchID)
	}
	return nil, ErrMatchNotFound
}

func (m *MockStore) ListPlayerSkills(ctx context.Context, queueTypeID int64) ([]PlayerSkill, error) {
	if m.ListPlayerSkillsFunc != nil {
		return m.ListPlayerSkillsFunc(ctx, queueTypeID)
	}
	return nil, nil
}

func (m *MockStore) GetPlayerSkill(ctx context.Context, playerID string, queueTypeID int64) (*PlayerSkill, error) {
	if m.GetPlayerSkillFunc != nil {
		return m.GetPlayerSkillFunc(ctx, playerID, queueTypeID)
	}
	return nil, ErrSkillNotFound
}

func (m *MockStore) AddRatingReport(ctx context.Context, report *RatingReport) error {
	if m.AddRatingReportFunc != nil {
		return m.AddRatingReportFunc(ctx, report)
	}
	return nil
}

func (m *MockStore) ListRatingReports(ctx context.Context, matchID int64) ([]RatingReport, error) {
	if m.ListRatingReportsFunc != nil {
		return m.ListRatingReportsFunc(ctx, matchID)
	}
	return nil, nil
}
