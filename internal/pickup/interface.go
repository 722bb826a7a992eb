package pickup

import "context"

// Store defines the interface for reading match history and writing ratings.
type Store interface {
	// GetFollowingRatedMatches returns up to limit rated matches of the queue type
	// with an id greater than afterMatchID, ascending by id.
	GetFollowingRatedMatches(ctx context.Context, queueTypeID, afterMatchID int64, limit int) ([]*Match, error)
	// GetLatestPriorRatings returns, per player, the posterior of that player's most
	// recent rated match in the queue type strictly before beforeMatchID. Players
	// without such a match are absent from the result.
	GetLatestPriorRatings(ctx context.Context, queueTypeID, beforeMatchID int64, playerIDs []string) (map[string]PlayerSkill, error)
	// Commit applies the batch atomically.
	Commit(ctx context.Context, batch *RatingBatch) error

	CreateQueueType(ctx context.Context, qt *QueueType) error
	GetQueueType(ctx context.Context, queueTypeID int64) (*QueueType, error)
	UpsertPlayers(ctx context.Context, players []Player) error
	CreateMatch(ctx context.Context, match *Match) error
	GetMatch(ctx context.Context, tenantID string, matchID int64) (*Match, error)
	ListPlayerSkills(ctx context.Context, queueTypeID int64) ([]PlayerSkill, error)
	GetPlayerSkill(ctx context.Context, playerID string, queueTypeID int64) (*PlayerSkill, error)
	AddRatingReport(ctx context.Context, report *RatingReport) error
	ListRatingReports(ctx context.Context, matchID int64) ([]RatingReport, error)
}
