package rating

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup-ratings/internal/config"
	"github.com/mauv0809/pickup-ratings/internal/metrics"
	"github.com/mauv0809/pickup-ratings/internal/pickup"
	"github.com/mauv0809/pickup-ratings/internal/pubsub"
	"github.com/mauv0809/pickup-ratings/internal/skill"
)

// Service is the entry point for rating and unrating matches.
type Service struct {
	store             pickup.Store
	engine            *Engine
	locker            Locker
	metrics           metrics.Metrics
	pubsub            pubsub.PubSubClient
	detailedThreshold int
}

// NewService creates a new Service. pubsub may be nil, in which case no
// ratings-updated events are published.
func NewService(store pickup.Store, model skill.Model, locker Locker, metrics metrics.Metrics, pubsub pubsub.PubSubClient, cfg config.RatingConfig) *Service {
	return &Service{
		store:             store,
		engine:            NewEngine(store, model, cfg),
		locker:            locker,
		metrics:           metrics,
		pubsub:            pubsub,
		detailedThreshold: cfg.DetailedThreshold,
	}
}

// Rate records outcomes for a match (one per team, in team order) and
// recomputes every rated match that follows it in the same queue type.
// Rating an already rated match with different outcomes replaces them.
func (s *Service) Rate(ctx context.Context, tenantID string, matchID int64, outcomes []pickup.Outcome) (*Result, error) {
	start := time.Now()
	if err := checkOutcomes(outcomes); err != nil {
		return nil, s.reject(err)
	}
	match, unlock, err := s.lockMatch(ctx, tenantID, matchID)
	if err != nil {
		return nil, s.reject(err)
	}
	defer unlock()

	if len(outcomes) != len(match.Teams) {
		return nil, s.reject(fmt.Errorf("%w: match %d has %d teams but %d outcomes were given", ErrInvalidState, matchID, len(match.Teams), len(outcomes)))
	}
	for i, o := range outcomes {
		if o == pickup.OutcomeUnset {
			return nil, s.reject(fmt.Errorf("%w: missing outcome for team %d", ErrInvalidState, i))
		}
	}
	if match.Rated && sameOutcomes(match.Outcomes(), outcomes) {
		return nil, s.reject(fmt.Errorf("%w: match %d is already rated with these outcomes", ErrInvalidState, matchID))
	}

	batch, err := s.engine.GenerateRatings(ctx, match.QueueTypeID, match, outcomes, false)
	if err != nil {
		return nil, s.reject(err)
	}
	return s.commit(ctx, match, batch, start)
}

// Unrate clears a match's outcomes and recomputes the matches that follow it.
func (s *Service) Unrate(ctx context.Context, tenantID string, matchID int64) (*Result, error) {
	start := time.Now()
	match, unlock, err := s.lockMatch(ctx, tenantID, matchID)
	if err != nil {
		return nil, s.reject(err)
	}
	defer unlock()

	if !match.Rated {
		return nil, s.reject(fmt.Errorf("%w: match %d is not rated", ErrInvalidState, matchID))
	}

	batch, err := s.engine.GenerateRatings(ctx, match.QueueTypeID, match, nil, true)
	if err != nil {
		return nil, s.reject(err)
	}
	return s.commit(ctx, match, batch, start)
}

// lockMatch takes the queue type's scope lock and returns the match as read under it.
func (s *Service) lockMatch(ctx context.Context, tenantID string, matchID int64) (*pickup.Match, func(), error) {
	match, err := s.store.GetMatch(ctx, tenantID, matchID)
	if err != nil {
		return nil, nil, err
	}

	key := ScopeKey(tenantID, match.QueueTypeID)
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock %s: %w", key, err)
	}

	match, err = s.store.GetMatch(ctx, tenantID, matchID)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return match, unlock, nil
}

func (s *Service) commit(ctx context.Context, match *pickup.Match, batch *pickup.RatingBatch, start time.Time) (*Result, error) {
	qt, err := s.store.GetQueueType(ctx, match.QueueTypeID)
	if err != nil {
		return nil, s.reject(err)
	}
	var leaderboard []pickup.PlayerSkill
	if match.ParticipantCount() <= s.detailedThreshold {
		leaderboard, err = s.store.ListPlayerSkills(ctx, match.QueueTypeID)
		if err != nil {
			return nil, s.reject(err)
		}
	}

	if err := s.store.Commit(ctx, batch); err != nil {
		log.Error("Failed to commit rating batch", "error", err, "matchID", match.ID, "operation", batch.Operation)
		return nil, s.reject(fmt.Errorf("%w: %w", ErrPersistenceFailure, err))
	}

	s.metrics.IncRatingsCommitted(string(batch.Operation))
	s.metrics.ObserveCascadeDepth(batch.Recomputed())
	s.metrics.ObserveRatingDuration(time.Since(start).Seconds())
	log.Info("Committed rating batch", "matchID", match.ID, "queueTypeID", match.QueueTypeID,
		"operation", batch.Operation, "recomputed", batch.Recomputed(), "players", len(batch.Skills))

	result := buildResult(match, qt, batch, leaderboard, s.detailedThreshold)
	s.publish(result)
	return result, nil
}

// publish fans the result out. The batch is already committed, so failures are only logged.
func (s *Service) publish(result *Result) {
	if s.pubsub == nil {
		return
	}
	if err := s.pubsub.SendMessage(pubsub.EventRatingsUpdated, result); err != nil {
		s.metrics.IncEventsFailed()
		log.Error("Failed to publish ratings update", "error", err, "matchID", result.MatchID)
		return
	}
	s.metrics.IncEventsPublished()
}

func (s *Service) reject(err error) error {
	s.metrics.IncRatingsRejected(rejectReason(err))
	return err
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrCascadeLimitExceeded):
		return "cascade_limit"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrMatchNotFound):
		return "not_found"
	case errors.Is(err, ErrPersistenceFailure):
		return "persistence"
	default:
		return "error"
	}
}

// checkOutcomes rejects outcome sets that do not describe a single result:
// either every team drew, or at least one team won and one lost with no draws.
func checkOutcomes(outcomes []pickup.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	counts := make(map[pickup.Outcome]int, 3)
	for i, o := range outcomes {
		if o == pickup.OutcomeUnset {
			return fmt.Errorf("%w: missing outcome for team %d", ErrInvalidState, i)
		}
		counts[o]++
	}
	if counts[pickup.OutcomeDraw] == len(outcomes) {
		return nil
	}
	if counts[pickup.OutcomeDraw] > 0 || counts[pickup.OutcomeWin] == 0 || counts[pickup.OutcomeLoss] == 0 {
		return fmt.Errorf("%w: contradictory outcomes %v", ErrInvalidState, outcomes)
	}
	return nil
}

func sameOutcomes(a, b []pickup.Outcome) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
