package rating

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup-ratings/internal/config"
	"github.com/mauv0809/pickup-ratings/internal/pickup"
	"github.com/mauv0809/pickup-ratings/internal/skill"
)

// Engine replays the skill model over a target match and every rated match
// that follows it in the same queue type.
type Engine struct {
	store        pickup.Store
	model        skill.Model
	prior        skill.Rating
	cascadeLimit int
}

func NewEngine(store pickup.Store, model skill.Model, cfg config.RatingConfig) *Engine {
	return &Engine{
		store:        store,
		model:        model,
		prior:        skill.Rating{Mu: cfg.DefaultMu, Sigma: cfg.DefaultSigma},
		cascadeLimit: cfg.CascadeLimit,
	}
}

// GenerateRatings computes everything a rate (or unrate) of target writes.
// Nothing is written; the returned batch is handed to Store.Commit.
func (e *Engine) GenerateRatings(ctx context.Context, queueTypeID int64, target *pickup.Match, outcomes []pickup.Outcome, isUnrate bool) (*pickup.RatingBatch, error) {
	following, err := e.store.GetFollowingRatedMatches(ctx, queueTypeID, target.ID, e.cascadeLimit+1)
	if err != nil {
		return nil, fmt.Errorf("failed to load following matches: %w", err)
	}
	if len(following) > e.cascadeLimit {
		return nil, fmt.Errorf("%w: more than %d rated matches follow match %d", ErrCascadeLimitExceeded, e.cascadeLimit, target.ID)
	}

	affected := affectedPlayers(target, following)
	priors, err := e.store.GetLatestPriorRatings(ctx, queueTypeID, target.ID, affected)
	if err != nil {
		return nil, fmt.Errorf("failed to load prior ratings: %w", err)
	}

	current := make(map[string]*pickup.PlayerSkill, len(priors))
	for id, ps := range priors {
		current[id] = &ps
	}

	batch := &pickup.RatingBatch{
		QueueTypeID:   queueTypeID,
		TargetMatchID: target.ID,
		Operation:     pickup.OperationRate,
	}
	if isUnrate {
		batch.Operation = pickup.OperationUnrate
	} else {
		batch.Outcomes = append([]pickup.Outcome(nil), outcomes...)
		update, err := e.replay(queueTypeID, target, outcomes, current)
		if err != nil {
			return nil, err
		}
		batch.Updates = append(batch.Updates, update)
	}

	for _, m := range following {
		update, err := e.replay(queueTypeID, m, m.Outcomes(), current)
		if err != nil {
			return nil, err
		}
		batch.Updates = append(batch.Updates, update)
	}

	batch.Skills = make(map[string]*pickup.PlayerSkill, len(affected))
	for _, id := range affected {
		batch.Skills[id] = current[id]
	}

	log.Debug("Generated rating batch", "matchID", target.ID, "queueTypeID", queueTypeID,
		"operation", batch.Operation, "following", len(following), "players", len(affected))
	return batch, nil
}

// replay runs the model for one match and advances current to the posteriors.
func (e *Engine) replay(queueTypeID int64, m *pickup.Match, outcomes []pickup.Outcome, current map[string]*pickup.PlayerSkill) (pickup.MatchUpdate, error) {
	if len(outcomes) != len(m.Teams) {
		return pickup.MatchUpdate{}, fmt.Errorf("%w: match %d has %d teams but %d outcomes", ErrInvalidState, m.ID, len(m.Teams), len(outcomes))
	}

	teamPriors := make([][]skill.Rating, len(m.Teams))
	ranks := make([]int, len(m.Teams))
	for i, team := range m.Teams {
		if outcomes[i] == pickup.OutcomeUnset {
			return pickup.MatchUpdate{}, fmt.Errorf("%w: match %d has no outcome for team %d", ErrInvalidState, m.ID, i)
		}
		ranks[i] = outcomes[i].Rank()
		teamPriors[i] = make([]skill.Rating, len(team.Players))
		for j, p := range team.Players {
			teamPriors[i][j] = e.ratingOf(current, p.PlayerID)
		}
	}

	posteriors, err := e.model.Update(teamPriors, ranks)
	if err != nil {
		return pickup.MatchUpdate{}, fmt.Errorf("failed to rate match %d: %w", m.ID, err)
	}

	update := pickup.MatchUpdate{MatchID: m.ID}
	for i, team := range m.Teams {
		for j, p := range team.Players {
			after := posteriors[i][j]
			update.Snapshots = append(update.Snapshots, pickup.PlayerSnapshot{
				PlayerID: p.PlayerID,
				Before:   teamPriors[i][j],
				After:    after,
			})
			current[p.PlayerID] = &pickup.PlayerSkill{
				PlayerID:    p.PlayerID,
				QueueTypeID: queueTypeID,
				Mu:          after.Mu,
				Sigma:       after.Sigma,
				LastMatchID: m.ID,
			}
		}
	}
	return update, nil
}

func (e *Engine) ratingOf(current map[string]*pickup.PlayerSkill, playerID string) skill.Rating {
	if ps, ok := current[playerID]; ok && ps != nil {
		return ps.Rating()
	}
	return e.prior
}

// affectedPlayers lists every participant of target and following, in first-seen order.
func affectedPlayers(target *pickup.Match, following []*pickup.Match) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(m *pickup.Match) {
		for _, id := range m.PlayerIDs() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	add(target)
	for _, m := range following {
		add(m)
	}
	return ids
}
