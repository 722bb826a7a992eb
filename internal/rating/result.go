package rating

import (
	"sort"

	"github.com/mauv0809/pickup-ratings/internal/pickup"
	"github.com/mauv0809/pickup-ratings/internal/skill"
)

type ResultKind string

const (
	// ResultSummary only lists per-team outcomes.
	ResultSummary  ResultKind = "summary"
	ResultDetailed ResultKind = "detailed"
)

// Result describes a committed rate or unrate for display.
type Result struct {
	Kind          ResultKind       `json:"kind" msgpack:"kind"`
	TenantID      string           `json:"tenant_id" msgpack:"tenant_id"`
	MatchID       int64            `json:"match_id" msgpack:"match_id"`
	QueueTypeID   int64            `json:"queue_type_id" msgpack:"queue_type_id"`
	QueueTypeName string           `json:"queue_type_name" msgpack:"queue_type_name"`
	Operation     pickup.Operation `json:"operation" msgpack:"operation"`
	Recomputed    int              `json:"recomputed" msgpack:"recomputed"`
	Teams         []TeamResult     `json:"teams" msgpack:"teams"`
}

type TeamResult struct {
	Index   int            `json:"index" msgpack:"index"`
	Name    string         `json:"name" msgpack:"name"`
	Outcome pickup.Outcome `json:"outcome,omitempty" msgpack:"outcome"`
	Players []PlayerChange `json:"players,omitempty" msgpack:"players,omitempty"`
}

// PlayerChange is a player's current rating and leaderboard rank before and
// after the operation. Nil ratings and zero ranks mean unrated.
type PlayerChange struct {
	PlayerID   string        `json:"player_id" msgpack:"player_id"`
	Name       string        `json:"name" msgpack:"name"`
	Before     *skill.Rating `json:"before,omitempty" msgpack:"before,omitempty"`
	After      *skill.Rating `json:"after,omitempty" msgpack:"after,omitempty"`
	RankBefore int           `json:"rank_before" msgpack:"rank_before"`
	RankAfter  int           `json:"rank_after" msgpack:"rank_after"`
}

// RankDelta is positive when the player moved up the leaderboard.
func (p PlayerChange) RankDelta() int {
	if p.RankBefore == 0 || p.RankAfter == 0 {
		return 0
	}
	return p.RankBefore - p.RankAfter
}

// buildResult renders the outcome of batch on match. leaderboard is the
// queue type's skills as they were before the batch was committed.
func buildResult(match *pickup.Match, qt *pickup.QueueType, batch *pickup.RatingBatch, leaderboard []pickup.PlayerSkill, detailedThreshold int) *Result {
	res := &Result{
		Kind:          ResultDetailed,
		TenantID:      match.TenantID,
		MatchID:       match.ID,
		QueueTypeID:   match.QueueTypeID,
		QueueTypeName: qt.Name,
		Operation:     batch.Operation,
		Recomputed:    batch.Recomputed(),
	}
	if match.ParticipantCount() > detailedThreshold {
		res.Kind = ResultSummary
	}

	var before, after map[string]int
	current := make(map[string]pickup.PlayerSkill, len(leaderboard))
	if res.Kind == ResultDetailed {
		for _, ps := range leaderboard {
			current[ps.PlayerID] = ps
		}
		before = ranks(leaderboard)
		after = ranks(applySkills(leaderboard, batch.Skills))
	}

	for i, team := range match.Teams {
		tr := TeamResult{Index: team.Index, Name: team.Name}
		if batch.Operation == pickup.OperationRate && i < len(batch.Outcomes) {
			tr.Outcome = batch.Outcomes[i]
		}
		if res.Kind == ResultDetailed {
			for _, p := range team.Players {
				pc := PlayerChange{
					PlayerID:   p.PlayerID,
					Name:       p.Name,
					RankBefore: before[p.PlayerID],
					RankAfter:  after[p.PlayerID],
				}
				if ps, ok := current[p.PlayerID]; ok {
					r := ps.Rating()
					pc.Before = &r
				}
				if ps := batch.Skills[p.PlayerID]; ps != nil {
					r := ps.Rating()
					pc.After = &r
				}
				tr.Players = append(tr.Players, pc)
			}
		}
		res.Teams = append(res.Teams, tr)
	}
	return res
}

// applySkills returns the leaderboard as it looks once skills are written.
func applySkills(leaderboard []pickup.PlayerSkill, skills map[string]*pickup.PlayerSkill) []pickup.PlayerSkill {
	out := make([]pickup.PlayerSkill, 0, len(leaderboard)+len(skills))
	for _, ps := range leaderboard {
		if _, changed := skills[ps.PlayerID]; changed {
			continue
		}
		out = append(out, ps)
	}
	for _, ps := range skills {
		if ps != nil {
			out = append(out, *ps)
		}
	}
	return out
}

// ranks orders players by ordinal, best first. Ties break on player id.
func ranks(skills []pickup.PlayerSkill) map[string]int {
	sorted := append([]pickup.PlayerSkill(nil), skills...)
	sort.Slice(sorted, func(i, j int) bool {
		oi, oj := sorted[i].Rating().Ordinal(), sorted[j].Rating().Ordinal()
		if oi != oj {
			return oi > oj
		}
		return sorted[i].PlayerID < sorted[j].PlayerID
	})
	out := make(map[string]int, len(sorted))
	for i, ps := range sorted {
		out[ps.PlayerID] = i + 1
	}
	return out
}
