package pickup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mauv0809/pickup-ratings/internal/skill"
)

var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrQueueTypeNotFound = errors.New("queue type not found")
	ErrSkillNotFound     = errors.New("player skill not found")
)

// store handles all database operations for pickup matches and ratings.
type store struct {
	db            *sql.DB
	mu            sync.RWMutex
	commitTimeout time.Duration
	commitRetries uint64
	beginTx       func(ctx context.Context) (*sql.Tx, error)
}

// Outcome is the recorded result of one team in a match.
type Outcome string

const (
	OutcomeUnset Outcome = ""
	OutcomeWin   Outcome = "WIN"
	OutcomeDraw  Outcome = "DRAW"
	OutcomeLoss  Outcome = "LOSS"
)

// Rank maps an outcome onto the placement handed to the skill model. Lower is better.
func (o Outcome) Rank() int {
	switch o {
	case OutcomeWin:
		return 0
	case OutcomeDraw:
		return 1
	default:
		return 2
	}
}

func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(strings.ToUpper(strings.TrimSpace(s))); o {
	case OutcomeWin, OutcomeDraw, OutcomeLoss:
		return o, nil
	default:
		return OutcomeUnset, fmt.Errorf("unknown outcome %q", s)
	}
}

// QueueType groups matches of the same format. Ratings are scoped per queue type.
type QueueType struct {
	ID        int64  `json:"id"`
	TenantID  string `json:"tenant_id"`
	Name      string `json:"name"`
	TeamCount int    `json:"team_count"`
	TeamSize  int    `json:"team_size"`
}

type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PlayerRef is a player's participation in a match. Before and After are the
// rating snapshots in effect for that match and are nil while it is unrated.
type PlayerRef struct {
	PlayerID string        `json:"player_id" msgpack:"player_id"`
	Name     string        `json:"name" msgpack:"name"`
	Before   *skill.Rating `json:"before,omitempty" msgpack:"before,omitempty"`
	After    *skill.Rating `json:"after,omitempty" msgpack:"after,omitempty"`
}

type Team struct {
	Index   int         `json:"index"`
	Name    string      `json:"name"`
	Outcome Outcome     `json:"outcome,omitempty"`
	Players []PlayerRef `json:"players"`
}

// Match ids are assigned in chronological order and define the causal order
// of rating updates within a queue type.
type Match struct {
	ID          int64  `json:"id"`
	TenantID    string `json:"tenant_id"`
	QueueTypeID int64  `json:"queue_type_id"`
	StartedAt   int64  `json:"started_at"`
	Rated       bool   `json:"rated"`
	Teams       []Team `json:"teams"`
}

func (m *Match) PlayerIDs() []string {
	var ids []string
	for _, t := range m.Teams {
		for _, p := range t.Players {
			ids = append(ids, p.PlayerID)
		}
	}
	return ids
}

func (m *Match) Outcomes() []Outcome {
	outcomes := make([]Outcome, len(m.Teams))
	for i, t := range m.Teams {
		outcomes[i] = t.Outcome
	}
	return outcomes
}

func (m *Match) ParticipantCount() int {
	n := 0
	for _, t := range m.Teams {
		n += len(t.Players)
	}
	return n
}

// PlayerSkill is the current rating of a player in one queue type.
type PlayerSkill struct {
	PlayerID    string  `json:"player_id"`
	PlayerName  string  `json:"player_name,omitempty"`
	QueueTypeID int64   `json:"queue_type_id"`
	Mu          float64 `json:"mu"`
	Sigma       float64 `json:"sigma"`
	LastMatchID int64   `json:"last_match_id"`
	UpdatedAt   int64   `json:"updated_at,omitempty"`
}

func (ps PlayerSkill) Rating() skill.Rating {
	return skill.Rating{Mu: ps.Mu, Sigma: ps.Sigma}
}

// RatingReport is a pending outcome report for a match. Reports are cleared
// once an outcome for the match is committed or revoked.
type RatingReport struct {
	ID         string  `json:"id"`
	MatchID    int64   `json:"match_id"`
	ReporterID string  `json:"reporter_id"`
	TeamIndex  int     `json:"team_index"`
	Outcome    Outcome `json:"outcome"`
	CreatedAt  int64   `json:"created_at"`
}

type Operation string

const (
	OperationRate   Operation = "rate"
	OperationUnrate Operation = "unrate"
)

// PlayerSnapshot is the rating a player entered and left a match with.
type PlayerSnapshot struct {
	PlayerID string
	Before   skill.Rating
	After    skill.Rating
}

type MatchUpdate struct {
	MatchID   int64
	Snapshots []PlayerSnapshot
}

// RatingBatch is everything a single rate or unrate writes.
// Skills holds the resulting rating of every affected player; a nil entry
// removes the player's rating from the queue type.
type RatingBatch struct {
	QueueTypeID   int64
	TargetMatchID int64
	Operation     Operation
	Outcomes      []Outcome
	Updates       []MatchUpdate
	Skills        map[string]*PlayerSkill
}

// Recomputed is the number of matches whose snapshots the batch rewrites.
func (b *RatingBatch) Recomputed() int {
	return len(b.Updates)
}
