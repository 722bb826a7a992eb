package pickup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/mauv0809/pickup-ratings/internal/skill"
	"github.com/sethvargo/go-retry"
)

const commitBackoffBase = 25 * time.Millisecond

// Option configures the store.
type Option func(*store)

// WithCommitTimeout bounds the total time spent in Commit, retries included.
func WithCommitTimeout(d time.Duration) Option {
	return func(s *store) {
		if d > 0 {
			s.commitTimeout = d
		}
	}
}

// WithCommitRetries sets how often a commit is retried when the database is busy.
func WithCommitRetries(n uint64) Option {
	return func(s *store) {
		s.commitRetries = n
	}
}

// New creates a new Store.
func New(db *sql.DB, opts ...Option) Store {
	s := &store{
		db:            db,
		commitTimeout: 5 * time.Second,
		commitRetries: 3,
	}
	s.beginTx = func(ctx context.Context) (*sql.Tx, error) {
		return db.BeginTx(ctx, nil)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *store) CreateQueueType(ctx context.Context, qt *QueueType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if qt.TeamCount < 2 || qt.TeamSize < 1 {
		return fmt.Errorf("invalid queue type %q: %d teams of %d", qt.Name, qt.TeamCount, qt.TeamSize)
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO queue_types (tenant_id, name, team_count, team_size) VALUES (?, ?, ?, ?)",
		qt.TenantID, qt.Name, qt.TeamCount, qt.TeamSize)
	if err != nil {
		return fmt.Errorf("failed to insert queue type: %w", err)
	}
	qt.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}
	log.Info("Created queue type", "queueTypeID", qt.ID, "tenantID", qt.TenantID, "name", qt.Name)
	return nil
}

func (s *store) GetQueueType(ctx context.Context, queueTypeID int64) (*QueueType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var qt QueueType
	err := s.db.QueryRowContext(ctx,
		"SELECT id, tenant_id, name, team_count, team_size FROM queue_types WHERE id = ?", queueTypeID,
	).Scan(&qt.ID, &qt.TenantID, &qt.Name, &qt.TeamCount, &qt.TeamSize)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrQueueTypeNotFound, queueTypeID)
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &qt, nil
}

func (s *store) UpsertPlayers(ctx context.Context, players []Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := upsertPlayers(ctx, tx, players); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertPlayers(ctx context.Context, tx *sql.Tx, players []Player) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO players (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = CASE WHEN excluded.name != '' THEN excluded.name ELSE players.name END
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range players {
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name); err != nil {
			return fmt.Errorf("failed to upsert player %s: %w", p.ID, err)
		}
	}
	return nil
}

// CreateMatch stores a new unrated match and assigns its id. Players referenced
// by the match are created if they are not known yet.
func (s *store) CreateMatch(ctx context.Context, match *Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(match.Teams) < 2 {
		return fmt.Errorf("match needs at least two teams, got %d", len(match.Teams))
	}
	if match.StartedAt == 0 {
		match.StartedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var players []Player
	for _, t := range match.Teams {
		for _, p := range t.Players {
			players = append(players, Player{ID: p.PlayerID, Name: p.Name})
		}
	}
	if err := upsertPlayers(ctx, tx, players); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO matches (tenant_id, queue_type_id, started_at, rated) VALUES (?, ?, ?, 0)",
		match.TenantID, match.QueueTypeID, match.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for i := range match.Teams {
		team := &match.Teams[i]
		team.Index = i
		team.Outcome = OutcomeUnset
		if team.Name == "" {
			team.Name = fmt.Sprintf("Team %d", i+1)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO match_teams (match_id, team_idx, name) VALUES (?, ?, ?)", id, i, team.Name); err != nil {
			return fmt.Errorf("failed to insert team %d: %w", i, err)
		}
		for j := range team.Players {
			team.Players[j].Before, team.Players[j].After = nil, nil
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO match_players (match_id, team_idx, player_id) VALUES (?, ?, ?)",
				id, i, team.Players[j].PlayerID); err != nil {
				return fmt.Errorf("failed to insert player %s: %w", team.Players[j].PlayerID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	match.ID = id
	match.Rated = false
	log.Debug("Created match", "matchID", id, "queueTypeID", match.QueueTypeID, "teams", len(match.Teams))
	return nil
}

func (s *store) GetMatch(ctx context.Context, tenantID string, matchID int64) (*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, tenant_id, queue_type_id, started_at, rated FROM matches WHERE id = ? AND tenant_id = ?",
		matchID, tenantID)
	match, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrMatchNotFound, matchID)
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if err := s.loadTeams(ctx, match); err != nil {
		return nil, err
	}
	return match, nil
}

func (s *store) GetFollowingRatedMatches(ctx context.Context, queueTypeID, afterMatchID int64, limit int) ([]*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, queue_type_id, started_at, rated
		FROM matches
		WHERE queue_type_id = ? AND rated = 1 AND id > ?
		ORDER BY id ASC
		LIMIT ?
	`, queueTypeID, afterMatchID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query following matches: %w", err)
	}
	var matches []*Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		matches = append(matches, match)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	for _, match := range matches {
		if err := s.loadTeams(ctx, match); err != nil {
			return nil, err
		}
	}
	return matches, nil
}

func (s *store) GetLatestPriorRatings(ctx context.Context, queueTypeID, beforeMatchID int64, playerIDs []string) (map[string]PlayerSkill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	priors := make(map[string]PlayerSkill)
	if len(playerIDs) == 0 {
		return priors, nil
	}

	args := []any{queueTypeID, beforeMatchID}
	for _, id := range playerIDs {
		args = append(args, id)
	}
	query := fmt.Sprintf(`
		SELECT mp.player_id, mp.mu_after, mp.sigma_after, mp.match_id
		FROM match_players mp
		JOIN matches m ON m.id = mp.match_id
		WHERE m.queue_type_id = ? AND m.rated = 1 AND m.id < ?
			AND mp.mu_after IS NOT NULL AND mp.sigma_after IS NOT NULL
			AND mp.player_id IN (%s)
		ORDER BY mp.match_id DESC
	`, placeholders(len(playerIDs)))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query prior ratings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ps PlayerSkill
		if err := rows.Scan(&ps.PlayerID, &ps.Mu, &ps.Sigma, &ps.LastMatchID); err != nil {
			return nil, err
		}
		if _, seen := priors[ps.PlayerID]; seen {
			continue
		}
		ps.QueueTypeID = queueTypeID
		priors[ps.PlayerID] = ps
	}
	return priors, rows.Err()
}

// Commit writes the batch in a single transaction. Busy or locked database
// errors are retried with exponential backoff until the commit timeout expires.
func (s *store) Commit(ctx context.Context, batch *RatingBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.commitTimeout)
	defer cancel()

	backoff := retry.WithMaxRetries(s.commitRetries, retry.NewExponential(commitBackoffBase))
	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := s.commit(ctx, batch)
		if isBusy(err) {
			log.Warn("Database busy, retrying commit", "matchID", batch.TargetMatchID, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

func (s *store) commit(ctx context.Context, batch *RatingBatch) error {
	tx, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := writeSnapshots(ctx, tx, batch.Updates); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM match_results WHERE match_id = ?", batch.TargetMatchID); err != nil {
		return fmt.Errorf("failed to clear results: %w", err)
	}
	rated := 0
	switch batch.Operation {
	case OperationRate:
		rated = 1
		for i, outcome := range batch.Outcomes {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO match_results (match_id, team_idx, outcome) VALUES (?, ?, ?)",
				batch.TargetMatchID, i, string(outcome)); err != nil {
				return fmt.Errorf("failed to insert result for team %d: %w", i, err)
			}
		}
	case OperationUnrate:
		if _, err := tx.ExecContext(ctx, `
			UPDATE match_players
			SET mu_before = NULL, sigma_before = NULL, mu_after = NULL, sigma_after = NULL
			WHERE match_id = ?
		`, batch.TargetMatchID); err != nil {
			return fmt.Errorf("failed to clear snapshots: %w", err)
		}
	default:
		return fmt.Errorf("unknown operation %q", batch.Operation)
	}

	res, err := tx.ExecContext(ctx, "UPDATE matches SET rated = ? WHERE id = ?", rated, batch.TargetMatchID)
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrMatchNotFound, batch.TargetMatchID)
	}

	if err := writeSkills(ctx, tx, batch.QueueTypeID, batch.Skills); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM rating_reports WHERE match_id = ?", batch.TargetMatchID); err != nil {
		return fmt.Errorf("failed to clear rating reports: %w", err)
	}

	return tx.Commit()
}

func writeSnapshots(ctx context.Context, tx *sql.Tx, updates []MatchUpdate) error {
	stmt, err := tx.PrepareContext(ctx, `
		UPDATE match_players
		SET mu_before = ?, sigma_before = ?, mu_after = ?, sigma_after = ?
		WHERE match_id = ? AND player_id = ?
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range updates {
		for _, snap := range u.Snapshots {
			res, err := stmt.ExecContext(ctx,
				snap.Before.Mu, snap.Before.Sigma, snap.After.Mu, snap.After.Sigma, u.MatchID, snap.PlayerID)
			if err != nil {
				return fmt.Errorf("failed to write snapshot for %s in match %d: %w", snap.PlayerID, u.MatchID, err)
			}
			if n, err := res.RowsAffected(); err == nil && n == 0 {
				return fmt.Errorf("player %s did not take part in match %d", snap.PlayerID, u.MatchID)
			}
		}
	}
	return nil
}

func writeSkills(ctx context.Context, tx *sql.Tx, queueTypeID int64, skills map[string]*PlayerSkill) error {
	upsert, err := tx.PrepareContext(ctx, `
		INSERT INTO player_skills (player_id, queue_type_id, mu, sigma, last_match_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(player_id, queue_type_id) DO UPDATE SET
			mu = excluded.mu,
			sigma = excluded.sigma,
			last_match_id = excluded.last_match_id,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}
	defer upsert.Close()

	playerIDs := make([]string, 0, len(skills))
	for id := range skills {
		playerIDs = append(playerIDs, id)
	}
	sort.Strings(playerIDs)

	now := time.Now().Unix()
	for _, id := range playerIDs {
		ps := skills[id]
		if ps == nil {
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM player_skills WHERE player_id = ? AND queue_type_id = ?", id, queueTypeID); err != nil {
				return fmt.Errorf("failed to delete skill for %s: %w", id, err)
			}
			continue
		}
		if _, err := upsert.ExecContext(ctx, id, queueTypeID, ps.Mu, ps.Sigma, ps.LastMatchID, now); err != nil {
			return fmt.Errorf("failed to write skill for %s: %w", id, err)
		}
	}
	return nil
}

// ListPlayerSkills returns the current ratings of a queue type, best ordinal first.
func (s *store) ListPlayerSkills(ctx context.Context, queueTypeID int64) ([]PlayerSkill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT ps.player_id, p.name, ps.queue_type_id, ps.mu, ps.sigma, ps.last_match_id, ps.updated_at
		FROM player_skills ps
		JOIN players p ON p.id = ps.player_id
		WHERE ps.queue_type_id = ?
		ORDER BY (ps.mu - 3 * ps.sigma) DESC, ps.player_id ASC
	`, queueTypeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var skills []PlayerSkill
	for rows.Next() {
		var ps PlayerSkill
		if err := rows.Scan(&ps.PlayerID, &ps.PlayerName, &ps.QueueTypeID, &ps.Mu, &ps.Sigma, &ps.LastMatchID, &ps.UpdatedAt); err != nil {
			return nil, err
		}
		skills = append(skills, ps)
	}
	return skills, rows.Err()
}

func (s *store) GetPlayerSkill(ctx context.Context, playerID string, queueTypeID int64) (*PlayerSkill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ps PlayerSkill
	err := s.db.QueryRowContext(ctx, `
		SELECT ps.player_id, p.name, ps.queue_type_id, ps.mu, ps.sigma, ps.last_match_id, ps.updated_at
		FROM player_skills ps
		JOIN players p ON p.id = ps.player_id
		WHERE ps.player_id = ? AND ps.queue_type_id = ?
	`, playerID, queueTypeID).Scan(&ps.PlayerID, &ps.PlayerName, &ps.QueueTypeID, &ps.Mu, &ps.Sigma, &ps.LastMatchID, &ps.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSkillNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &ps, nil
}

func (s *store) AddRatingReport(ctx context.Context, report *RatingReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.CreatedAt == 0 {
		report.CreatedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO rating_reports (id, match_id, reporter_id, team_idx, outcome, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		report.ID, report.MatchID, report.ReporterID, report.TeamIndex, string(report.Outcome), report.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert rating report: %w", err)
	}
	return nil
}

func (s *store) ListRatingReports(ctx context.Context, matchID int64) ([]RatingReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, match_id, reporter_id, team_idx, outcome, created_at
		FROM rating_reports
		WHERE match_id = ?
		ORDER BY created_at ASC, id ASC
	`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []RatingReport
	for rows.Next() {
		var r RatingReport
		var outcome string
		if err := rows.Scan(&r.ID, &r.MatchID, &r.ReporterID, &r.TeamIndex, &outcome, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Outcome = Outcome(outcome)
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func scanMatch(scanner interface{ Scan(...any) error }) (*Match, error) {
	var m Match
	var rated int
	if err := scanner.Scan(&m.ID, &m.TenantID, &m.QueueTypeID, &m.StartedAt, &rated); err != nil {
		return nil, err
	}
	m.Rated = rated != 0
	return &m, nil
}

// loadTeams fills in teams, outcomes and participants. Each query's rows are
// closed before the next one runs so a single-connection pool never blocks.
func (s *store) loadTeams(ctx context.Context, m *Match) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT team_idx, name FROM match_teams WHERE match_id = ? ORDER BY team_idx", m.ID)
	if err != nil {
		return fmt.Errorf("failed to query teams: %w", err)
	}
	byIndex := make(map[int]int)
	m.Teams = nil
	for rows.Next() {
		var t Team
		if err := rows.Scan(&t.Index, &t.Name); err != nil {
			rows.Close()
			return err
		}
		byIndex[t.Index] = len(m.Teams)
		m.Teams = append(m.Teams, t)
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, "SELECT team_idx, outcome FROM match_results WHERE match_id = ?", m.ID)
	if err != nil {
		return fmt.Errorf("failed to query results: %w", err)
	}
	for rows.Next() {
		var idx int
		var outcome string
		if err := rows.Scan(&idx, &outcome); err != nil {
			rows.Close()
			return err
		}
		if pos, ok := byIndex[idx]; ok {
			m.Teams[pos].Outcome = Outcome(outcome)
		}
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `
		SELECT mp.team_idx, mp.player_id, p.name, mp.mu_before, mp.sigma_before, mp.mu_after, mp.sigma_after
		FROM match_players mp
		JOIN players p ON p.id = mp.player_id
		WHERE mp.match_id = ?
		ORDER BY mp.team_idx, mp.rowid
	`, m.ID)
	if err != nil {
		return fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var idx int
		var ref PlayerRef
		var muBefore, sigmaBefore, muAfter, sigmaAfter sql.NullFloat64
		if err := rows.Scan(&idx, &ref.PlayerID, &ref.Name, &muBefore, &sigmaBefore, &muAfter, &sigmaAfter); err != nil {
			return err
		}
		ref.Before = nullRating(muBefore, sigmaBefore)
		ref.After = nullRating(muAfter, sigmaAfter)
		pos, ok := byIndex[idx]
		if !ok {
			log.Error("Participant references unknown team", "matchID", m.ID, "playerID", ref.PlayerID, "team", idx)
			continue
		}
		m.Teams[pos].Players = append(m.Teams[pos].Players, ref)
	}
	return rows.Err()
}

func nullRating(mu, sigma sql.NullFloat64) *skill.Rating {
	if !mu.Valid || !sigma.Valid {
		return nil
	}
	return &skill.Rating{Mu: mu.Float64, Sigma: sigma.Float64}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
