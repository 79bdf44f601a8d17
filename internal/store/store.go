package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/elonfeng/clubradar/pkg/engagement"
	"github.com/elonfeng/clubradar/pkg/grouping"
	"github.com/elonfeng/clubradar/pkg/score"
)

// ErrNotFound is returned when a run or record does not exist.
var ErrNotFound = errors.New("not found")

// Group kinds stored in club_groups.
const (
	KindRule    = "rule"
	KindCluster = "cluster"
)

// Run is one persisted evaluation run.
type Run struct {
	ID           int64     `db:"id" json:"id,string"`
	Model        string    `db:"model" json:"model"`
	StartedAt    time.Time `db:"started_at" json:"started_at"`
	FinishedAt   time.Time `db:"finished_at" json:"finished_at"`
	ClubCount    int       `db:"club_count" json:"club_count"`
	GroupCount   int       `db:"group_count" json:"group_count"`
	LeaderClubID int       `db:"leader_club_id" json:"leader_club_id"`
	WarningsJSON string    `db:"warnings" json:"-"`
	Warnings     []string  `db:"-" json:"warnings"`

	Rankings []score.Evaluation         `db:"-" json:"-"`
	Groups   []grouping.Group           `db:"-" json:"-"`
	Clusters []grouping.Group           `db:"-" json:"-"`
	Chat     map[int]engagement.Metrics `db:"-" json:"-"`
}

// Store is the persistence interface.
type Store interface {
	SaveRun(ctx context.Context, run *Run) error
	LatestRun(ctx context.Context) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	ListRankings(ctx context.Context, runID int64) ([]score.Evaluation, error)
	ListGroups(ctx context.Context, runID int64, kind string) ([]grouping.Group, error)
	GetChatMetrics(ctx context.Context, runID int64, clubID int) (*engagement.Metrics, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun writes a run with its rankings, groups and chat metrics in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	warnings := run.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	warningsJSON, _ := json.Marshal(warnings)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run %d: %w", run.ID, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, model, started_at, finished_at, club_count, group_count, leader_club_id, warnings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Model, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.ClubCount, run.GroupCount,
		run.LeaderClubID, string(warningsJSON))
	if err != nil {
		return fmt.Errorf("insert run %d: %w", run.ID, err)
	}

	for _, ev := range run.Rankings {
		subJSON, _ := json.Marshal(ev.SubScores)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO rankings (run_id, position, club_id, club_name, overall_score, sub_scores)
			VALUES (?, ?, ?, ?, ?, ?)
		`, run.ID, ev.Rank, ev.ClubID, ev.ClubName, ev.Overall, string(subJSON))
		if err != nil {
			return fmt.Errorf("insert ranking %d/%d: %w", run.ID, ev.ClubID, err)
		}
	}

	if err := insertGroups(ctx, tx, run.ID, KindRule, run.Groups); err != nil {
		return err
	}
	if err := insertGroups(ctx, tx, run.ID, KindCluster, run.Clusters); err != nil {
		return err
	}

	for _, id := range slices.Sorted(maps.Keys(run.Chat)) {
		m := run.Chat[id]
		metricsJSON, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode chat metrics %d: %w", id, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO chat_metrics (run_id, club_id, total_messages, unique_senders, engagement_score, response_rate, metrics)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, run.ID, id, m.TotalMessages, m.UniqueSenders, m.EngagementScore,
			m.Responses.ResponseRatePercentage, string(metricsJSON))
		if err != nil {
			return fmt.Errorf("insert chat metrics %d/%d: %w", run.ID, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %d: %w", run.ID, err)
	}
	return nil
}

func insertGroups(ctx context.Context, tx *sqlx.Tx, runID int64, kind string, groups []grouping.Group) error {
	for i, g := range groups {
		idsJSON, _ := json.Marshal(g.ClubIDs)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO club_groups (run_id, kind, position, group_name, description, club_ids, similarity_score)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, runID, kind, i, g.Name, g.Description, string(idsJSON), g.Similarity)
		if err != nil {
			return fmt.Errorf("insert %s group %q: %w", kind, g.Name, err)
		}
	}
	return nil
}

func (s *SQLiteStore) LatestRun(ctx context.Context) (*Run, error) {
	var run Run
	err := s.db.GetContext(ctx, &run, "SELECT * FROM runs ORDER BY finished_at DESC, id DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	json.Unmarshal([]byte(run.WarningsJSON), &run.Warnings)
	return &run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	var runs []Run
	if err := s.db.SelectContext(ctx, &runs,
		"SELECT * FROM runs ORDER BY finished_at DESC, id DESC LIMIT ?", limit); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	for i := range runs {
		json.Unmarshal([]byte(runs[i].WarningsJSON), &runs[i].Warnings)
	}
	return runs, nil
}

type rankingRow struct {
	RunID     int64   `db:"run_id"`
	Position  int     `db:"position"`
	ClubID    int     `db:"club_id"`
	ClubName  string  `db:"club_name"`
	Overall   float64 `db:"overall_score"`
	SubScores string  `db:"sub_scores"`
}

func (s *SQLiteStore) ListRankings(ctx context.Context, runID int64) ([]score.Evaluation, error) {
	var rows []rankingRow
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM rankings WHERE run_id = ? ORDER BY position", runID); err != nil {
		return nil, fmt.Errorf("list rankings %d: %w", runID, err)
	}

	out := make([]score.Evaluation, len(rows))
	for i, r := range rows {
		out[i] = score.Evaluation{Rank: r.Position, ClubID: r.ClubID, ClubName: r.ClubName, Overall: r.Overall}
		json.Unmarshal([]byte(r.SubScores), &out[i].SubScores)
	}
	return out, nil
}

type groupRow struct {
	RunID       int64   `db:"run_id"`
	Kind        string  `db:"kind"`
	Position    int     `db:"position"`
	Name        string  `db:"group_name"`
	Description string  `db:"description"`
	ClubIDs     string  `db:"club_ids"`
	Similarity  float64 `db:"similarity_score"`
}

func (s *SQLiteStore) ListGroups(ctx context.Context, runID int64, kind string) ([]grouping.Group, error) {
	if kind == "" {
		kind = KindRule
	}

	var rows []groupRow
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM club_groups WHERE run_id = ? AND kind = ? ORDER BY position", runID, kind); err != nil {
		return nil, fmt.Errorf("list groups %d: %w", runID, err)
	}

	out := make([]grouping.Group, len(rows))
	for i, r := range rows {
		out[i] = grouping.Group{Name: r.Name, Description: r.Description, Similarity: r.Similarity}
		json.Unmarshal([]byte(r.ClubIDs), &out[i].ClubIDs)
	}
	return out, nil
}

func (s *SQLiteStore) GetChatMetrics(ctx context.Context, runID int64, clubID int) (*engagement.Metrics, error) {
	var raw string
	err := s.db.GetContext(ctx, &raw,
		"SELECT metrics FROM chat_metrics WHERE run_id = ? AND club_id = ?", runID, clubID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chat metrics %d/%d: %w", runID, clubID, err)
	}

	var m engagement.Metrics
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("decode chat metrics %d/%d: %w", runID, clubID, err)
	}
	return &m, nil
}
