package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/hevcstat/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS crawl_state (
	patent_id       TEXT PRIMARY KEY,
	state           TEXT NOT NULL DEFAULT 'unseen',
	attempts        INTEGER NOT NULL DEFAULT 0,
	empty           INTEGER NOT NULL DEFAULT 0,
	last_error      TEXT NOT NULL DEFAULT '',
	run_id          TEXT NOT NULL DEFAULT '',
	updated_at      TEXT NOT NULL DEFAULT '',
	next_attempt_at TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS crawl_state_state ON crawl_state (state);
`

const upsertState = `
INSERT INTO crawl_state (patent_id, state, attempts, empty, last_error, run_id, updated_at, next_attempt_at)
VALUES (:patent_id, :state, :attempts, :empty, :last_error, :run_id, :updated_at, :next_attempt_at)
ON CONFLICT(patent_id) DO UPDATE SET
	state = excluded.state,
	attempts = excluded.attempts,
	empty = excluded.empty,
	last_error = excluded.last_error,
	run_id = excluded.run_id,
	updated_at = excluded.updated_at,
	next_attempt_at = excluded.next_attempt_at
`

// statesPerQuery bounds the IN list of a single lookup
const statesPerQuery = 500

// stateRow is the SQLite representation of model.CrawlState
type stateRow struct {
	PatentID      string `db:"patent_id"`
	State         string `db:"state"`
	Attempts      int    `db:"attempts"`
	Empty         bool   `db:"empty"`
	LastError     string `db:"last_error"`
	RunID         string `db:"run_id"`
	UpdatedAt     string `db:"updated_at"`
	NextAttemptAt string `db:"next_attempt_at"`
}

func toRow(st model.CrawlState) stateRow {
	return stateRow{
		PatentID:      st.PatentID,
		State:         string(st.Status),
		Attempts:      st.Attempts,
		Empty:         st.Empty,
		LastError:     st.LastError,
		RunID:         st.RunID,
		UpdatedAt:     formatTime(st.UpdatedAt),
		NextAttemptAt: formatTime(st.NextAttemptAt),
	}
}

func (r stateRow) state() model.CrawlState {
	return model.CrawlState{
		PatentID:      r.PatentID,
		Status:        model.CrawlStatus(r.State),
		Attempts:      r.Attempts,
		Empty:         r.Empty,
		LastError:     r.LastError,
		RunID:         r.RunID,
		UpdatedAt:     parseTime(r.UpdatedAt),
		NextAttemptAt: parseTime(r.NextAttemptAt),
	}
}

// SQLite is a Ledger persisted in a SQLite database file
type SQLite struct {
	db *sqlx.DB
}

// OpenSQLite opens (creating if needed) the ledger database at path
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Get returns the state for id
func (s *SQLite) Get(ctx context.Context, id string) (model.CrawlState, error) {
	states, err := s.States(ctx, []string{id})
	if err != nil {
		return model.CrawlState{}, err
	}
	return states[id], nil
}

// States returns the state of every id
func (s *SQLite) States(ctx context.Context, ids []string) (map[string]model.CrawlState, error) {
	out := make(map[string]model.CrawlState, len(ids))
	for _, id := range ids {
		out[id] = unseen(id)
	}

	for start := 0; start < len(ids); start += statesPerQuery {
		end := min(start+statesPerQuery, len(ids))

		query, args, err := sqlx.In(`SELECT * FROM crawl_state WHERE patent_id IN (?)`, ids[start:end])
		if err != nil {
			return nil, fmt.Errorf("build query: %w", err)
		}

		var rows []stateRow
		if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("select states: %w", err)
		}
		for _, r := range rows {
			out[r.PatentID] = r.state()
		}
	}
	return out, nil
}

// Put upserts states in a single transaction
func (s *SQLite) Put(ctx context.Context, states ...model.CrawlState) error {
	if len(states) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareNamedContext(ctx, upsertState)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, st := range states {
		if _, err := stmt.ExecContext(ctx, toRow(st)); err != nil {
			return fmt.Errorf("upsert %s: %w", st.PatentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Counts returns the number of IDs in each status
func (s *SQLite) Counts(ctx context.Context) (map[model.CrawlStatus]int, error) {
	var rows []struct {
		State string `db:"state"`
		N     int    `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT state, COUNT(*) AS n FROM crawl_state GROUP BY state`); err != nil {
		return nil, fmt.Errorf("count states: %w", err)
	}

	counts := make(map[model.CrawlStatus]int, len(rows))
	for _, r := range rows {
		counts[model.CrawlStatus(r.State)] = r.N
	}
	return counts, nil
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
