package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/SKUMP0/fastjob-bot/internal/model"
)

const sqliteDDL = `
CREATE TABLE IF NOT EXISTS postings (
  id            TEXT PRIMARY KEY,
  title         TEXT NOT NULL,
  last_seen_at  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS bump_attempts (
  id            INTEGER PRIMARY KEY AUTOINCREMENT,
  posting_id    TEXT NOT NULL,
  attempted_at  TEXT NOT NULL,
  coins_used    INTEGER,
  outcome       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bump_attempts_posting ON bump_attempts(posting_id);
`

// SQLiteStore is the default file-backed store.
type SQLiteStore struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the SQLite database at path with WAL
// mode, foreign keys and a busy timeout, then applies the schema.
func OpenSQLite(path string, log *zap.SugaredLogger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create database directory")
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite database")
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "apply %s", pragma)
		}
	}

	if _, err := db.Exec(sqliteDDL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "apply schema")
	}

	log.Infow("sqlite store opened", "path", path)
	return &SQLiteStore{db: db, log: log}, nil
}

// UpsertPosting inserts or refreshes a posting by ID.
func (s *SQLiteStore) UpsertPosting(ctx context.Context, p model.Posting) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO postings(id, title, last_seen_at) VALUES(?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, last_seen_at = excluded.last_seen_at`,
		p.ID, p.Title, formatTime(p.LastSeenAt),
	)
	return errors.Wrap(err, "upsert posting")
}

// InsertAttempt appends one bump attempt row.
func (s *SQLiteStore) InsertAttempt(ctx context.Context, a model.BumpAttempt) error {
	var coins any
	if a.CoinsUsed != nil {
		coins = *a.CoinsUsed
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bump_attempts(posting_id, attempted_at, coins_used, outcome) VALUES(?, ?, ?, ?)`,
		a.PostingID, formatTime(a.AttemptedAt), coins, string(a.Outcome),
	)
	return errors.Wrap(err, "insert bump attempt")
}

// ListPostings returns all postings, most recently seen first.
func (s *SQLiteStore) ListPostings(ctx context.Context) ([]model.Posting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, last_seen_at FROM postings ORDER BY last_seen_at DESC, id`)
	if err != nil {
		return nil, errors.Wrap(err, "query postings")
	}
	defer rows.Close()

	postings := make([]model.Posting, 0)
	for rows.Next() {
		var p model.Posting
		var seen string
		if err := rows.Scan(&p.ID, &p.Title, &seen); err != nil {
			return nil, errors.Wrap(err, "scan posting")
		}
		p.LastSeenAt = parseTime(seen)
		postings = append(postings, p)
	}
	return postings, rows.Err()
}

// ListAttempts returns attempts matching f, newest first.
func (s *SQLiteStore) ListAttempts(ctx context.Context, f AttemptFilter) ([]model.BumpAttempt, error) {
	query := `SELECT id, posting_id, attempted_at, coins_used, outcome FROM bump_attempts`
	var conds []string
	var args []any
	if f.PostingID != "" {
		conds = append(conds, "posting_id = ?")
		args = append(args, f.PostingID)
	}
	if f.Outcome != "" {
		conds = append(conds, "outcome = ?")
		args = append(args, string(f.Outcome))
	}
	if !f.Since.IsZero() {
		conds = append(conds, "attempted_at >= ?")
		args = append(args, formatTime(f.Since))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query bump attempts")
	}
	defer rows.Close()
	return scanAttempts(rows)
}

// Stats aggregates totals for the dashboard.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	st := Stats{ByOutcome: map[string]int{}}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM postings`).Scan(&st.Postings); err != nil {
		return st, errors.Wrap(err, "count postings")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM bump_attempts GROUP BY outcome`)
	if err != nil {
		return st, errors.Wrap(err, "count attempts")
	}
	defer rows.Close()
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return st, errors.Wrap(err, "scan outcome count")
		}
		st.ByOutcome[outcome] = n
		st.Attempts += n
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(coins_used), 0) FROM bump_attempts WHERE outcome = ?`,
		string(model.OutcomeBumped),
	).Scan(&st.CoinsSpent)
	return st, errors.Wrap(err, "sum coins")
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// scanAttempts drains a bump_attempts result set. Shared with nothing else;
// kept separate so both backends stay column-order aligned.
func scanAttempts(rows *sql.Rows) ([]model.BumpAttempt, error) {
	attempts := make([]model.BumpAttempt, 0)
	for rows.Next() {
		var a model.BumpAttempt
		var attempted string
		var coins sql.NullInt64
		var outcome string
		if err := rows.Scan(&a.ID, &a.PostingID, &attempted, &coins, &outcome); err != nil {
			return nil, errors.Wrap(err, "scan bump attempt")
		}
		a.AttemptedAt = parseTime(attempted)
		if coins.Valid {
			a.CoinsUsed = model.Coins(int(coins.Int64))
		}
		o, err := model.ParseOutcome(outcome)
		if err != nil {
			return nil, err
		}
		a.Outcome = o
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
