package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/SKUMP0/fastjob-bot/internal/model"
)

const postgresDDL = `
CREATE TABLE IF NOT EXISTS postings (
  id            TEXT PRIMARY KEY,
  title         TEXT NOT NULL,
  last_seen_at  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS bump_attempts (
  id            BIGSERIAL PRIMARY KEY,
  posting_id    TEXT NOT NULL,
  attempted_at  TEXT NOT NULL,
  coins_used    INTEGER,
  outcome       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bump_attempts_posting ON bump_attempts(posting_id);
`

// PostgresStore keeps audit data in a shared PostgreSQL database. Selected by
// setting DATABASE_URL; the schema mirrors the SQLite backend.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *zap.SugaredLogger
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres creates and verifies a pgxpool connection pool, then applies
// the schema.
func OpenPostgres(ctx context.Context, databaseURL string, log *zap.SugaredLogger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "pgxpool.New")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "postgres ping")
	}
	if _, err := pool.Exec(ctx, postgresDDL); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "apply schema")
	}

	log.Infow("postgres store opened")
	return &PostgresStore{pool: pool, log: log}, nil
}

// UpsertPosting inserts or refreshes a posting by ID.
func (s *PostgresStore) UpsertPosting(ctx context.Context, p model.Posting) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO postings(id, title, last_seen_at) VALUES($1, $2, $3)
		 ON CONFLICT(id) DO UPDATE SET title = EXCLUDED.title, last_seen_at = EXCLUDED.last_seen_at`,
		p.ID, p.Title, formatTime(p.LastSeenAt),
	)
	return errors.Wrap(err, "upsert posting")
}

// InsertAttempt appends one bump attempt row.
func (s *PostgresStore) InsertAttempt(ctx context.Context, a model.BumpAttempt) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO bump_attempts(posting_id, attempted_at, coins_used, outcome) VALUES($1, $2, $3, $4)`,
		a.PostingID, formatTime(a.AttemptedAt), a.CoinsUsed, string(a.Outcome),
	)
	return errors.Wrap(err, "insert bump attempt")
}

// ListPostings returns all postings, most recently seen first.
func (s *PostgresStore) ListPostings(ctx context.Context) ([]model.Posting, error) {
	rows, err := s.pool.Query(ctx,
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
func (s *PostgresStore) ListAttempts(ctx context.Context, f AttemptFilter) ([]model.BumpAttempt, error) {
	query := `SELECT id, posting_id, attempted_at, coins_used, outcome FROM bump_attempts`
	var conds []string
	var args []any
	if f.PostingID != "" {
		args = append(args, f.PostingID)
		conds = append(conds, fmt.Sprintf("posting_id = $%d", len(args)))
	}
	if f.Outcome != "" {
		args = append(args, string(f.Outcome))
		conds = append(conds, fmt.Sprintf("outcome = $%d", len(args)))
	}
	if !f.Since.IsZero() {
		args = append(args, formatTime(f.Since))
		conds = append(conds, fmt.Sprintf("attempted_at >= $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query bump attempts")
	}
	defer rows.Close()

	attempts := make([]model.BumpAttempt, 0)
	for rows.Next() {
		var a model.BumpAttempt
		var attempted string
		var coins *int
		var outcome string
		if err := rows.Scan(&a.ID, &a.PostingID, &attempted, &coins, &outcome); err != nil {
			return nil, errors.Wrap(err, "scan bump attempt")
		}
		a.AttemptedAt = parseTime(attempted)
		a.CoinsUsed = coins
		o, err := model.ParseOutcome(outcome)
		if err != nil {
			return nil, err
		}
		a.Outcome = o
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// Stats aggregates totals for the dashboard.
func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	st := Stats{ByOutcome: map[string]int{}}

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM postings`).Scan(&st.Postings); err != nil {
		return st, errors.Wrap(err, "count postings")
	}

	rows, err := s.pool.Query(ctx,
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

	err = s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(coins_used), 0) FROM bump_attempts WHERE outcome = $1`,
		string(model.OutcomeBumped),
	).Scan(&st.CoinsSpent)
	return st, errors.Wrap(err, "sum coins")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
