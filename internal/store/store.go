// Package store persists postings and bump attempts.
//
// Two backends implement the same Store interface: SQLite (default, a single
// local file) and PostgreSQL (selected by DATABASE_URL for deployments that
// keep audit data in a shared database). Postings are upserted by ID;
// bump_attempts is append-only and never mutated.
package store

import (
	"context"
	"time"

	"github.com/SKUMP0/fastjob-bot/internal/model"
)

// Store is the durable-state collaborator used by the cycle orchestrator and
// the reporting API.
type Store interface {
	UpsertPosting(ctx context.Context, p model.Posting) error
	InsertAttempt(ctx context.Context, a model.BumpAttempt) error

	ListPostings(ctx context.Context) ([]model.Posting, error)
	ListAttempts(ctx context.Context, f AttemptFilter) ([]model.BumpAttempt, error)
	Stats(ctx context.Context) (Stats, error)

	Close() error
}

// AttemptFilter narrows ListAttempts. Zero values mean "no filter".
type AttemptFilter struct {
	PostingID string
	Outcome   model.Outcome
	Since     time.Time
	Limit     int // 0 = no limit
}

// Stats is the aggregate view served by the dashboard.
type Stats struct {
	Postings   int               `json:"postings"`
	Attempts   int               `json:"attempts"`
	ByOutcome  map[string]int    `json:"byOutcome"`
	CoinsSpent int               `json:"coinsSpent"` // sum of coins_used over outcome='bumped'
}

// timeFormat is the stored timestamp shape: ISO-8601 UTC.
const timeFormat = time.RFC3339

func formatTime(t time.Time) string { return t.UTC().Format(timeFormat) }

func parseTime(s string) time.Time {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
