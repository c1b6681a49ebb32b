package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SKUMP0/fastjob-bot/internal/model"
	"github.com/SKUMP0/fastjob-bot/internal/store"
)

func openTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "fastjob.db"), zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertPosting_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertPosting(ctx, model.Posting{ID: "8123456", Title: "Kitchen Crew", LastSeenAt: first}))

	// Same ID again: title and timestamp refresh, no duplicate row.
	second := first.Add(time.Hour)
	require.NoError(t, s.UpsertPosting(ctx, model.Posting{ID: "8123456", Title: "Kitchen Crew (Senior)", LastSeenAt: second}))

	postings, err := s.ListPostings(ctx)
	require.NoError(t, err)
	require.Len(t, postings, 1)
	require.Equal(t, "Kitchen Crew (Senior)", postings[0].Title)
	require.Equal(t, second, postings[0].LastSeenAt)
}

func TestInsertAttempt_AndFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	when := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertAttempt(ctx, model.BumpAttempt{
		PostingID: "8123456", AttemptedAt: when, CoinsUsed: model.Coins(5), Outcome: model.OutcomeBumped,
	}))
	require.NoError(t, s.InsertAttempt(ctx, model.BumpAttempt{
		PostingID: "8123456", AttemptedAt: when, Outcome: model.OutcomeDryRun,
	}))
	require.NoError(t, s.InsertAttempt(ctx, model.BumpAttempt{
		PostingID: "9999999", AttemptedAt: when.Add(time.Hour), CoinsUsed: model.Coins(0), Outcome: model.OutcomeInsufficientCoins,
	}))

	all, err := s.ListAttempts(ctx, store.AttemptFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest first.
	require.Equal(t, model.OutcomeInsufficientCoins, all[0].Outcome)
	require.NotNil(t, all[0].CoinsUsed)
	require.Equal(t, 0, *all[0].CoinsUsed)

	byPosting, err := s.ListAttempts(ctx, store.AttemptFilter{PostingID: "8123456"})
	require.NoError(t, err)
	require.Len(t, byPosting, 2)

	byOutcome, err := s.ListAttempts(ctx, store.AttemptFilter{Outcome: model.OutcomeBumped})
	require.NoError(t, err)
	require.Len(t, byOutcome, 1)
	require.Equal(t, 5, *byOutcome[0].CoinsUsed)

	since, err := s.ListAttempts(ctx, store.AttemptFilter{Since: when.Add(30 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, since, 1)

	// Dry-run rows store NULL coins.
	dry, err := s.ListAttempts(ctx, store.AttemptFilter{Outcome: model.OutcomeDryRun})
	require.NoError(t, err)
	require.Len(t, dry, 1)
	require.Nil(t, dry[0].CoinsUsed)
}

func TestStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	when := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, s.UpsertPosting(ctx, model.Posting{ID: "1000001", Title: "A", LastSeenAt: when}))
	require.NoError(t, s.UpsertPosting(ctx, model.Posting{ID: "1000002", Title: "B", LastSeenAt: when}))

	require.NoError(t, s.InsertAttempt(ctx, model.BumpAttempt{PostingID: "1000001", AttemptedAt: when, CoinsUsed: model.Coins(5), Outcome: model.OutcomeBumped}))
	require.NoError(t, s.InsertAttempt(ctx, model.BumpAttempt{PostingID: "1000002", AttemptedAt: when, CoinsUsed: model.Coins(3), Outcome: model.OutcomeBumped}))
	require.NoError(t, s.InsertAttempt(ctx, model.BumpAttempt{PostingID: "1000002", AttemptedAt: when, Outcome: model.OutcomeBumpedUnknown}))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, st.Postings)
	require.Equal(t, 3, st.Attempts)
	require.Equal(t, 8, st.CoinsSpent)
	require.Equal(t, 2, st.ByOutcome["bumped"])
	require.Equal(t, 1, st.ByOutcome["bumped-unknown-coins"])
}
