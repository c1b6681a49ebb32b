// Package model defines the shared data structures for the bump bot.
package model

import "time"

// Posting is a job listing known to the system. Rows are upserted by ID once
// per discovery pass and never deleted.
type Posting struct {
	ID         string
	Title      string
	LastSeenAt time.Time // UTC
}

// BumpAttempt is one append-only record of an attempted (or simulated) bump.
//
// CoinsUsed is nil when the cost could not be determined. It is exactly 0
// only for OutcomeInsufficientCoins and a positive integer only for
// OutcomeBumped.
type BumpAttempt struct {
	ID          int64
	PostingID   string
	AttemptedAt time.Time // UTC, shared across all attempts in one cycle
	CoinsUsed   *int
	Outcome     Outcome
}

// Coins is a convenience constructor for BumpAttempt.CoinsUsed.
func Coins(n int) *int { return &n }
