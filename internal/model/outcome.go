// Outcome is the closed classification of one bump attempt.
//
// Classification rules:
//
//	dry-run              simulation only, confirm never clicked
//	bumped               confirmed, coin cost reconciled
//	bumped-unknown-coins confirmed, no signal source yielded a cost
//	insufficient-coins   portal declined with the balance dialog, cost 0
//	modal-not-found      confirmation dialog never became ready
//	bump-failed          dialog opened but confirmation did not complete
package model

import "fmt"

// Outcome values mirror the outcome column in bump_attempts.
type Outcome string

const (
	OutcomeDryRun            Outcome = "dry-run"
	OutcomeBumped            Outcome = "bumped"
	OutcomeBumpedUnknown     Outcome = "bumped-unknown-coins"
	OutcomeInsufficientCoins Outcome = "insufficient-coins"
	OutcomeModalNotFound     Outcome = "modal-not-found"
	OutcomeBumpFailed        Outcome = "bump-failed"
)

// Outcomes lists every valid value, in reporting order.
var Outcomes = []Outcome{
	OutcomeDryRun,
	OutcomeBumped,
	OutcomeBumpedUnknown,
	OutcomeInsufficientCoins,
	OutcomeModalNotFound,
	OutcomeBumpFailed,
}

// ParseOutcome converts a raw string to an Outcome, returning an error for
// unknown values. The set is closed: no other string is ever written.
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(s)
	switch o {
	case OutcomeDryRun, OutcomeBumped, OutcomeBumpedUnknown,
		OutcomeInsufficientCoins, OutcomeModalNotFound, OutcomeBumpFailed:
		return o, nil
	}
	return "", fmt.Errorf("unknown bump outcome %q", s)
}

// CoinsValid reports whether coins satisfies the per-outcome invariant:
// exactly 0 for insufficient-coins, a non-negative integer for bumped, and
// absent for everything else.
func CoinsValid(o Outcome, coins *int) bool {
	switch o {
	case OutcomeInsufficientCoins:
		return coins != nil && *coins == 0
	case OutcomeBumped:
		return coins != nil && *coins >= 0
	default:
		return coins == nil
	}
}
