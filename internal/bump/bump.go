// Package bump implements the bump execution engine: posting discovery
// against a lazily-mounted DOM, the confirmation-dialog state machine, coin
// reconciliation from multiple disagreeing sources, and the per-cycle
// orchestration that writes every outcome through the store.
//
// Every fallback-heavy step is an ordered chain of strategies evaluated
// left to right, first success wins. DOM and timeout failures are folded
// into outcome classifications or not-found sentinels at the component that
// issued the wait — they never escape as raw driver errors.
package bump

import "time"

// SessionContext carries per-cycle portal state, most importantly the
// employer company ID (configured or auto-detected). Threaded explicitly
// through the navigator and orchestrator so nothing hides in package state.
type SessionContext struct {
	CompanyID string
}

// Timeouts bounds every cooperative wait in the pipeline. All waits are
// polls with explicit deadlines; none block unboundedly.
type Timeouts struct {
	Visible    time.Duration // short waits for a specific control to show
	Render     time.Duration // render-readiness gate after lazy mount
	Quiescence time.Duration // page-load settling
	ModalOpen  time.Duration // dialog readiness after the bump click
	ModalClose time.Duration // dialog dismissal after confirm
}

// pollEvery is the shared predicate-poll interval.
const pollEvery = 150 * time.Millisecond

// DefaultTimeouts returns the production bounds.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Visible:    1500 * time.Millisecond,
		Render:     4 * time.Second,
		Quiescence: 5 * time.Second,
		ModalOpen:  8 * time.Second,
		ModalClose: 10 * time.Second,
	}
}
