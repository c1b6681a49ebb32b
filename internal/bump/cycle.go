package bump

import (
	"context"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SKUMP0/fastjob-bot/internal/browser"
	"github.com/SKUMP0/fastjob-bot/internal/model"
	"github.com/SKUMP0/fastjob-bot/internal/store"
)

// SessionManager produces an authenticated session on a fresh page and
// persists its continuation state at cycle end.
type SessionManager interface {
	EnsureLoggedIn(ctx context.Context, page browser.Page) error
	Save(ctx context.Context, page browser.Page) error
}

// Publisher receives every recorded live attempt. Optional collaborator;
// publish failures never affect the cycle.
type Publisher interface {
	PublishAttempt(ctx context.Context, a model.BumpAttempt) error
}

// Orchestrator composes the bump pipeline into one pass over the discovered
// postings. One cycle owns one browser page and processes postings strictly
// in discovery order; each posting's outcome is durably recorded before the
// next posting begins.
type Orchestrator struct {
	Launcher browser.Launcher
	Store    store.Store
	Session  SessionManager
	Events   Publisher // nil disables event publishing

	BaseURL   string
	DataDir   string
	CompanyID string // operator's employer id; auto-detected when empty
	DryRun    bool
	LimitJobs int // 0 = no cap

	Timeouts Timeouts
	Log      *zap.SugaredLogger
}

// cycleDeps are the per-cycle components, built fresh around each page.
type cycleDeps struct {
	page    browser.Page
	locator *Locator
	gate    *Gate
	modal   *ModalController
	acct    *Accountant
	nav     *Navigator
	hygiene *Hygiene
	sess    *SessionContext
	when    time.Time
	log     *zap.SugaredLogger
}

// RunCycle executes one full discovery-and-bump pass. Posting-level failures
// are recorded as outcomes and never abort the remaining postings; only
// login and navigation failures are fatal to the cycle.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	cycleID := uuid.NewString()[:8]
	log := o.Log.With("cycle", cycleID)

	page, cleanup, err := o.Launcher.Launch(ctx)
	if err != nil {
		return errors.Wrap(err, "launch browser")
	}
	defer cleanup()

	if err := o.Session.EnsureLoggedIn(ctx, page); err != nil {
		return errors.Wrap(err, "authenticate")
	}

	d := &cycleDeps{
		page:    page,
		locator: NewLocator(page),
		gate:    NewGate(page, log, o.Timeouts),
		modal:   NewModalController(page, log, o.Timeouts),
		acct:    NewAccountant(page, log, o.BaseURL, o.Timeouts),
		nav:     NewNavigator(page, log, o.BaseURL, o.DataDir, o.Timeouts),
		hygiene: NewHygiene(page, log),
		sess:    &SessionContext{CompanyID: o.CompanyID},
		when:    time.Now().UTC(),
		log:     log,
	}

	if err := d.nav.EnsureListing(ctx, d.sess); err != nil {
		return err
	}

	d.hygiene.Sweep(ctx)
	saveScreenshot(ctx, page, filepath.Join(o.DataDir, "jobs_list_"+cycleID+".png"), log)

	cards, err := page.MarkAll(ctx, CardSel)
	if err != nil {
		return errors.Wrap(err, "discover posting cards")
	}
	log.Infow("postings discovered", "count", len(cards))

	if o.LimitJobs > 0 && len(cards) > o.LimitJobs {
		cards = cards[:o.LimitJobs]
	}

	for i := 0; i < len(cards); i++ {
		navigated := o.processPosting(ctx, d, cards[i])
		d.hygiene.Sweep(ctx)

		if navigated && i+1 < len(cards) {
			// The page loaded a fresh document, which wiped the discovery
			// marks; re-tag the cards and resume at the next index.
			refreshed, err := page.MarkAll(ctx, CardSel)
			if err != nil {
				log.Warnw("re-marking posting cards failed", "err", err)
				continue
			}
			if o.LimitJobs > 0 && len(refreshed) > o.LimitJobs {
				refreshed = refreshed[:o.LimitJobs]
			}
			cards = refreshed
		}
	}

	// Session continuation is persisted regardless of per-posting failures.
	if err := o.Session.Save(ctx, page); err != nil {
		log.Warnw("persisting session state failed", "err", err)
	}

	log.Infow("cycle complete", "processed", len(cards))
	return nil
}

// processPosting runs the full pipeline for one card. Never returns an
// error: failures become recorded outcomes or logged skips. Reports whether
// the pipeline navigated away from the listing page mid-posting.
func (o *Orchestrator) processPosting(ctx context.Context, d *cycleDeps, card string) bool {
	title := d.locator.ExtractTitle(ctx, card)
	id, ok := d.locator.ExtractID(ctx, card)
	if !ok {
		d.log.Warnw("skipping posting without identifier", "title", title)
		return false
	}
	if id == d.sess.CompanyID {
		d.log.Infow("skipping company account entry", "id", id, "title", title)
		return false
	}

	if err := o.Store.UpsertPosting(ctx, model.Posting{ID: id, Title: title, LastSeenAt: d.when}); err != nil {
		d.log.Errorw("posting upsert failed", "id", id, "err", err)
	}

	bumpSel, hasBump := d.gate.FindBumpControl(ctx, card)

	if o.DryRun {
		d.log.Infow("would bump", "id", id, "title", title, "bumpControl", hasBump)
		attempt := model.BumpAttempt{PostingID: id, AttemptedAt: d.when, Outcome: model.OutcomeDryRun}
		if err := o.Store.InsertAttempt(ctx, attempt); err != nil {
			// Simulated rows are non-critical audit data.
			d.log.Debugw("dry-run row write failed, ignoring", "id", id, "err", err)
		}
		return false
	}

	var (
		outcome       model.Outcome
		coins         *int
		visitedLedger bool
	)
	if hasBump {
		outcome, coins, visitedLedger = o.executeBump(ctx, d, id, bumpSel)
	} else {
		// No control means the confirmation dialog could never be reached.
		outcome = model.OutcomeModalNotFound
	}

	attempt := model.BumpAttempt{PostingID: id, AttemptedAt: d.when, CoinsUsed: coins, Outcome: outcome}
	if err := o.Store.InsertAttempt(ctx, attempt); err != nil {
		// A live outcome with no row means real coin spend with no record.
		d.log.Errorw("LIVE attempt row write failed, coin spend may be unrecorded",
			"id", id, "outcome", outcome, "coins", coinsLabel(coins), "err", err)
	}
	if o.Events != nil {
		if err := o.Events.PublishAttempt(ctx, attempt); err != nil {
			d.log.Warnw("publishing bump event failed", "id", id, "err", err)
		}
	}

	d.log.Infow("posting processed",
		"id", id, "title", title, "outcome", outcome, "coins", coinsLabel(coins))

	if visitedLedger {
		// The coin ledger fallback navigated away; restore the listing for
		// the next card.
		if err := d.nav.EnsureListing(ctx, d.sess); err != nil {
			d.log.Warnw("listing page lost after ledger lookup", "err", err)
		}
	}
	return visitedLedger
}

// modalRun is one open→classify→confirm pass over the dialog.
type modalRun struct {
	opened       bool
	insufficient bool
	dialog       Reading
	confirm      ConfirmStatus
}

func (o *Orchestrator) runModal(ctx context.Context, d *cycleDeps, bumpSel string) modalRun {
	var r modalRun
	if r.opened = d.modal.Open(ctx, bumpSel); !r.opened {
		return r
	}
	if r.insufficient = d.modal.InsufficientFunds(ctx); r.insufficient {
		return r
	}
	// The total must be read while the dialog is still open; it may be gone
	// the instant confirm lands.
	r.dialog = d.acct.DialogTotal(ctx)
	r.confirm = d.modal.Confirm(ctx)
	return r
}

// executeBump drives the live pipeline for one posting and classifies the
// result. The dialog state is force-closed on every terminal branch.
func (o *Orchestrator) executeBump(ctx context.Context, d *cycleDeps, id, bumpSel string) (model.Outcome, *int, bool) {
	pre := d.acct.HeaderBalance(ctx)

	r := o.runModal(ctx, d, bumpSel)
	if r.opened && !r.insufficient && r.confirm == ConfirmStuck {
		// Confirm landed but the dialog never closed: retry the entire
		// open→confirm sequence exactly once.
		d.log.Warnw("dialog stuck after confirm, retrying once", "id", id)
		d.modal.ForceClose(ctx)
		r = o.runModal(ctx, d, bumpSel)
	}

	switch {
	case !r.opened:
		d.modal.ForceClose(ctx)
		return model.OutcomeModalNotFound, nil, false

	case r.insufficient:
		saveScreenshot(ctx, d.page, filepath.Join(o.DataDir, "insufficient_"+id+".png"), d.log)
		d.modal.ForceClose(ctx)
		return model.OutcomeInsufficientCoins, model.Coins(0), false

	case r.confirm != ConfirmDone:
		d.modal.ForceClose(ctx)
		return model.OutcomeBumpFailed, nil, false
	}

	d.modal.ForceClose(ctx)
	saveScreenshot(ctx, d.page, filepath.Join(o.DataDir, "after_bump_"+id+".png"), d.log)

	coins, visitedLedger := d.acct.Reconcile(ctx, pre, r.dialog)
	if coins == nil {
		return model.OutcomeBumpedUnknown, nil, visitedLedger
	}
	return model.OutcomeBumped, coins, visitedLedger
}

func coinsLabel(coins *int) string {
	if coins == nil {
		return "unknown"
	}
	return strconv.Itoa(*coins)
}
