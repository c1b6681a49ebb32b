package bump

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/SKUMP0/fastjob-bot/internal/browser"
	"github.com/SKUMP0/fastjob-bot/internal/model"
)

// balanceSels locate the prominently displayed available-coin counter, most
// specific first.
var balanceSels = []string{
	"[data-coin-balance]",
	".coin-balance",
	".header-coins .amount",
	".coins-available",
}

// totalSels locate the line-item total inside the open order summary.
var totalSels = []string{
	".order-summary [data-total]",
	".order-summary .total",
	".order-summary .order-total",
}

// toastSels are transient notification containers scanned for a coin count.
var toastSels = []string{
	".toast",
	".alert",
	"[role='alert']",
	".notification",
}

// ledgerPaths are candidate account pages, cheapest-to-render first; the
// first that exists is searched and the chain stops there.
var ledgerPaths = []string{
	"/p/coins/credits/",
	"/p/coins/wallet/",
	"/p/coins/transactions/",
	"/p/my-activity/activity/",
	"/p/coins/usage/",
	"/p/billing/",
}

var (
	firstNumberRe = regexp.MustCompile(`(\d[\d,]*)`)
	coinCountRe   = regexp.MustCompile(`(?i)(\d[\d,]*)\s*coins?`)
	ledgerBumpRe  = regexp.MustCompile(`(?i)bump[^<>]{0,120}?(\d[\d,]*)\s*coins?|(\d[\d,]*)\s*coins?[^<>]{0,120}?bump`)
	notFoundRe    = regexp.MustCompile(`(?i)page not found|error 404`)
)

// Reading is one optional balance/total observation.
type Reading struct {
	Value int
	OK    bool
}

// Accountant determines the coins consumed by a confirmed-successful bump
// from an ordered set of independent signal sources. Any single source is
// unreliable — the balance widget may not repaint, the dialog may close
// before its total is readable, ledger pages are slow and sometimes absent —
// so cheaper same-page signals are tried before the page-navigation
// fallback.
type Accountant struct {
	page    browser.Page
	log     *zap.SugaredLogger
	baseURL string
	t       Timeouts
}

// NewAccountant returns an Accountant over page.
func NewAccountant(page browser.Page, log *zap.SugaredLogger, baseURL string, t Timeouts) *Accountant {
	return &Accountant{page: page, log: log, baseURL: baseURL, t: t}
}

// HeaderBalance reads the available-coin counter. Read once before the
// dialog opens and once after it closes; the delta is signal source #1.
func (a *Accountant) HeaderBalance(ctx context.Context) Reading {
	for _, sel := range balanceSels {
		text, err := a.page.Text(ctx, sel)
		if err != nil || text == "" {
			continue
		}
		if v, ok := parseCount(firstNumberRe, text); ok {
			return Reading{Value: v, OK: true}
		}
	}
	return Reading{}
}

// DialogTotal reads the order-summary total while the dialog is still open.
func (a *Accountant) DialogTotal(ctx context.Context) Reading {
	for _, sel := range totalSels {
		text, err := a.page.Text(ctx, sel)
		if err != nil || text == "" {
			continue
		}
		if v, ok := parseCount(firstNumberRe, text); ok && v > 0 {
			return Reading{Value: v, OK: true}
		}
	}
	return Reading{}
}

// Reconcile resolves the coin cost of a confirmed bump. pre was read before
// the dialog opened, dialog while it was open. The post-close balance, toast
// text and ledger page are read here, in that priority order. visitedLedger
// tells the caller the page has navigated away from the listing.
func (a *Accountant) Reconcile(ctx context.Context, pre, dialog Reading) (coins *int, visitedLedger bool) {
	post := a.HeaderBalance(ctx)
	if pre.OK && post.OK {
		if post.Value > pre.Value {
			// Balance increased between reads (e.g. a concurrent top-up):
			// the delta is meaningless, fall through to the next source.
			a.log.Debugw("balance rose across the attempt, discarding delta",
				"before", pre.Value, "after", post.Value)
		} else if delta := pre.Value - post.Value; delta > 0 {
			return model.Coins(delta), false
		}
	}

	if dialog.OK && dialog.Value > 0 {
		return model.Coins(dialog.Value), false
	}

	if v, ok := a.fromToast(ctx); ok {
		return model.Coins(v), false
	}

	v, ok, visited := a.fromLedger(ctx)
	if ok {
		return model.Coins(v), visited
	}
	return nil, visited
}

// fromToast scans transient notification elements for a coin-count pattern.
func (a *Accountant) fromToast(ctx context.Context) (int, bool) {
	for _, sel := range toastSels {
		texts, err := a.page.TextAll(ctx, sel, 10)
		if err != nil {
			continue
		}
		for _, text := range texts {
			if v, ok := parseCount(coinCountRe, text); ok && v > 0 {
				return v, true
			}
		}
	}
	return 0, false
}

// fromLedger navigates to the first existing candidate account page and
// searches its recent text for a bump-adjacent coin mention.
func (a *Accountant) fromLedger(ctx context.Context) (value int, ok bool, visited bool) {
	for _, path := range ledgerPaths {
		if err := a.page.Navigate(ctx, a.baseURL+path); err != nil {
			continue
		}
		visited = true
		_ = a.page.WaitQuiescent(ctx, a.t.Quiescence)

		html, err := a.page.HTML(ctx)
		if err != nil || html == "" || notFoundRe.MatchString(html) {
			continue
		}

		m := ledgerBumpRe.FindStringSubmatch(html)
		if m == nil {
			// The page exists but mentions no bump charge; the chain stops
			// at the first existing page.
			return 0, false, visited
		}
		digits := m[1]
		if digits == "" {
			digits = m[2]
		}
		if v, err := strconv.Atoi(strings.ReplaceAll(digits, ",", "")); err == nil && v > 0 {
			return v, true, visited
		}
		return 0, false, visited
	}
	return 0, false, visited
}

// parseCount extracts the first capture group of re as a non-negative int.
func parseCount(re *regexp.Regexp, text string) (int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
