package bump

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/SKUMP0/fastjob-bot/internal/browser"
)

// ErrNoListingPage aborts the cycle: no fallback reached a page with posting
// cards.
var ErrNoListingPage = errors.New("could not reach a job listing page with posting cards")

// listingLabels are the navigation-link names the portal has used for the
// listing page over time, current first.
var listingLabels = []string{"Manage Jobs", "My Jobs", "Jobs", "Job Listings", "Manage Job"}

const (
	canonicalListingPath = "/p/job/manage/?coyid="
	accountPagePath      = "/p/my-activity/dashboard/"
)

// legacyListingPaths are historical listing URL shapes.
var legacyListingPaths = []string{
	"/p/job/?coyid=",
	"/p/jobs/manage/?coyid=",
}

var coyidParamRe = regexp.MustCompile(`(?i)[?&]coyid=(\d+)\b`)

// Navigator establishes a working listing page despite an unstable employer
// identifier and multiple historical URL shapes.
type Navigator struct {
	page    browser.Page
	log     *zap.SugaredLogger
	baseURL string
	dataDir string
	t       Timeouts
}

// NewNavigator returns a Navigator over page.
func NewNavigator(page browser.Page, log *zap.SugaredLogger, baseURL, dataDir string, t Timeouts) *Navigator {
	return &Navigator{page: page, log: log, baseURL: baseURL, dataDir: dataDir, t: t}
}

// EnsureListing reaches a listing page with posting cards, updating
// sess.CompanyID when it has to auto-detect the employer identifier. It
// performs exactly one full reload-and-retry pass; on total failure it
// captures diagnostics and returns ErrNoListingPage.
func (n *Navigator) EnsureListing(ctx context.Context, sess *SessionContext) error {
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			n.log.Warnw("listing not reached, reloading for one retry pass")
			_ = n.page.Reload(ctx)
			_ = n.page.WaitQuiescent(ctx, n.t.Quiescence)
		}
		if n.resolve(ctx, sess) {
			return nil
		}
	}
	n.captureDiagnostics(ctx)
	return ErrNoListingPage
}

// resolve runs the fallback chain once.
func (n *Navigator) resolve(ctx context.Context, sess *SessionContext) bool {
	if sess.CompanyID != "" && n.openListing(ctx, n.baseURL+canonicalListingPath+sess.CompanyID) {
		return true
	}

	if id, ok := n.detectCompanyID(ctx); ok && id != sess.CompanyID {
		n.log.Infow("auto-detected company id", "coyid", id)
		sess.CompanyID = id
		if n.openListing(ctx, n.baseURL+canonicalListingPath+id) {
			return true
		}
	}

	for _, label := range listingLabels {
		sel, ok, err := n.page.FindControl(ctx, "", "^"+label+"$")
		if err != nil || !ok {
			continue
		}
		if n.page.Click(ctx, sel) != nil {
			continue
		}
		_ = n.page.WaitQuiescent(ctx, n.t.Quiescence)
		if n.hasCards(ctx) {
			return true
		}
	}

	for _, path := range legacyListingPaths {
		if n.openListing(ctx, n.baseURL+path+sess.CompanyID) {
			return true
		}
	}
	return false
}

// detectCompanyID scans links on a neutral account page for the employer
// identifier query parameter.
func (n *Navigator) detectCompanyID(ctx context.Context) (string, bool) {
	if err := n.page.Navigate(ctx, n.baseURL+accountPagePath); err != nil {
		return "", false
	}
	_ = n.page.WaitQuiescent(ctx, n.t.Quiescence)

	hrefs, err := n.page.AttrAll(ctx, "a[href*='coyid=']", "href", 50)
	if err != nil {
		return "", false
	}
	for _, href := range hrefs {
		if m := coyidParamRe.FindStringSubmatch(href); m != nil {
			return m[1], true
		}
	}
	return "", false
}

func (n *Navigator) openListing(ctx context.Context, url string) bool {
	if err := n.page.Navigate(ctx, url); err != nil {
		return false
	}
	_ = n.page.WaitQuiescent(ctx, n.t.Quiescence)
	return n.hasCards(ctx)
}

func (n *Navigator) hasCards(ctx context.Context) bool {
	count, err := n.page.Count(ctx, CardSel)
	return err == nil && count > 0
}

// captureDiagnostics writes a timestamped screenshot and page dump for
// post-mortem inspection. Forensic aids only; failures here are logged and
// swallowed.
func (n *Navigator) captureDiagnostics(ctx context.Context) {
	ts := time.Now().UTC().Format("20060102T150405Z")

	saveScreenshot(ctx, n.page, filepath.Join(n.dataDir, "nav_failure_"+ts+".png"), n.log)

	if html, err := n.page.HTML(ctx); err == nil && html != "" {
		path := filepath.Join(n.dataDir, "nav_failure_"+ts+".html")
		if err := os.MkdirAll(n.dataDir, 0o755); err == nil {
			if err := os.WriteFile(path, []byte(html), 0o644); err == nil {
				n.log.Infow("navigation failure page dump written", "path", path)
			}
		}
	}
}

// saveScreenshot captures a full-page screenshot, falling back to the
// viewport when full-page capture fails. Best-effort.
func saveScreenshot(ctx context.Context, page browser.Page, path string, log *zap.SugaredLogger) {
	buf, err := page.Screenshot(ctx, true)
	if err != nil {
		buf, err = page.Screenshot(ctx, false)
	}
	if err != nil || len(buf) == 0 {
		log.Debugw("screenshot capture failed", "path", path, "err", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		log.Debugw("screenshot write failed", "path", path, "err", err)
		return
	}
	log.Infow("screenshot saved", "path", path)
}
