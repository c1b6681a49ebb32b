package bump

import (
	"context"
	"regexp"
	"strings"

	"github.com/SKUMP0/fastjob-bot/internal/browser"
)

// CardSel matches one rendered posting container on the listing page.
const CardSel = "div.job-ad-flexbox"

// UnknownTitle is the sentinel stored when no title can be extracted.
const UnknownTitle = "Unknown Title"

const (
	jidLinkSel   = "a[href*='jid=']"
	statIDSel    = ".stat-number[id^='jobAdStat_']"
	permalinkSel = "a[href*='fastjobs.sg/'][href*='/job-ad/']"
	titleSpanSel = "h3 a span.job-ad-title"
	headingSel   = "h3"

	maxIDLinks = 20
)

var (
	jidParamRe = regexp.MustCompile(`(?i)[?&]jid=(\d+)\b`)
	statIDRe   = regexp.MustCompile(`(?i)jobAdStat_(?:views|applications|shares|messages|savedjob|invitation)_(\d+)$`)
	permalinkRe = regexp.MustCompile(`/(\d{6,})/`)

	spaceRunRe = regexp.MustCompile(`\s+`)
	// Unicode space variants the portal sprinkles into titles.
	oddSpaces = strings.NewReplacer("\u00a0", " ", "\u2007", " ", "\u202f", " ")
)

// Locator extracts a stable identifier and a human title from one rendered
// posting card.
type Locator struct {
	page browser.Page
}

// NewLocator returns a Locator over page.
func NewLocator(page browser.Page) *Locator { return &Locator{page: page} }

// ExtractID resolves the posting identifier using an ordered strategy chain:
// identifier-bearing links, then statistics-counter DOM ids, then the public
// permalink. The order is total; the first strategy that succeeds wins.
func (l *Locator) ExtractID(ctx context.Context, card string) (string, bool) {
	for _, strategy := range []func(context.Context, string) (string, bool){
		l.idFromLinks,
		l.idFromStatCounter,
		l.idFromPermalink,
	} {
		if id, ok := strategy(ctx, card); ok {
			return id, true
		}
	}
	return "", false
}

// idFromLinks scans up to maxIDLinks in-card anchors carrying a jid query
// parameter.
func (l *Locator) idFromLinks(ctx context.Context, card string) (string, bool) {
	hrefs, err := l.page.AttrAll(ctx, card+" "+jidLinkSel, "href", maxIDLinks)
	if err != nil {
		return "", false
	}
	for _, href := range hrefs {
		if m := jidParamRe.FindStringSubmatch(href); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// idFromStatCounter reads the sibling statistics element whose DOM id encodes
// the posting id as a numeric suffix (views/applications/shares/messages/
// savedjob/invitation counters).
func (l *Locator) idFromStatCounter(ctx context.Context, card string) (string, bool) {
	id, err := l.page.Attr(ctx, card+" "+statIDSel, "id")
	if err != nil || id == "" {
		return "", false
	}
	if m := statIDRe.FindStringSubmatch(strings.TrimSpace(id)); m != nil {
		return m[1], true
	}
	return "", false
}

// idFromPermalink extracts a ≥6-digit path segment from the public job-ad
// link.
func (l *Locator) idFromPermalink(ctx context.Context, card string) (string, bool) {
	href, err := l.page.Attr(ctx, card+" "+permalinkSel, "href")
	if err != nil || href == "" {
		return "", false
	}
	if m := permalinkRe.FindStringSubmatch(href); m != nil {
		return m[1], true
	}
	return "", false
}

// ExtractTitle prefers the nested heading/link/span combination, falls back
// to any heading text, then to the UnknownTitle sentinel.
func (l *Locator) ExtractTitle(ctx context.Context, card string) string {
	if t, err := l.page.Text(ctx, card+" "+titleSpanSel); err == nil {
		if normalized := NormalizeTitle(t); normalized != "" {
			return normalized
		}
	}
	if t, err := l.page.Text(ctx, card+" "+headingSel); err == nil {
		if normalized := NormalizeTitle(t); normalized != "" {
			return normalized
		}
	}
	return UnknownTitle
}

// NormalizeTitle strips non-breaking/figure/narrow space variants and
// collapses whitespace runs.
func NormalizeTitle(s string) string {
	s = oddSpaces.Replace(s)
	return strings.TrimSpace(spaceRunRe.ReplaceAllString(s, " "))
}
