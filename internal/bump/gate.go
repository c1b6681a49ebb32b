package bump

import (
	"context"

	"go.uber.org/zap"

	"github.com/SKUMP0/fastjob-bot/internal/browser"
)

const (
	bumpActionSel = "[data-action='bump']"

	bumpLabelPattern = `\bbump\b`
	moreLabelPattern = `more actions|more options|\.\.\.`
)

// interactiveSels are the element kinds whose appearance inside a card means
// its lazy content has mounted.
var interactiveSels = []string{"button", "a", "[role='button']"}

// Gate waits for a posting card's interactive controls to materialize and
// locates its bump control. Cards mount content lazily on scroll and hover;
// a single direct query is unreliable, so the lookup is an ordered chain
// behind a render-readiness wait.
type Gate struct {
	page browser.Page
	log  *zap.SugaredLogger
	t    Timeouts
}

// NewGate returns a Gate over page.
func NewGate(page browser.Page, log *zap.SugaredLogger, t Timeouts) *Gate {
	return &Gate{page: page, log: log, t: t}
}

// FindBumpControl returns a selector for the card's clickable bump control,
// or ok=false when none materializes within the bounds. Not-found is a
// value, never an error.
func (g *Gate) FindBumpControl(ctx context.Context, card string) (string, bool) {
	// Trigger the lazy mount, then give the card a chance to render anything
	// interactive at all before hunting for the specific control.
	_ = g.page.ScrollIntoView(ctx, card)
	_ = g.page.Hover(ctx, card)
	_ = g.page.WaitQuiescent(ctx, g.t.Quiescence)

	if !g.waitInteractive(ctx, card) {
		g.log.Debugw("card never rendered interactive content", "card", card)
		return "", false
	}

	if sel, ok := g.byActionAttribute(ctx, card); ok {
		return sel, true
	}
	if sel, ok := g.byAccessibleName(ctx, card); ok {
		return sel, true
	}
	return g.byRevealedActionPanel(ctx, card)
}

// waitInteractive is the render-readiness gate: any interactive element
// inside the card.
func (g *Gate) waitInteractive(ctx context.Context, card string) bool {
	return browser.PollUntil(ctx, g.t.Render, pollEvery, func(ctx context.Context) (bool, error) {
		for _, sel := range interactiveSels {
			if n, err := g.page.Count(ctx, card+" "+sel); err == nil && n > 0 {
				return true, nil
			}
		}
		return false, nil
	})
}

// byActionAttribute looks for the explicitly tagged bump control.
func (g *Gate) byActionAttribute(ctx context.Context, card string) (string, bool) {
	sel := card + " " + bumpActionSel
	if browser.WaitVisible(ctx, g.page, sel, g.t.Visible) {
		return sel, true
	}
	return "", false
}

// byAccessibleName matches a control whose accessible name contains "bump".
func (g *Gate) byAccessibleName(ctx context.Context, card string) (string, bool) {
	sel, ok, err := g.page.FindControl(ctx, card, bumpLabelPattern)
	if err != nil || !ok {
		return "", false
	}
	if browser.WaitVisible(ctx, g.page, sel, g.t.Visible) {
		return sel, true
	}
	return "", false
}

// byRevealedActionPanel focuses a "more actions" control to force-reveal the
// hidden action panel, then retries the explicit attribute lookup.
func (g *Gate) byRevealedActionPanel(ctx context.Context, card string) (string, bool) {
	moreSel, ok, err := g.page.FindControl(ctx, card, moreLabelPattern)
	if err != nil || !ok {
		return "", false
	}
	if err := g.page.Focus(ctx, moreSel); err != nil {
		return "", false
	}
	return g.byActionAttribute(ctx, card)
}
