package bump

import (
	"context"

	"go.uber.org/zap"

	"github.com/SKUMP0/fastjob-bot/internal/browser"
)

// consentLabels are cookie/consent banner buttons, tried in order.
var consentLabels = []string{"Accept", "I agree", "Agree", "OK", "Got it"}

// strayCloseSels close unrelated promotional and toast overlays that can
// silently swallow clicks meant for a card.
var strayCloseSels = []string{
	".promo-popup .close",
	".announcement-bar .dismiss",
	".toast .close",
}

// Hygiene dismisses unrelated overlays. Invoked before processing and after
// every posting; entirely best-effort and never fails.
type Hygiene struct {
	page browser.Page
	log  *zap.SugaredLogger
}

// NewHygiene returns a Hygiene sweeper over page.
func NewHygiene(page browser.Page, log *zap.SugaredLogger) *Hygiene {
	return &Hygiene{page: page, log: log}
}

// Sweep dismisses consent banners and stray overlays.
func (h *Hygiene) Sweep(ctx context.Context) {
	for _, label := range consentLabels {
		sel, ok, err := h.page.FindControl(ctx, "", "^"+label+"$")
		if err != nil || !ok {
			continue
		}
		if visible, err := h.page.Visible(ctx, sel); err == nil && visible {
			if h.page.Click(ctx, sel) == nil {
				h.log.Debugw("dismissed consent banner", "label", label)
			}
			break
		}
	}

	for _, sel := range strayCloseSels {
		if visible, err := h.page.Visible(ctx, sel); err == nil && visible {
			_ = h.page.Click(ctx, sel)
		}
	}
}
