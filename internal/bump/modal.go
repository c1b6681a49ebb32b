package bump

import (
	"context"

	"go.uber.org/zap"

	"github.com/SKUMP0/fastjob-bot/internal/browser"
)

const (
	// dialogReadySel matches a confirmation dialog that reports itself fully
	// initialized — present-but-uninitialized dialogs linger in the DOM, so
	// readiness is the class the portal's modal framework adds on open.
	dialogReadySel = ".modal.show, .modal.in, .sheet-modal.modal-in"

	insufficientModalSel = "#insufficientCoinsModal"
	insufficientPattern  = `insufficient coins`

	orderSummarySel = ".order-summary"
	confirmPattern  = `confirm|bump now`

	backdropSel = ".modal-backdrop, .sheet-backdrop"
	overlaySel  = ".modal, .modal-backdrop, .sheet-modal, .sheet-backdrop"
)

// closeControlSels is the ordered explicit-close chain, most specific first.
var closeControlSels = []string{
	".insufficient-cancel-modal",
	"[data-dismiss='modal']",
	".modal .fast-button",
	".modal button",
}

// ConfirmStatus is the result of driving the confirm step.
type ConfirmStatus int

const (
	ConfirmDone     ConfirmStatus = iota // dialog confirmed and dismissed
	ConfirmNoButton                      // no confirm control found
	ConfirmStuck                         // clicked, but the dialog never closed
)

// ModalController drives the bump confirmation dialog lifecycle:
// Closed → Opening → Open → Confirming → Closed(Success), with the alternate
// Open → InsufficientFunds → Closed(Declined) branch. ForceClose guarantees
// a clean slate after every terminal branch so residual overlay state never
// blocks the next posting.
type ModalController struct {
	page browser.Page
	log  *zap.SugaredLogger
	t    Timeouts
}

// NewModalController returns a controller over page.
func NewModalController(page browser.Page, log *zap.SugaredLogger, t Timeouts) *ModalController {
	return &ModalController{page: page, log: log, t: t}
}

// Open clicks the bump control and waits for the dialog to report readiness.
// An intercepted click is retried once with a forced click. Returns false
// when the dialog never becomes ready within the bound; classification is
// the caller's job, there is no retry at this layer.
func (m *ModalController) Open(ctx context.Context, bumpSel string) bool {
	if err := m.page.Click(ctx, bumpSel); err != nil {
		m.log.Debugw("bump click intercepted, forcing", "err", err)
		if err := m.page.ForceClick(ctx, bumpSel); err != nil {
			return false
		}
	}
	return browser.WaitVisible(ctx, m.page, dialogReadySel, m.t.ModalOpen)
}

// InsufficientFunds reports whether the open dialog is the insufficient-
// balance variant. Visibility is the deciding signal: a hidden copy of the
// same dialog left over elsewhere on the page must not count.
func (m *ModalController) InsufficientFunds(ctx context.Context) bool {
	if visible, err := m.page.Visible(ctx, insufficientModalSel); err == nil && visible {
		return true
	}
	_, ok, err := m.page.FindText(ctx, "", insufficientPattern, true)
	return err == nil && ok
}

// Confirm locates the confirm button (content match inside the order-summary
// region, accessible-name fallback), clicks it with escalating strategies,
// and waits for the dialog to report itself hidden — the success signal.
func (m *ModalController) Confirm(ctx context.Context) ConfirmStatus {
	sel, ok, err := m.page.FindControl(ctx, orderSummarySel, confirmPattern)
	if err != nil || !ok {
		sel, ok, err = m.page.FindControl(ctx, "", confirmPattern)
	}
	if err != nil || !ok {
		return ConfirmNoButton
	}

	// Overlays frequently intercept the first strategies; escalate.
	clicked := m.page.Click(ctx, sel) == nil ||
		m.page.ForceClick(ctx, sel) == nil ||
		m.page.JSClick(ctx, sel) == nil
	if !clicked {
		return ConfirmStuck
	}

	if browser.WaitHidden(ctx, m.page, dialogReadySel, m.t.ModalClose) {
		return ConfirmDone
	}
	return ConfirmStuck
}

// ForceClose dismisses whatever dialog/overlay state remains: explicit close
// control, then Escape, then a backdrop click, then unconditionally detach
// any known overlay elements and restore page scroll. It always leaves zero
// residual overlay state — the invariant unattended multi-posting runs
// depend on.
func (m *ModalController) ForceClose(ctx context.Context) {
	if !m.residual(ctx) {
		return
	}

	for _, sel := range closeControlSels {
		visible, err := m.page.Visible(ctx, sel)
		if err != nil || !visible {
			continue
		}
		if m.page.Click(ctx, sel) == nil && m.waitCleared(ctx) {
			return
		}
	}

	if m.page.Press(ctx, "Escape") == nil && m.waitCleared(ctx) {
		return
	}

	if visible, err := m.page.Visible(ctx, backdropSel); err == nil && visible {
		if m.page.ForceClick(ctx, backdropSel) == nil && m.waitCleared(ctx) {
			return
		}
	}

	removed, _ := m.page.Detach(ctx, overlaySel)
	if removed > 0 {
		m.log.Debugw("detached residual overlay elements", "count", removed)
	}
}

// residual reports whether any dialog or backdrop is still visible.
func (m *ModalController) residual(ctx context.Context) bool {
	visible, err := m.page.Visible(ctx, overlaySel)
	return err == nil && visible
}

func (m *ModalController) waitCleared(ctx context.Context) bool {
	return browser.WaitHidden(ctx, m.page, overlaySel, m.t.Visible)
}
