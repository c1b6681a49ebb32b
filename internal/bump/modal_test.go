package bump_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SKUMP0/fastjob-bot/internal/bump"
)

// Selector constants duplicated from the controller's contract with the
// portal DOM; the fake resolves them by exact string.
const (
	dialogSel  = ".modal.show, .modal.in, .sheet-modal.modal-in"
	overlaySel = ".modal, .modal-backdrop, .sheet-modal, .sheet-backdrop"
	bumpSel    = "#bump-btn"
)

func newModal(page *fakePage) *bump.ModalController {
	return bump.NewModalController(page, testLogger(), testTimeouts())
}

func TestOpenSuccess(t *testing.T) {
	page := newFakePage()
	page.onClick[bumpSel] = func(p *fakePage) { p.visible[dialogSel] = true }

	assert.True(t, newModal(page).Open(context.Background(), bumpSel))
}

func TestOpenRetriesWithForcedClick(t *testing.T) {
	page := newFakePage()
	page.clickErr[bumpSel] = errors.New("element intercepted")
	page.onClick[bumpSel] = func(p *fakePage) { p.visible[dialogSel] = true }

	assert.True(t, newModal(page).Open(context.Background(), bumpSel))
	assert.Equal(t, []string{bumpSel}, page.forced)
}

func TestOpenDialogNeverReady(t *testing.T) {
	page := newFakePage()
	assert.False(t, newModal(page).Open(context.Background(), bumpSel))
}

func TestInsufficientFundsByModal(t *testing.T) {
	page := newFakePage()
	page.visible["#insufficientCoinsModal"] = true

	assert.True(t, newModal(page).InsufficientFunds(context.Background()))
}

func TestInsufficientFundsByVisibleText(t *testing.T) {
	page := newFakePage()
	page.found[key3("", `insufficient coins`, true)] = "#warning"

	assert.True(t, newModal(page).InsufficientFunds(context.Background()))
}

func TestInsufficientFundsIgnoresHiddenCopy(t *testing.T) {
	page := newFakePage()
	// A hidden copy of the warning exists elsewhere on the page; only a
	// visible match may decide.
	page.found[key3("", `insufficient coins`, false)] = "#stale-warning"

	assert.False(t, newModal(page).InsufficientFunds(context.Background()))
}

func TestConfirmHappyPath(t *testing.T) {
	page := newFakePage()
	page.visible[dialogSel] = true
	page.controls[key2(".order-summary", `confirm|bump now`)] = "#confirm"
	page.onClick["#confirm"] = func(p *fakePage) { p.visible[dialogSel] = false }

	assert.Equal(t, bump.ConfirmDone, newModal(page).Confirm(context.Background()))
}

func TestConfirmDocumentFallback(t *testing.T) {
	page := newFakePage()
	page.visible[dialogSel] = true
	page.controls[key2("", `confirm|bump now`)] = "#confirm"
	page.onClick["#confirm"] = func(p *fakePage) { p.visible[dialogSel] = false }

	assert.Equal(t, bump.ConfirmDone, newModal(page).Confirm(context.Background()))
}

func TestConfirmNoButton(t *testing.T) {
	page := newFakePage()
	page.visible[dialogSel] = true

	assert.Equal(t, bump.ConfirmNoButton, newModal(page).Confirm(context.Background()))
}

func TestConfirmStuckDialog(t *testing.T) {
	page := newFakePage()
	page.visible[dialogSel] = true
	page.controls[key2("", `confirm|bump now`)] = "#confirm"
	// Click lands but the dialog stays visible.

	assert.Equal(t, bump.ConfirmStuck, newModal(page).Confirm(context.Background()))
}

func TestConfirmClickEscalation(t *testing.T) {
	page := newFakePage()
	page.visible[dialogSel] = true
	page.controls[key2("", `confirm|bump now`)] = "#confirm"
	// Every click strategy fails; each must have been attempted, in order.
	page.clickErr["#confirm"] = errors.New("overlay intercepted")
	page.forceErr["#confirm"] = errors.New("overlay intercepted")
	page.jsErr["#confirm"] = errors.New("node detached")

	status := newModal(page).Confirm(context.Background())

	require.Equal(t, bump.ConfirmStuck, status)
	assert.Equal(t, []string{"#confirm"}, page.clicks)
	assert.Equal(t, []string{"#confirm"}, page.forced)
	assert.Equal(t, []string{"#confirm"}, page.jsClicks)
}

func TestForceCloseNoResidualState(t *testing.T) {
	page := newFakePage()
	newModal(page).ForceClose(context.Background())
	assert.Empty(t, page.clicks)
	assert.Empty(t, page.detached)
}

func TestForceCloseViaCloseControl(t *testing.T) {
	page := newFakePage()
	page.visible[overlaySel] = true
	page.visible["[data-dismiss='modal']"] = true
	page.onClick["[data-dismiss='modal']"] = func(p *fakePage) { p.visible[overlaySel] = false }

	newModal(page).ForceClose(context.Background())
	assert.Contains(t, page.clicks, "[data-dismiss='modal']")
	assert.Empty(t, page.detached)
}

func TestForceCloseEscalatesToDetach(t *testing.T) {
	page := newFakePage()
	page.visible[overlaySel] = true
	page.visible[".modal-backdrop, .sheet-backdrop"] = true

	newModal(page).ForceClose(context.Background())

	// Close chain, Escape and backdrop click all failed; the overlay nodes
	// must be removed outright.
	assert.Contains(t, page.pressed, "Escape")
	assert.Contains(t, page.detached, overlaySel)

	visible, err := page.Visible(context.Background(), overlaySel)
	require.NoError(t, err)
	assert.False(t, visible)
}
