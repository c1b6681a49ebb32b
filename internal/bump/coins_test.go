package bump_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SKUMP0/fastjob-bot/internal/bump"
)

const testBase = "https://employer.example"

func newAccountant(page *fakePage) *bump.Accountant {
	return bump.NewAccountant(page, testLogger(), testBase, testTimeouts())
}

func TestHeaderBalanceParsesGroupedNumber(t *testing.T) {
	page := newFakePage()
	page.texts[".coin-balance"] = "1,250 coins available"

	r := newAccountant(page).HeaderBalance(context.Background())
	require.True(t, r.OK)
	assert.Equal(t, 1250, r.Value)
}

func TestHeaderBalanceAbsent(t *testing.T) {
	page := newFakePage()
	assert.False(t, newAccountant(page).HeaderBalance(context.Background()).OK)
}

func TestDialogTotalIgnoresZero(t *testing.T) {
	page := newFakePage()
	page.texts[".order-summary .total"] = "0 coins"

	assert.False(t, newAccountant(page).DialogTotal(context.Background()).OK)
}

func TestReconcileBalanceDeltaWins(t *testing.T) {
	page := newFakePage()
	page.texts[".coin-balance"] = "95"

	pre := bump.Reading{Value: 100, OK: true}
	dialog := bump.Reading{Value: 3, OK: true} // present but lower priority

	coins, visited := newAccountant(page).Reconcile(context.Background(), pre, dialog)
	require.NotNil(t, coins)
	assert.Equal(t, 5, *coins)
	assert.False(t, visited)
}

func TestReconcileRisingBalanceDiscarded(t *testing.T) {
	page := newFakePage()
	// A concurrent top-up made the balance rise; the delta means nothing.
	page.texts[".coin-balance"] = "200"

	pre := bump.Reading{Value: 100, OK: true}
	dialog := bump.Reading{Value: 5, OK: true}

	coins, _ := newAccountant(page).Reconcile(context.Background(), pre, dialog)
	require.NotNil(t, coins)
	assert.Equal(t, 5, *coins)
}

func TestReconcileZeroDeltaFallsThrough(t *testing.T) {
	page := newFakePage()
	page.texts[".coin-balance"] = "100"

	pre := bump.Reading{Value: 100, OK: true}
	dialog := bump.Reading{Value: 4, OK: true}

	coins, _ := newAccountant(page).Reconcile(context.Background(), pre, dialog)
	require.NotNil(t, coins)
	assert.Equal(t, 4, *coins)
}

func TestReconcileToastFallback(t *testing.T) {
	page := newFakePage()
	page.textList[".toast"] = []string{
		"Your job ad was bumped!",
		"3 coins deducted from your balance",
	}

	coins, visited := newAccountant(page).Reconcile(context.Background(), bump.Reading{}, bump.Reading{})
	require.NotNil(t, coins)
	assert.Equal(t, 3, *coins)
	assert.False(t, visited)
}

func TestReconcileLedgerFallback(t *testing.T) {
	page := newFakePage()
	// First candidate page 404s at the navigation level, second one exists
	// and mentions the charge.
	page.navErr[testBase+"/p/coins/credits/"] = errors.New("net::ERR_ABORTED")
	page.onNavigate[testBase+"/p/coins/wallet/"] = func(p *fakePage) {
		p.html = "<td>Job Ad Bump - 5 coins</td>"
	}

	coins, visited := newAccountant(page).Reconcile(context.Background(), bump.Reading{}, bump.Reading{})
	require.NotNil(t, coins)
	assert.Equal(t, 5, *coins)
	assert.True(t, visited)
}

func TestReconcileLedgerStopsAtFirstExistingPage(t *testing.T) {
	page := newFakePage()
	// The first candidate exists but shows no bump charge: the chain must
	// stop there rather than hammer every candidate page.
	page.onNavigate[testBase+"/p/coins/credits/"] = func(p *fakePage) {
		p.html = "<h1>Credits</h1><p>No recent transactions</p>"
	}

	coins, visited := newAccountant(page).Reconcile(context.Background(), bump.Reading{}, bump.Reading{})
	assert.Nil(t, coins)
	assert.True(t, visited)
	assert.Equal(t, []string{testBase + "/p/coins/credits/"}, page.navigated)
}

func TestReconcileSkipsSoft404(t *testing.T) {
	page := newFakePage()
	page.onNavigate[testBase+"/p/coins/credits/"] = func(p *fakePage) {
		p.html = "<h1>Page not found</h1>"
	}
	page.onNavigate[testBase+"/p/coins/wallet/"] = func(p *fakePage) {
		p.html = "7 coins charged for bump"
	}

	coins, _ := newAccountant(page).Reconcile(context.Background(), bump.Reading{}, bump.Reading{})
	require.NotNil(t, coins)
	assert.Equal(t, 7, *coins)
}

func TestReconcileNoSignalAtAll(t *testing.T) {
	page := newFakePage()
	for _, path := range []string{
		"/p/coins/credits/", "/p/coins/wallet/", "/p/coins/transactions/",
		"/p/my-activity/activity/", "/p/coins/usage/", "/p/billing/",
	} {
		page.navErr[testBase+path] = errors.New("net::ERR_ABORTED")
	}

	coins, visited := newAccountant(page).Reconcile(context.Background(), bump.Reading{}, bump.Reading{})
	assert.Nil(t, coins)
	assert.False(t, visited)
}
