// Package browser abstracts the automated browser page behind a small
// interface so the bump pipeline can be exercised against a fake in tests.
// The production implementation drives Chrome over CDP (see chrome.go).
package browser

import (
	"context"
	"time"
)

// Page is one live browser tab. Selectors are plain CSS. Lookup methods
// return zero values for missing elements; an error means the driver itself
// failed. Pattern arguments are case-insensitive regular expression sources
// restricted to syntax valid in both Go and JavaScript.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	URL(ctx context.Context) (string, error)

	Count(ctx context.Context, sel string) (int, error)
	Text(ctx context.Context, sel string) (string, error)
	TextAll(ctx context.Context, sel string, max int) ([]string, error)
	Attr(ctx context.Context, sel, name string) (string, error)
	AttrAll(ctx context.Context, sel, name string, max int) ([]string, error)
	// Visible reports whether ANY element matching sel is currently visible.
	Visible(ctx context.Context, sel string) (bool, error)
	// MarkAll tags every element matching sel with a unique attribute and
	// returns one stable selector per element, in document order. Index-based
	// selectors go stale when the portal re-renders; marks do not.
	MarkAll(ctx context.Context, sel string) ([]string, error)

	Click(ctx context.Context, sel string) error
	ForceClick(ctx context.Context, sel string) error // synthetic mouse events, ignores overlays
	JSClick(ctx context.Context, sel string) error    // programmatic element.click()
	Hover(ctx context.Context, sel string) error
	Focus(ctx context.Context, sel string) error
	ScrollIntoView(ctx context.Context, sel string) error
	Press(ctx context.Context, key string) error
	Type(ctx context.Context, sel, text string) error

	// FindControl returns a selector for the first interactive element inside
	// scope (empty scope = whole document) whose accessible name matches
	// pattern. ok is false when nothing matches.
	FindControl(ctx context.Context, scope, pattern string) (sel string, ok bool, err error)
	// FindText is FindControl for arbitrary leaf text nodes. When visibleOnly
	// is set, hidden matches are skipped — the deciding signal for telling a
	// live dialog apart from a stale hidden copy elsewhere on the page.
	FindText(ctx context.Context, scope, pattern string, visibleOnly bool) (sel string, ok bool, err error)

	// Detach forcibly removes every matching node and restores page scroll.
	// Returns the number of removed nodes.
	Detach(ctx context.Context, sel string) (int, error)

	// WaitQuiescent blocks until in-flight loads settle or timeout elapses.
	// Never returns an error for a timeout.
	WaitQuiescent(ctx context.Context, timeout time.Duration) error

	Cookies(ctx context.Context) ([]Cookie, error)
	SetCookies(ctx context.Context, cookies []Cookie) error

	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	HTML(ctx context.Context) (string, error)
}

// Launcher produces a fresh Page per cycle. The returned cleanup tears the
// whole browser down; a cycle never reuses another cycle's page.
type Launcher interface {
	Launch(ctx context.Context) (Page, func(), error)
}

// Cookie is the serialized session-state shape persisted between cycles.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"` // unix seconds, 0 = session cookie
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// PollUntil runs pred every interval until it returns true or timeout
// elapses, reporting whether the predicate ever held. Predicate errors count
// as "not yet" — waits compose as plain conditionals, never as exceptions.
func PollUntil(ctx context.Context, timeout, interval time.Duration, pred func(context.Context) (bool, error)) bool {
	deadline := time.Now().Add(timeout)
	for {
		if ok, err := pred(ctx); err == nil && ok {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
	}
}

// WaitVisible polls until sel is visible.
func WaitVisible(ctx context.Context, p Page, sel string, timeout time.Duration) bool {
	return PollUntil(ctx, timeout, pollInterval, func(ctx context.Context) (bool, error) {
		return p.Visible(ctx, sel)
	})
}

// WaitHidden polls until sel is absent or no longer visible.
func WaitHidden(ctx context.Context, p Page, sel string, timeout time.Duration) bool {
	return PollUntil(ctx, timeout, pollInterval, func(ctx context.Context) (bool, error) {
		visible, err := p.Visible(ctx, sel)
		return !visible, err
	})
}

const pollInterval = 150 * time.Millisecond
